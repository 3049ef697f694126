// Package hostws is the websocket client to the game host bridge. A Session
// keeps the latest observation, reconnects with backoff and exposes the host
// through the interfaces the farm controller consumes.
package hostws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hoardfarm.ai/internal/protocol"
)

var ErrNotConnected = errors.New("host bridge not connected")

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
	minBackoff   = 200 * time.Millisecond
	maxBackoff   = 5 * time.Second
)

type Config struct {
	URL        string
	ClientName string
}

// EventSink receives chat lines and zone changes as they arrive.
type EventSink interface {
	OnChat(text string)
	OnTerritoryChanged(territory uint16)
}

type Status struct {
	Connected   bool
	SessionID   string
	URL         string
	LastObsTick uint64
	LastError   string
}

type Session struct {
	cfg  Config
	sink EventSink
	log  *zap.Logger

	mu sync.RWMutex

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}

	connected bool
	lastErr   string
	sessionID string

	conn    *websocket.Conn
	writeMu sync.Mutex

	obs     protocol.ObsMsg
	haveObs bool

	// seq is the last ACT sequence number sent; pending is the last one
	// that occupies the host queue until acknowledged.
	seq     uint64
	pending uint64

	obsNotify chan struct{}
}

func New(cfg Config, sink EventSink, logger *zap.Logger) *Session {
	if cfg.ClientName == "" {
		cfg.ClientName = "farmbot"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:       cfg,
		sink:      sink,
		log:       logger.Named("hostws"),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		obsNotify: make(chan struct{}, 1),
	}
}

func (s *Session) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Close stops reconnecting and waits for the read loop to exit.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.Disconnect()
		s.startOnce.Do(func() { close(s.done) })
		<-s.done
	})
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	c := s.conn
	s.conn = nil
	s.connected = false
	s.obs = protocol.ObsMsg{}
	s.haveObs = false
	s.pending = 0
	s.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Connected:   s.connected,
		SessionID:   s.sessionID,
		URL:         s.cfg.URL,
		LastObsTick: s.obs.Tick,
		LastError:   s.lastErr,
	}
}

// Updates signals after each stored observation. Signals coalesce.
func (s *Session) Updates() <-chan struct{} { return s.obsNotify }

func (s *Session) run() {
	defer close(s.done)

	backoff := minBackoff
	for {
		select {
		case <-s.stop:
			s.Disconnect()
			return
		default:
		}

		if err := s.connectAndReadLoop(); err != nil {
			s.Disconnect()
			s.mu.Lock()
			s.lastErr = err.Error()
			s.mu.Unlock()
			s.log.Warn("host connection lost", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-s.stop:
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		return
	}
}

func (s *Session) connectAndReadLoop() error {
	d := websocket.Dialer{HandshakeTimeout: writeTimeout}
	conn, resp, err := d.Dial(s.cfg.URL, http.Header{})
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(protocol.NewHello(s.cfg.ClientName)); err != nil {
		_ = conn.Close()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.lastErr = ""
	s.mu.Unlock()

	for {
		select {
		case <-s.stop:
			_ = conn.Close()
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			select {
			case <-s.stop:
				return nil
			default:
			}
			return err
		}
		msg, err := protocol.DecodeHost(raw)
		if err != nil {
			s.log.Debug("drop host frame", zap.Error(err))
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg any) {
	switch m := msg.(type) {
	case protocol.WelcomeMsg:
		if !protocol.IsSupportedVersion(m.ProtocolVersion) {
			s.log.Warn("unsupported host protocol", zap.String("version", m.ProtocolVersion))
			return
		}
		s.mu.Lock()
		s.sessionID = m.SessionID
		s.connected = true
		s.mu.Unlock()
		s.log.Info("host connected", zap.String("session_id", m.SessionID))

	case protocol.ObsMsg:
		s.mu.Lock()
		s.obs = m
		s.haveObs = true
		s.mu.Unlock()
		select {
		case s.obsNotify <- struct{}{}:
		default:
		}

	case protocol.ChatMsg:
		if s.sink != nil {
			s.sink.OnChat(m.Text)
		}

	case protocol.TerritoryMsg:
		if s.sink != nil {
			s.sink.OnTerritoryChanged(m.Territory)
		}

	case protocol.ErrorMsg:
		lvl := zap.WarnLevel
		if !protocol.IsKnownCode(m.Code) {
			lvl = zap.ErrorLevel
		}
		s.log.Log(lvl, "host rejected act",
			zap.Uint64("seq", m.Seq),
			zap.String("code", m.Code),
			zap.String("message", m.Message))
		s.mu.Lock()
		if m.Seq != 0 && m.Seq == s.pending {
			s.pending = 0
		}
		s.mu.Unlock()
	}
}

// send writes one ACT. When occupies is set the host queue counts as busy
// until an observation acknowledges the sequence number.
func (s *Session) send(act protocol.ActMsg, occupies bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	conn := s.conn
	if conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.seq++
	act.Seq = s.seq
	s.mu.Unlock()

	act.Type = protocol.TypeAct
	act.ProtocolVersion = protocol.Version
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(act); err != nil {
		return err
	}
	if occupies {
		s.mu.Lock()
		s.pending = act.Seq
		s.mu.Unlock()
	}
	return nil
}

func (s *Session) sendLogged(act protocol.ActMsg, occupies bool) {
	if err := s.send(act, occupies); err != nil {
		s.log.Warn("send act", zap.String("op", act.Op), zap.String("label", act.Label), zap.Error(err))
	}
}
