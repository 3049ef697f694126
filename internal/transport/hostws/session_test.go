package hostws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"hoardfarm.ai/internal/config"
	"hoardfarm.ai/internal/farm"
	"hoardfarm.ai/internal/farm/actions"
	"hoardfarm.ai/internal/geom"
	"hoardfarm.ai/internal/protocol"
)

var (
	_ farm.ActionQueue = (*Session)(nil)
	_ farm.Pathing     = (*Session)(nil)
	_ farm.World       = (*Session)(nil)
	_ farm.Retainers   = Retainers{}
)

type recordingSink struct {
	mu          sync.Mutex
	chat        []string
	territories []uint16
}

func (r *recordingSink) OnChat(text string) {
	r.mu.Lock()
	r.chat = append(r.chat, text)
	r.mu.Unlock()
}

func (r *recordingSink) OnTerritoryChanged(t uint16) {
	r.mu.Lock()
	r.territories = append(r.territories, t)
	r.mu.Unlock()
}

func (r *recordingSink) snapshot() ([]string, []uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.chat...), append([]uint16(nil), r.territories...)
}

type fakeHost struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
	hello chan protocol.HelloMsg
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	h := &fakeHost{
		conns: make(chan *websocket.Conn, 4),
		hello: make(chan protocol.HelloMsg, 4),
	}
	up := websocket.Upgrader{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var hello protocol.HelloMsg
		if err := conn.ReadJSON(&hello); err != nil {
			_ = conn.Close()
			return
		}
		h.hello <- hello
		h.conns <- conn
	}))
	return h
}

func (h *fakeHost) url() string { return "ws" + strings.TrimPrefix(h.srv.URL, "http") }

func (h *fakeHost) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-h.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func readAct(t *testing.T, c *websocket.Conn) protocol.ActMsg {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := c.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, protocol.Validate(protocol.TypeAct, raw), string(raw))
	var act protocol.ActMsg
	require.NoError(t, json.Unmarshal(raw, &act))
	return act
}

func obs(ack uint64, busy bool) protocol.ObsMsg {
	return protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            ack + 1,
		AckSeq:          ack,
		Territory:       613,
		Pos:             [3]float64{1, 2, 3},
		HubInteractable: true,
		NavReady:        true,
		QueueBusy:       busy,
		Usable:          []string{"INTUITION", "MAGICITE"},
		Objects:         []protocol.ObjectObs{{ID: 9, DataID: 2007542, Pos: [3]float64{4, 5, 6}}},
		Retainers:       protocol.RetainerObs{CanStart: true, AnyDone: true},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	host := newFakeHost(t)
	defer host.srv.Close()

	sink := &recordingSink{}
	s := New(Config{URL: host.url()}, sink, zaptest.NewLogger(t))
	s.Start()
	defer s.Close()

	conn := host.accept(t)
	defer conn.Close()
	assert.Equal(t, "farmbot", (<-host.hello).ClientName)

	require.NoError(t, conn.WriteJSON(protocol.WelcomeMsg{Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version, SessionID: "S1"}))
	require.NoError(t, conn.WriteJSON(obs(0, false)))
	require.Eventually(t, s.IsReady, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return s.Status().Connected }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "S1", s.Status().SessionID)
	assert.Equal(t, uint16(613), s.Territory())
	assert.Equal(t, geom.V(1, 2, 3), s.PlayerPosition())
	assert.True(t, s.HubInteractable())
	assert.True(t, s.CanUse(actions.Intuition))
	assert.False(t, s.CanUse(actions.Concealment))
	require.Len(t, s.Objects(), 1)
	assert.Equal(t, geom.V(4, 5, 6), s.Objects()[0].Pos)
	assert.True(t, s.Retainers().Done(config.RetainersAnyDone))
	assert.False(t, s.Retainers().Done(config.RetainersAllDone))
	assert.False(t, s.IsBusy())

	s.Enqueue(actions.PathTo(geom.V(7, 8, 9), 1.5), time.Minute, "Move to reward")
	assert.True(t, s.IsBusy(), "busy until acknowledged")
	act := readAct(t, conn)
	assert.Equal(t, protocol.OpEnqueue, act.Op)
	assert.Equal(t, uint64(1), act.Seq)
	require.NotNil(t, act.Action)
	assert.Equal(t, "PATHFIND", act.Action.Kind)
	assert.Equal(t, &[3]float64{7, 8, 9}, act.Action.Target)
	assert.Equal(t, int64(60000), act.TimeoutMS)

	require.NoError(t, conn.WriteJSON(obs(1, true)))
	require.NoError(t, conn.WriteJSON(obs(1, false)))
	require.Eventually(t, func() bool { return !s.IsBusy() }, 2*time.Second, 10*time.Millisecond)

	s.UseNow(actions.Concealment)
	act = readAct(t, conn)
	assert.Equal(t, protocol.OpUseNow, act.Op)
	assert.Equal(t, "CONCEALMENT", act.Item)

	s.EnqueueWait(1500 * time.Millisecond)
	act = readAct(t, conn)
	assert.Equal(t, protocol.OpWait, act.Op)
	assert.Equal(t, int64(1500), act.WaitMS)
	assert.True(t, s.IsBusy())

	s.Abort()
	assert.False(t, s.IsBusy())
	assert.Equal(t, protocol.OpAbort, readAct(t, conn).Op)

	require.NoError(t, conn.WriteJSON(protocol.ChatMsg{Type: protocol.TypeChat, ProtocolVersion: protocol.Version, Text: "hello"}))
	require.NoError(t, conn.WriteJSON(protocol.TerritoryMsg{Type: protocol.TypeTerritory, ProtocolVersion: protocol.Version, Territory: 771}))
	require.Eventually(t, func() bool {
		_, terr := sink.snapshot()
		return len(terr) == 1
	}, 2*time.Second, 10*time.Millisecond)
	chat, terr := sink.snapshot()
	assert.Equal(t, []string{"hello"}, chat)
	assert.Equal(t, []uint16{771}, terr)
}

func TestHostErrorClearsPending(t *testing.T) {
	defer goleak.VerifyNone(t)

	host := newFakeHost(t)
	defer host.srv.Close()

	s := New(Config{URL: host.url()}, nil, zaptest.NewLogger(t))
	s.Start()
	defer s.Close()

	conn := host.accept(t)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(obs(0, false)))
	require.Eventually(t, s.IsReady, 2*time.Second, 10*time.Millisecond)

	s.Enqueue(actions.EnterInstance(1), 0, "Enter instance")
	act := readAct(t, conn)
	require.True(t, s.IsBusy())
	require.NotNil(t, act.Action)
	require.NotNil(t, act.Action.SaveSlot)
	assert.Equal(t, 1, *act.Action.SaveSlot)

	require.NoError(t, conn.WriteJSON(protocol.ErrorMsg{
		Type: protocol.TypeError, ProtocolVersion: protocol.Version,
		Seq: act.Seq, Code: protocol.ErrNotReady,
	}))
	require.Eventually(t, func() bool { return !s.IsBusy() }, 2*time.Second, 10*time.Millisecond)
}

func TestUpdatesSignalFreshObservation(t *testing.T) {
	defer goleak.VerifyNone(t)

	host := newFakeHost(t)
	defer host.srv.Close()

	s := New(Config{URL: host.url()}, nil, zaptest.NewLogger(t))
	s.Start()
	defer s.Close()

	conn := host.accept(t)
	defer conn.Close()

	select {
	case <-s.Updates():
		t.Fatal("signal before any observation")
	default:
	}

	require.NoError(t, conn.WriteJSON(obs(0, false)))
	select {
	case <-s.Updates():
	case <-time.After(2 * time.Second):
		t.Fatal("no signal after observation")
	}
	assert.True(t, s.IsReady())
}

func TestSessionReconnects(t *testing.T) {
	defer goleak.VerifyNone(t)

	host := newFakeHost(t)
	defer host.srv.Close()

	s := New(Config{URL: host.url(), ClientName: "bot-a"}, nil, zaptest.NewLogger(t))
	s.Start()
	defer s.Close()

	first := host.accept(t)
	require.NoError(t, first.WriteJSON(obs(0, false)))
	require.Eventually(t, s.IsReady, 2*time.Second, 10*time.Millisecond)
	<-host.hello
	_ = first.Close()

	second := host.accept(t)
	defer second.Close()
	assert.Equal(t, "bot-a", (<-host.hello).ClientName)
	assert.False(t, s.IsReady(), "observation is dropped with the connection")
}

func TestSendWithoutConnection(t *testing.T) {
	s := New(Config{URL: "ws://127.0.0.1:1"}, nil, zaptest.NewLogger(t))
	defer s.Close()

	err := s.send(protocol.ActMsg{Op: protocol.OpAbort}, false)
	assert.True(t, errors.Is(err, ErrNotConnected))

	s.Enqueue(actions.LeaveInstance(), 0, "Leave")
	assert.False(t, s.IsBusy())
	assert.False(t, s.IsReady())
}
