package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultQueueSize   = 16
	DefaultPostTimeout = 10 * time.Second
)

// Sink accepts records for best-effort delivery.
type Sink interface {
	Submit(r Record)
}

type Poster interface {
	Post(ctx context.Context, body []byte) error
}

// HTTPPoster sends the record as a JSON POST to a fixed endpoint.
type HTTPPoster struct {
	Endpoint string
	Client   *http.Client
}

func (p *HTTPPoster) Post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collect: unexpected status %s", resp.Status)
	}
	return nil
}

// Worker delivers records on one background goroutine. Submit never blocks:
// invalid records are rejected up front and records arriving while the queue
// is full are dropped. Failures are logged and otherwise ignored; nothing is
// retried.
type Worker struct {
	poster      Poster
	log         *zap.Logger
	postTimeout time.Duration

	ch      chan Record
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	discard atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	sent    atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewWorker(poster Poster, queueSize int, logger *zap.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		poster:      poster,
		log:         logger.Named("telemetry"),
		postTimeout: DefaultPostTimeout,
		ch:          make(chan Record, queueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	return w
}

func (w *Worker) Submit(r Record) {
	if w == nil || w.closed.Load() {
		return
	}
	if !r.Valid() {
		w.log.Debug("record rejected", zap.Float64("runtime_ms", r.Runtime), zap.Uint16("territory", r.TerritoryTyp))
		return
	}
	select {
	case w.ch <- r:
	default:
		w.dropped.Add(1)
		w.log.Warn("queue full, record dropped")
	}
}

// Close stops accepting records and delivers what is queued until ctx is
// done; anything left after that is discarded.
func (w *Worker) Close(ctx context.Context) error {
	var err error
	w.once.Do(func() {
		w.closed.Store(true)
		close(w.ch)

		done := make(chan struct{})
		go func() {
			w.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			w.discard.Store(true)
			w.cancel()
			<-done
			err = ctx.Err()
		}
		w.cancel()
	})
	return err
}

// Stats reports delivered, dropped and failed counts.
func (w *Worker) Stats() (sent, dropped, failed int64) {
	return w.sent.Load(), w.dropped.Load(), w.failed.Load()
}

func (w *Worker) loop() {
	for r := range w.ch {
		if w.discard.Load() {
			w.dropped.Add(1)
			continue
		}
		w.deliver(r)
	}
}

func (w *Worker) deliver(r Record) {
	body, err := Encode(r)
	if err != nil {
		w.failed.Add(1)
		w.log.Warn("encode record", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(w.ctx, w.postTimeout)
	defer cancel()
	if err := w.poster.Post(ctx, body); err != nil {
		w.failed.Add(1)
		w.log.Warn("submit record", zap.Error(err))
		return
	}
	w.sent.Add(1)
}
