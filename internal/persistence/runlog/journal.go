// Package runlog keeps the append-only journal of finished runs.
package runlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"hoardfarm.ai/internal/farm"
)

const prefix = "runs"

// Entry is one journal line.
type Entry struct {
	At             time.Time `json:"at"`
	Reason         string    `json:"reason"`
	Territory      uint16    `json:"territory"`
	DurationMS     int64     `json:"duration_ms"`
	Presence       string    `json:"presence"`
	Collected      bool      `json:"collected"`
	SafetyMode     bool      `json:"safety_mode"`
	SessionRuns    int       `json:"session_runs"`
	SessionRewards int       `json:"session_rewards"`
}

func EntryFor(o farm.RunOutcome) Entry {
	return Entry{
		At:             o.At.UTC(),
		Reason:         o.Reason.String(),
		Territory:      o.Territory,
		DurationMS:     o.Duration.Milliseconds(),
		Presence:       o.Presence.String(),
		Collected:      o.RewardCollected,
		SafetyMode:     o.SafetyMode,
		SessionRuns:    o.SessionRuns,
		SessionRewards: o.SessionRewards,
	}
}

const defaultQueue = 256

// Journal writes run outcomes on its own goroutine. Entries arriving while
// the queue is full are dropped and counted.
type Journal struct {
	w   *JSONLZstdWriter
	log *zap.Logger

	ch   chan Entry
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewJournal(dir string, logger *zap.Logger) *Journal {
	return newJournal(NewJSONLZstdWriter(dir, prefix), logger)
}

func newJournal(w *JSONLZstdWriter, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Journal{
		w:   w,
		log: logger.Named("runlog"),
		ch:  make(chan Entry, defaultQueue),
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.loop()
	}()
	return j
}

// RecordRun queues o without blocking.
func (j *Journal) RecordRun(o farm.RunOutcome) {
	if j == nil || j.closed.Load() {
		return
	}
	select {
	case j.ch <- EntryFor(o):
	default:
		j.dropped.Add(1)
	}
}

func (j *Journal) Dropped() int64 { return j.dropped.Load() }
func (j *Journal) Failed() int64  { return j.failed.Load() }

// Close writes everything still queued, then closes the current file.
func (j *Journal) Close() error {
	var err error
	j.once.Do(func() {
		j.closed.Store(true)
		close(j.ch)
		j.wg.Wait()
		err = j.w.Close()
	})
	return err
}

func (j *Journal) loop() {
	for e := range j.ch {
		if err := j.w.Write(e); err != nil {
			j.failed.Add(1)
			j.log.Warn("journal write", zap.Error(err))
		}
	}
}

// ReadAll returns every readable entry under dir in file order. A damaged
// file contributes the entries before the damage; its error is joined into
// the returned error and the remaining files are still read.
func ReadAll(dir string) ([]Entry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var (
		out  []Entry
		errs []error
	)
	for _, p := range paths {
		entries, err := readFile(p)
		out = append(out, entries...)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(p), err))
		}
	}
	return out, errors.Join(errs...)
}

func readFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("parse entry: %w", err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
