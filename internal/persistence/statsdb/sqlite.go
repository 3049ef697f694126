// Package statsdb indexes finished runs in SQLite for the stats view. The
// zstd journal stays the source of truth; rows are dropped rather than
// blocking the farm when the writer falls behind.
package statsdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"hoardfarm.ai/internal/farm"
)

const defaultQueue = 1024

type Index struct {
	db  *sql.DB
	log *zap.Logger

	ch   chan runRow
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
	failed  atomic.Int64
}

type runRow struct {
	At         string
	Reason     string
	Territory  int
	DurationMS int64
	Presence   string
	Collected  bool
	SafetyMode bool
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Dropped       int64
	Failed        int64
}

func Open(path string, logger *zap.Logger) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Index{
		db:  db,
		log: logger.Named("statsdb"),
		ch:  make(chan runRow, defaultQueue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			reason TEXT NOT NULL,
			territory INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			presence TEXT NOT NULL,
			collected INTEGER NOT NULL,
			safety_mode INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_reason ON runs(reason);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes queued rows and closes the database.
func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Index) RecordRun(o farm.RunOutcome) {
	if s == nil || s.closed.Load() {
		return
	}
	row := runRow{
		At:         o.At.UTC().Format(time.RFC3339Nano),
		Reason:     o.Reason.String(),
		Territory:  int(o.Territory),
		DurationMS: o.Duration.Milliseconds(),
		Presence:   o.Presence.String(),
		Collected:  o.RewardCollected,
		SafetyMode: o.SafetyMode,
	}
	select {
	case s.ch <- row:
	default:
		s.dropped.Add(1)
	}
}

func (s *Index) Stats() Stats {
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Dropped:       s.dropped.Load(),
		Failed:        s.failed.Load(),
	}
}

func (s *Index) loop() {
	ctx := context.Background()
	insert, err := s.db.Prepare(`INSERT INTO runs(at,reason,territory,duration_ms,presence,collected,safety_mode) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		s.log.Error("prepare insert", zap.Error(err))
		for range s.ch {
			s.failed.Add(1)
		}
		return
	}
	defer insert.Close()

	for row := range s.ch {
		// Batch whatever else is already queued into the same transaction.
		batch := []runRow{row}
	drain:
		for len(batch) < 256 {
			select {
			case r, ok := <-s.ch:
				if !ok {
					break drain
				}
				batch = append(batch, r)
			default:
				break drain
			}
		}
		if err := s.write(ctx, insert, batch); err != nil {
			s.failed.Add(int64(len(batch)))
			s.log.Warn("index runs", zap.Int("rows", len(batch)), zap.Error(err))
		}
	}
}

func (s *Index) write(ctx context.Context, insert *sql.Stmt, batch []runRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt := tx.StmtContext(ctx, insert)
	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, r.At, r.Reason, r.Territory, r.DurationMS, r.Presence, boolInt(r.Collected), boolInt(r.SafetyMode)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
