package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNoSender = errors.New("telemetry sender id not set")

// Store is the process-wide owner of the config file.
type Store struct {
	path string

	mu  sync.Mutex
	cfg Config
	// disk identifies the file version last read or written by this store.
	disk fileStamp
}

type fileStamp struct {
	mod  time.Time
	size int64
}

func stampOf(path string) fileStamp {
	fi, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{mod: fi.ModTime(), size: fi.Size()}
}

func (a fileStamp) equal(b fileStamp) bool {
	return a.mod.Equal(b.mod) && a.size == b.size
}

// Open loads path, falling back to Defaults when the file does not exist yet.
func Open(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Defaults()
	}
	return &Store{path: path, cfg: cfg, disk: stampOf(path)}, nil
}

// NewMemoryStore is never written to disk.
func NewMemoryStore(cfg Config) *Store {
	return &Store{cfg: cfg.Clone()}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

func (s *Store) AddCounters(d Counters) {
	s.mu.Lock()
	s.cfg.Counters = s.cfg.Counters.Add(d)
	s.mu.Unlock()
}

func (s *Store) ResetCounters() {
	s.mu.Lock()
	s.cfg.Counters = Counters{}
	s.mu.Unlock()
}

// Apply takes operator settings from fresh and keeps counters and the
// sender id owned by this process.
func (s *Store) Apply(fresh Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(fresh)
}

func (s *Store) applyLocked(fresh Config) {
	keep := s.cfg
	s.cfg = fresh.Clone()
	s.cfg.Counters = keep.Counters
	s.cfg.Telemetry.SenderID = keep.Telemetry.SenderID
}

// EnsureSenderID generates the per-install id on first use.
func (s *Store) EnsureSenderID() (id string, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id := strings.TrimSpace(s.cfg.Telemetry.SenderID); id != "" {
		return id, false
	}
	s.cfg.Telemetry.SenderID = uuid.NewString()
	return s.cfg.Telemetry.SenderID, true
}

func (s *Store) SenderID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Telemetry.SenderID == "" {
		return "", ErrNoSender
	}
	return s.cfg.Telemetry.SenderID, nil
}

// Save writes the config back to disk. Settings edited on disk since the
// last load or save are taken over first, so an edit not yet picked up by
// Watch survives. An edit that does not parse is left alone and Save fails.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := stampOf(s.path); !cur.equal(s.disk) && cur != (fileStamp{}) {
		fresh, err := Load(s.path)
		if err != nil {
			return fmt.Errorf("config changed on disk: %w", err)
		}
		s.applyLocked(fresh)
	}
	b, err := Marshal(s.cfg)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, b); err != nil {
		return err
	}
	s.disk = stampOf(s.path)
	return nil
}

func writeFileAtomic(path string, b []byte) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
