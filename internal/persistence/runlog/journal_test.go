package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"hoardfarm.ai/internal/farm"
)

func TestJournalRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	w := NewJSONLZstdWriter(dir, prefix)
	w.now = func() time.Time { return at }
	j := newJournal(w, zaptest.NewLogger(t))
	j.RecordRun(farm.RunOutcome{
		At: at, Reason: farm.LeaveComplete, Territory: 771, Duration: 42 * time.Second,
		Presence: farm.PresenceAvailable, RewardCollected: true, SessionRuns: 1, SessionRewards: 1,
	})
	j.RecordRun(farm.RunOutcome{
		At: at.Add(time.Minute), Reason: farm.LeaveNoReward, Territory: 772, Duration: 5 * time.Second,
		Presence: farm.PresenceUnavailable, SafetyMode: true, SessionRuns: 2, SessionRewards: 1,
	})
	require.NoError(t, j.Close())

	_, err := os.Stat(filepath.Join(dir, "runs-2026-05-06-07.jsonl.zst"))
	require.NoError(t, err)

	got, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Entry{
		At: at, Reason: "complete", Territory: 771, DurationMS: 42000,
		Presence: "available", Collected: true, SessionRuns: 1, SessionRewards: 1,
	}, got[0])
	assert.Equal(t, "no_reward", got[1].Reason)
	assert.True(t, got[1].SafetyMode)
}

func TestWriterRotatesHourlyAndAppends(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 6, 7, 59, 0, 0, time.UTC)
	w := NewJSONLZstdWriter(dir, prefix)
	w.now = func() time.Time { return now }

	require.NoError(t, w.Write(Entry{Reason: "a"}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, w.Write(Entry{Reason: "b"}))
	require.NoError(t, w.Close())

	// A second writer appends to the same hour's file.
	w2 := NewJSONLZstdWriter(dir, prefix)
	w2.now = func() time.Time { return now }
	require.NoError(t, w2.Write(Entry{Reason: "c"}))
	require.NoError(t, w2.Close())

	paths, err := filepath.Glob(filepath.Join(dir, "runs-*.jsonl.zst"))
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	got, err := ReadAll(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, reasons(got))
}

func TestReadAllEmptyDir(t *testing.T) {
	got, err := ReadAll(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func reasons(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Reason)
	}
	return out
}

func TestWriterReadableWhileOpen(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, prefix)
	w.now = func() time.Time { return time.Date(2026, 5, 6, 7, 0, 0, 0, time.UTC) }
	defer w.Close()

	require.NoError(t, w.Write(Entry{Reason: "a"}))
	require.NoError(t, w.Write(Entry{Reason: "b"}))

	got, err := ReadAll(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, reasons(got))
}

func TestWriterReopenAfterUncleanExit(t *testing.T) {
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2026, 5, 6, 7, 30, 0, 0, time.UTC) }

	// The first writer is abandoned without Close.
	w1 := NewJSONLZstdWriter(dir, prefix)
	w1.now = now
	require.NoError(t, w1.Write(Entry{Reason: "a"}))
	require.NoError(t, w1.Write(Entry{Reason: "b"}))
	t.Cleanup(func() { _ = w1.Close() })

	w2 := NewJSONLZstdWriter(dir, prefix)
	w2.now = now
	require.NoError(t, w2.Write(Entry{Reason: "c"}))
	require.NoError(t, w2.Close())

	got, err := ReadAll(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, reasons(got))
}

func TestReadAllKeepsEntriesBeforeTruncatedFrame(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 6, 7, 0, 0, 0, time.UTC)
	w := NewJSONLZstdWriter(dir, prefix)
	w.now = func() time.Time { return now }
	require.NoError(t, w.Write(Entry{Reason: "a"}))
	require.NoError(t, w.Write(Entry{Reason: "b"}))
	now = now.Add(time.Hour)
	require.NoError(t, w.Write(Entry{Reason: "c"}))
	require.NoError(t, w.Close())

	// Cut a frame short at the end of the first hour's file.
	frame := w.enc.EncodeAll([]byte(`{"reason":"lost"}`+"\n"), nil)
	f, err := os.OpenFile(filepath.Join(dir, "runs-2026-05-06-07.jsonl.zst"), os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write(frame[:len(frame)/2])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := ReadAll(dir)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "runs-2026-05-06-07.jsonl.zst"))
	assert.Equal(t, []string{"a", "b", "c"}, reasons(got))
}

func TestJournalCloseDrainsQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	at := time.Date(2026, 5, 6, 7, 0, 0, 0, time.UTC)
	w := NewJSONLZstdWriter(dir, prefix)
	w.now = func() time.Time { return at }
	j := newJournal(w, nil)

	for i := 0; i < 50; i++ {
		j.RecordRun(farm.RunOutcome{At: at, Reason: farm.LeaveComplete})
	}
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())
	j.RecordRun(farm.RunOutcome{At: at, Reason: farm.LeaveNoReward})

	got, err := ReadAll(dir)
	require.NoError(t, err)
	assert.Len(t, got, 50)
	assert.Zero(t, j.Dropped())
	assert.Zero(t, j.Failed())
}
