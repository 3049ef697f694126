package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoardfarm.ai/internal/farm/actions"
	"hoardfarm.ai/internal/farm/objcache"
	"hoardfarm.ai/internal/geom"
)

const chest = 100

func isChest(id uint32) bool { return id == chest }

type enqueued struct {
	action  actions.Action
	timeout time.Duration
	label   string
}

type fakeQueue struct {
	busy    bool
	items   []enqueued
	aborted int
}

func (q *fakeQueue) IsBusy() bool { return q.busy }
func (q *fakeQueue) Enqueue(a actions.Action, timeout time.Duration, label string) {
	q.items = append(q.items, enqueued{a, timeout, label})
	q.busy = true
}
func (q *fakeQueue) Abort() { q.aborted++; q.busy = false }

type fakePath struct{ stops int }

func (p *fakePath) StopActivePath() { p.stops++ }

func TestSelectPrefersContainersOverDistance(t *testing.T) {
	player := geom.V(0, 0, 0)
	a := objcache.Object{ID: 1, DataID: chest, Pos: geom.V(10, 0, 0)}
	b := objcache.Object{ID: 2, DataID: 7, Pos: geom.V(2, 0, 0)}
	objs := []objcache.Object{a, b}
	visited := map[uint32]struct{}{}

	got, ok := Select(objs, player, visited, isChest)
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)

	visited[a.ID] = struct{}{}
	got, ok = Select(objs, player, visited, isChest)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)

	visited[b.ID] = struct{}{}
	_, ok = Select(objs, player, visited, isChest)
	assert.False(t, ok)
}

func TestSelectNearestAmongPreferred(t *testing.T) {
	objs := []objcache.Object{
		{ID: 1, DataID: chest, Pos: geom.V(30, 0, 0)},
		{ID: 2, DataID: chest, Pos: geom.V(0, 0, 5)},
		{ID: 3, DataID: chest, Pos: geom.V(0, 5, 0)},
	}
	got, ok := Select(objs, geom.V(0, 0, 0), map[uint32]struct{}{}, isChest)
	require.True(t, ok)
	// 2 and 3 tie; the earlier one wins.
	assert.Equal(t, uint32(2), got.ID)
}

func TestStepEnqueuesAndMarksVisited(t *testing.T) {
	q := &fakeQueue{}
	p := &fakePath{}
	s := &Strategy{Queue: q, Path: p, Preferred: isChest}
	objs := []objcache.Object{{ID: 4, DataID: chest, Pos: geom.V(3, 0, 4)}}
	visited := map[uint32]struct{}{}

	out := s.Step(objs, geom.V(0, 0, 0), visited, func() bool { return false })
	assert.Equal(t, Working, out)
	require.Len(t, q.items, 1)
	assert.Equal(t, actions.KindPathfind, q.items[0].action.Kind)
	assert.Equal(t, geom.V(3, 0, 4), q.items[0].action.Target)
	assert.Equal(t, DefaultPathTimeout, q.items[0].timeout)
	assert.Equal(t, "Searching 4", q.items[0].label)
	assert.Contains(t, visited, uint32(4))

	// Busy queue: no new candidate, still working.
	out = s.Step(objs, geom.V(0, 0, 0), visited, func() bool { return false })
	assert.Equal(t, Working, out)
	assert.Len(t, q.items, 1)
}

func TestStepCancelsWhenRewardAppears(t *testing.T) {
	q := &fakeQueue{}
	p := &fakePath{}
	s := &Strategy{Queue: q, Path: p}
	objs := []objcache.Object{{ID: 4, Pos: geom.V(3, 0, 4)}}

	out := s.Step(objs, geom.V(0, 0, 0), map[uint32]struct{}{}, func() bool { return true })
	assert.Equal(t, Found, out)
	assert.Equal(t, 1, p.stops)
	assert.Equal(t, 1, q.aborted)
}

func TestStepExhausted(t *testing.T) {
	q := &fakeQueue{}
	s := &Strategy{Queue: q, Path: &fakePath{}}
	visited := map[uint32]struct{}{1: {}}
	out := s.Step([]objcache.Object{{ID: 1}}, geom.V(0, 0, 0), visited, nil)
	assert.Equal(t, Exhausted, out)
	assert.Empty(t, q.items)
}
