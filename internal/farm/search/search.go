// Package search walks the instance looking for a hidden reward whose
// position is not known yet.
package search

import (
	"fmt"
	"time"

	"hoardfarm.ai/internal/farm/actions"
	"hoardfarm.ai/internal/farm/objcache"
	"hoardfarm.ai/internal/geom"
)

const (
	DefaultPathTimeout = 60 * time.Second
	// Candidates only need to come into view, not be touched.
	DefaultTolerance = 2.0
)

type Outcome int

const (
	// Working means a candidate is being walked to; wait for the queue.
	Working Outcome = iota
	// Found means the reward position became known and the active path was cancelled.
	Found
	// Exhausted means every cached object was visited without finding the reward.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Working:
		return "working"
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

type Queue interface {
	IsBusy() bool
	Enqueue(a actions.Action, timeout time.Duration, label string)
	Abort()
}

type Pather interface {
	StopActivePath()
}

// Select returns the nearest unvisited object, considering preferred kinds
// first and any kind only when no preferred object is left. Ties go to the
// earlier object in objs.
func Select(objs []objcache.Object, from geom.Vec3, visited map[uint32]struct{}, preferred func(dataID uint32) bool) (objcache.Object, bool) {
	if preferred != nil {
		if o, ok := nearest(objs, from, visited, preferred); ok {
			return o, true
		}
	}
	return nearest(objs, from, visited, nil)
}

func nearest(objs []objcache.Object, from geom.Vec3, visited map[uint32]struct{}, keep func(uint32) bool) (objcache.Object, bool) {
	var (
		best   objcache.Object
		bestD2 float64
		found  bool
	)
	for _, o := range objs {
		if _, seen := visited[o.ID]; seen {
			continue
		}
		if keep != nil && !keep(o.DataID) {
			continue
		}
		d2 := o.Pos.DistanceSq(from)
		if !found || d2 < bestD2 {
			best, bestD2, found = o, d2, true
		}
	}
	return best, found
}

type Strategy struct {
	Queue     Queue
	Path      Pather
	Preferred func(dataID uint32) bool

	PathTimeout time.Duration
	Tolerance   float64
}

// Step advances the search by at most one candidate. visited is updated in
// place. rewardKnown is consulted after enqueueing so a reward spotted on the
// way cancels the walk in the same tick.
func (s *Strategy) Step(objs []objcache.Object, player geom.Vec3, visited map[uint32]struct{}, rewardKnown func() bool) Outcome {
	if !s.Queue.IsBusy() {
		next, ok := Select(objs, player, visited, s.Preferred)
		if !ok {
			return Exhausted
		}
		visited[next.ID] = struct{}{}
		s.Queue.Enqueue(actions.PathTo(next.Pos, s.tolerance()), s.pathTimeout(), fmt.Sprintf("Searching %d", next.ID))
	}

	if rewardKnown != nil && rewardKnown() {
		s.Path.StopActivePath()
		s.Queue.Abort()
		return Found
	}
	return Working
}

func (s *Strategy) pathTimeout() time.Duration {
	if s.PathTimeout <= 0 {
		return DefaultPathTimeout
	}
	return s.PathTimeout
}

func (s *Strategy) tolerance() float64 {
	if s.Tolerance <= 0 {
		return DefaultTolerance
	}
	return s.Tolerance
}
