package hostws

import (
	"time"

	"hoardfarm.ai/internal/config"
	"hoardfarm.ai/internal/farm/actions"
	"hoardfarm.ai/internal/farm/objcache"
	"hoardfarm.ai/internal/geom"
	"hoardfarm.ai/internal/protocol"
)

// Action queue.

func (s *Session) Enqueue(a actions.Action, timeout time.Duration, label string) {
	req := &protocol.ActionReq{Kind: string(a.Kind), Item: string(a.Item)}
	switch a.Kind {
	case actions.KindPathfind:
		target := a.Target.Array()
		req.Target = &target
		req.Tolerance = a.Tolerance
	case actions.KindEnterInstance:
		slot := a.SaveSlot
		req.SaveSlot = &slot
	}
	s.sendLogged(protocol.ActMsg{
		Op:        protocol.OpEnqueue,
		Action:    req,
		TimeoutMS: timeout.Milliseconds(),
		Label:     label,
	}, true)
}

func (s *Session) EnqueueWait(d time.Duration) {
	s.sendLogged(protocol.ActMsg{Op: protocol.OpWait, WaitMS: d.Milliseconds()}, true)
}

func (s *Session) IsBusy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending > s.obs.AckSeq {
		return true
	}
	return s.obs.QueueBusy
}

func (s *Session) Abort() {
	s.sendLogged(protocol.ActMsg{Op: protocol.OpAbort}, false)
	s.mu.Lock()
	s.pending = 0
	s.obs.QueueBusy = false
	s.mu.Unlock()
}

// Pathing.

func (s *Session) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.haveObs && s.obs.NavReady
}

func (s *Session) StopActivePath() {
	s.sendLogged(protocol.ActMsg{Op: protocol.OpPathStop}, false)
}

// Retainers drives the host's worker-collection automation through the
// session.
type Retainers struct{ s *Session }

func (s *Session) Retainers() Retainers { return Retainers{s: s} }

func (r Retainers) IsRunning() bool {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.obs.Retainers.Running
}

func (r Retainers) CanStart() bool {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.obs.Retainers.CanStart
}

func (r Retainers) Start() {
	r.s.sendLogged(protocol.ActMsg{Op: protocol.OpRetainerStart}, false)
}

func (r Retainers) FinishAndReturn() {
	r.s.sendLogged(protocol.ActMsg{Op: protocol.OpRetainerFinish}, false)
}

func (r Retainers) Done(mode config.RetainerMode) bool {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if mode == config.RetainersAnyDone {
		return r.s.obs.Retainers.AnyDone
	}
	return r.s.obs.Retainers.AllDone
}

// World view.

func (s *Session) InCombat() bool        { return s.latest().InCombat }
func (s *Session) Incapacitated() bool   { return s.latest().Incapacitated }
func (s *Session) IsMoving() bool        { return s.latest().Moving }
func (s *Session) Concealed() bool       { return s.latest().Concealed }
func (s *Session) HubInteractable() bool { return s.latest().HubInteractable }
func (s *Session) Territory() uint16     { return s.latest().Territory }

func (s *Session) CanUse(item actions.Item) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.obs.Usable {
		if u == string(item) {
			return true
		}
	}
	return false
}

func (s *Session) UseNow(item actions.Item) {
	s.sendLogged(protocol.ActMsg{Op: protocol.OpUseNow, Item: string(item)}, false)
}

func (s *Session) PlayerPosition() geom.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return geom.FromArray(s.obs.Pos)
}

func (s *Session) Objects() []objcache.Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]objcache.Object, 0, len(s.obs.Objects))
	for _, o := range s.obs.Objects {
		out = append(out, objcache.Object{ID: o.ID, DataID: o.DataID, Pos: geom.FromArray(o.Pos)})
	}
	return out
}

// latest returns the stored observation. Slices are replaced wholesale on
// each update and never mutated, so sharing them is safe.
func (s *Session) latest() protocol.ObsMsg {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obs
}
