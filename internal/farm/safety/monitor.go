// Package safety holds the interrupt-like reactions that preempt the queued
// plan while inside the instance: the hard run timeout, evasion upkeep,
// combat escape and death.
//
// Consumables used here go straight to the game client, never through the
// action queue, so a long queued action cannot starve them. "Usable" can stay
// true for a few ticks after a use while the server-side cooldown catches
// up; the throttles cover that window.
package safety

import (
	"time"

	"go.uber.org/zap"

	"hoardfarm.ai/internal/farm/actions"
)

const (
	DefaultTimeout  = 130 * time.Second
	EvasionInterval = 2 * time.Second
	EscapeInterval  = 6 * time.Second
)

const (
	keyConcealment = "concealment"
	keySafety      = "safety"
	keyMagicite    = "magicite"
)

type World interface {
	InCombat() bool
	Incapacitated() bool
	IsMoving() bool
	Concealed() bool
	CanUse(item actions.Item) bool
	// UseNow fires the item immediately, bypassing the action queue.
	UseNow(item actions.Item)
}

type Verdict int

const (
	// Continue lets the tick go on to the state machine.
	Continue Verdict = iota
	// Yield ends the tick after an instant consumable use.
	Yield
	// Leave ends the run.
	Leave
)

type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerTimeout
	TriggerDeath
)

type Result struct {
	Verdict Verdict
	Trigger Trigger
	// Abort asks the caller to cancel the queue and any active path before leaving.
	Abort bool
}

// Run is the slice of per-run state the monitor reads and writes.
type Run struct {
	StartedAt  time.Time
	SafetyUsed bool
}

type Monitor struct {
	world    World
	throttle *Throttle
	timeout  time.Duration
	log      *zap.Logger
}

func NewMonitor(world World, timeout time.Duration, logger *zap.Logger) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		world:    world,
		throttle: NewThrottle(),
		timeout:  timeout,
		log:      logger.Named("safety"),
	}
}

// Check runs one evaluation. The caller only invokes it while inside the
// instance, after the primary consumable was used and before a leave was
// issued.
func (m *Monitor) Check(now time.Time, run *Run) Result {
	inCombat := m.world.InCombat()

	if now.Sub(run.StartedAt) > m.timeout && !inCombat {
		return Result{Verdict: Leave, Trigger: TriggerTimeout, Abort: true}
	}

	if m.world.IsMoving() && !m.world.Concealed() {
		if m.world.CanUse(actions.Concealment) {
			if m.throttle.Try(keyConcealment, now, EvasionInterval) {
				m.use(actions.Concealment)
				return Result{Verdict: Yield}
			}
		} else if m.world.CanUse(actions.Safety) && !run.SafetyUsed && m.throttle.Ready(keyConcealment, now) {
			if m.throttle.Try(keySafety, now, EvasionInterval) {
				m.use(actions.Safety)
				run.SafetyUsed = true
				return Result{Verdict: Yield}
			}
		}
	}

	if inCombat && m.world.CanUse(actions.Magicite) && m.throttle.Try(keyMagicite, now, EscapeInterval) {
		m.use(actions.Magicite)
	}

	if m.world.Incapacitated() {
		return Result{Verdict: Leave, Trigger: TriggerDeath}
	}
	return Result{Verdict: Continue}
}

func (m *Monitor) use(item actions.Item) {
	m.log.Debug("instant use", zap.String("item", string(item)))
	m.world.UseNow(item)
}
