package farm

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"hoardfarm.ai/internal/config"
	"hoardfarm.ai/internal/farm/actions"
	"hoardfarm.ai/internal/farm/events"
	"hoardfarm.ai/internal/farm/objcache"
	"hoardfarm.ai/internal/farm/safety"
	"hoardfarm.ai/internal/farm/telemetry"
	"hoardfarm.ai/internal/geom"
)

// ActionQueue is the external single-slot task executor. Enqueueing while
// busy is the executor's problem; the controller only checks IsBusy first.
type ActionQueue interface {
	Enqueue(a actions.Action, timeout time.Duration, label string)
	EnqueueWait(d time.Duration)
	IsBusy() bool
	Abort()
}

type Pathing interface {
	IsReady() bool
	StopActivePath()
}

// Retainers is the external worker-collection automation.
type Retainers interface {
	IsRunning() bool
	CanStart() bool
	Start()
	FinishAndReturn()
	Done(mode config.RetainerMode) bool
}

type World interface {
	safety.World

	Territory() uint16
	PlayerPosition() geom.Vec3
	Objects() []objcache.Object
	// HubInteractable reports whether the instance entry NPC is in reach.
	HubInteractable() bool
}

type ConfigStore interface {
	Snapshot() config.Config
	AddCounters(d config.Counters)
	Save() error
}

// Recorder receives one outcome per finished run.
type Recorder interface {
	RecordRun(o RunOutcome)
}

type Deps struct {
	Queue     ActionQueue
	Pathing   Pathing
	Retainers Retainers
	World     World
	Config    ConfigStore
	Listener  *events.Listener

	// Telemetry may be nil.
	Telemetry telemetry.Sink
	Recorders []Recorder

	Now    func() time.Time
	Rand   *rand.Rand
	Logger *zap.Logger

	// RunTimeout overrides safety.DefaultTimeout.
	RunTimeout time.Duration
}
