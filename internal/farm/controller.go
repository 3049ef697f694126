// Package farm drives the reward farming loop: it observes the world once a
// second, derives the run phase and issues at most one queued action per
// evaluation.
//
// A Controller is owned by a single goroutine. Tick, SetFarmMode, Toggle and
// RequestFinish must all be called from it; Status, Error and Snapshot may
// be read from anywhere.
package farm

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"hoardfarm.ai/internal/config"
	"hoardfarm.ai/internal/farm/actions"
	"hoardfarm.ai/internal/farm/events"
	"hoardfarm.ai/internal/farm/objcache"
	"hoardfarm.ai/internal/farm/safety"
	"hoardfarm.ai/internal/farm/search"
	"hoardfarm.ai/internal/farm/telemetry"
)

const (
	// EvalInterval is the minimum spacing between two evaluations.
	EvalInterval = time.Second

	RewardTolerance    = 1.5
	RewardMoveTimeout  = search.DefaultPathTimeout
	hubMoveSettle      = time.Second
	defaultEventBuffer = 256
)

type Controller struct {
	queue     ActionQueue
	pathing   Pathing
	retainers Retainers
	world     World
	cfg       ConfigStore
	listener  *events.Listener
	sink      telemetry.Sink
	recorders []Recorder
	now       func() time.Time
	rng       *rand.Rand
	log       *zap.Logger

	monitor   *safety.Monitor
	search    *search.Strategy
	cache     *objcache.Cache
	collector *telemetry.Collector

	active     bool
	lastEval   time.Time
	run        RunState
	session    Session
	containers map[uint32]struct{}

	mu     sync.Mutex
	status string
	err    string
	phase  Phase
}

func New(d Deps) *Controller {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(d.Now().UnixNano()))
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	cfg := d.Config.Snapshot()
	if d.Listener == nil {
		d.Listener = events.NewListener(messagesOf(cfg), events.NewQueue(defaultEventBuffer))
	}

	c := &Controller{
		queue:     d.Queue,
		pathing:   d.Pathing,
		retainers: d.Retainers,
		world:     d.World,
		cfg:       d.Config,
		listener:  d.Listener,
		sink:      d.Telemetry,
		recorders: d.Recorders,
		now:       d.Now,
		rng:       d.Rand,
		log:       d.Logger.Named("farm"),
		cache:     objcache.New(),
		collector: telemetry.NewCollector(cfg.Telemetry.SenderID),
	}
	c.monitor = safety.NewMonitor(d.World, d.RunTimeout, d.Logger)
	c.search = &search.Strategy{
		Queue:     d.Queue,
		Path:      d.Pathing,
		Preferred: c.isContainer,
	}
	c.run = newRunState(c.now())
	c.loadContainers(cfg)
	return c
}

// Listener is where the host transport delivers chat and territory events.
func (c *Controller) Listener() *events.Listener { return c.listener }

func (c *Controller) Active() bool { return c.active }

// Run returns a copy of the live run state.
func (c *Controller) Run() RunState {
	rs := c.run
	rs.Visited = make(map[uint32]struct{}, len(c.run.Visited))
	for id := range c.run.Visited {
		rs.Visited[id] = struct{}{}
	}
	return rs
}

func (c *Controller) Session() Session { return c.session }

// SetFarmMode turns farming on or off. Enabling clears the session
// counters and any previous error; disabling aborts the queue at once.
func (c *Controller) SetFarmMode(enabled bool) {
	if c.retainers.IsRunning() {
		c.retainers.FinishAndReturn()
	}
	c.active = enabled
	if enabled {
		c.session = Session{}
		c.reset()
		c.setError("")
		c.setStatus(StatusRunning)
		c.listener.Subscribe()
		c.log.Info("farm mode enabled")
		return
	}
	c.queue.Abort()
	c.listener.Unsubscribe()
	c.reset()
	c.setStatus("")
	c.setPhase(PhaseDisabled)
	c.log.Info("farm mode disabled",
		zap.Int("runs", c.session.Runs),
		zap.Int("rewards", c.session.Rewards))
}

func (c *Controller) Toggle() { c.SetFarmMode(!c.active) }

// RequestFinish stops farming once the player is back at the hub.
func (c *Controller) RequestFinish() {
	if c.active {
		c.run.FinishRequested = true
	}
}

// Tick handles pending events, then evaluates at most once per
// EvalInterval.
func (c *Controller) Tick() {
	now := c.now()
	for _, ev := range c.listener.Drain() {
		c.handle(now, ev)
	}
	if !c.active || now.Sub(c.lastEval) < EvalInterval {
		return
	}
	c.lastEval = now
	c.evaluate(now)
}

func (c *Controller) evaluate(now time.Time) {
	cfg := c.cfg.Snapshot()
	c.loadContainers(cfg)
	if m := messagesOf(cfg); m != c.listener.Messages() {
		c.listener.SetMessages(m)
		c.log.Info("reference texts reloaded")
	}

	if c.retainers.IsRunning() {
		c.setStatus(StatusRetainers)
		return
	}

	c.session.Seconds++
	c.cfg.AddCounters(config.Counters{Seconds: 1})

	if !c.pathing.IsReady() {
		c.setStatus(StatusWaitingNav)
		return
	}

	c.cache.Refresh(c.world.Objects())
	territory := c.world.Territory()

	if c.inInstance(cfg, territory) && c.run.IntuitionUsed && c.run.Leaving == LeaveNone {
		res := c.monitor.Check(now, &c.run.Safety)
		switch res.Verdict {
		case safety.Yield:
			return
		case safety.Leave:
			if res.Abort {
				c.queue.Abort()
				c.pathing.StopActivePath()
			}
			reason := LeaveTimeout
			if res.Trigger == safety.TriggerDeath {
				reason = LeaveDied
			}
			c.leave(now, cfg, reason)
			return
		}
	}

	if c.run.Pursuit == PursuitSearch && c.run.RewardPos.IsZero() && c.run.Leaving == LeaveNone {
		out := c.search.Step(c.cache.Objects(), c.world.PlayerPosition(), c.run.Visited, func() bool {
			return c.resolveReward(cfg)
		})
		switch out {
		case search.Working:
			c.setStatus(StatusSearching)
			return
		case search.Exhausted:
			c.leave(now, cfg, LeaveUnreachable)
			return
		case search.Found:
		}
	}

	if c.queue.IsBusy() {
		return
	}

	if !c.run.FinishRequested && StopReached(cfg.Farm.StopAfterMode, cfg.Farm.StopAfter, c.session) {
		c.run.FinishRequested = true
		c.flushSegment(now, cfg, territory)
		c.log.Info("stop condition reached",
			zap.String("mode", string(cfg.Farm.StopAfterMode)),
			zap.Int("threshold", cfg.Farm.StopAfter))
		return
	}

	phase := c.derive(cfg, territory)
	c.setPhase(phase)
	switch phase {
	case PhaseDisabled, PhaseInTransit, PhaseSearching, PhaseMovingToReward:
	case PhaseUnsupportedFloor:
		c.fail(now, cfg, errUnsupportedFloor)
	case PhaseMovingToHub:
		c.setStatus(StatusMovingToHub)
		c.queue.Enqueue(actions.MoveToHub(), 0, "Move to hub")
		c.queue.EnqueueWait(hubMoveSettle)
	case PhaseWaitingAtHub:
		c.atHub(now, cfg)
	case PhaseAwaitingSetup:
		if !c.minimalSetup() {
			c.fail(now, cfg, errMissingConsumables)
			return
		}
		c.queue.Enqueue(actions.Use(actions.Intuition), 0, "Use Intuition")
		c.run.IntuitionUsed = true
	case PhaseLocating:
		c.locate(now, cfg)
	case PhaseLeaving:
		switch {
		case c.run.Leaving != LeaveNone:
			c.queue.Enqueue(actions.LeaveInstance(), 0, "Leave")
		case c.run.RewardFound:
			c.leave(now, cfg, LeaveComplete)
		case c.run.Presence == PresenceUnknown:
			c.leave(now, cfg, LeaveGeneric)
		default:
			c.leave(now, cfg, LeaveNoReward)
		}
	}
}

func (c *Controller) derive(cfg config.Config, territory uint16) Phase {
	if !c.active {
		return PhaseDisabled
	}
	if territory == cfg.World.FirstFloorTerritory {
		return PhaseUnsupportedFloor
	}
	if c.inInstance(cfg, territory) {
		switch {
		case c.run.Leaving != LeaveNone, c.run.RewardFound:
			return PhaseLeaving
		case !c.run.IntuitionUsed:
			return PhaseAwaitingSetup
		case c.run.Presence != PresenceAvailable:
			// Intuition finished without a sensed-present line.
			return PhaseLeaving
		}
		switch c.run.Pursuit {
		case PursuitMove:
			return PhaseMovingToReward
		case PursuitSearch:
			if c.run.RewardPos.IsZero() {
				return PhaseSearching
			}
		}
		return PhaseLocating
	}
	hub := territory == cfg.World.HubTerritory
	interactable := c.world.HubInteractable()
	switch {
	case hub && interactable:
		return PhaseWaitingAtHub
	case !hub && !interactable:
		return PhaseMovingToHub
	default:
		return PhaseInTransit
	}
}

func (c *Controller) atHub(now time.Time, cfg config.Config) {
	if c.run.FinishRequested {
		c.SetFarmMode(false)
		c.setStatus(StatusFinished)
		return
	}
	if cfg.Retainers.Enabled && c.retainers.Done(cfg.Retainers.Mode) && c.retainers.CanStart() {
		c.setStatus(StatusRetainers)
		c.retainers.Start()
		return
	}
	c.setStatus(StatusEntering)
	c.collector.BeginSegment(now)
	if cfg.Farm.Paranoid {
		c.queue.EnqueueWait(c.paranoidWait(cfg.Farm))
	}
	c.queue.Enqueue(actions.EnterInstance(cfg.Farm.SaveSlot), 0, "Enter instance")
}

func (c *Controller) locate(now time.Time, cfg config.Config) {
	if c.resolveReward(cfg) {
		c.setStatus(StatusMovingToReward)
		c.collector.BeginMove(now)
		c.queue.Enqueue(actions.PathTo(c.run.RewardPos, RewardTolerance), RewardMoveTimeout, "Move to reward")
		c.run.Pursuit = PursuitMove
		return
	}
	if cfg.Farm.Mode == config.FarmSafe {
		c.leave(now, cfg, LeaveGeneric)
		return
	}
	c.setStatus(StatusSearching)
	c.queue.Enqueue(actions.Use(actions.Concealment), 0, "Use Concealment")
	c.run.Pursuit = PursuitSearch
}

// resolveReward fixes the reward position the first time its object shows
// up in the cache.
func (c *Controller) resolveReward(cfg config.Config) bool {
	if !c.run.RewardPos.IsZero() {
		return true
	}
	c.cache.Refresh(c.world.Objects())
	if obj, ok := c.cache.FindKind(cfg.World.RewardDataID); ok {
		c.run.RewardPos = obj.Pos
	}
	return !c.run.RewardPos.IsZero()
}

func (c *Controller) minimalSetup() bool {
	w := c.world
	return w.CanUse(actions.Intuition) &&
		(w.CanUse(actions.Concealment) || (w.CanUse(actions.Safety) && w.CanUse(actions.Magicite)))
}

func (c *Controller) paranoidWait(f config.Farm) time.Duration {
	lo, hi := f.MinWaitSeconds*1000, f.MaxWaitSeconds*1000
	if hi <= lo {
		return time.Duration(lo) * time.Millisecond
	}
	return time.Duration(lo+c.rng.Intn(hi-lo)) * time.Millisecond
}

func (c *Controller) handle(now time.Time, ev events.Event) {
	cfg := c.cfg.Snapshot()
	switch ev.Kind {
	case events.RewardPresent:
		c.run.IntuitionUsed = true
		c.run.Presence = PresenceAvailable
		c.setStatus(StatusSensed)
	case events.RewardAbsent:
		c.run.IntuitionUsed = true
		c.run.Presence = PresenceUnavailable
		c.queue.Abort()
		c.leave(now, cfg, LeaveNoReward)
	case events.RewardCollected:
		c.run.RewardFound = true
		c.collector.MarkCollected(now)
		c.session.Rewards++
		c.cfg.AddCounters(config.Counters{Rewards: 1, AchievementProgress: 1})
		c.queue.Abort()
		c.leave(now, cfg, LeaveComplete)
	case events.TerritoryChanged:
		if c.isInstanceTerritory(cfg, ev.Territory) {
			c.reset()
			c.setStatus(StatusWaiting)
		}
	}
}

// leave queues the exit action. Only the first leave of a run counts it;
// later calls re-queue the action without recounting.
func (c *Controller) leave(now time.Time, cfg config.Config, reason LeaveReason) {
	c.setStatus(reason.Status())
	c.queue.Enqueue(actions.LeaveInstance(), 0, "Leave")
	if c.run.Leaving != LeaveNone {
		return
	}
	c.run.Leaving = reason
	if reason.Counted() {
		c.session.Runs++
		c.cfg.AddCounters(config.Counters{Runs: 1})
	}
	territory := c.world.Territory()
	c.flushSegment(now, cfg, territory)

	o := RunOutcome{
		At:              now,
		Reason:          reason,
		Territory:       territory,
		Duration:        now.Sub(c.run.Safety.StartedAt),
		Presence:        c.run.Presence,
		RewardCollected: c.run.RewardFound,
		SafetyMode:      cfg.Farm.Mode == config.FarmSafe,
		SessionRuns:     c.session.Runs,
		SessionRewards:  c.session.Rewards,
	}
	for _, r := range c.recorders {
		r.RecordRun(o)
	}
	c.log.Info("leaving instance",
		zap.Stringer("reason", reason),
		zap.Uint16("territory", territory),
		zap.Int("runs", c.session.Runs),
		zap.Int("rewards", c.session.Rewards))
}

// flushSegment hands the open telemetry segment, if any, to the sink.
func (c *Controller) flushSegment(now time.Time, cfg config.Config, territory uint16) {
	if !c.collector.Active() {
		return
	}
	o := telemetry.Outcome{
		Territory:  territory,
		SafetyMode: cfg.Farm.Mode == config.FarmSafe,
	}
	switch c.run.Presence {
	case PresenceAvailable:
		sensed, collected := true, c.run.RewardFound
		o.Sensed, o.Collected = &sensed, &collected
	case PresenceUnavailable:
		sensed := false
		o.Sensed = &sensed
	}
	rec := c.collector.Collect(now, o)
	if cfg.Telemetry.Disabled || c.sink == nil {
		return
	}
	c.sink.Submit(rec)
}

// fail abandons the run and disables farming once back at the hub.
func (c *Controller) fail(now time.Time, cfg config.Config, msg string) {
	c.log.Error("farm stopped", zap.String("error", msg))
	c.setError(msg)
	c.run.FinishRequested = true
	c.leave(now, cfg, LeaveError)
}

func (c *Controller) reset() {
	c.run = newRunState(c.now())
	c.cache.Reset()
	if err := c.cfg.Save(); err != nil {
		c.log.Warn("save counters", zap.Error(err))
	}
}

func (c *Controller) inInstance(cfg config.Config, territory uint16) bool {
	return territory == cfg.World.FirstFloorTerritory || c.isInstanceTerritory(cfg, territory)
}

func (c *Controller) isInstanceTerritory(cfg config.Config, territory uint16) bool {
	for _, t := range cfg.World.InstanceTerritories {
		if t == territory {
			return true
		}
	}
	return false
}

func (c *Controller) loadContainers(cfg config.Config) {
	if len(c.containers) == len(cfg.World.ContainerDataIDs) {
		same := true
		for _, id := range cfg.World.ContainerDataIDs {
			if _, ok := c.containers[id]; !ok {
				same = false
				break
			}
		}
		if same {
			return
		}
	}
	c.containers = make(map[uint32]struct{}, len(cfg.World.ContainerDataIDs))
	for _, id := range cfg.World.ContainerDataIDs {
		c.containers[id] = struct{}{}
	}
}

func (c *Controller) isContainer(dataID uint32) bool {
	_, ok := c.containers[dataID]
	return ok
}

func messagesOf(cfg config.Config) events.Messages {
	return events.Messages{
		SensedPresent: cfg.World.Messages.SensedPresent,
		SensedAbsent:  cfg.World.Messages.SensedAbsent,
		Collected:     cfg.World.Messages.Collected,
	}
}
