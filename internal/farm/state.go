package farm

import (
	"time"

	"hoardfarm.ai/internal/config"
	"hoardfarm.ai/internal/farm/safety"
	"hoardfarm.ai/internal/geom"
)

// RunState is the live state of one run. It is reset on entering an
// instance territory, on disable and at construction, and never persisted.
type RunState struct {
	IntuitionUsed bool
	Presence      Presence
	RewardFound   bool
	// RewardPos stays zero until discovered and is then fixed until the
	// next reset.
	RewardPos       geom.Vec3
	Pursuit         Pursuit
	FinishRequested bool
	Leaving         LeaveReason
	Visited         map[uint32]struct{}

	// Safety holds the run start time and the one-shot safety consumable flag.
	Safety safety.Run
}

func newRunState(now time.Time) RunState {
	return RunState{
		Visited: map[uint32]struct{}{},
		Safety:  safety.Run{StartedAt: now},
	}
}

// Session counts the current enable-to-disable stretch.
type Session struct {
	Runs    int
	Rewards int
	Seconds int
}

// StopReached is the configured stop condition. There is no hysteresis.
func StopReached(mode config.StopMode, threshold int, s Session) bool {
	switch mode {
	case config.StopByRuns:
		return s.Runs >= threshold
	case config.StopByRewards:
		return s.Rewards >= threshold
	case config.StopByMinutes:
		return s.Seconds >= threshold*60
	default:
		return false
	}
}

// RunOutcome describes one finished run for recorders.
type RunOutcome struct {
	At              time.Time
	Reason          LeaveReason
	Territory       uint16
	Duration        time.Duration
	Presence        Presence
	RewardCollected bool
	SafetyMode      bool
	SessionRuns     int
	SessionRewards  int
}
