package farm

// Phase is where the run stands, derived each evaluation from run state and
// the player's location.
type Phase int

const (
	PhaseDisabled Phase = iota
	PhaseMovingToHub
	// PhaseInTransit covers locations that are neither hub nor instance
	// while the hub NPC is in reach; nothing to do but wait.
	PhaseInTransit
	PhaseWaitingAtHub
	PhaseUnsupportedFloor
	PhaseAwaitingSetup
	PhaseLocating
	PhaseSearching
	PhaseMovingToReward
	PhaseLeaving
)

func (p Phase) String() string {
	switch p {
	case PhaseDisabled:
		return "Disabled"
	case PhaseMovingToHub:
		return "MovingToHub"
	case PhaseInTransit:
		return "InTransit"
	case PhaseWaitingAtHub:
		return "WaitingAtHub"
	case PhaseUnsupportedFloor:
		return "UnsupportedFloor"
	case PhaseAwaitingSetup:
		return "AwaitingSetup"
	case PhaseLocating:
		return "Locating"
	case PhaseSearching:
		return "Searching"
	case PhaseMovingToReward:
		return "MovingToReward"
	case PhaseLeaving:
		return "Leaving"
	default:
		return "Unknown"
	}
}

// Pursuit is how the reward is being approached. Searching and moving to
// the reward are mutually exclusive by construction.
type Pursuit int

const (
	PursuitNone Pursuit = iota
	PursuitSearch
	PursuitMove
)

func (p Pursuit) String() string {
	switch p {
	case PursuitNone:
		return "none"
	case PursuitSearch:
		return "search"
	case PursuitMove:
		return "move"
	default:
		return "unknown"
	}
}

// Presence is what the primary consumable reported about the reward.
type Presence int

const (
	PresenceUnknown Presence = iota
	PresenceAvailable
	PresenceUnavailable
)

func (p Presence) String() string {
	switch p {
	case PresenceUnknown:
		return "unknown"
	case PresenceAvailable:
		return "available"
	case PresenceUnavailable:
		return "unavailable"
	default:
		return "invalid"
	}
}

// LeaveReason says why a run ended.
type LeaveReason int

const (
	LeaveNone LeaveReason = iota
	LeaveGeneric
	LeaveComplete
	LeaveNoReward
	LeaveTimeout
	LeaveDied
	LeaveUnreachable
	LeaveError
)

func (r LeaveReason) String() string {
	switch r {
	case LeaveNone:
		return "none"
	case LeaveGeneric:
		return "leaving"
	case LeaveComplete:
		return "complete"
	case LeaveNoReward:
		return "no_reward"
	case LeaveTimeout:
		return "timeout"
	case LeaveDied:
		return "died"
	case LeaveUnreachable:
		return "unreachable"
	case LeaveError:
		return "error"
	default:
		return "unknown"
	}
}

// Counted reports whether leaving for r finishes a run. Errors abandon the
// run without counting it.
func (r LeaveReason) Counted() bool {
	return r != LeaveNone && r != LeaveError
}

func (r LeaveReason) Status() string {
	switch r {
	case LeaveComplete:
		return StatusComplete
	case LeaveNoReward:
		return StatusNoReward
	case LeaveTimeout:
		return StatusTimeout
	case LeaveDied:
		return StatusDied
	case LeaveUnreachable:
		return StatusUnreachable
	case LeaveError:
		return StatusError
	default:
		return StatusLeaving
	}
}

const (
	StatusRunning         = "Running"
	StatusWaiting         = "Waiting"
	StatusWaitingNav      = "Waiting for navigation"
	StatusRetainers       = "Collecting retainers"
	StatusMovingToHub     = "Moving to hub"
	StatusEntering        = "Entering instance"
	StatusSensed          = "Reward sensed"
	StatusSearching       = "Searching"
	StatusMovingToReward  = "Moving to reward"
	StatusFinished        = "Finished"
	StatusLeaving         = "Leaving"
	StatusComplete        = "Complete"
	StatusNoReward        = "No reward"
	StatusTimeout         = "Timeout"
	StatusDied            = "Player died"
	StatusUnreachable     = "Unreachable"
	StatusError           = "Error"
	errUnsupportedFloor   = "Prepare before starting.\nThe first floor set is not supported."
	errMissingConsumables = "Prepare before starting.\nYou need at least one Intuition and one Concealment,\nor one Safety and one Magicite."
)
