package protocol

// OBS (host -> bot): a full snapshot of what the bot needs each tick.
type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	// AckSeq is the highest ACT seq the host has taken into its queue.
	AckSeq uint64 `json:"ack_seq"`

	Territory uint16     `json:"territory"`
	Pos       [3]float64 `json:"pos"`

	Moving          bool `json:"moving"`
	InCombat        bool `json:"in_combat"`
	Incapacitated   bool `json:"incapacitated"`
	Concealed       bool `json:"concealed"`
	HubInteractable bool `json:"hub_interactable"`
	NavReady        bool `json:"nav_ready"`
	QueueBusy       bool `json:"queue_busy"`

	Usable    []string    `json:"usable"`
	Objects   []ObjectObs `json:"objects"`
	Retainers RetainerObs `json:"retainers"`
}

type ObjectObs struct {
	ID     uint32     `json:"id"`
	DataID uint32     `json:"data_id"`
	Pos    [3]float64 `json:"pos"`
}

type RetainerObs struct {
	Running  bool `json:"running"`
	CanStart bool `json:"can_start"`
	AnyDone  bool `json:"any_done"`
	AllDone  bool `json:"all_done"`
}

// ACT ops.
const (
	OpEnqueue        = "ENQUEUE"
	OpWait           = "WAIT"
	OpAbort          = "ABORT"
	OpUseNow         = "USE_NOW"
	OpPathStop       = "PATH_STOP"
	OpRetainerStart  = "RETAINER_START"
	OpRetainerFinish = "RETAINER_FINISH"
)

// ACT (bot -> host)
type ActMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Seq             uint64     `json:"seq"`
	Op              string     `json:"op"`
	Action          *ActionReq `json:"action,omitempty"`
	TimeoutMS       int64      `json:"timeout_ms,omitempty"`
	Label           string     `json:"label,omitempty"`
	WaitMS          int64      `json:"wait_ms,omitempty"`
	// Item is set for USE_NOW.
	Item string `json:"item,omitempty"`
}

type ActionReq struct {
	Kind      string      `json:"kind"`
	Target    *[3]float64 `json:"target,omitempty"`
	Tolerance float64     `json:"tolerance,omitempty"`
	Item      string      `json:"item,omitempty"`
	// SaveSlot is set for ENTER_INSTANCE.
	SaveSlot *int `json:"save_slot,omitempty"`
}
