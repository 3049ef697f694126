package telemetry

import "time"

// Outcome carries the run facts known when a segment ends.
type Outcome struct {
	Territory  uint16
	Sensed     *bool // reward presence, when the primary consumable reported it
	Collected  *bool
	SafetyMode bool
}

// Collector keeps the segment-scoped timestamps. Every Collect call clears
// them, whatever happens to the record afterwards.
type Collector struct {
	sender string

	segmentStart time.Time
	moveStart    time.Time
	collectedAt  time.Time
}

func NewCollector(sender string) *Collector {
	return &Collector{sender: sender}
}

func (c *Collector) BeginSegment(now time.Time)  { c.segmentStart = now }
func (c *Collector) BeginMove(now time.Time)     { c.moveStart = now }
func (c *Collector) MarkCollected(now time.Time) { c.collectedAt = now }

// Active reports whether a segment is being timed.
func (c *Collector) Active() bool { return !c.segmentStart.IsZero() }

func (c *Collector) Collect(now time.Time, o Outcome) Record {
	r := Record{
		Sender:         c.sender,
		TerritoryTyp:   o.Territory,
		HoardFound:     o.Sensed,
		HoardCollected: o.Collected,
		SafetyMode:     o.SafetyMode,
	}
	if !c.segmentStart.IsZero() {
		r.Runtime = millis(now.Sub(c.segmentStart))
	}
	if !c.moveStart.IsZero() && !c.collectedAt.IsZero() {
		mt := millis(c.collectedAt.Sub(c.moveStart))
		r.MoveTime = &mt
	}
	c.segmentStart = time.Time{}
	c.moveStart = time.Time{}
	c.collectedAt = time.Time{}
	return r
}
