// Package events turns narrative text and territory notifications from the
// game client into typed events for the run controller.
//
// Callbacks may fire on any goroutine. They only post into Queue; the
// controller drains the queue on its own tick goroutine, so run state is
// never touched from two goroutines.
package events

import (
	"sync"
	"sync/atomic"
)

type Kind int

const (
	RewardPresent Kind = iota + 1
	RewardAbsent
	RewardCollected
	TerritoryChanged
)

func (k Kind) String() string {
	switch k {
	case RewardPresent:
		return "reward_present"
	case RewardAbsent:
		return "reward_absent"
	case RewardCollected:
		return "reward_collected"
	case TerritoryChanged:
		return "territory_changed"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind      Kind
	Territory uint16 // TerritoryChanged only
}

// DefaultQueueSize bounds how many undrained events are kept.
const DefaultQueueSize = 256

// Queue is a multi-producer, single-consumer FIFO. When full, the oldest
// event is dropped.
type Queue struct {
	mu     sync.Mutex
	events []Event
	max    int
}

func NewQueue(max int) *Queue {
	if max <= 0 {
		max = DefaultQueueSize
	}
	return &Queue{max: max}
}

func (q *Queue) Post(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.max {
		q.events = q.events[1:]
	}
	q.events = append(q.events, ev)
}

// Drain returns every pending event in arrival order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

// Messages are the locale-specific reference texts, compared by exact
// equality.
type Messages struct {
	SensedPresent string
	SensedAbsent  string
	Collected     string
}

type Listener struct {
	msgs       atomic.Pointer[Messages]
	queue      *Queue
	subscribed atomic.Bool
}

func NewListener(msgs Messages, q *Queue) *Listener {
	l := &Listener{queue: q}
	l.msgs.Store(&msgs)
	return l
}

func (l *Listener) Messages() Messages { return *l.msgs.Load() }

// SetMessages swaps the reference texts; later chat lines match the new set.
func (l *Listener) SetMessages(m Messages) { l.msgs.Store(&m) }

func (l *Listener) Subscribe()   { l.subscribed.Store(true) }
func (l *Listener) Unsubscribe() { l.subscribed.Store(false) }

// Match maps a chat line to an event kind.
func (l *Listener) Match(text string) (Kind, bool) {
	m := l.msgs.Load()
	switch {
	case text == "":
		return 0, false
	case text == m.SensedPresent:
		return RewardPresent, true
	case text == m.SensedAbsent:
		return RewardAbsent, true
	case text == m.Collected:
		return RewardCollected, true
	}
	return 0, false
}

// Drain hands every pending event to the single consumer.
func (l *Listener) Drain() []Event { return l.queue.Drain() }

// OnChat is ignored unless subscribed.
func (l *Listener) OnChat(text string) {
	if !l.subscribed.Load() {
		return
	}
	if k, ok := l.Match(text); ok {
		l.queue.Post(Event{Kind: k})
	}
}

// OnTerritoryChanged is always forwarded.
func (l *Listener) OnTerritoryChanged(territory uint16) {
	l.queue.Post(Event{Kind: TerritoryChanged, Territory: territory})
}
