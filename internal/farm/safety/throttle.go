package safety

import "time"

// Throttle is a named rate limiter: once armed, a key is not ready again
// until its interval has elapsed.
type Throttle struct {
	next map[string]time.Time
}

func NewThrottle() *Throttle {
	return &Throttle{next: map[string]time.Time{}}
}

func (t *Throttle) Ready(key string, now time.Time) bool {
	n, ok := t.next[key]
	return !ok || !now.Before(n)
}

func (t *Throttle) Arm(key string, now time.Time, d time.Duration) {
	t.next[key] = now.Add(d)
}

// Try arms key and reports true when it was ready.
func (t *Throttle) Try(key string, now time.Time, d time.Duration) bool {
	if !t.Ready(key, now) {
		return false
	}
	t.Arm(key, now, d)
	return true
}
