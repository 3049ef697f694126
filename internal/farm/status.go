package farm

// Snapshot is a consistent view for observers on other goroutines.
type Snapshot struct {
	Phase  Phase
	Status string
	Error  string
}

func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Error is the last fatal setup problem, empty when there is none.
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Phase: c.phase, Status: c.status, Error: c.err}
}

func (c *Controller) setStatus(s string) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Controller) setError(s string) {
	c.mu.Lock()
	c.err = s
	c.mu.Unlock()
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}
