package restimer

import (
	"sync"
	"time"
)

// Registry holds one coordinator per user with a countdown in flight. Idle
// coordinators are dropped on cancel and on expiry, so the registry only
// grows with concurrently resting users.
type Registry struct {
	clock    Clock
	duration time.Duration
	onExpire func(userID string)

	mu     sync.Mutex
	timers map[string]*Coordinator
}

// NewRegistry creates a registry whose coordinators run for duration and
// report expiry to onExpire.
func NewRegistry(clock Clock, duration time.Duration, onExpire func(userID string)) *Registry {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Registry{
		clock:    clock,
		duration: duration,
		onExpire: onExpire,
		timers:   make(map[string]*Coordinator),
	}
}

// Start begins userID's countdown, replacing a running one.
func (r *Registry) Start(userID string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.timers[userID]
	if !ok {
		c = r.newCoordinator(userID)
		r.timers[userID] = c
	}
	return c.Start()
}

// Cancel stops userID's countdown and reports whether one was running.
func (r *Registry) Cancel(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.timers[userID]
	if !ok {
		return false
	}
	running := c.Running()
	c.Cancel()
	delete(r.timers, userID)
	return running
}

// Snapshot returns userID's timer state. Users without a countdown read as idle.
func (r *Registry) Snapshot(userID string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.timers[userID]
	if !ok {
		return idleSnapshot()
	}
	return c.Snapshot()
}

// Len returns the number of coordinators held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Duration returns the countdown length.
func (r *Registry) Duration() time.Duration {
	return r.duration
}

// Stop cancels every running countdown.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, c := range r.timers {
		c.Cancel()
		delete(r.timers, userID)
	}
}

func (r *Registry) newCoordinator(userID string) *Coordinator {
	var c *Coordinator
	c = NewCoordinator(r.clock, r.duration, func() { r.expired(userID, c) })
	return c
}

// expired drops c unless it was restarted between firing and here.
func (r *Registry) expired(userID string, c *Coordinator) {
	r.mu.Lock()
	if cur, ok := r.timers[userID]; ok && cur == c && !c.Running() {
		delete(r.timers, userID)
	}
	r.mu.Unlock()

	if r.onExpire != nil {
		r.onExpire(userID)
	}
}
