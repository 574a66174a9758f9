// Package restimer runs the rest countdown that starts when a set is marked
// complete. A Coordinator is either idle or running; starting while running
// replaces the countdown, and only the newest countdown may fire.
package restimer

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// DefaultDuration is the rest period started by completing a set.
const DefaultDuration = 90 * time.Second

// State is the coordinator state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Snapshot is the observable state of a coordinator at one instant.
type Snapshot struct {
	State            State      `json:"state"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
	Display          string     `json:"display"`
}

// Coordinator is one rest timer.
type Coordinator struct {
	clock    Clock
	duration time.Duration
	onExpire func()

	mu        sync.Mutex
	state     State
	expiresAt time.Time
	stop      func() bool
	gen       uint64
}

// NewCoordinator returns an idle coordinator. onExpire runs on the clock's
// goroutine when a countdown reaches zero; it may be nil.
func NewCoordinator(clock Clock, duration time.Duration, onExpire func()) *Coordinator {
	return &Coordinator{
		clock:    clock,
		duration: duration,
		onExpire: onExpire,
		state:    StateIdle,
	}
}

// Start begins a new countdown, discarding any running one.
func (c *Coordinator) Start() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	gen := c.gen
	c.state = StateRunning
	c.expiresAt = c.clock.Now().Add(c.duration)
	c.stop = c.clock.AfterFunc(c.duration, func() { c.fire(gen) })
	return c.snapshotLocked()
}

// Cancel returns to idle without signalling. Cancelling an idle coordinator is a no-op.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	c.state = StateIdle
	c.expiresAt = time.Time{}
}

// Running reports whether a countdown is active.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateRunning
}

// Snapshot returns the current state with the remaining time rounded up to a
// whole second.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	if c.state != StateRunning {
		return idleSnapshot()
	}
	remaining := c.expiresAt.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	secs := int(math.Ceil(remaining.Seconds()))
	expiresAt := c.expiresAt
	return Snapshot{
		State:            StateRunning,
		ExpiresAt:        &expiresAt,
		RemainingSeconds: secs,
		Display:          FormatRemaining(secs),
	}
}

func (c *Coordinator) stopLocked() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

// fire handles a countdown reaching zero. Callbacks from replaced or
// cancelled countdowns carry a stale generation and are ignored.
func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.expiresAt = time.Time{}
	c.stop = nil
	c.mu.Unlock()

	if c.onExpire != nil {
		c.onExpire()
	}
}

func idleSnapshot() Snapshot {
	return Snapshot{State: StateIdle, Display: FormatRemaining(0)}
}

// FormatRemaining renders seconds as mm:ss.
func FormatRemaining(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
