package restimer_test

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/claude/gymcoach/internal/restimer"
	"github.com/claude/gymcoach/internal/testutil"
)

var epoch = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestStartThenExpire verifies a countdown signals once and returns to idle.
func TestStartThenExpire(t *testing.T) {
	clock := testutil.NewFakeClock(epoch)
	var fired atomic.Int32
	c := restimer.NewCoordinator(clock, restimer.DefaultDuration, func() { fired.Add(1) })

	snap := c.Start()
	if snap.State != restimer.StateRunning {
		t.Fatalf("state = %q, want running", snap.State)
	}
	if snap.Display != "01:30" {
		t.Errorf("display = %q, want 01:30", snap.Display)
	}
	if want := epoch.Add(90 * time.Second); !snap.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", snap.ExpiresAt, want)
	}

	clock.Advance(89 * time.Second)
	if fired.Load() != 0 {
		t.Fatal("fired before expiry")
	}
	if got := c.Snapshot().Display; got != "00:01" {
		t.Errorf("display = %q, want 00:01", got)
	}

	clock.Advance(time.Second)
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want 1", fired.Load())
	}
	if c.Running() {
		t.Error("still running after expiry")
	}
	if got := c.Snapshot(); got.State != restimer.StateIdle || got.Display != "00:00" {
		t.Errorf("snapshot = %+v, want idle 00:00", got)
	}
}

// TestDisplayRoundsUp verifies partial seconds count as a whole second.
func TestDisplayRoundsUp(t *testing.T) {
	clock := testutil.NewFakeClock(epoch)
	c := restimer.NewCoordinator(clock, restimer.DefaultDuration, nil)
	c.Start()
	defer c.Cancel()

	clock.Advance(500 * time.Millisecond)
	snap := c.Snapshot()
	if snap.RemainingSeconds != 90 || snap.Display != "01:30" {
		t.Errorf("snapshot = %d %q, want 90 01:30", snap.RemainingSeconds, snap.Display)
	}
	clock.Advance(30 * time.Second)
	if got := c.Snapshot().Display; got != "01:00" {
		t.Errorf("display = %q, want 01:00", got)
	}
}

// TestRestartReplacesCountdown verifies that only the newest countdown fires.
func TestRestartReplacesCountdown(t *testing.T) {
	clock := testutil.NewFakeClock(epoch)
	var fired atomic.Int32
	c := restimer.NewCoordinator(clock, restimer.DefaultDuration, func() { fired.Add(1) })

	c.Start()
	clock.Advance(60 * time.Second)
	c.Start()
	if clock.Pending() != 1 {
		t.Errorf("pending = %d, want 1", clock.Pending())
	}

	clock.Advance(30 * time.Second) // first countdown's deadline
	if fired.Load() != 0 {
		t.Fatal("replaced countdown fired")
	}
	if got := c.Snapshot().Display; got != "01:00" {
		t.Errorf("display = %q, want 01:00", got)
	}

	clock.Advance(60 * time.Second)
	if fired.Load() != 1 {
		t.Errorf("fired = %d, want 1", fired.Load())
	}
}

// TestCancelSuppressesSignal verifies that a cancelled countdown never fires.
func TestCancelSuppressesSignal(t *testing.T) {
	clock := testutil.NewFakeClock(epoch)
	var fired atomic.Int32
	c := restimer.NewCoordinator(clock, restimer.DefaultDuration, func() { fired.Add(1) })

	c.Start()
	clock.Advance(10 * time.Second)
	c.Cancel()
	clock.Advance(5 * time.Minute)

	if fired.Load() != 0 {
		t.Errorf("fired = %d, want 0", fired.Load())
	}
	if c.Running() {
		t.Error("running after cancel")
	}
	c.Cancel() // idle cancel is a no-op
}

// TestSystemClockExpiry exercises the real clock with a short duration.
func TestSystemClockExpiry(t *testing.T) {
	done := make(chan struct{})
	c := restimer.NewCoordinator(restimer.SystemClock{}, 20*time.Millisecond, func() { close(done) })
	c.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	if c.Running() {
		t.Error("running after expiry")
	}
}

// TestSystemClockCancel verifies a cancelled real timer leaves no goroutine behind.
func TestSystemClockCancel(t *testing.T) {
	c := restimer.NewCoordinator(restimer.SystemClock{}, time.Hour, func() { t.Error("fired after cancel") })
	c.Start()
	c.Cancel()
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "00:00"},
		{9, "00:09"},
		{90, "01:30"},
		{600, "10:00"},
		{-5, "00:00"},
	}
	for _, tt := range tests {
		if got := restimer.FormatRemaining(tt.secs); got != tt.want {
			t.Errorf("FormatRemaining(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
