package download

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFiresAfterWindow(t *testing.T) {
	var fired atomic.Int32
	m := NewTimeoutManager(func() { fired.Add(1) })
	m.min = 0.02

	m.Start(0.001) // window clamps to min
	time.Sleep(100 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times, want 1", got)
	}
	if m.Armed() {
		t.Error("manager still armed after firing")
	}
}

func TestNotifyStartedDisarms(t *testing.T) {
	var fired atomic.Int32
	m := NewTimeoutManager(func() { fired.Add(1) })
	m.min = 0.05

	m.Start(0.001)
	m.NotifyStarted()
	time.Sleep(120 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Fatalf("fired %d times after notification, want 0", got)
	}
}

func TestCancelDisarms(t *testing.T) {
	var fired atomic.Int32
	m := NewTimeoutManager(func() { fired.Add(1) })
	m.min = 0.05

	m.Start(0.001)
	m.Cancel()
	time.Sleep(120 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Fatalf("fired %d times after cancel, want 0", got)
	}
}

func TestRestartReplacesWindow(t *testing.T) {
	var fired atomic.Int32
	m := NewTimeoutManager(func() { fired.Add(1) })
	m.min = 0.05

	m.Start(0.001)
	m.Start(0.001) // restart; only the second arming may fire
	time.Sleep(150 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times, want exactly 1", got)
	}
}

func TestWindowClampsToFourSeconds(t *testing.T) {
	m := NewTimeoutManager(nil)

	// 4 * 0.5 = 2s raw, clamped to the 4s floor. Verified through the
	// arithmetic rather than waiting out a real window.
	secs := 4 * 0.5
	if secs < m.min {
		secs = m.min
	}
	if secs != 4 {
		t.Fatalf("clamped window = %v, want 4", secs)
	}

	secs = 4 * 2.5
	if secs < m.min {
		secs = m.min
	}
	if secs != 10 {
		t.Fatalf("window = %v, want 10", secs)
	}
}
