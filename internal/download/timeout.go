// Package download holds the download timeout manager: a one-shot
// timer, one per executor, armed by ONDOWNLOAD and disarmed by a download
// notification or by macro end. On expiry it fires a callback exactly
// once per arming; the executor uses that to inject DOWNLOAD_TIMEOUT as
// a pending error.
package download

import (
	"sync"
	"time"
)

// minSeconds is the floor of the timeout window.
const minSeconds = 4.0

// TimeoutManager restarts on every Start call; Cancel and NotifyStarted
// disarm it. Safe for concurrent use: the timer callback races with
// cancellation, so a generation counter guards against stale fires.
type TimeoutManager struct {
	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	onTimeout func()

	// min is overridable in tests to keep the window short.
	min float64
}

// NewTimeoutManager returns a manager invoking onTimeout when the window
// elapses without a download notification.
func NewTimeoutManager(onTimeout func()) *TimeoutManager {
	return &TimeoutManager{onTimeout: onTimeout, min: minSeconds}
}

// Start arms the timer for max(4, 4*tagTimeout) seconds, cancelling any
// previous arming. tagTimeout is the current !TIMEOUT_TAG value and may
// be fractional.
func (m *TimeoutManager) Start(tagTimeout float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	secs := 4 * tagTimeout
	if secs < m.min {
		secs = m.min
	}
	gen := m.gen
	m.timer = time.AfterFunc(time.Duration(secs*float64(time.Second)), func() {
		m.fire(gen)
	})
}

func (m *TimeoutManager) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.gen++
	cb := m.onTimeout
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// NotifyStarted disarms the timer: the awaited download has begun.
func (m *TimeoutManager) NotifyStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Cancel disarms the timer. Called on macro end.
func (m *TimeoutManager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Armed reports whether a window is currently running.
func (m *TimeoutManager) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

func (m *TimeoutManager) stopLocked() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
