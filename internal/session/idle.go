package session

import (
	"sync"
	"time"
)

// IdleTimer ends a session whose client has gone quiet without calling the
// end endpoint. Touch rearms the timer; Stop disarms it for good.
type IdleTimer struct {
	timeout time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	onIdle  func()
}

func NewIdleTimer(timeout time.Duration, onIdle func()) *IdleTimer {
	return &IdleTimer{timeout: timeout, onIdle: onIdle}
}

// Touch restarts the countdown. A zero timeout disables idle detection.
func (t *IdleTimer) Touch() {
	if t == nil || t.timeout <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.timeout, func() {
		t.mu.Lock()
		callback := t.onIdle
		fired := !t.stopped
		t.timer = nil
		t.mu.Unlock()

		if fired && callback != nil {
			callback()
		}
	})
}

// Stop disarms the timer permanently; later Touch calls are no-ops.
func (t *IdleTimer) Stop() {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
