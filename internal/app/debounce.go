package app

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid free-text input in front of ApplyFilters:
// each Trigger cancels the pending fire and restarts the quiet-period
// timer, so the callback runs once per burst with the latest value.
type Debouncer struct {
	quiet time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 300 * time.Millisecond
	}
	return &Debouncer{quiet: quiet}
}

// Trigger schedules fire(text) after the quiet period, replacing any
// previously scheduled call.
func (d *Debouncer) Trigger(text string, fire func(string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, func() { fire(text) })
}

// Stop cancels any pending fire.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
