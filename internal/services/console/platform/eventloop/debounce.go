package eventloop

import (
	"context"
	"time"
)

// Debouncer collapses bursts of triggers into one call of fn, delay after the
// last trigger. It must only be used from the loop.
type Debouncer struct {
	sched Scheduler
	delay time.Duration
	fn    Task
	timer Timer
}

// NewDebouncer returns an idle debouncer.
func NewDebouncer(sched Scheduler, delay time.Duration, fn Task) *Debouncer {
	return &Debouncer{sched: sched, delay: delay, fn: fn}
}

// Trigger (re)starts the delay.
func (d *Debouncer) Trigger() {
	d.Stop()
	var timer Timer
	timer = d.sched.AfterFunc(d.delay, func(ctx context.Context) {
		if d.timer == timer {
			d.timer = nil
		}
		d.fn(ctx)
	})
	d.timer = timer
}

// Stop abandons a pending call and reports whether one was pending.
func (d *Debouncer) Stop() bool {
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	return d.timer != nil
}

// Flush runs a pending call immediately.
func (d *Debouncer) Flush(ctx context.Context) {
	if d.Stop() {
		d.fn(ctx)
	}
}
