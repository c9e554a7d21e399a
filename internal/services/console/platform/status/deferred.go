package status

import (
	"context"
	"sync"
)

// Deferred is a boolean that becomes known once.
type Deferred struct {
	mu        sync.Mutex
	done      chan struct{}
	resolved  bool
	value     bool
	ctx       context.Context
	callbacks []func(context.Context, bool)
}

// NewDeferred returns an unresolved value.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolve sets the value and runs pending callbacks with ctx. Only the first
// call has an effect; it reports whether this call resolved the value.
func (d *Deferred) Resolve(ctx context.Context, value bool) bool {
	d.mu.Lock()
	if d.resolved {
		d.mu.Unlock()
		return false
	}
	d.resolved = true
	d.value = value
	d.ctx = ctx
	callbacks := d.callbacks
	d.callbacks = nil
	close(d.done)
	d.mu.Unlock()

	for _, fn := range callbacks {
		fn(ctx, value)
	}
	return true
}

// Then runs fn once the value is known, immediately if it already is.
func (d *Deferred) Then(fn func(ctx context.Context, ok bool)) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	if !d.resolved {
		d.callbacks = append(d.callbacks, fn)
		d.mu.Unlock()
		return
	}
	ctx, value := d.ctx, d.value
	d.mu.Unlock()
	fn(ctx, value)
}

// Wait blocks until the value is known. It must not be called from the event
// loop that resolves it.
func (d *Deferred) Wait(ctx context.Context) (bool, error) {
	select {
	case <-d.done:
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.value, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Value returns the value and whether it is known.
func (d *Deferred) Value() (bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.resolved
}
