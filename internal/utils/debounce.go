package utils

import (
	"sync"
	"time"
)

// Debouncer runs the most recently submitted func once input has been quiet for delay
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fn    func()
	// gen identifies the current timer; a fire from a replaced timer is ignored
	gen uint64
}

// NewDebouncer creates a debouncer with the given quiet period
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Call schedules fn, replacing and restarting any pending call
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fn = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Cancel drops a pending call. Returns true if one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := d.fn != nil
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.fn = nil
	return pending
}

// Pending reports whether a call is waiting to fire
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

// KeyedDebouncer keeps one Debouncer per key, e.g. per scanner session
type KeyedDebouncer struct {
	mu    sync.Mutex
	delay time.Duration
	byKey map[string]*Debouncer
}

// NewKeyedDebouncer creates a keyed debouncer
func NewKeyedDebouncer(delay time.Duration) *KeyedDebouncer {
	return &KeyedDebouncer{delay: delay, byKey: make(map[string]*Debouncer)}
}

// Call schedules fn for key; the entry is dropped once it fires
func (k *KeyedDebouncer) Call(key string, fn func()) {
	k.mu.Lock()
	d, ok := k.byKey[key]
	if !ok {
		d = NewDebouncer(k.delay)
		k.byKey[key] = d
	}
	k.mu.Unlock()

	d.Call(func() {
		k.mu.Lock()
		if k.byKey[key] == d {
			delete(k.byKey, key)
		}
		k.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending call for key
func (k *KeyedDebouncer) Cancel(key string) {
	k.mu.Lock()
	d, ok := k.byKey[key]
	delete(k.byKey, key)
	k.mu.Unlock()

	if ok {
		d.Cancel()
	}
}
