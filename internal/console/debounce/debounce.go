// Package debounce collapses bursts of filter edits into one trailing call per key.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type pending struct {
	timer clockwork.Timer
	seq   uint64
}

type Debouncer struct {
	clock clockwork.Clock
	delay time.Duration

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pending
}

func New(clock clockwork.Clock, delay time.Duration) *Debouncer {
	return &Debouncer{
		clock:   clock,
		delay:   delay,
		pending: make(map[string]*pending),
	}
}

// Trigger schedules fn to run once delay has passed without another Trigger
// for the same key. Only the last fn of a burst runs.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}

	d.seq++
	seq := d.seq

	p := &pending{seq: seq}
	p.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cur, ok := d.pending[key]
		if !ok || cur.seq != seq {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()

		fn()
	})
	d.pending[key] = p
}

// Cancel drops a pending call for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// Stop drops every pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.pending[key]
	return ok
}
