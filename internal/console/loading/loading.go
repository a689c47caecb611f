// Package loading tracks in-flight requests behind the console's single
// loading indicator. The indicator is on while any key has a request pending.
package loading

import (
	"sort"
	"sync"
)

type Indicator struct {
	// notifyMu is held across a state change and its onChange call, so the
	// last visibility reported is always the current one.
	notifyMu sync.Mutex

	mu       sync.Mutex
	inflight map[string]int
	onChange func(visible bool)
}

// New returns an indicator that calls onChange whenever visibility flips.
// onChange may be nil. Calls are serialized and may read Visible or Pending.
func New(onChange func(visible bool)) *Indicator {
	return &Indicator{
		inflight: make(map[string]int),
		onChange: onChange,
	}
}

func (i *Indicator) Show(key string) {
	i.notifyMu.Lock()
	defer i.notifyMu.Unlock()

	i.mu.Lock()
	was := len(i.inflight) > 0
	i.inflight[key]++
	i.mu.Unlock()

	if !was {
		i.notify(true)
	}
}

// Hide releases one Show for key. Hiding a key that is not pending is a no-op.
func (i *Indicator) Hide(key string) {
	i.notifyMu.Lock()
	defer i.notifyMu.Unlock()

	i.mu.Lock()
	n, ok := i.inflight[key]
	if !ok {
		i.mu.Unlock()
		return
	}
	if n <= 1 {
		delete(i.inflight, key)
	} else {
		i.inflight[key] = n - 1
	}
	now := len(i.inflight) > 0
	i.mu.Unlock()

	if !now {
		i.notify(false)
	}
}

func (i *Indicator) Visible() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.inflight) > 0
}

// Pending lists the keys with at least one request in flight.
func (i *Indicator) Pending() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	keys := make([]string, 0, len(i.inflight))
	for k := range i.inflight {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Reset clears every key, used on shutdown.
func (i *Indicator) Reset() {
	i.notifyMu.Lock()
	defer i.notifyMu.Unlock()

	i.mu.Lock()
	was := len(i.inflight) > 0
	i.inflight = make(map[string]int)
	i.mu.Unlock()

	if was {
		i.notify(false)
	}
}

func (i *Indicator) notify(visible bool) {
	if i.onChange != nil {
		i.onChange(visible)
	}
}
