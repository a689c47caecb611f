// Package timers keeps the console's named auto-refresh tasks.
//
// Each name owns at most one ticker. Starting a name that is already running
// replaces its ticker, so repeated navigation never stacks refreshes. Suspend
// parks every ticker while the console is hidden; Resume restarts them with
// the intervals they had.
package timers

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type task struct {
	interval time.Duration
	fn       func()
	ticker   clockwork.Ticker
	done     chan struct{}
}

type Registry struct {
	clock clockwork.Clock

	mu        sync.Mutex
	tasks     map[string]*task
	suspended bool
}

func New(clock clockwork.Clock) *Registry {
	return &Registry{
		clock: clock,
		tasks: make(map[string]*task),
	}
}

// Start runs fn every interval under name, replacing any task with that name.
// While the registry is suspended the task is recorded and starts on Resume.
func (r *Registry) Start(name string, interval time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.tasks[name]; ok {
		old.halt()
	}

	t := &task{interval: interval, fn: fn}
	r.tasks[name] = t

	if !r.suspended {
		t.run(r.clock)
	}
}

func (r *Registry) Stop(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tasks[name]; ok {
		t.halt()
		delete(r.tasks, name)
	}
}

// StopAll halts and forgets every task.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, t := range r.tasks {
		t.halt()
		delete(r.tasks, name)
	}
}

func (r *Registry) Suspend() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.suspended {
		return
	}
	r.suspended = true

	for _, t := range r.tasks {
		t.halt()
	}
}

func (r *Registry) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.suspended {
		return
	}
	r.suspended = false

	for _, t := range r.tasks {
		t.run(r.clock)
	}
}

func (r *Registry) Suspended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suspended
}

// Interval reports the interval registered under name.
func (r *Registry) Interval(name string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[name]
	if !ok {
		return 0, false
	}
	return t.interval, true
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (t *task) run(clock clockwork.Clock) {
	t.ticker = clock.NewTicker(t.interval)
	t.done = make(chan struct{})

	go func(ticker clockwork.Ticker, done <-chan struct{}) {
		for {
			select {
			case <-done:
				return
			case <-ticker.Chan():
				select {
				case <-done:
					return
				default:
				}
				t.fn()
			}
		}
	}(t.ticker, t.done)
}

func (t *task) halt() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	close(t.done)
	t.ticker = nil
}
