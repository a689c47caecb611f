// Package charts owns the chart objects drawn for each view. A view holds at
// most one chart per slot; replacing a chart destroys the old one first.
package charts

import (
	"sort"
	"sync"
)

type Chart interface {
	Destroy()
}

type Registry struct {
	mu     sync.Mutex
	charts map[string]Chart
}

func New() *Registry {
	return &Registry{charts: make(map[string]Chart)}
}

// Create destroys the chart under key, if any, then stores the one build returns.
func (r *Registry) Create(key string, build func() Chart) Chart {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.charts[key]; ok {
		old.Destroy()
		delete(r.charts, key)
	}

	c := build()
	r.charts[key] = c

	return c
}

func (r *Registry) Get(key string) (Chart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.charts[key]
	return c, ok
}

func (r *Registry) Destroy(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.charts[key]; ok {
		c.Destroy()
		delete(r.charts, key)
	}
}

// DestroyAll tears down every chart. Called when the console shuts down.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, c := range r.charts {
		c.Destroy()
		delete(r.charts, key)
	}
}

func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.charts))
	for k := range r.charts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
