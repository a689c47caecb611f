// Package connectivity tracks whether the console can reach the API.
//
// Two signals feed it: the environment (the transport seeing the network go
// away or come back) and a periodic liveness probe against the backend. The
// console is online while both agree it is. Each flip of that combined state
// produces exactly one Notice, however many checks observe it.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
)

type Source string

const (
	SourceEnvironment Source = "environment"
	SourceProbe       Source = "probe"
)

// Notice is what the operator sees when connectivity changes.
type Notice struct {
	Online  bool
	Source  Source
	Message string
	At      time.Time
}

type Prober interface {
	Probe(ctx context.Context) error
}

type Monitor struct {
	log      *slog.Logger
	clock    clockwork.Clock
	prober   Prober
	interval time.Duration
	notify   func(Notice)

	// notifyMu orders state flips with their notices.
	notifyMu sync.Mutex

	mu        sync.Mutex
	env       bool
	probe     bool
	online    bool
	parent    context.Context
	suspended bool
	cancel    context.CancelFunc
	stopped   chan struct{}
}

// New returns a monitor that starts out online. Notices are delivered one at
// a time in the order the state changed; notify must not report back into
// the monitor on the same goroutine.
func New(log *slog.Logger, clock clockwork.Clock, prober Prober, interval time.Duration, notify func(Notice)) *Monitor {
	return &Monitor{
		log:      log.With(slog.String("component", "console/connectivity")),
		clock:    clock,
		prober:   prober,
		interval: interval,
		notify:   notify,
		env:      true,
		probe:    true,
		online:   true,
	}
}

// Start runs the probe every interval until ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.parent != nil {
		return
	}
	m.parent = ctx
	m.suspended = false
	m.runLocked()
}

// Stop ends probing for good. The environment signal is still recorded.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.parent = nil
	cancel, stopped := m.cancel, m.stopped
	m.cancel = nil
	m.mu.Unlock()

	wait(cancel, stopped)
}

// Suspend pauses the probe until Resume. The probe ticker is stopped by the
// time Suspend returns.
func (m *Monitor) Suspend() {
	m.mu.Lock()
	if m.parent == nil || m.suspended {
		m.mu.Unlock()
		return
	}
	m.suspended = true
	cancel, stopped := m.cancel, m.stopped
	m.cancel = nil
	m.mu.Unlock()

	wait(cancel, stopped)
}

func (m *Monitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.parent == nil || !m.suspended {
		return
	}
	m.suspended = false
	m.runLocked()
}

func (m *Monitor) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

func (m *Monitor) runLocked() {
	ctx, cancel := context.WithCancel(m.parent)
	stopped := make(chan struct{})
	ticker := m.clock.NewTicker(m.interval)
	m.cancel, m.stopped = cancel, stopped

	go func() {
		defer close(stopped)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				m.Check(ctx)
			}
		}
	}()
}

func wait(cancel context.CancelFunc, stopped chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// Check runs one liveness probe and records its outcome.
func (m *Monitor) Check(ctx context.Context) {
	const op = "console.connectivity.Check"

	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.prober.Probe(ctx)
	if err != nil {
		m.log.Debug("probe failed", slog.String("op", op), sl.Err(err))
	}

	m.report(SourceProbe, err == nil)
}

// ReportEnvironment records the environment's view of the network.
func (m *Monitor) ReportEnvironment(online bool) {
	m.report(SourceEnvironment, online)
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) report(src Source, ok bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	switch src {
	case SourceEnvironment:
		m.env = ok
	case SourceProbe:
		m.probe = ok
	}

	next := m.env && m.probe
	if next == m.online {
		m.mu.Unlock()
		return
	}
	m.online = next
	m.mu.Unlock()

	n := Notice{Online: next, Source: src, At: m.clock.Now()}
	if next {
		n.Message = "Connection restored"
		m.log.Info("back online", slog.String("source", string(src)))
	} else {
		n.Message = "Connection lost, retrying"
		m.log.Warn("went offline", slog.String("source", string(src)))
	}

	if m.notify != nil {
		m.notify(n)
	}
}
