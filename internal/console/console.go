// Package console drives the operator console: one active view at a time,
// refreshed on its own timer, with debounced filters, a shared loading
// indicator, chart lifecycle and connectivity notices.
//
// Network calls run in their own goroutines; everything they produce is
// applied under the coordinator's lock, so screen updates are serialized. A
// response is drawn only if its view is still active and it carries the
// latest request token for that view.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lostmyescape/opsconsole/internal/console/charts"
	"github.com/lostmyescape/opsconsole/internal/console/client"
	"github.com/lostmyescape/opsconsole/internal/console/connectivity"
	"github.com/lostmyescape/opsconsole/internal/console/debounce"
	"github.com/lostmyescape/opsconsole/internal/console/loading"
	"github.com/lostmyescape/opsconsole/internal/console/timers"
	"github.com/lostmyescape/opsconsole/internal/console/viewmodel"
	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
)

type View string

const (
	ViewDashboard View = "dashboard"
	ViewSearches  View = "searches"
	ViewClicks    View = "clicks"
	ViewUsers     View = "users"
	ViewTickets   View = "tickets"
)

const (
	chartDaily  = "dashboard.daily"
	chartWeekly = "dashboard.weekly"

	unreachable = "Cannot reach the console API, retrying"
)

var ErrUnknownView = errors.New("unknown view")

func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewDashboard, ViewSearches, ViewClicks, ViewUsers, ViewTickets:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Screen draws what the coordinator decides. Implementations must not call
// back into the coordinator.
type Screen interface {
	ShowDashboard(d viewmodel.Dashboard)
	ShowTable(view View, t viewmodel.Table)
	NewChart(key string, s viewmodel.Series) charts.Chart
	SetLoading(visible bool)
	// ShowBanner displays a dismissible error banner; an empty message hides it.
	ShowBanner(msg string)
	ShowNotice(msg string)
}

type API interface {
	Dashboard(ctx context.Context, startDate, endDate string) (models.MetricsSnapshot, error)
	Searches(ctx context.Context, q url.Values) (models.Page[models.SearchEvent], error)
	Clicks(ctx context.Context, q url.Values) (models.Page[models.ClickEvent], error)
	ClickSummaries(ctx context.Context, q url.Values) (models.Page[models.UserClickSummary], error)
	Users(ctx context.Context, q url.Values) (models.Page[models.AnonymousUser], error)
	Tickets(ctx context.Context, q url.Values) (models.Page[models.Ticket], error)
	UpdateTicket(ctx context.Context, id int64, fields url.Values) (client.TicketUpdate, error)
}

type Intervals struct {
	Dashboard time.Duration
	Tickets   time.Duration
	Lists     time.Duration
}

func (iv Intervals) For(v View) time.Duration {
	switch v {
	case ViewDashboard:
		return iv.Dashboard
	case ViewTickets:
		return iv.Tickets
	default:
		return iv.Lists
	}
}

// Deps are the long-lived services the coordinator drives. Each is built by
// the caller and torn down by Shutdown.
type Deps struct {
	Log          *slog.Logger
	API          API
	Screen       Screen
	Timers       *timers.Registry
	Debounce     *debounce.Debouncer
	Loading      *loading.Indicator
	Charts       *charts.Registry
	Connectivity *connectivity.Monitor
}

type Coordinator struct {
	log       *slog.Logger
	api       API
	screen    Screen
	timers    *timers.Registry
	debounce  *debounce.Debouncer
	loading   *loading.Indicator
	charts    *charts.Registry
	monitor   *connectivity.Monitor
	intervals Intervals

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	active  View
	filters map[View]url.Values
	tokens  map[View]string
	banner  string
	running bool
	wg      sync.WaitGroup
}

func New(d Deps, iv Intervals) *Coordinator {
	return &Coordinator{
		log:       d.Log.With(slog.String("component", "console")),
		api:       d.API,
		screen:    d.Screen,
		timers:    d.Timers,
		debounce:  d.Debounce,
		loading:   d.Loading,
		charts:    d.Charts,
		monitor:   d.Connectivity,
		intervals: iv,
		filters:   make(map[View]url.Values),
		tokens:    make(map[View]string),
	}
}

// Start begins connectivity probing and opens the first view.
func (c *Coordinator) Start(ctx context.Context, first View) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.mu.Unlock()

	if c.monitor != nil {
		c.monitor.Start(c.ctx)
	}

	c.Navigate(first)
}

// Shutdown stops every timer and probe, waits for in-flight requests and
// releases charts. The coordinator cannot be restarted.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.mu.Unlock()

	c.timers.StopAll()
	c.debounce.Stop()
	if c.monitor != nil {
		c.monitor.Stop()
	}

	cancel()
	c.wg.Wait()

	c.loading.Reset()
	c.charts.DestroyAll()

	c.log.Info("console stopped")
}

func (c *Coordinator) Active() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Navigate makes v the active view, schedules its auto-refresh and loads it now.
func (c *Coordinator) Navigate(v View) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	prev := c.active
	c.active = v
	c.mu.Unlock()

	if prev != "" && prev != v {
		c.timers.Stop(string(prev))
		c.debounce.Cancel(string(prev))
		if prev == ViewDashboard {
			c.charts.Destroy(chartDaily)
			c.charts.Destroy(chartWeekly)
		}
	}

	c.timers.Start(string(v), c.intervals.For(v), func() { c.Refresh(v) })
	c.Refresh(v)
}

// SetFilter changes one filter of v. Clearing a value removes the filter.
// Any filter change goes back to the first page and is applied after the
// debounce delay.
func (c *Coordinator) SetFilter(v View, key, value string) {
	c.mu.Lock()
	q := c.filtersLocked(v)
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	q.Del("page")
	c.mu.Unlock()

	c.debounce.Trigger(string(v), func() { c.Refresh(v) })
}

// SetPage loads page p of v immediately.
func (c *Coordinator) SetPage(v View, p int) {
	c.mu.Lock()
	c.filtersLocked(v).Set("page", strconv.Itoa(p))
	c.mu.Unlock()

	c.Refresh(v)
}

func (c *Coordinator) Filters(v View) url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(url.Values)
	for k, vals := range c.filters[v] {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// Focus suspends auto-refresh, the connectivity probe and pending filter
// applications while the console is hidden. Becoming visible again resumes
// them and refreshes the active view at once with its current filters.
func (c *Coordinator) Focus(visible bool) {
	if !visible {
		c.timers.Suspend()
		c.debounce.Stop()
		if c.monitor != nil {
			c.monitor.Suspend()
		}
		return
	}

	if !c.timers.Suspended() {
		return
	}
	c.timers.Resume()
	if c.monitor != nil {
		c.monitor.Resume()
	}

	if v := c.Active(); v != "" {
		c.Refresh(v)
	}
}

func (c *Coordinator) DismissBanner() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.banner != "" {
		c.banner = ""
		c.screen.ShowBanner("")
	}
}

// HandleNotice shows a connectivity notice and reloads the active view once
// the API is reachable again.
func (c *Coordinator) HandleNotice(n connectivity.Notice) {
	c.mu.Lock()
	c.screen.ShowNotice(n.Message)
	active := c.active
	c.mu.Unlock()

	if n.Online && active != "" {
		c.Refresh(active)
	}
}

// Refresh loads v in the background. It is a no-op unless v is active.
func (c *Coordinator) Refresh(v View) {
	c.mu.Lock()
	if !c.running || c.active != v {
		c.mu.Unlock()
		return
	}
	token := uuid.NewString()
	c.tokens[v] = token
	q := c.filtersLocked(v)
	query := make(url.Values, len(q))
	for k, vals := range q {
		query[k] = append([]string(nil), vals...)
	}
	ctx := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()

	c.loading.Show(string(v))

	go func() {
		defer c.wg.Done()
		defer c.loading.Hide(string(v))

		render, err := c.fetch(ctx, v, query)
		c.deliver(v, token, render, err)
	}()
}

// UpdateTicket submits fields for ticket id and reloads the ticket list when
// it succeeds. A notification warning from the server is shown as a notice.
func (c *Coordinator) UpdateTicket(id int64, fields url.Values) {
	const op = "console.UpdateTicket"

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()

	key := "ticket:" + strconv.FormatInt(id, 10)
	c.loading.Show(key)

	go func() {
		defer c.wg.Done()
		defer c.loading.Hide(key)

		res, err := c.api.UpdateTicket(ctx, id, fields)

		c.mu.Lock()
		if err != nil {
			c.log.Warn("ticket update failed", slog.String("op", op), slog.Int64("ticket_id", id), sl.Err(err))
			c.setBannerLocked(message(err))
			c.mu.Unlock()
			return
		}

		msg := fmt.Sprintf("Ticket #%d saved as %s", res.ID, res.Status)
		if res.Warning != "" {
			msg = res.Warning
		}
		c.screen.ShowNotice(msg)
		c.mu.Unlock()

		c.Refresh(ViewTickets)
	}()
}

type renderFunc func()

func (c *Coordinator) fetch(ctx context.Context, v View, q url.Values) (renderFunc, error) {
	switch v {
	case ViewDashboard:
		snap, err := c.api.Dashboard(ctx, q.Get("start_date"), q.Get("end_date"))
		if err != nil {
			return nil, err
		}
		return func() { c.renderDashboard(viewmodel.NewDashboard(snap)) }, nil

	case ViewSearches:
		p, err := c.api.Searches(ctx, q)
		if err != nil {
			return nil, err
		}
		return func() { c.screen.ShowTable(v, viewmodel.Searches(p)) }, nil

	case ViewClicks:
		if q.Get("group_by_user") == "true" {
			p, err := c.api.ClickSummaries(ctx, q)
			if err != nil {
				return nil, err
			}
			return func() { c.screen.ShowTable(v, viewmodel.ClickSummaries(p)) }, nil
		}
		p, err := c.api.Clicks(ctx, q)
		if err != nil {
			return nil, err
		}
		return func() { c.screen.ShowTable(v, viewmodel.Clicks(p)) }, nil

	case ViewUsers:
		p, err := c.api.Users(ctx, q)
		if err != nil {
			return nil, err
		}
		return func() { c.screen.ShowTable(v, viewmodel.Users(p)) }, nil

	case ViewTickets:
		p, err := c.api.Tickets(ctx, q)
		if err != nil {
			return nil, err
		}
		return func() { c.screen.ShowTable(v, viewmodel.Tickets(p)) }, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownView, v)
}

func (c *Coordinator) deliver(v View, token string, render renderFunc, err error) {
	const op = "console.deliver"

	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.With(slog.String("op", op), slog.String("view", string(v)))

	if !c.running || c.active != v || c.tokens[v] != token {
		log.Debug("discarding stale response")
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Warn("refresh failed", sl.Err(err))
		c.setBannerLocked(message(err))
		return
	}

	render()
	c.setBannerLocked("")
}

func (c *Coordinator) renderDashboard(d viewmodel.Dashboard) {
	c.screen.ShowDashboard(d)
	c.charts.Create(chartDaily, func() charts.Chart { return c.screen.NewChart(chartDaily, d.Daily) })
	c.charts.Create(chartWeekly, func() charts.Chart { return c.screen.NewChart(chartWeekly, d.Weekly) })
}

func (c *Coordinator) setBannerLocked(msg string) {
	if c.banner == msg {
		return
	}
	c.banner = msg
	c.screen.ShowBanner(msg)
}

func (c *Coordinator) filtersLocked(v View) url.Values {
	q, ok := c.filters[v]
	if !ok {
		q = make(url.Values)
		c.filters[v] = q
	}
	return q
}

// message is the operator-facing text for a failed call.
func message(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	if errors.Is(err, client.ErrTransient) {
		return unreachable
	}
	return "Something went wrong, please retry"
}
