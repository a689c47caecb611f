package console

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lostmyescape/opsconsole/internal/console/charts"
	"github.com/lostmyescape/opsconsole/internal/console/client"
	"github.com/lostmyescape/opsconsole/internal/console/connectivity"
	"github.com/lostmyescape/opsconsole/internal/console/debounce"
	"github.com/lostmyescape/opsconsole/internal/console/loading"
	"github.com/lostmyescape/opsconsole/internal/console/timers"
	"github.com/lostmyescape/opsconsole/internal/console/viewmodel"
	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/handlers/slogdiscard"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

type fakeAPI struct {
	mu      sync.Mutex
	calls   map[View][]url.Values
	hold    map[View]chan struct{}
	errs    map[View]error
	update  client.TicketUpdate
	updates int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: make(map[View][]url.Values),
		hold:  make(map[View]chan struct{}),
		errs:  make(map[View]error),
	}
}

// holdNext makes the next call for v block until the returned func is called.
func (a *fakeAPI) holdNext(v View) func() {
	ch := make(chan struct{})
	a.mu.Lock()
	a.hold[v] = ch
	a.mu.Unlock()
	return func() { close(ch) }
}

func (a *fakeAPI) fail(v View, err error) {
	a.mu.Lock()
	a.errs[v] = err
	a.mu.Unlock()
}

func (a *fakeAPI) enter(v View, q url.Values) error {
	a.mu.Lock()
	a.calls[v] = append(a.calls[v], q)
	ch := a.hold[v]
	delete(a.hold, v)
	err := a.errs[v]
	a.mu.Unlock()

	if ch != nil {
		<-ch
	}
	return err
}

func (a *fakeAPI) count(v View) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls[v])
}

func (a *fakeAPI) last(v View) url.Values {
	a.mu.Lock()
	defer a.mu.Unlock()
	calls := a.calls[v]
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1]
}

func (a *fakeAPI) Dashboard(_ context.Context, start, end string) (models.MetricsSnapshot, error) {
	err := a.enter(ViewDashboard, url.Values{"start_date": {start}, "end_date": {end}})
	return models.MetricsSnapshot{StartDate: "2026-09-19", EndDate: "2026-10-18", DailyTrend: []models.DailyBucket{{Date: "2026-10-18"}}}, err
}

func (a *fakeAPI) Searches(_ context.Context, q url.Values) (models.Page[models.SearchEvent], error) {
	err := a.enter(ViewSearches, q)
	return models.NewPage([]models.SearchEvent{{ID: 1, UserID: "u1"}}, models.PageRequest{Page: 1, PerPage: 50}, 1), err
}

func (a *fakeAPI) Clicks(_ context.Context, q url.Values) (models.Page[models.ClickEvent], error) {
	err := a.enter(ViewClicks, q)
	return models.NewPage[models.ClickEvent](nil, models.PageRequest{Page: 1, PerPage: 50}, 0), err
}

func (a *fakeAPI) ClickSummaries(_ context.Context, q url.Values) (models.Page[models.UserClickSummary], error) {
	err := a.enter(ViewClicks, q)
	return models.NewPage([]models.UserClickSummary{{UserID: "u1", TotalClicks: 4}}, models.PageRequest{Page: 1, PerPage: 50}, 1), err
}

func (a *fakeAPI) Users(_ context.Context, q url.Values) (models.Page[models.AnonymousUser], error) {
	err := a.enter(ViewUsers, q)
	return models.NewPage[models.AnonymousUser](nil, models.PageRequest{Page: 1, PerPage: 50}, 0), err
}

func (a *fakeAPI) Tickets(_ context.Context, q url.Values) (models.Page[models.Ticket], error) {
	err := a.enter(ViewTickets, q)
	return models.NewPage([]models.Ticket{{ID: 9, Status: models.StatusOpen}}, models.PageRequest{Page: 1, PerPage: 50}, 1), err
}

func (a *fakeAPI) UpdateTicket(_ context.Context, id int64, _ url.Values) (client.TicketUpdate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updates++
	out := a.update
	out.ID = id
	return out, nil
}

type fakeChart struct {
	mu        sync.Mutex
	destroyed bool
}

func (c *fakeChart) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	c.mu.Unlock()
}

func (c *fakeChart) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

type fakeScreen struct {
	mu         sync.Mutex
	dashboards int
	tables     []View
	lastTable  map[View]viewmodel.Table
	charts     []*fakeChart
	loading    []bool
	banners    []string
	notices    []string
}

func newFakeScreen() *fakeScreen {
	return &fakeScreen{lastTable: make(map[View]viewmodel.Table)}
}

func (s *fakeScreen) ShowDashboard(viewmodel.Dashboard) {
	s.mu.Lock()
	s.dashboards++
	s.mu.Unlock()
}

func (s *fakeScreen) ShowTable(v View, t viewmodel.Table) {
	s.mu.Lock()
	s.tables = append(s.tables, v)
	s.lastTable[v] = t
	s.mu.Unlock()
}

func (s *fakeScreen) NewChart(string, viewmodel.Series) charts.Chart {
	c := &fakeChart{}
	s.mu.Lock()
	s.charts = append(s.charts, c)
	s.mu.Unlock()
	return c
}

func (s *fakeScreen) SetLoading(v bool) {
	s.mu.Lock()
	s.loading = append(s.loading, v)
	s.mu.Unlock()
}

func (s *fakeScreen) ShowBanner(msg string) {
	s.mu.Lock()
	s.banners = append(s.banners, msg)
	s.mu.Unlock()
}

func (s *fakeScreen) ShowNotice(msg string) {
	s.mu.Lock()
	s.notices = append(s.notices, msg)
	s.mu.Unlock()
}

func (s *fakeScreen) tablesFor(v View) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tables {
		if t == v {
			n++
		}
	}
	return n
}

func (s *fakeScreen) dashboardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dashboards
}

func (s *fakeScreen) lastBanner() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.banners) == 0 {
		return "", false
	}
	return s.banners[len(s.banners)-1], true
}

func (s *fakeScreen) noticeList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notices...)
}

func (s *fakeScreen) chartList() []*fakeChart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeChart(nil), s.charts...)
}

type harness struct {
	c      *Coordinator
	api    *fakeAPI
	screen *fakeScreen
	clock  *clockwork.FakeClock
	deps   Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := clockwork.NewFakeClock()
	api := newFakeAPI()
	screen := newFakeScreen()

	deps := Deps{
		Log:      slogdiscard.NewDiscardLogger(),
		API:      api,
		Screen:   screen,
		Timers:   timers.New(clock),
		Debounce: debounce.New(clock, 300*time.Millisecond),
		Loading:  loading.New(screen.SetLoading),
		Charts:   charts.New(),
	}

	c := New(deps, Intervals{Dashboard: 60 * time.Second, Tickets: 30 * time.Second, Lists: 120 * time.Second})
	t.Cleanup(c.Shutdown)

	return &harness{c: c, api: api, screen: screen, clock: clock, deps: deps}
}

func (h *harness) idle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return !h.deps.Loading.Visible() }, waitFor, tick)
}

func TestStart_RendersDashboardWithCharts(t *testing.T) {
	h := newHarness(t)

	h.c.Start(context.Background(), ViewDashboard)

	require.Eventually(t, func() bool { return h.screen.dashboardCount() == 1 }, waitFor, tick)
	h.idle(t)

	assert.Equal(t, []string{chartDaily, chartWeekly}, h.deps.Charts.Keys())
	assert.Len(t, h.screen.chartList(), 2)

	interval, ok := h.deps.Timers.Interval(string(ViewDashboard))
	require.True(t, ok)
	assert.Equal(t, 60*time.Second, interval)

	// a second render replaces the charts instead of leaking them
	h.c.Refresh(ViewDashboard)
	require.Eventually(t, func() bool { return h.screen.dashboardCount() == 2 }, waitFor, tick)
	h.idle(t)

	created := h.screen.chartList()
	require.Len(t, created, 4)
	assert.True(t, created[0].isDestroyed())
	assert.True(t, created[1].isDestroyed())
	assert.False(t, created[2].isDestroyed())
	assert.Len(t, h.deps.Charts.Keys(), 2)
}

func TestNavigate_DiscardsResponseForInactiveView(t *testing.T) {
	h := newHarness(t)
	h.c.Start(context.Background(), ViewDashboard)
	h.idle(t)

	release := h.api.holdNext(ViewTickets)
	h.c.Navigate(ViewTickets)
	require.Eventually(t, func() bool { return h.api.count(ViewTickets) == 1 }, waitFor, tick)
	assert.True(t, h.deps.Loading.Visible())

	h.c.Navigate(ViewSearches)
	require.Eventually(t, func() bool { return h.screen.tablesFor(ViewSearches) == 1 }, waitFor, tick)
	assert.True(t, h.deps.Loading.Visible(), "tickets request still in flight")

	release()
	h.idle(t)

	assert.Equal(t, 0, h.screen.tablesFor(ViewTickets))
	assert.Empty(t, h.deps.Charts.Keys(), "dashboard charts released on navigation")

	_, ok := h.deps.Timers.Interval(string(ViewTickets))
	assert.False(t, ok)
}

func TestRefresh_LatestTokenWins(t *testing.T) {
	h := newHarness(t)

	release := h.api.holdNext(ViewTickets)
	h.c.Start(context.Background(), ViewTickets)
	require.Eventually(t, func() bool { return h.api.count(ViewTickets) == 1 }, waitFor, tick)

	h.c.Refresh(ViewTickets)
	require.Eventually(t, func() bool { return h.screen.tablesFor(ViewTickets) == 1 }, waitFor, tick)

	release()
	h.idle(t)

	assert.Equal(t, 1, h.screen.tablesFor(ViewTickets))
}

func TestTransientFailureShowsBanner(t *testing.T) {
	h := newHarness(t)

	h.api.fail(ViewDashboard, &client.APIError{Status: 500, Detail: "Failed to load dashboard metrics, please retry"})
	h.c.Start(context.Background(), ViewDashboard)
	h.idle(t)

	banner, ok := h.screen.lastBanner()
	require.True(t, ok)
	assert.Equal(t, "Failed to load dashboard metrics, please retry", banner)
	assert.Equal(t, 0, h.screen.dashboardCount())

	// the scheduled refresh retries and clears the banner
	h.api.fail(ViewDashboard, nil)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	h.clock.Advance(60 * time.Second)

	require.Eventually(t, func() bool { return h.screen.dashboardCount() == 1 }, waitFor, tick)
	banner, _ = h.screen.lastBanner()
	assert.Empty(t, banner)
}

func TestNetworkFailureBannerAndDismiss(t *testing.T) {
	h := newHarness(t)

	h.api.fail(ViewUsers, client.ErrTransient)
	h.c.Start(context.Background(), ViewUsers)
	h.idle(t)

	banner, _ := h.screen.lastBanner()
	assert.Equal(t, unreachable, banner)

	h.c.DismissBanner()
	banner, _ = h.screen.lastBanner()
	assert.Empty(t, banner)
}

func TestSetFilter_Debounced(t *testing.T) {
	h := newHarness(t)
	h.c.Start(context.Background(), ViewSearches)
	require.Eventually(t, func() bool { return h.api.count(ViewSearches) == 1 }, waitFor, tick)
	h.idle(t)

	h.c.SetPage(ViewSearches, 3)
	require.Eventually(t, func() bool { return h.api.count(ViewSearches) == 2 }, waitFor, tick)
	assert.Equal(t, "3", h.api.last(ViewSearches).Get("page"))

	for _, country := range []string{"D", "DE"} {
		h.c.SetFilter(ViewSearches, "country", country)
		h.clock.Advance(100 * time.Millisecond)
	}
	h.c.SetFilter(ViewSearches, "device_type", "ios")

	assert.Equal(t, 2, h.api.count(ViewSearches))

	h.clock.Advance(300 * time.Millisecond)
	require.Eventually(t, func() bool { return h.api.count(ViewSearches) == 3 }, waitFor, tick)

	q := h.api.last(ViewSearches)
	assert.Equal(t, "DE", q.Get("country"))
	assert.Equal(t, "ios", q.Get("device_type"))
	assert.Empty(t, q.Get("page"), "filter change resets paging")

	h.c.SetFilter(ViewSearches, "country", "")
	assert.NotContains(t, h.c.Filters(ViewSearches), "country")
}

func TestClicks_GroupByUser(t *testing.T) {
	h := newHarness(t)
	h.c.Start(context.Background(), ViewClicks)
	h.idle(t)

	h.c.SetFilter(ViewClicks, "group_by_user", "true")
	h.clock.Advance(300 * time.Millisecond)

	require.Eventually(t, func() bool { return h.screen.tablesFor(ViewClicks) == 2 }, waitFor, tick)

	h.screen.mu.Lock()
	tbl := h.screen.lastTable[ViewClicks]
	h.screen.mu.Unlock()
	assert.Equal(t, "Clicks by user", tbl.Title)
}

type countingProber struct {
	mu    sync.Mutex
	calls int
}

func (p *countingProber) Probe(context.Context) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return nil
}

func (p *countingProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestFocus_SuspendsAndResumes(t *testing.T) {
	h := newHarness(t)

	prober := &countingProber{}
	monitor := connectivity.New(slogdiscard.NewDiscardLogger(), h.clock, prober, 15*time.Second, h.c.HandleNotice)
	h.c.monitor = monitor

	h.c.Start(context.Background(), ViewTickets)
	require.Eventually(t, func() bool { return h.api.count(ViewTickets) == 1 }, waitFor, tick)
	h.idle(t)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	// refresh timer and probe ticker
	require.NoError(t, h.clock.BlockUntilContext(ctx, 2))

	h.c.SetFilter(ViewTickets, "status", "open")
	h.c.Focus(false)
	assert.True(t, monitor.Suspended())
	assert.False(t, h.deps.Debounce.Pending(string(ViewTickets)))

	h.clock.Advance(5 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.api.count(ViewTickets))
	assert.Equal(t, 0, prober.count())

	h.c.Focus(true)
	assert.False(t, monitor.Suspended())
	require.Eventually(t, func() bool { return h.api.count(ViewTickets) == 2 }, waitFor, tick)
	assert.Equal(t, "open", h.api.last(ViewTickets).Get("status"))
	h.idle(t)

	require.NoError(t, h.clock.BlockUntilContext(ctx, 2))

	h.clock.Advance(15 * time.Second)
	require.Eventually(t, func() bool { return prober.count() == 1 }, waitFor, tick)

	h.clock.Advance(15 * time.Second)
	require.Eventually(t, func() bool { return h.api.count(ViewTickets) == 3 }, waitFor, tick)
}

func TestUpdateTicket_WarningAndReload(t *testing.T) {
	h := newHarness(t)
	h.api.update = client.TicketUpdate{
		Ticket:  models.Ticket{Status: models.StatusResolved},
		Warning: "Ticket resolved, but the user notification could not be delivered",
	}

	h.c.Start(context.Background(), ViewTickets)
	require.Eventually(t, func() bool { return h.screen.tablesFor(ViewTickets) == 1 }, waitFor, tick)

	h.c.UpdateTicket(9, url.Values{"status": {"resolved"}, "resolved_by": {"admin1"}})

	require.Eventually(t, func() bool { return h.screen.tablesFor(ViewTickets) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"Ticket resolved, but the user notification could not be delivered"}, h.screen.noticeList())
}

func TestHandleNotice_RefreshesWhenBackOnline(t *testing.T) {
	h := newHarness(t)
	h.c.Start(context.Background(), ViewUsers)
	require.Eventually(t, func() bool { return h.api.count(ViewUsers) == 1 }, waitFor, tick)

	h.c.HandleNotice(connectivity.Notice{Online: false, Message: "Connection lost, retrying"})
	h.c.HandleNotice(connectivity.Notice{Online: true, Message: "Connection restored"})

	require.Eventually(t, func() bool { return h.api.count(ViewUsers) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"Connection lost, retrying", "Connection restored"}, h.screen.noticeList())
}

func TestShutdown_ReleasesEverything(t *testing.T) {
	h := newHarness(t)

	release := h.api.holdNext(ViewDashboard)
	h.c.Start(context.Background(), ViewDashboard)
	require.Eventually(t, func() bool { return h.api.count(ViewDashboard) == 1 }, waitFor, tick)

	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()

	h.c.Shutdown()

	assert.False(t, h.deps.Loading.Visible())
	assert.Empty(t, h.deps.Timers.Names())
	assert.Empty(t, h.deps.Charts.Keys())
	assert.Equal(t, 0, h.screen.dashboardCount())

	h.c.Navigate(ViewTickets)
	assert.Equal(t, 0, h.api.count(ViewTickets))
}

func TestParseView(t *testing.T) {
	v, err := ParseView("tickets")
	require.NoError(t, err)
	assert.Equal(t, ViewTickets, v)

	_, err = ParseView("reports")
	assert.True(t, errors.Is(err, ErrUnknownView))
}
