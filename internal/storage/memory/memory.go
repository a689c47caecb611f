package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/timeutil"
	"github.com/lostmyescape/opsconsole/internal/storage"
)

// Storage keeps every record in process memory. It backs `env: local` and the
// service tests, and honours the same ordering and locking rules as the
// Postgres store.
type Storage struct {
	mu       sync.RWMutex
	searches map[int64]models.SearchEvent
	sources  map[int64][]string
	clicks   map[int64]models.ClickEvent
	users    map[string]models.AnonymousUser
	tickets  map[int64]models.Ticket

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	nextSearchID int64
	nextClickID  int64
	nextTicketID int64
}

func New() *Storage {
	return &Storage{
		searches: make(map[int64]models.SearchEvent),
		sources:  make(map[int64][]string),
		clicks:   make(map[int64]models.ClickEvent),
		users:    make(map[string]models.AnonymousUser),
		tickets:  make(map[int64]models.Ticket),
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

// AddSearch stores a search event, assigning an id when ID is zero.
func (s *Storage) AddSearch(e models.SearchEvent) models.SearchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == 0 {
		s.nextSearchID++
		e.ID = s.nextSearchID
	} else if e.ID > s.nextSearchID {
		s.nextSearchID = e.ID
	}
	s.searches[e.ID] = e

	return e
}

// AddSearchResult records that a search returned at least one result from source.
func (s *Storage) AddSearchResult(searchID int64, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sources[searchID] {
		if existing == source {
			return
		}
	}
	s.sources[searchID] = append(s.sources[searchID], source)
}

func (s *Storage) AddClick(e models.ClickEvent) models.ClickEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == 0 {
		s.nextClickID++
		e.ID = s.nextClickID
	} else if e.ID > s.nextClickID {
		s.nextClickID = e.ID
	}
	s.clicks[e.ID] = e

	return e
}

func (s *Storage) AddUser(u models.AnonymousUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.ID] = u
}

func (s *Storage) ListSearches(_ context.Context, f models.SearchFilter, p models.PageRequest) ([]models.SearchEvent, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to := f.Range.Bounds()

	var out []models.SearchEvent
	for _, e := range s.searches {
		if !match(f.UserID, e.UserID) || !match(f.DeviceType, e.DeviceType) || !match(f.Country, e.Country) {
			continue
		}
		if !inRange(e.Timestamp, from, to) {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].Timestamp, out[i].ID, out[j].Timestamp, out[j].ID)
	})

	return paginate(out, p), len(out), nil
}

func (s *Storage) ListClicks(_ context.Context, f models.ClickFilter, p models.PageRequest) ([]models.ClickEvent, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filterClicks(f)

	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].Timestamp, out[i].ID, out[j].Timestamp, out[j].ID)
	})

	return paginate(out, p), len(out), nil
}

func (s *Storage) ListClickSummaries(_ context.Context, f models.ClickFilter, p models.PageRequest) ([]models.UserClickSummary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := make(map[string]*models.UserClickSummary)
	searches := make(map[string]map[int64]struct{})

	for _, c := range s.filterClicks(f) {
		sum, ok := byUser[c.UserID]
		if !ok {
			sum = &models.UserClickSummary{UserID: c.UserID}
			byUser[c.UserID] = sum
			searches[c.UserID] = make(map[int64]struct{})
		}
		sum.TotalClicks++
		searches[c.UserID][c.SearchID] = struct{}{}
		if c.Timestamp.After(sum.LastClick) {
			sum.LastClick = c.Timestamp
		}
	}

	out := make([]models.UserClickSummary, 0, len(byUser))
	for userID, sum := range byUser {
		sum.SearchesWithClicks = len(searches[userID])
		out = append(out, *sum)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastClick.Equal(out[j].LastClick) {
			return out[i].LastClick.After(out[j].LastClick)
		}
		return out[i].UserID < out[j].UserID
	})

	return paginate(out, p), len(out), nil
}

func (s *Storage) filterClicks(f models.ClickFilter) []models.ClickEvent {
	from, to := f.Range.Bounds()

	var out []models.ClickEvent
	for _, c := range s.clicks {
		if !match(f.UserID, c.UserID) || !match(f.Partner, c.PartnerName) {
			continue
		}
		if !match(f.DeviceType, c.DeviceType) || !match(f.Country, c.Country) {
			continue
		}
		if !inRange(c.Timestamp, from, to) {
			continue
		}
		out = append(out, c)
	}

	return out
}

func (s *Storage) ListUsers(_ context.Context, f models.UserFilter, p models.PageRequest) ([]models.AnonymousUser, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to := f.Range.Bounds()

	var out []models.AnonymousUser
	for _, u := range s.users {
		if !match(f.DeviceType, u.DeviceType) || !match(f.Country, u.Country) {
			continue
		}
		if !inRange(u.FirstSeen, from, to) {
			continue
		}
		out = append(out, u)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.After(out[j].FirstSeen)
		}
		return out[i].ID > out[j].ID
	})

	return paginate(out, p), len(out), nil
}

func (s *Storage) ListTickets(_ context.Context, f models.TicketFilter, p models.PageRequest) ([]models.Ticket, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to := f.Range.Bounds()

	var out []models.Ticket
	for _, t := range s.tickets {
		if !match(string(f.Status), string(t.Status)) || !match(f.UserID, t.UserID) {
			continue
		}
		if !inRange(t.CreatedAt, from, to) {
			continue
		}
		out = append(out, cloneTicket(t))
	}

	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})

	return paginate(out, p), len(out), nil
}

func (s *Storage) Search(_ context.Context, id int64) (models.SearchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.searches[id]
	if !ok {
		return models.SearchEvent{}, storage.ErrSearchNotFound
	}

	return e, nil
}

func (s *Storage) SearchDetails(_ context.Context, id int64) (models.SearchDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.searches[id]
	if !ok {
		return models.SearchDetails{}, storage.ErrSearchNotFound
	}

	details := models.SearchDetails{Search: e, Clicks: []models.ClickEvent{}}

	if u, ok := s.users[e.UserID]; ok {
		details.User = &u
	}

	for _, c := range s.clicks {
		if c.SearchID == id {
			details.Clicks = append(details.Clicks, c)
		}
	}

	sort.Slice(details.Clicks, func(i, j int) bool {
		a, b := details.Clicks[i], details.Clicks[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})

	return details, nil
}

func (s *Storage) CreateTicket(_ context.Context, t models.Ticket) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.SearchID != nil {
		if _, ok := s.searches[*t.SearchID]; !ok {
			return models.Ticket{}, storage.ErrSearchNotFound
		}
	}

	s.nextTicketID++
	t.ID = s.nextTicketID
	s.tickets[t.ID] = cloneTicket(t)

	return t, nil
}

func (s *Storage) Ticket(_ context.Context, id int64) (models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return models.Ticket{}, storage.ErrTicketNotFound
	}

	return cloneTicket(t), nil
}

// UpdateTicket runs fn while holding the ticket's lock. The returned ticket is
// stored only when fn reports a change; an error from fn leaves the ticket untouched.
func (s *Storage) UpdateTicket(
	ctx context.Context,
	id int64,
	fn func(current models.Ticket) (models.Ticket, bool, error),
) (models.Ticket, error) {
	lock := s.ticketLock(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Ticket(ctx, id)
	if err != nil {
		return models.Ticket{}, err
	}

	next, changed, err := fn(current)
	if err != nil {
		return models.Ticket{}, err
	}

	if !changed {
		return current, nil
	}

	s.mu.Lock()
	s.tickets[id] = cloneTicket(next)
	s.mu.Unlock()

	return next, nil
}

func (s *Storage) ticketLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}

	return lock
}

func (s *Storage) Totals(_ context.Context, w models.Window) (models.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t models.Totals

	for _, e := range s.searches {
		if inRange(e.Timestamp, w.From, w.To) {
			t.Searches++
		}
	}

	for _, c := range s.clicks {
		if inRange(c.Timestamp, w.From, w.To) {
			t.Clicks++
		}
	}

	for _, u := range s.users {
		if u.FirstSeen.Before(w.To) {
			t.Users++
		}
		if inRange(u.FirstSeen, w.From, w.To) {
			t.NewUsers++
		}
	}

	return t, nil
}

func (s *Storage) PartnerClicks(_ context.Context, w models.Window) ([]models.NamedCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range s.clicks {
		if inRange(c.Timestamp, w.From, w.To) {
			counts[c.PartnerName]++
		}
	}

	return namedCounts(counts), nil
}

func (s *Storage) SourceSearches(_ context.Context, w models.Window) ([]models.NamedCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for id, sources := range s.sources {
		e, ok := s.searches[id]
		if !ok || !inRange(e.Timestamp, w.From, w.To) {
			continue
		}
		for _, src := range sources {
			counts[src]++
		}
	}

	return namedCounts(counts), nil
}

func (s *Storage) DailyActivity(_ context.Context, w models.Window, loc *time.Location) ([]models.DayActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make(map[string]*models.DayActivity)
	bucket := func(t time.Time) *models.DayActivity {
		key := timeutil.FormatDay(t.In(loc))
		d, ok := days[key]
		if !ok {
			d = &models.DayActivity{Day: key}
			days[key] = d
		}
		return d
	}

	for _, e := range s.searches {
		if inRange(e.Timestamp, w.From, w.To) {
			bucket(e.Timestamp).Searches++
		}
	}

	for _, c := range s.clicks {
		if inRange(c.Timestamp, w.From, w.To) {
			bucket(c.Timestamp).Clicks++
		}
	}

	out := make([]models.DayActivity, 0, len(days))
	for _, d := range days {
		out = append(out, *d)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })

	return out, nil
}

func match(want, got string) bool {
	return want == "" || want == got
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func newer(at time.Time, id int64, otherAt time.Time, otherID int64) bool {
	if !at.Equal(otherAt) {
		return at.After(otherAt)
	}
	return id > otherID
}

func paginate[T any](items []T, p models.PageRequest) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}

	end := start + p.PerPage
	if end > len(items) {
		end = len(items)
	}

	return items[start:end]
}

func namedCounts(counts map[string]int) []models.NamedCount {
	out := make([]models.NamedCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.NamedCount{Name: name, Count: n})
	}
	return out
}

func cloneTicket(t models.Ticket) models.Ticket {
	if t.ManualResults != nil {
		t.ManualResults = append(models.ManualResults{}, t.ManualResults...)
	}
	return t
}
