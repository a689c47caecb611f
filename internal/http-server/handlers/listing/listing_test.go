package listing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/listing/mocks"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/handlers/slogdiscard"
	"github.com/lostmyescape/opsconsole/internal/services/query"
)

var opts = query.Options{DefaultPerPage: 50, MaxPerPage: 100, Location: time.UTC}

func newServer(t *testing.T, lister Lister) *httptest.Server {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()

	r := chi.NewRouter()
	r.Get("/admin/tickets", New(log, models.KindTickets, lister, opts))
	r.Get("/admin/clicks", New(log, models.KindClicks, lister, opts))
	r.Get("/users/{id}/tickets", UserTickets(log, lister))

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return ts
}

func TestListTickets(t *testing.T) {
	lister := mocks.NewLister(t)
	ts := newServer(t, lister)

	userID := gofakeit.UUID()
	items := []models.Ticket{{ID: 3, UserID: userID, Status: models.StatusOpen}}

	lister.On("List", mock.Anything,
		models.TicketFilter{Status: models.StatusOpen, UserID: userID},
		models.PageRequest{Page: 1, PerPage: 100},
	).Return(query.Result{
		Kind: models.KindTickets, Items: items, Page: 1, PerPage: 100, TotalPages: 1, TotalCount: 1,
	}, nil).Once()

	e := httpexpect.Default(t, ts.URL)

	obj := e.GET("/admin/tickets").
		WithQuery("status", "open").
		WithQuery("user_id", userID).
		WithQuery("per_page", 500).
		WithQuery("page", 0).
		WithQuery("colour", "red").
		Expect().
		Status(http.StatusOK).
		JSON().
		Object()

	obj.Value("total_count").Number().IsEqual(1)
	obj.Value("total_pages").Number().IsEqual(1)
	obj.Value("tickets").Array().Length().IsEqual(1)
	obj.Value("tickets").Array().Value(0).Object().Value("user_id").String().IsEqual(userID)
}

func TestListClicks_GroupByUser(t *testing.T) {
	lister := mocks.NewLister(t)
	ts := newServer(t, lister)

	lister.On("List", mock.Anything,
		models.ClickFilter{Partner: "Asos", GroupByUser: true},
		models.PageRequest{Page: 2, PerPage: 10},
	).Return(query.Result{
		Kind:  models.KindClicks,
		Items: []models.UserClickSummary{{UserID: "u1", TotalClicks: 4, SearchesWithClicks: 2}},
		Page:  2, PerPage: 10, TotalPages: 2, TotalCount: 11,
	}, nil).Once()

	e := httpexpect.Default(t, ts.URL)

	e.GET("/admin/clicks").
		WithQuery("partner_name", "Asos").
		WithQuery("group_by_user", "true").
		WithQuery("page", 2).
		WithQuery("per_page", 10).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("clicks").Array().Value(0).Object().
		Value("total_clicks").Number().IsEqual(4)
}

func TestList_Errors(t *testing.T) {
	cases := []struct {
		name       string
		query      map[string]string
		mockErr    error
		wantCode   int
		wantDetail string
	}{
		{
			name:       "bad date",
			query:      map[string]string{"start_date": "2026/01/01"},
			wantCode:   http.StatusBadRequest,
			wantDetail: "Invalid start_date format. Use YYYY-MM-DD",
		},
		{
			name:       "bad status",
			query:      map[string]string{"status": "archived"},
			wantCode:   http.StatusBadRequest,
			wantDetail: "Invalid status. Use open, in-progress or resolved",
		},
		{
			name:       "backend down",
			mockErr:    errors.Join(query.ErrTransient, errors.New("connection refused")),
			wantCode:   http.StatusInternalServerError,
			wantDetail: "Failed to load tickets, please retry",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lister := mocks.NewLister(t)
			ts := newServer(t, lister)

			if tc.mockErr != nil {
				lister.On("List", mock.Anything, mock.Anything, mock.Anything).
					Return(query.Result{}, tc.mockErr).
					Once()
			}

			req := httpexpect.Default(t, ts.URL).GET("/admin/tickets")
			for k, v := range tc.query {
				req = req.WithQuery(k, v)
			}

			req.Expect().
				Status(tc.wantCode).
				JSON().Object().
				Value("detail").String().IsEqual(tc.wantDetail)
		})
	}
}

func TestUserTickets(t *testing.T) {
	lister := mocks.NewLister(t)
	ts := newServer(t, lister)

	lister.On("List", mock.Anything,
		models.TicketFilter{UserID: "anon-1"},
		models.PageRequest{Page: 1, PerPage: 50},
	).Return(query.Result{Kind: models.KindTickets, Items: []models.Ticket{}, Page: 1, PerPage: 50, TotalPages: 1}, nil).Once()

	httpexpect.Default(t, ts.URL).
		GET("/users/anon-1/tickets").
		WithQuery("per_page", 80).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("tickets").Array().IsEmpty()
}
