package update_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/tickets/update"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/tickets/update/mocks"
	"github.com/lostmyescape/opsconsole/internal/http-server/middleware/adminauth"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/handlers/slogdiscard"
	"github.com/lostmyescape/opsconsole/internal/services/notify"
	"github.com/lostmyescape/opsconsole/internal/services/tickets"
	"github.com/lostmyescape/opsconsole/internal/storage"
	"github.com/lostmyescape/opsconsole/internal/storage/memory"
)

const secret = "test-secret"

type stubNotifier struct {
	outcome notify.Outcome
}

func (n stubNotifier) NotifyResolved(_ context.Context, t models.Ticket) <-chan notify.Result {
	ch := make(chan notify.Result, 1)
	ch <- notify.Result{TicketID: t.ID, Outcome: n.outcome}
	close(ch)
	return ch
}

func newServer(t *testing.T, updater update.TicketUpdater, timeout time.Duration) *httptest.Server {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()

	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminauth.New(secret, log).Handler)
		r.Put("/tickets/{id}", update.New(log, updater, timeout))
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return ts
}

func adminToken(t *testing.T) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":      3,
		"email":    "ops@example.com",
		"is_admin": true,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

func setup(t *testing.T, outcome notify.Outcome) (*httpexpect.Expect, models.Ticket) {
	t.Helper()

	store := memory.New()
	m := tickets.New(slogdiscard.NewDiscardLogger(), store, stubNotifier{outcome: outcome}, clockwork.NewFakeClock())

	tk, err := m.Create(context.Background(), tickets.CreateRequest{
		UserID:       gofakeit.UUID(),
		UserNote:     gofakeit.Sentence(5),
		CropImageURL: gofakeit.URL(),
	})
	require.NoError(t, err)

	ts := newServer(t, m, time.Second)

	e := httpexpect.Default(t, ts.URL).Builder(func(req *httpexpect.Request) {
		req.WithHeader("Authorization", "Bearer "+adminToken(t))
	})

	return e, tk
}

func path(id int64) string {
	return "/admin/tickets/" + strconv.FormatInt(id, 10)
}

func TestUpdate_FormResolve(t *testing.T) {
	e, tk := setup(t, notify.OutcomeSent)

	obj := e.PUT(path(tk.ID)).
		WithFormField("status", "resolved").
		WithFormField("resolved_by", "admin1").
		WithFormField("manual_results", `[{"title":"Coat","link":"https://shop/coat","price":"49.90"}]`).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	obj.Value("status").String().IsEqual("resolved")
	obj.Value("resolved_by").String().IsEqual("admin1")
	obj.Value("resolved_at").NotNull()
	obj.Value("manual_results").Array().Length().IsEqual(1)
	obj.NotContainsKey("warning")

	// repeating the same resolution is accepted as a no-op
	e.PUT(path(tk.ID)).
		WithFormField("status", "resolved").
		WithFormField("resolved_by", "admin1").
		Expect().
		Status(http.StatusOK)

	e.PUT(path(tk.ID)).
		WithFormField("status", "open").
		Expect().
		Status(http.StatusConflict).
		JSON().Object().ContainsKey("detail")
}

func TestUpdate_ResolverDefaultsToAdmin(t *testing.T) {
	e, tk := setup(t, notify.OutcomeSent)

	e.PUT(path(tk.ID)).
		WithJSON(map[string]any{"status": "resolved"}).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("resolved_by").String().IsEqual("ops@example.com")
}

func TestUpdate_NotificationFailureWarns(t *testing.T) {
	e, tk := setup(t, notify.OutcomeFailed)

	obj := e.PUT(path(tk.ID)).
		WithJSON(map[string]any{"status": "resolved", "resolved_by": "admin1"}).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	obj.Value("status").String().IsEqual("resolved")
	obj.Value("warning").String().NotEmpty()
}

func TestUpdate_BadInput(t *testing.T) {
	e, tk := setup(t, notify.OutcomeSent)

	e.PUT(path(tk.ID)).
		WithFormField("status", "closed").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().Value("detail").String().Contains("Status")

	e.PUT(path(tk.ID)).
		WithFormField("manual_results", "not json").
		Expect().
		Status(http.StatusBadRequest)

	e.PUT(path(tk.ID)).
		WithFormField("status", "in_progress").
		Expect().
		Status(http.StatusOK).
		JSON().Object().Value("status").String().IsEqual("in-progress")

	e.PUT(path(tk.ID)).
		WithFormField("status", "open").
		Expect().
		Status(http.StatusConflict)

	e.PUT("/admin/tickets/abc").
		WithFormField("status", "open").
		Expect().
		Status(http.StatusBadRequest)

	e.PUT(path(9999)).
		WithFormField("admin_notes", "x").
		Expect().
		Status(http.StatusNotFound)
}

func TestUpdate_Errors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation", err: &tickets.ValidationError{Detail: "resolved_by is required to resolve a ticket"}, wantStatus: http.StatusBadRequest},
		{name: "not found", err: storage.ErrTicketNotFound, wantStatus: http.StatusNotFound},
		{name: "transition", err: tickets.ErrInvalidTransition, wantStatus: http.StatusConflict},
		{name: "backend", err: errors.New("connection reset"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			updater := mocks.NewTicketUpdater(t)
			updater.On("Update", mock.Anything, int64(7), mock.AnythingOfType("tickets.Patch")).
				Return(tickets.UpdateResult{}, tc.err).
				Once()

			ts := newServer(t, updater, time.Second)

			httpexpect.Default(t, ts.URL).
				PUT("/admin/tickets/7").
				WithHeader("Authorization", "Bearer "+adminToken(t)).
				WithFormField("admin_notes", "checking").
				Expect().
				Status(tc.wantStatus).
				JSON().Object().Value("detail").String().NotEmpty()
		})
	}
}

func TestUpdate_SlowNotificationDoesNotBlock(t *testing.T) {
	pending := make(chan notify.Result)

	updater := mocks.NewTicketUpdater(t)
	updater.On("Update", mock.Anything, int64(7), mock.AnythingOfType("tickets.Patch")).
		Return(tickets.UpdateResult{
			Ticket:   models.Ticket{ID: 7, Status: models.StatusResolved},
			Dispatch: pending,
		}, nil).
		Once()

	ts := newServer(t, updater, 20*time.Millisecond)

	obj := httpexpect.Default(t, ts.URL).
		PUT("/admin/tickets/7").
		WithHeader("Authorization", "Bearer "+adminToken(t)).
		WithFormField("status", "resolved").
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	obj.Value("status").String().IsEqual("resolved")
	obj.NotContainsKey("warning")
}
