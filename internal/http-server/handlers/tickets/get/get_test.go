package get_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/tickets/get"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/handlers/slogdiscard"
	"github.com/lostmyescape/opsconsole/internal/services/tickets"
	"github.com/lostmyescape/opsconsole/internal/storage/memory"
)

func TestGet(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()
	store := memory.New()
	m := tickets.New(log, store, nil, clockwork.NewFakeClock())

	search := store.AddSearch(models.SearchEvent{UserID: "u1", Timestamp: time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC), ResultCount: 4})

	withSearch, err := m.Create(context.Background(), tickets.CreateRequest{
		UserID: "u1", SearchID: &search.ID, UserNote: "red dress", CropImageURL: "https://img.example.com/1.jpg",
	})
	require.NoError(t, err)

	plain, err := m.Create(context.Background(), tickets.CreateRequest{
		UserID: "u2", UserNote: "boots", CropImageURL: "https://img.example.com/2.jpg",
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/admin/tickets/{id}", get.New(log, m))

	ts := httptest.NewServer(r)
	defer ts.Close()

	e := httpexpect.Default(t, ts.URL)

	obj := e.GET("/admin/tickets/" + strconv.FormatInt(withSearch.ID, 10)).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	obj.Value("user_note").String().IsEqual("red dress")
	obj.Value("search").Object().Value("result_count").Number().IsEqual(4)

	e.GET("/admin/tickets/" + strconv.FormatInt(plain.ID, 10)).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("search").IsNull()

	e.GET("/admin/tickets/777").
		Expect().
		Status(http.StatusNotFound).
		JSON().Object().Value("detail").String().IsEqual("Ticket not found")
}
