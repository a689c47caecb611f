package searches

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/chi/v5"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/handlers/slogdiscard"
	"github.com/lostmyescape/opsconsole/internal/storage/memory"
)

func TestDetails(t *testing.T) {
	store := memory.New()
	at := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)

	store.AddUser(models.AnonymousUser{ID: "anon-1", DeviceType: "ios", Country: "DE", FirstSeen: at, LastActive: at})
	s := store.AddSearch(models.SearchEvent{UserID: "anon-1", Timestamp: at, ResultCount: 8})
	store.AddClick(models.ClickEvent{SearchID: s.ID, UserID: "anon-1", PartnerName: "Asos", Rank: 2, Timestamp: at.Add(time.Minute)})
	store.AddClick(models.ClickEvent{SearchID: s.ID, UserID: "anon-1", PartnerName: "Zalando", Rank: 1, Timestamp: at.Add(2 * time.Minute)})

	r := chi.NewRouter()
	r.Get("/admin/searches/{id}", Details(slogdiscard.NewDiscardLogger(), store))

	ts := httptest.NewServer(r)
	defer ts.Close()

	e := httpexpect.Default(t, ts.URL)

	obj := e.GET("/admin/searches/" + strconv.FormatInt(s.ID, 10)).
		Expect().
		Status(http.StatusOK).
		JSON().
		Object()

	obj.Value("search").Object().Value("result_count").Number().IsEqual(8)
	obj.Value("user").Object().Value("country").String().IsEqual("DE")
	clicks := obj.Value("clicks").Array()
	clicks.Length().IsEqual(2)
	clicks.Value(0).Object().Value("partner_name").String().IsEqual("Asos")

	e.GET("/admin/searches/999").
		Expect().
		Status(http.StatusNotFound).
		JSON().Object().
		Value("detail").String().IsEqual("Search not found")

	e.GET("/admin/searches/abc").
		Expect().
		Status(http.StatusBadRequest)
}
