package listing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	resp "github.com/lostmyescape/opsconsole/internal/lib/api/response"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
	"github.com/lostmyescape/opsconsole/internal/services/query"
)

const (
	userTicketsPerPage    = 20
	userTicketsMaxPerPage = 50
)

//go:generate mockery --name=Lister --dir=. --output=./mocks --filename=lister_mock.go --outpkg=mocks
type Lister interface {
	List(ctx context.Context, f query.Filter, p models.PageRequest) (query.Result, error)
}

// New serves GET /admin/{kind}.
func New(log *slog.Logger, kind models.EntityKind, lister Lister, opts query.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listing.New"

		log := log.With(
			slog.String("op", op),
			slog.String("kind", string(kind)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		values := r.URL.Query()

		f, err := query.ParseFilter(kind, values, location(opts))
		if err != nil {
			var fe *query.FilterError
			if errors.As(err, &fe) {
				log.Info("invalid filter", sl.Err(err))
				resp.Fail(w, r, http.StatusBadRequest, fe.Detail)
				return
			}
			log.Error("failed to parse filter", sl.Err(err))
			resp.Fail(w, r, http.StatusInternalServerError, "internal error")
			return
		}

		serve(w, r, log, lister, f, query.ParsePage(values, opts.DefaultPerPage, opts.MaxPerPage))
	}
}

// UserTickets serves GET /users/{id}/tickets, a user's own tickets.
func UserTickets(log *slog.Logger, lister Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listing.UserTickets"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID := chi.URLParam(r, "id")
		if userID == "" {
			resp.Fail(w, r, http.StatusBadRequest, "user id is empty")
			return
		}

		p := query.ParsePage(r.URL.Query(), userTicketsPerPage, userTicketsMaxPerPage)

		serve(w, r, log, lister, models.TicketFilter{UserID: userID}, p)
	}
}

func serve(w http.ResponseWriter, r *http.Request, log *slog.Logger, lister Lister, f query.Filter, p models.PageRequest) {
	res, err := lister.List(r.Context(), f, p)
	if err != nil {
		log.Error("failed to list", sl.Err(err))
		resp.Fail(w, r, http.StatusInternalServerError, "Failed to load "+string(f.Kind())+", please retry")
		return
	}

	resp.OK(w, r, res)
}

func location(opts query.Options) *time.Location {
	if opts.Location == nil {
		return time.UTC
	}
	return opts.Location
}
