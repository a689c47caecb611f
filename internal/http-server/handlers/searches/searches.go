package searches

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	resp "github.com/lostmyescape/opsconsole/internal/lib/api/response"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
	"github.com/lostmyescape/opsconsole/internal/storage"
)

type DetailsProvider interface {
	SearchDetails(ctx context.Context, id int64) (models.SearchDetails, error)
}

// Details serves GET /admin/searches/{id}: the search, its user and its clicks.
func Details(log *slog.Logger, provider DetailsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.searches.Details"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			resp.Fail(w, r, http.StatusBadRequest, "invalid search id")
			return
		}

		details, err := provider.SearchDetails(r.Context(), id)
		if errors.Is(err, storage.ErrSearchNotFound) {
			log.Info("search not found", slog.Int64("search_id", id))
			resp.Fail(w, r, http.StatusNotFound, "Search not found")
			return
		}
		if err != nil {
			log.Error("failed to load search", sl.Err(err))
			resp.Fail(w, r, http.StatusInternalServerError, "internal error")
			return
		}

		resp.OK(w, r, details)
	}
}
