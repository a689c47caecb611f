package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	resp "github.com/lostmyescape/opsconsole/internal/lib/api/response"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
	"github.com/lostmyescape/opsconsole/internal/services/query"
)

type Aggregator interface {
	Snapshot(ctx context.Context, r models.DateRange) (models.MetricsSnapshot, error)
	Partners(ctx context.Context, r models.DateRange, p models.PageRequest) (models.Page[models.PartnerStat], error)
}

type partnersResponse struct {
	Partners   []models.PartnerStat `json:"partners"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	TotalPages int                  `json:"total_pages"`
	TotalCount int                  `json:"total_count"`
}

// New serves GET /admin/dashboard.
func New(log *slog.Logger, agg Aggregator, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.dashboard.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		dr, ok := parseRange(w, r, log, loc)
		if !ok {
			return
		}

		snap, err := agg.Snapshot(r.Context(), dr)
		if err != nil {
			log.Error("failed to compute snapshot", sl.Err(err))
			resp.Fail(w, r, http.StatusInternalServerError, "Failed to load dashboard metrics, please retry")
			return
		}

		resp.OK(w, r, snap)
	}
}

// Partners serves GET /admin/partners, the full partner ranking.
func Partners(log *slog.Logger, agg Aggregator, loc *time.Location, opts query.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.dashboard.Partners"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		dr, ok := parseRange(w, r, log, loc)
		if !ok {
			return
		}

		page, err := agg.Partners(r.Context(), dr, query.ParsePage(r.URL.Query(), opts.DefaultPerPage, opts.MaxPerPage))
		if err != nil {
			log.Error("failed to rank partners", sl.Err(err))
			resp.Fail(w, r, http.StatusInternalServerError, "Failed to load partners, please retry")
			return
		}

		resp.OK(w, r, partnersResponse{
			Partners:   page.Items,
			Page:       page.Page,
			PerPage:    page.PerPage,
			TotalPages: page.TotalPages,
			TotalCount: page.TotalCount,
		})
	}
}

func parseRange(w http.ResponseWriter, r *http.Request, log *slog.Logger, loc *time.Location) (models.DateRange, bool) {
	dr, err := query.ParseRange(r.URL.Query(), loc)
	if err == nil {
		return dr, true
	}

	var fe *query.FilterError
	if errors.As(err, &fe) {
		log.Info("invalid date range", sl.Err(err))
		resp.Fail(w, r, http.StatusBadRequest, fe.Detail)
		return models.DateRange{}, false
	}

	log.Error("failed to parse date range", sl.Err(err))
	resp.Fail(w, r, http.StatusInternalServerError, "internal error")
	return models.DateRange{}, false
}
