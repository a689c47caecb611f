package get

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

type Response struct {
	models.Ticket
	Search *models.SearchEvent `json:"search"`
}

type TicketProvider interface {
	Details(ctx context.Context, id int64) (models.TicketDetails, error)
}

func New(log *slog.Logger, provider TicketProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tickets.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			resp.Fail(w, r, http.StatusBadRequest, "invalid ticket id")
			return
		}

		details, err := provider.Details(r.Context(), id)
		if errors.Is(err, storage.ErrTicketNotFound) {
			log.Info("ticket not found", slog.Int64("ticket_id", id))
			resp.Fail(w, r, http.StatusNotFound, "Ticket not found")
			return
		}
		if err != nil {
			log.Error("failed to load ticket", sl.Err(err))
			resp.Fail(w, r, http.StatusInternalServerError, "internal error")
			return
		}

		resp.OK(w, r, Response{Ticket: details.Ticket, Search: details.Search})
	}
}
