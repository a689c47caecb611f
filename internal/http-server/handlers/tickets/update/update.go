package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/http-server/middleware/adminauth"
	"github.com/lostmyescape/opsconsole/internal/lib/api/request"
	resp "github.com/lostmyescape/opsconsole/internal/lib/api/response"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
	"github.com/lostmyescape/opsconsole/internal/services/notify"
	"github.com/lostmyescape/opsconsole/internal/services/tickets"
	"github.com/lostmyescape/opsconsole/internal/storage"
)

const notifyWarning = "Ticket resolved, but the user notification could not be delivered"

type Request struct {
	Status        *string `validate:"omitempty,oneof=open in-progress in_progress resolved"`
	AdminNotes    *string
	ResolvedBy    *string
	ManualResults *string
}

type Response struct {
	models.Ticket
	Warning string `json:"warning,omitempty"`
}

//go:generate mockery --name=TicketUpdater --dir=. --output=./mocks --filename=ticket_updater_mock.go --outpkg=mocks
type TicketUpdater interface {
	Update(ctx context.Context, id int64, p tickets.Patch) (tickets.UpdateResult, error)
}

// New serves PUT /admin/tickets/{id}. When the update resolves the ticket it
// waits up to reportTimeout for the notification outcome and reports a
// failed delivery as a warning next to the saved ticket.
func New(log *slog.Logger, updater TicketUpdater, reportTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tickets.update.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			resp.Fail(w, r, http.StatusBadRequest, "invalid ticket id")
			return
		}

		fields, err := request.Fields(r, "status", "admin_notes", "resolved_by", "manual_results")
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			resp.Fail(w, r, http.StatusBadRequest, "invalid request body")
			return
		}

		req := Request{
			Status:        request.Optional(fields, "status"),
			AdminNotes:    request.Optional(fields, "admin_notes"),
			ResolvedBy:    request.Optional(fields, "resolved_by"),
			ManualResults: request.Optional(fields, "manual_results"),
		}

		if err := validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Info("invalid request", sl.Err(err))
			resp.NewJSON(w, r, http.StatusBadRequest, resp.ValidationError(validateErr))
			return
		}

		patch, err := toPatch(r.Context(), req)
		if err != nil {
			resp.Fail(w, r, http.StatusBadRequest, err.Error())
			return
		}

		res, err := updater.Update(r.Context(), id, patch)
		if err != nil {
			var vErr *tickets.ValidationError
			switch {
			case errors.As(err, &vErr):
				resp.Fail(w, r, http.StatusBadRequest, vErr.Detail)
			case errors.Is(err, storage.ErrTicketNotFound):
				resp.Fail(w, r, http.StatusNotFound, "Ticket not found")
			case errors.Is(err, tickets.ErrInvalidTransition):
				resp.Fail(w, r, http.StatusConflict, "Ticket is already resolved and cannot be changed")
			default:
				log.Error("failed to update ticket", sl.Err(err))
				resp.Fail(w, r, http.StatusInternalServerError, "Failed to update ticket, please retry")
			}
			return
		}

		out := Response{Ticket: res.Ticket}

		if res.Dispatch != nil {
			timer := time.NewTimer(reportTimeout)
			defer timer.Stop()

			select {
			case result := <-res.Dispatch:
				if result.Outcome == notify.OutcomeFailed {
					out.Warning = notifyWarning
				}
			case <-timer.C:
				log.Warn("notification outcome not known yet", slog.Int64("ticket_id", id))
			}
		}

		log.Info("ticket updated", slog.Int64("ticket_id", id), slog.String("status", string(out.Status)))

		resp.OK(w, r, out)
	}
}

func toPatch(ctx context.Context, req Request) (tickets.Patch, error) {
	var p tickets.Patch

	if req.Status != nil {
		st, _ := models.ParseTicketStatus(*req.Status)
		p.Status = &st
	}

	p.AdminNotes = req.AdminNotes
	p.ResolvedBy = req.ResolvedBy

	if p.ResolvedBy == nil && p.Status != nil && *p.Status == models.StatusResolved {
		if admin, ok := adminauth.GetAdmin(ctx); ok {
			name := admin.Name()
			p.ResolvedBy = &name
		}
	}

	if req.ManualResults != nil {
		results, err := models.ParseManualResults(*req.ManualResults)
		if err != nil {
			return tickets.Patch{}, err
		}
		p.ManualResults = &results
	}

	return p, nil
}
