package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/api/request"
	resp "github.com/lostmyescape/opsconsole/internal/lib/api/response"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
	"github.com/lostmyescape/opsconsole/internal/services/tickets"
	"github.com/lostmyescape/opsconsole/internal/storage"
)

type Request struct {
	SearchID         *int64
	UserNote         string  `validate:"required"`
	CropImageURL     string  `validate:"required,url"`
	OriginalImageURL *string `validate:"omitempty,url"`
}

type TicketCreator interface {
	Create(ctx context.Context, req tickets.CreateRequest) (models.Ticket, error)
}

// New serves POST /users/{id}/tickets.
func New(log *slog.Logger, creator TicketCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tickets.create.New"

		userID := chi.URLParam(r, "id")

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", userID),
		)

		fields, err := request.Fields(r, "search_id", "user_note", "crop_image_url", "original_image_url")
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			resp.Fail(w, r, http.StatusBadRequest, "invalid request body")
			return
		}

		req := Request{
			UserNote:         fields["user_note"],
			CropImageURL:     fields["crop_image_url"],
			OriginalImageURL: request.Optional(fields, "original_image_url"),
		}

		if raw, ok := fields["search_id"]; ok && raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				resp.Fail(w, r, http.StatusBadRequest, "field SearchID is not valid")
				return
			}
			req.SearchID = &id
		}

		if err := validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Info("invalid request", sl.Err(err))
			resp.NewJSON(w, r, http.StatusBadRequest, resp.ValidationError(validateErr))
			return
		}

		t, err := creator.Create(r.Context(), tickets.CreateRequest{
			UserID:           userID,
			SearchID:         req.SearchID,
			UserNote:         req.UserNote,
			CropImageURL:     req.CropImageURL,
			OriginalImageURL: req.OriginalImageURL,
		})
		if err != nil {
			var vErr *tickets.ValidationError
			switch {
			case errors.As(err, &vErr):
				resp.Fail(w, r, http.StatusBadRequest, vErr.Detail)
			case errors.Is(err, storage.ErrSearchNotFound):
				resp.Fail(w, r, http.StatusNotFound, "Search not found")
			default:
				log.Error("failed to create ticket", sl.Err(err))
				resp.Fail(w, r, http.StatusInternalServerError, "Failed to create ticket, please retry")
			}
			return
		}

		resp.NewJSON(w, r, http.StatusCreated, t)
	}
}
