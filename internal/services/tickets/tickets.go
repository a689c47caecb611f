package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
	"github.com/lostmyescape/opsconsole/internal/services/notify"
	"github.com/lostmyescape/opsconsole/internal/storage"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid ticket transition")
)

// ValidationError carries the operator-facing reason a request was rejected.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type Store interface {
	CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error)
	Ticket(ctx context.Context, id int64) (models.Ticket, error)
	Search(ctx context.Context, id int64) (models.SearchEvent, error)
	UpdateTicket(
		ctx context.Context,
		id int64,
		fn func(current models.Ticket) (models.Ticket, bool, error),
	) (models.Ticket, error)
}

type Notifier interface {
	NotifyResolved(ctx context.Context, t models.Ticket) <-chan notify.Result
}

type Manager struct {
	log      *slog.Logger
	store    Store
	notifier Notifier
	clock    clockwork.Clock
}

func New(log *slog.Logger, store Store, notifier Notifier, clock clockwork.Clock) *Manager {
	return &Manager{
		log:      log,
		store:    store,
		notifier: notifier,
		clock:    clock,
	}
}

type CreateRequest struct {
	UserID           string
	SearchID         *int64
	UserNote         string
	CropImageURL     string
	OriginalImageURL *string
}

// Create opens a new ticket. An unknown search id surfaces as storage.ErrSearchNotFound.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (models.Ticket, error) {
	const op = "services.tickets.Create"

	log := m.log.With(
		slog.String("op", op),
		slog.String("user_id", req.UserID),
	)

	switch {
	case strings.TrimSpace(req.UserID) == "":
		return models.Ticket{}, &ValidationError{Detail: "user_id is required"}
	case strings.TrimSpace(req.UserNote) == "":
		return models.Ticket{}, &ValidationError{Detail: "user_note is required"}
	case strings.TrimSpace(req.CropImageURL) == "":
		return models.Ticket{}, &ValidationError{Detail: "crop_image_url is required"}
	}

	now := m.clock.Now().UTC()

	t, err := m.store.CreateTicket(ctx, models.Ticket{
		UserID:           req.UserID,
		SearchID:         req.SearchID,
		CreatedAt:        now,
		UpdatedAt:        now,
		Status:           models.StatusOpen,
		UserNote:         strings.TrimSpace(req.UserNote),
		CropImageURL:     req.CropImageURL,
		OriginalImageURL: req.OriginalImageURL,
	})
	if err != nil {
		if errors.Is(err, storage.ErrSearchNotFound) {
			return models.Ticket{}, err
		}
		log.Error("failed to create ticket", sl.Err(err))
		return models.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("ticket created", slog.Int64("ticket_id", t.ID))

	return t, nil
}

func (m *Manager) Get(ctx context.Context, id int64) (models.Ticket, error) {
	const op = "services.tickets.Get"

	t, err := m.store.Ticket(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrTicketNotFound) {
			return models.Ticket{}, err
		}
		return models.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// Details returns the ticket with the search it was raised from, when that
// search still exists.
func (m *Manager) Details(ctx context.Context, id int64) (models.TicketDetails, error) {
	const op = "services.tickets.Details"

	t, err := m.Get(ctx, id)
	if err != nil {
		return models.TicketDetails{}, err
	}

	details := models.TicketDetails{Ticket: t}

	if t.SearchID != nil {
		s, err := m.store.Search(ctx, *t.SearchID)
		switch {
		case err == nil:
			details.Search = &s
		case !errors.Is(err, storage.ErrSearchNotFound):
			return models.TicketDetails{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return details, nil
}

// UpdateResult is the outcome of Update. Dispatch is non-nil only when this
// call moved the ticket to resolved; it yields the notification result once.
type UpdateResult struct {
	Ticket   models.Ticket
	Dispatch <-chan notify.Result
}

// Update applies p under the ticket's lock. A resolution starts the
// notification asynchronously; its failure never undoes the update.
func (m *Manager) Update(ctx context.Context, id int64, p Patch) (UpdateResult, error) {
	const op = "services.tickets.Update"

	log := m.log.With(
		slog.String("op", op),
		slog.Int64("ticket_id", id),
	)

	var resolved bool

	t, err := m.store.UpdateTicket(ctx, id, func(current models.Ticket) (models.Ticket, bool, error) {
		next, changed, resolvedNow, err := Apply(current, p, m.clock.Now().UTC())
		resolved = resolvedNow
		return next, changed, err
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTicketNotFound),
			errors.Is(err, ErrValidation),
			errors.Is(err, ErrInvalidTransition):
			log.Info("ticket update rejected", sl.Err(err))
			return UpdateResult{}, err
		}
		log.Error("failed to update ticket", sl.Err(err))
		return UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}

	res := UpdateResult{Ticket: t}

	if resolved {
		log.Info("ticket resolved", slog.String("resolved_by", deref(t.ResolvedBy)))
		res.Dispatch = m.notifier.NotifyResolved(context.WithoutCancel(ctx), t)
	}

	return res, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
