package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
)

var (
	// ErrInvalidFilter wraps malformed filter values such as a bad date.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrTransient means the listing backend failed; the caller may retry later.
	ErrTransient = errors.New("listing backend unavailable")
)

// Filter is one of models.SearchFilter, models.ClickFilter, models.UserFilter
// or models.TicketFilter.
type Filter interface {
	Kind() models.EntityKind
}

//go:generate mockery --name=Store --dir=. --output=./mocks --filename=store_mock.go --outpkg=mocks
type Store interface {
	ListSearches(ctx context.Context, f models.SearchFilter, p models.PageRequest) ([]models.SearchEvent, int, error)
	ListClicks(ctx context.Context, f models.ClickFilter, p models.PageRequest) ([]models.ClickEvent, int, error)
	ListClickSummaries(ctx context.Context, f models.ClickFilter, p models.PageRequest) ([]models.UserClickSummary, int, error)
	ListUsers(ctx context.Context, f models.UserFilter, p models.PageRequest) ([]models.AnonymousUser, int, error)
	ListTickets(ctx context.Context, f models.TicketFilter, p models.PageRequest) ([]models.Ticket, int, error)
}

type Options struct {
	DefaultPerPage int
	MaxPerPage     int
	Location       *time.Location
}

type Engine struct {
	log   *slog.Logger
	store Store
	opts  Options
}

func New(log *slog.Logger, store Store, opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxPerPage < 1 {
		opts.MaxPerPage = 100
	}
	if opts.DefaultPerPage < 1 || opts.DefaultPerPage > opts.MaxPerPage {
		opts.DefaultPerPage = opts.MaxPerPage
	}

	return &Engine{log: log, store: store, opts: opts}
}

func (e *Engine) Location() *time.Location {
	return e.opts.Location
}

// Result is one page of a listing. It marshals as
// {"<kind>": [...], "page", "per_page", "total_pages", "total_count"}.
type Result struct {
	Kind       models.EntityKind
	Items      any
	Page       int
	PerPage    int
	TotalPages int
	TotalCount int
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		string(r.Kind): r.Items,
		"page":         r.Page,
		"per_page":     r.PerPage,
		"total_pages":  r.TotalPages,
		"total_count":  r.TotalCount,
	})
}

func resultOf[T any](kind models.EntityKind, p models.Page[T]) Result {
	return Result{
		Kind:       kind,
		Items:      p.Items,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages,
		TotalCount: p.TotalCount,
	}
}

// List runs a filtered, paginated listing. Backend failures come back wrapped
// in ErrTransient.
func (e *Engine) List(ctx context.Context, f Filter, p models.PageRequest) (Result, error) {
	const op = "services.query.List"

	log := e.log.With(
		slog.String("op", op),
		slog.String("kind", string(f.Kind())),
	)

	var (
		res Result
		err error
	)

	switch f := f.(type) {
	case models.SearchFilter:
		var items []models.SearchEvent
		var total int
		items, total, err = e.store.ListSearches(ctx, f, p)
		res = resultOf(models.KindSearches, models.NewPage(items, p, total))
	case models.ClickFilter:
		if f.GroupByUser {
			var items []models.UserClickSummary
			var total int
			items, total, err = e.store.ListClickSummaries(ctx, f, p)
			res = resultOf(models.KindClicks, models.NewPage(items, p, total))
			break
		}
		var items []models.ClickEvent
		var total int
		items, total, err = e.store.ListClicks(ctx, f, p)
		res = resultOf(models.KindClicks, models.NewPage(items, p, total))
	case models.UserFilter:
		var items []models.AnonymousUser
		var total int
		items, total, err = e.store.ListUsers(ctx, f, p)
		res = resultOf(models.KindUsers, models.NewPage(items, p, total))
	case models.TicketFilter:
		var items []models.Ticket
		var total int
		items, total, err = e.store.ListTickets(ctx, f, p)
		res = resultOf(models.KindTickets, models.NewPage(items, p, total))
	default:
		return Result{}, fmt.Errorf("%s: %w: unsupported filter %T", op, ErrInvalidFilter, f)
	}

	if err != nil {
		log.Error("listing failed", sl.Err(err))
		return Result{}, fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}

	log.Debug("listing served",
		slog.Int("page", res.Page),
		slog.Int("total_count", res.TotalCount),
	)

	return res, nil
}
