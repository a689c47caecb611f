package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lostmyescape/opsconsole/internal/config"
	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
	"github.com/lostmyescape/opsconsole/internal/storage"
)

const (
	searchColumns = "id, user_id, searched_at, device_type, country, result_count"
	clickColumns  = "id, search_id, user_id, result_id, partner_domain, partner_name, brand, " +
		"item_title, price, result_rank, clicked_at, device_type, country"
	userColumns   = "user_id, device_type, country, first_seen, last_active"
	ticketColumns = "id, user_id, search_id, created_at, updated_at, status, user_note, crop_image_url, " +
		"original_image_url, admin_notes, resolved_by, resolved_at, manual_results"

	fkViolation = "23503"
)

var readOnly = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

type Storage struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func New(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// MustConnect waits for Postgres to accept connections, retrying for up to a minute.
func MustConnect(ctx context.Context, cfg *config.Config, log *slog.Logger) *Storage {
	ctx, cancel := context.WithTimeout(ctx, time.Second*60)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			panic("timeout waiting for postgresql")
		case <-ticker.C:
			db, err := connect(ctx, cfg)
			if err == nil {
				log.Info("postgresql connected successfully")
				return New(db)
			}
			log.Error("postgresql not ready, retrying...", sl.Err(err))
		}
	}
}

func connect(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Storage.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgresql connection error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgresql ping failed: %w", err)
	}

	return db, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) ListSearches(ctx context.Context, f models.SearchFilter, p models.PageRequest) ([]models.SearchEvent, int, error) {
	const op = "storage.postgres.ListSearches"

	where := sq.And{}
	where = eq(where, "user_id", f.UserID)
	where = eq(where, "device_type", f.DeviceType)
	where = eq(where, "country", f.Country)
	where = between(where, "searched_at", f.Range)

	count := s.sb.Select("COUNT(*)").From("search_events")
	rows := s.sb.Select(searchColumns).From("search_events").OrderBy("searched_at DESC", "id DESC")

	var items []models.SearchEvent
	total, err := s.selectPage(ctx, filtered(count, where), filtered(rows, where), p, &items)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return items, total, nil
}

func (s *Storage) ListClicks(ctx context.Context, f models.ClickFilter, p models.PageRequest) ([]models.ClickEvent, int, error) {
	const op = "storage.postgres.ListClicks"

	where := clickWhere(f)

	count := s.sb.Select("COUNT(*)").From("click_events")
	rows := s.sb.Select(clickColumns).From("click_events").OrderBy("clicked_at DESC", "id DESC")

	var items []models.ClickEvent
	total, err := s.selectPage(ctx, filtered(count, where), filtered(rows, where), p, &items)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return items, total, nil
}

func (s *Storage) ListClickSummaries(ctx context.Context, f models.ClickFilter, p models.PageRequest) ([]models.UserClickSummary, int, error) {
	const op = "storage.postgres.ListClickSummaries"

	where := clickWhere(f)

	count := s.sb.Select("COUNT(DISTINCT user_id)").From("click_events")
	rows := s.sb.Select(
		"user_id",
		"COUNT(*) AS total_clicks",
		"COUNT(DISTINCT search_id) AS searches_with_clicks",
		"MAX(clicked_at) AS last_click",
	).From("click_events")
	rows = filtered(rows, where).GroupBy("user_id").OrderBy("last_click DESC", "user_id ASC")

	var items []models.UserClickSummary
	total, err := s.selectPage(ctx, filtered(count, where), rows, p, &items)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return items, total, nil
}

func (s *Storage) ListUsers(ctx context.Context, f models.UserFilter, p models.PageRequest) ([]models.AnonymousUser, int, error) {
	const op = "storage.postgres.ListUsers"

	where := sq.And{}
	where = eq(where, "device_type", f.DeviceType)
	where = eq(where, "country", f.Country)
	where = between(where, "first_seen", f.Range)

	count := s.sb.Select("COUNT(*)").From("anonymous_users")
	rows := s.sb.Select(userColumns).From("anonymous_users").OrderBy("first_seen DESC", "user_id DESC")

	var items []models.AnonymousUser
	total, err := s.selectPage(ctx, filtered(count, where), filtered(rows, where), p, &items)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return items, total, nil
}

func (s *Storage) ListTickets(ctx context.Context, f models.TicketFilter, p models.PageRequest) ([]models.Ticket, int, error) {
	const op = "storage.postgres.ListTickets"

	where := sq.And{}
	where = eq(where, "status", string(f.Status))
	where = eq(where, "user_id", f.UserID)
	where = between(where, "created_at", f.Range)

	count := s.sb.Select("COUNT(*)").From("tickets")
	rows := s.sb.Select(ticketColumns).From("tickets").OrderBy("created_at DESC", "id DESC")

	var items []models.Ticket
	total, err := s.selectPage(ctx, filtered(count, where), filtered(rows, where), p, &items)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return items, total, nil
}

// selectPage runs the count and the page query in one read-only snapshot so
// total_count always agrees with the rows returned.
func (s *Storage) selectPage(ctx context.Context, count, rows sq.SelectBuilder, p models.PageRequest, dest any) (int, error) {
	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return 0, err
	}

	rowsSQL, rowsArgs, err := rows.
		Limit(uint64(p.PerPage)).
		Offset(uint64(p.Offset())).
		ToSql()
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTxx(ctx, readOnly)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var total int
	if err := tx.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return 0, err
	}

	if err := tx.SelectContext(ctx, dest, rowsSQL, rowsArgs...); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return total, nil
}

func (s *Storage) Search(ctx context.Context, id int64) (models.SearchEvent, error) {
	const op = "storage.postgres.Search"

	var e models.SearchEvent
	err := s.db.GetContext(ctx, &e, `SELECT `+searchColumns+` FROM search_events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SearchEvent{}, storage.ErrSearchNotFound
	}
	if err != nil {
		return models.SearchEvent{}, fmt.Errorf("%s: %w", op, err)
	}

	return e, nil
}

func (s *Storage) SearchDetails(ctx context.Context, id int64) (models.SearchDetails, error) {
	const op = "storage.postgres.SearchDetails"

	e, err := s.Search(ctx, id)
	if err != nil {
		return models.SearchDetails{}, err
	}

	details := models.SearchDetails{Search: e, Clicks: []models.ClickEvent{}}

	var u models.AnonymousUser
	err = s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM anonymous_users WHERE user_id = $1`, e.UserID)
	switch {
	case err == nil:
		details.User = &u
	case !errors.Is(err, sql.ErrNoRows):
		return models.SearchDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	err = s.db.SelectContext(ctx, &details.Clicks,
		`SELECT `+clickColumns+` FROM click_events WHERE search_id = $1 ORDER BY clicked_at, id`, id)
	if err != nil {
		return models.SearchDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	return details, nil
}

func (s *Storage) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	const op = "storage.postgres.CreateTicket"

	query, args, err := s.sb.Insert("tickets").
		Columns("user_id", "search_id", "created_at", "updated_at", "status", "user_note",
			"crop_image_url", "original_image_url", "manual_results").
		Values(t.UserID, t.SearchID, t.CreatedAt, t.UpdatedAt, string(t.Status), t.UserNote,
			t.CropImageURL, t.OriginalImageURL, t.ManualResults).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return models.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&t.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == fkViolation {
			return models.Ticket{}, storage.ErrSearchNotFound
		}
		return models.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

func (s *Storage) Ticket(ctx context.Context, id int64) (models.Ticket, error) {
	const op = "storage.postgres.Ticket"

	var t models.Ticket
	err := s.db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Ticket{}, storage.ErrTicketNotFound
	}
	if err != nil {
		return models.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// UpdateTicket locks the row with SELECT ... FOR UPDATE and runs fn inside the
// same transaction, so concurrent updates of one ticket are serialized.
func (s *Storage) UpdateTicket(
	ctx context.Context,
	id int64,
	fn func(current models.Ticket) (models.Ticket, bool, error),
) (models.Ticket, error) {
	const op = "storage.postgres.UpdateTicket"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var current models.Ticket
	err = tx.GetContext(ctx, &current, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Ticket{}, storage.ErrTicketNotFound
	}
	if err != nil {
		return models.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	next, changed, err := fn(current)
	if err != nil {
		return models.Ticket{}, err
	}

	if !changed {
		return current, nil
	}

	_, err = tx.NamedExecContext(ctx, `UPDATE tickets SET
		status = :status,
		admin_notes = :admin_notes,
		resolved_by = :resolved_by,
		resolved_at = :resolved_at,
		manual_results = :manual_results,
		updated_at = :updated_at
		WHERE id = :id`, next)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return models.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	return next, nil
}

func clickWhere(f models.ClickFilter) sq.And {
	where := sq.And{}
	where = eq(where, "user_id", f.UserID)
	where = eq(where, "partner_name", f.Partner)
	where = eq(where, "device_type", f.DeviceType)
	where = eq(where, "country", f.Country)
	return between(where, "clicked_at", f.Range)
}

func eq(where sq.And, column, value string) sq.And {
	if value == "" {
		return where
	}
	return append(where, sq.Eq{column: value})
}

func between(where sq.And, column string, r models.DateRange) sq.And {
	from, to := r.Bounds()
	if !from.IsZero() {
		where = append(where, sq.GtOrEq{column: from})
	}
	if !to.IsZero() {
		where = append(where, sq.Lt{column: to})
	}
	return where
}

func filtered(b sq.SelectBuilder, where sq.And) sq.SelectBuilder {
	if len(where) == 0 {
		return b
	}
	return b.Where(where)
}
