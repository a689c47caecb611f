// Package clickhouse reads dashboard aggregates from the analytics replica of
// the event tables. Only the metrics read path uses it; listings and tickets
// stay on Postgres.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
)

type Source struct {
	conn clickhouse.Conn
}

func NewSource(conn clickhouse.Conn) *Source {
	return &Source{conn: conn}
}

type totalsRow struct {
	Searches uint64 `ch:"searches"`
	Clicks   uint64 `ch:"clicks"`
	Users    uint64 `ch:"users"`
	NewUsers uint64 `ch:"new_users"`
}

type namedCountRow struct {
	Name  string `ch:"name"`
	Count uint64 `ch:"count"`
}

type dayRow struct {
	Day      string `ch:"day"`
	Searches uint64 `ch:"searches"`
	Clicks   uint64 `ch:"clicks"`
}

func (s *Source) Totals(ctx context.Context, w models.Window) (models.Totals, error) {
	const op = "storage.clickhouse.Totals"

	var rows []totalsRow
	err := s.conn.Select(ctx, &rows, `SELECT
		(SELECT count() FROM search_events WHERE searched_at >= ? AND searched_at < ?) AS searches,
		(SELECT count() FROM click_events WHERE clicked_at >= ? AND clicked_at < ?) AS clicks,
		(SELECT count() FROM anonymous_users WHERE first_seen < ?) AS users,
		(SELECT count() FROM anonymous_users WHERE first_seen >= ? AND first_seen < ?) AS new_users`,
		w.From, w.To, w.From, w.To, w.To, w.From, w.To)
	if err != nil {
		return models.Totals{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(rows) == 0 {
		return models.Totals{}, nil
	}

	r := rows[0]
	return models.Totals{
		Searches: int(r.Searches),
		Clicks:   int(r.Clicks),
		Users:    int(r.Users),
		NewUsers: int(r.NewUsers),
	}, nil
}

func (s *Source) PartnerClicks(ctx context.Context, w models.Window) ([]models.NamedCount, error) {
	const op = "storage.clickhouse.PartnerClicks"

	var rows []namedCountRow
	err := s.conn.Select(ctx, &rows, `SELECT partner_name AS name, count() AS count
		FROM click_events
		WHERE clicked_at >= ? AND clicked_at < ?
		GROUP BY partner_name`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toNamedCounts(rows), nil
}

func (s *Source) SourceSearches(ctx context.Context, w models.Window) ([]models.NamedCount, error) {
	const op = "storage.clickhouse.SourceSearches"

	var rows []namedCountRow
	err := s.conn.Select(ctx, &rows, `SELECT r.source AS name, uniqExact(r.search_id) AS count
		FROM search_results AS r
		INNER JOIN search_events AS s ON s.id = r.search_id
		WHERE s.searched_at >= ? AND s.searched_at < ?
		GROUP BY r.source`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toNamedCounts(rows), nil
}

func (s *Source) DailyActivity(ctx context.Context, w models.Window, loc *time.Location) ([]models.DayActivity, error) {
	const op = "storage.clickhouse.DailyActivity"

	var rows []dayRow
	err := s.conn.Select(ctx, &rows, `SELECT day, sum(searches) AS searches, sum(clicks) AS clicks FROM (
			SELECT formatDateTime(toTimeZone(searched_at, ?), '%Y-%m-%d') AS day, toUInt64(1) AS searches, toUInt64(0) AS clicks
			FROM search_events WHERE searched_at >= ? AND searched_at < ?
			UNION ALL
			SELECT formatDateTime(toTimeZone(clicked_at, ?), '%Y-%m-%d') AS day, toUInt64(0) AS searches, toUInt64(1) AS clicks
			FROM click_events WHERE clicked_at >= ? AND clicked_at < ?
		)
		GROUP BY day
		ORDER BY day`, loc.String(), w.From, w.To, loc.String(), w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toDayActivity(rows), nil
}

func toNamedCounts(rows []namedCountRow) []models.NamedCount {
	out := make([]models.NamedCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.NamedCount{Name: r.Name, Count: int(r.Count)})
	}
	return out
}

func toDayActivity(rows []dayRow) []models.DayActivity {
	out := make([]models.DayActivity, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.DayActivity{Day: r.Day, Searches: int(r.Searches), Clicks: int(r.Clicks)})
	}
	return out
}
