package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
)

type totalsRow struct {
	Searches int `db:"searches"`
	Clicks   int `db:"clicks"`
	Users    int `db:"users"`
	NewUsers int `db:"new_users"`
}

func (s *Storage) Totals(ctx context.Context, w models.Window) (models.Totals, error) {
	const op = "storage.postgres.Totals"

	var row totalsRow
	err := s.db.GetContext(ctx, &row, `SELECT
		(SELECT COUNT(*) FROM search_events WHERE searched_at >= $1 AND searched_at < $2) AS searches,
		(SELECT COUNT(*) FROM click_events WHERE clicked_at >= $1 AND clicked_at < $2) AS clicks,
		(SELECT COUNT(*) FROM anonymous_users WHERE first_seen < $2) AS users,
		(SELECT COUNT(*) FROM anonymous_users WHERE first_seen >= $1 AND first_seen < $2) AS new_users`,
		w.From, w.To)
	if err != nil {
		return models.Totals{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Totals(row), nil
}

func (s *Storage) PartnerClicks(ctx context.Context, w models.Window) ([]models.NamedCount, error) {
	const op = "storage.postgres.PartnerClicks"

	var out []models.NamedCount
	err := s.db.SelectContext(ctx, &out, `SELECT partner_name AS name, COUNT(*) AS count
		FROM click_events
		WHERE clicked_at >= $1 AND clicked_at < $2
		GROUP BY partner_name`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Storage) SourceSearches(ctx context.Context, w models.Window) ([]models.NamedCount, error) {
	const op = "storage.postgres.SourceSearches"

	var out []models.NamedCount
	err := s.db.SelectContext(ctx, &out, `SELECT r.source AS name, COUNT(DISTINCT r.search_id) AS count
		FROM search_results r
		JOIN search_events s ON s.id = r.search_id
		WHERE s.searched_at >= $1 AND s.searched_at < $2
		GROUP BY r.source`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// DailyActivity buckets searches and clicks by calendar day in loc.
func (s *Storage) DailyActivity(ctx context.Context, w models.Window, loc *time.Location) ([]models.DayActivity, error) {
	const op = "storage.postgres.DailyActivity"

	var out []models.DayActivity
	err := s.db.SelectContext(ctx, &out, `SELECT day, SUM(searches) AS searches, SUM(clicks) AS clicks FROM (
			SELECT to_char(searched_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day, 1 AS searches, 0 AS clicks
			FROM search_events WHERE searched_at >= $1 AND searched_at < $2
			UNION ALL
			SELECT to_char(clicked_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day, 0 AS searches, 1 AS clicks
			FROM click_events WHERE clicked_at >= $1 AND clicked_at < $2
		) activity
		GROUP BY day
		ORDER BY day`, w.From, w.To, loc.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
