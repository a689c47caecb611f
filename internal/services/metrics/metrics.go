package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
	"github.com/lostmyescape/opsconsole/internal/lib/timeutil"
)

// ErrTransient means the metrics source failed; the next refresh may succeed.
var ErrTransient = errors.New("metrics source unavailable")

// Source returns exact grouped counts over a half-open instant window.
type Source interface {
	Totals(ctx context.Context, w models.Window) (models.Totals, error)
	PartnerClicks(ctx context.Context, w models.Window) ([]models.NamedCount, error)
	SourceSearches(ctx context.Context, w models.Window) ([]models.NamedCount, error)
	DailyActivity(ctx context.Context, w models.Window, loc *time.Location) ([]models.DayActivity, error)
}

type Options struct {
	TopN             int
	DailyDays        int
	WeeklyDays       int
	DefaultRangeDays int
	Location         *time.Location
}

type Aggregator struct {
	log   *slog.Logger
	src   Source
	clock clockwork.Clock
	opts  Options
}

func New(log *slog.Logger, src Source, clock clockwork.Clock, opts Options) *Aggregator {
	if opts.TopN < 1 {
		opts.TopN = 10
	}
	if opts.DailyDays < 1 {
		opts.DailyDays = 7
	}
	if opts.WeeklyDays < 1 {
		opts.WeeklyDays = 30
	}
	if opts.DefaultRangeDays < 1 {
		opts.DefaultRangeDays = 30
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Aggregator{log: log, src: src, clock: clock, opts: opts}
}

// Snapshot computes dashboard statistics for the inclusive day range r. Trend
// buckets always cover the trailing windows ending today, whatever r is.
func (a *Aggregator) Snapshot(ctx context.Context, r models.DateRange) (models.MetricsSnapshot, error) {
	const op = "services.metrics.Snapshot"

	log := a.log.With(slog.String("op", op))

	today := a.today()
	start, end := a.resolve(r, today)
	w := models.Window{From: start, To: timeutil.AddDays(end, 1)}

	totals, err := a.src.Totals(ctx, w)
	if err != nil {
		log.Error("failed to load totals", sl.Err(err))
		return models.MetricsSnapshot{}, fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}

	partners, err := a.src.PartnerClicks(ctx, w)
	if err != nil {
		log.Error("failed to load partner clicks", sl.Err(err))
		return models.MetricsSnapshot{}, fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}

	sources, err := a.src.SourceSearches(ctx, w)
	if err != nil {
		log.Error("failed to load source searches", sl.Err(err))
		return models.MetricsSnapshot{}, fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}

	daily, weekly, err := a.trends(ctx, today)
	if err != nil {
		log.Error("failed to load trends", sl.Err(err))
		return models.MetricsSnapshot{}, fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}

	snap := models.MetricsSnapshot{
		StartDate:       timeutil.FormatDay(start),
		EndDate:         timeutil.FormatDay(end),
		TotalSearches:   totals.Searches,
		TotalClicks:     totals.Clicks,
		TotalUsers:      totals.Users,
		NewUsers:        totals.NewUsers,
		CTR:             Percent(totals.Clicks, totals.Searches),
		ClicksPerSearch: ratio(totals.Clicks, totals.Searches),
		TopPartners:     partnerStats(truncate(rank(partners), a.opts.TopN), totals.Searches),
		TopSources:      sourceStats(truncate(rank(sources), a.opts.TopN)),
		DailyTrend:      daily,
		WeeklyTrend:     weekly,
	}

	log.Debug("snapshot computed",
		slog.String("start_date", snap.StartDate),
		slog.String("end_date", snap.EndDate),
		slog.Int("total_searches", snap.TotalSearches),
	)

	return snap, nil
}

// Partners returns the full partner ranking for r, one page at a time.
func (a *Aggregator) Partners(ctx context.Context, r models.DateRange, p models.PageRequest) (models.Page[models.PartnerStat], error) {
	const op = "services.metrics.Partners"

	start, end := a.resolve(r, a.today())
	w := models.Window{From: start, To: timeutil.AddDays(end, 1)}

	totals, err := a.src.Totals(ctx, w)
	if err != nil {
		return models.Page[models.PartnerStat]{}, fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}

	partners, err := a.src.PartnerClicks(ctx, w)
	if err != nil {
		return models.Page[models.PartnerStat]{}, fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}

	ranked := rank(partners)

	from := p.Offset()
	if from > len(ranked) {
		from = len(ranked)
	}
	to := from + p.PerPage
	if to > len(ranked) {
		to = len(ranked)
	}

	return models.NewPage(partnerStats(ranked[from:to], totals.Searches), p, len(ranked)), nil
}

func (a *Aggregator) today() time.Time {
	return timeutil.StartOfDay(a.clock.Now(), a.opts.Location)
}

// resolve fills a missing end with today and a missing start with the default
// range, then swaps the bounds when they arrive reversed.
func (a *Aggregator) resolve(r models.DateRange, today time.Time) (start, end time.Time) {
	start, end = r.Start, r.End

	if end.IsZero() {
		end = today
	}
	if start.IsZero() {
		start = timeutil.AddDays(end, -(a.opts.DefaultRangeDays - 1))
	}
	if start.After(end) {
		start, end = end, start
	}

	return start, end
}

func (a *Aggregator) trends(ctx context.Context, today time.Time) ([]models.DailyBucket, []models.WeeklyBucket, error) {
	dailyFrom := timeutil.AddDays(today, -(a.opts.DailyDays - 1))
	weeklyFrom := timeutil.AddDays(today, -(a.opts.WeeklyDays - 1))

	from := dailyFrom
	if weeklyFrom.Before(from) {
		from = weeklyFrom
	}

	activity, err := a.src.DailyActivity(ctx, models.Window{From: from, To: timeutil.AddDays(today, 1)}, a.opts.Location)
	if err != nil {
		return nil, nil, err
	}

	byDay := make(map[string]models.DayActivity, len(activity))
	for _, d := range activity {
		byDay[d.Day] = d
	}

	return DailyBuckets(byDay, dailyFrom, today), WeeklyBuckets(byDay, weeklyFrom, today), nil
}

// DailyBuckets emits one zero-filled bucket per day from first through last.
func DailyBuckets(byDay map[string]models.DayActivity, first, last time.Time) []models.DailyBucket {
	out := make([]models.DailyBucket, 0, timeutil.DaysBetween(first, last)+1)

	for d := first; !d.After(last); d = timeutil.AddDays(d, 1) {
		key := timeutil.FormatDay(d)
		act := byDay[key]
		out = append(out, models.DailyBucket{Date: key, Searches: act.Searches, Clicks: act.Clicks})
	}

	return out
}

// WeeklyBuckets groups the days first..last into ISO weeks (Monday through
// Sunday). The first and last buckets are clipped to the window, so a bucket
// only ever spans elapsed days. A window of n days yields at most ceil(n/7)
// buckets: when it touches one more ISO week than that, the leading partial
// week is folded into the bucket after it. Labels run "Week 1" for the oldest
// upward.
func WeeklyBuckets(byDay map[string]models.DayActivity, first, last time.Time) []models.WeeklyBucket {
	out := []models.WeeklyBucket{}

	var curWeek time.Time

	for d := first; !d.After(last); d = timeutil.AddDays(d, 1) {
		week := timeutil.WeekStart(d)
		if len(out) == 0 || !week.Equal(curWeek) {
			out = append(out, models.WeeklyBucket{StartDate: timeutil.FormatDay(d)})
			curWeek = week
		}

		key := timeutil.FormatDay(d)
		act := byDay[key]
		cur := &out[len(out)-1]
		cur.EndDate = key
		cur.Searches += act.Searches
		cur.Clicks += act.Clicks
	}

	if len(out) > 1 && len(out) > maxWeeks(first, last) {
		out[1].StartDate = out[0].StartDate
		out[1].Searches += out[0].Searches
		out[1].Clicks += out[0].Clicks
		out = out[1:]
	}

	for i := range out {
		out[i].WeekLabel = "Week " + strconv.Itoa(i+1)
	}

	return out
}

func maxWeeks(first, last time.Time) int {
	days := timeutil.DaysBetween(first, last) + 1
	return (days + 6) / 7
}

// Percent is part/whole as a percentage rounded to one decimal, 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(1000*float64(part)/float64(whole)) / 10
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(100*float64(part)/float64(whole)) / 100
}

// rank sorts by count descending, ties by name ascending.
func rank(counts []models.NamedCount) []models.NamedCount {
	out := append([]models.NamedCount(nil), counts...)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})

	return out
}

func truncate(counts []models.NamedCount, n int) []models.NamedCount {
	if len(counts) > n {
		return counts[:n]
	}
	return counts
}

func partnerStats(counts []models.NamedCount, searches int) []models.PartnerStat {
	out := make([]models.PartnerStat, 0, len(counts))
	for _, c := range counts {
		out = append(out, models.PartnerStat{Name: c.Name, Clicks: c.Count, CTR: Percent(c.Count, searches)})
	}
	return out
}

func sourceStats(counts []models.NamedCount) []models.SourceStat {
	out := make([]models.SourceStat, 0, len(counts))
	for _, c := range counts {
		out = append(out, models.SourceStat{Name: c.Name, Searches: c.Count})
	}
	return out
}
