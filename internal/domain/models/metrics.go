package models

import "time"

type MetricsSnapshot struct {
	StartDate       string         `json:"start_date"`
	EndDate         string         `json:"end_date"`
	TotalSearches   int            `json:"total_searches"`
	TotalClicks     int            `json:"total_clicks"`
	TotalUsers      int            `json:"total_users"`
	NewUsers        int            `json:"new_users"`
	CTR             float64        `json:"ctr"`
	ClicksPerSearch float64        `json:"clicks_per_search"`
	TopPartners     []PartnerStat  `json:"top_partners"`
	TopSources      []SourceStat   `json:"top_sources"`
	DailyTrend      []DailyBucket  `json:"daily_trend"`
	WeeklyTrend     []WeeklyBucket `json:"weekly_trend"`
}

type PartnerStat struct {
	Name   string  `json:"name"`
	Clicks int     `json:"clicks"`
	CTR    float64 `json:"ctr"`
}

type SourceStat struct {
	Name     string `json:"name"`
	Searches int    `json:"searches"`
}

type DailyBucket struct {
	Date     string `json:"date"`
	Searches int    `json:"searches"`
	Clicks   int    `json:"clicks"`
}

type WeeklyBucket struct {
	WeekLabel string `json:"week_label"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Searches  int    `json:"searches"`
	Clicks    int    `json:"clicks"`
}

// Totals are the raw counts a metrics source reports for one instant range.
type Totals struct {
	Searches int
	Clicks   int
	Users    int
	NewUsers int
}

type NamedCount struct {
	Name  string `db:"name"`
	Count int    `db:"count"`
}

// DayActivity is one calendar day of search and click counts, Day formatted YYYY-MM-DD.
type DayActivity struct {
	Day      string `db:"day"`
	Searches int    `db:"searches"`
	Clicks   int    `db:"clicks"`
}

// Window is a half-open instant range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}
