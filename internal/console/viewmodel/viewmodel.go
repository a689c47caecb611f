// Package viewmodel turns API payloads into what a screen draws. Everything
// here is a pure function of its input.
package viewmodel

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
)

const timeLayout = "2006-01-02 15:04"

type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartBar  ChartKind = "bar"
)

type Card struct {
	Label string
	Value string
}

type Dataset struct {
	Label  string
	Values []float64
}

type Series struct {
	Title    string
	Kind     ChartKind
	Labels   []string
	Datasets []Dataset
}

type Table struct {
	Title      string
	Columns    []string
	Rows       [][]string
	Page       int
	TotalPages int
	TotalCount int
	HasPrev    bool
	HasNext    bool
	Footer     string
	Empty      string
}

type Dashboard struct {
	Range    string
	Cards    []Card
	Daily    Series
	Weekly   Series
	Partners Table
	Sources  Table
}

func NewDashboard(s models.MetricsSnapshot) Dashboard {
	d := Dashboard{
		Range: s.StartDate + " to " + s.EndDate,
		Cards: []Card{
			{Label: "Total searches", Value: strconv.Itoa(s.TotalSearches)},
			{Label: "Total clicks", Value: strconv.Itoa(s.TotalClicks)},
			{Label: "Click-through rate", Value: percent(s.CTR)},
			{Label: "Clicks per search", Value: strconv.FormatFloat(s.ClicksPerSearch, 'f', 2, 64)},
			{Label: "Active users", Value: strconv.Itoa(s.TotalUsers)},
			{Label: "New users", Value: strconv.Itoa(s.NewUsers)},
		},
		Daily:  dailySeries(s.DailyTrend),
		Weekly: weeklySeries(s.WeeklyTrend),
	}

	partnerRows := make([][]string, 0, len(s.TopPartners))
	for i, p := range s.TopPartners {
		partnerRows = append(partnerRows, []string{strconv.Itoa(i + 1), p.Name, strconv.Itoa(p.Clicks), percent(p.CTR)})
	}
	d.Partners = Table{
		Title:   "Top partners",
		Columns: []string{"#", "Partner", "Clicks", "CTR"},
		Rows:    partnerRows,
		Empty:   emptyText(len(partnerRows), "No partner clicks in this range"),
	}

	sourceRows := make([][]string, 0, len(s.TopSources))
	for i, src := range s.TopSources {
		sourceRows = append(sourceRows, []string{strconv.Itoa(i + 1), src.Name, strconv.Itoa(src.Searches)})
	}
	d.Sources = Table{
		Title:   "Top sources",
		Columns: []string{"#", "Source", "Searches"},
		Rows:    sourceRows,
		Empty:   emptyText(len(sourceRows), "No search sources in this range"),
	}

	return d
}

func dailySeries(buckets []models.DailyBucket) Series {
	s := Series{
		Title:  "Daily activity",
		Kind:   ChartLine,
		Labels: make([]string, 0, len(buckets)),
	}

	searches := make([]float64, 0, len(buckets))
	clicks := make([]float64, 0, len(buckets))

	for _, b := range buckets {
		s.Labels = append(s.Labels, shortDay(b.Date))
		searches = append(searches, float64(b.Searches))
		clicks = append(clicks, float64(b.Clicks))
	}

	s.Datasets = []Dataset{{Label: "Searches", Values: searches}, {Label: "Clicks", Values: clicks}}

	return s
}

func weeklySeries(buckets []models.WeeklyBucket) Series {
	s := Series{
		Title:  "Weekly activity",
		Kind:   ChartBar,
		Labels: make([]string, 0, len(buckets)),
	}

	searches := make([]float64, 0, len(buckets))
	clicks := make([]float64, 0, len(buckets))

	for _, b := range buckets {
		s.Labels = append(s.Labels, b.WeekLabel)
		searches = append(searches, float64(b.Searches))
		clicks = append(clicks, float64(b.Clicks))
	}

	s.Datasets = []Dataset{{Label: "Searches", Values: searches}, {Label: "Clicks", Values: clicks}}

	return s
}

type column[T any] struct {
	header string
	value  func(T) string
}

func table[T any](title, noun string, cols []column[T], p models.Page[T]) Table {
	t := Table{
		Title:      title,
		Columns:    make([]string, 0, len(cols)),
		Rows:       make([][]string, 0, len(p.Items)),
		Page:       p.Page,
		TotalPages: p.TotalPages,
		TotalCount: p.TotalCount,
		HasPrev:    p.Page > 1,
		HasNext:    p.Page < p.TotalPages,
		Footer:     fmt.Sprintf("Page %d of %d (%d total)", p.Page, p.TotalPages, p.TotalCount),
	}

	for _, c := range cols {
		t.Columns = append(t.Columns, c.header)
	}

	for _, item := range p.Items {
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			row = append(row, c.value(item))
		}
		t.Rows = append(t.Rows, row)
	}

	t.Empty = emptyText(len(t.Rows), "No "+noun+" found")

	return t
}

var searchColumns = []column[models.SearchEvent]{
	{"ID", func(s models.SearchEvent) string { return strconv.FormatInt(s.ID, 10) }},
	{"User", func(s models.SearchEvent) string { return s.UserID }},
	{"Time", func(s models.SearchEvent) string { return stamp(s.Timestamp) }},
	{"Device", func(s models.SearchEvent) string { return orDash(s.DeviceType) }},
	{"Country", func(s models.SearchEvent) string { return orDash(s.Country) }},
	{"Results", func(s models.SearchEvent) string { return strconv.Itoa(s.ResultCount) }},
}

var clickColumns = []column[models.ClickEvent]{
	{"ID", func(c models.ClickEvent) string { return strconv.FormatInt(c.ID, 10) }},
	{"Search", func(c models.ClickEvent) string { return strconv.FormatInt(c.SearchID, 10) }},
	{"User", func(c models.ClickEvent) string { return c.UserID }},
	{"Partner", func(c models.ClickEvent) string { return orDash(c.PartnerName) }},
	{"Item", func(c models.ClickEvent) string { return orDash(c.ItemTitle) }},
	{"Price", func(c models.ClickEvent) string { return deref(c.Price) }},
	{"Rank", func(c models.ClickEvent) string { return strconv.Itoa(c.Rank) }},
	{"Time", func(c models.ClickEvent) string { return stamp(c.Timestamp) }},
}

var summaryColumns = []column[models.UserClickSummary]{
	{"User", func(s models.UserClickSummary) string { return s.UserID }},
	{"Clicks", func(s models.UserClickSummary) string { return strconv.Itoa(s.TotalClicks) }},
	{"Searches with clicks", func(s models.UserClickSummary) string { return strconv.Itoa(s.SearchesWithClicks) }},
	{"Last click", func(s models.UserClickSummary) string { return stamp(s.LastClick) }},
}

var userColumns = []column[models.AnonymousUser]{
	{"User", func(u models.AnonymousUser) string { return u.ID }},
	{"Device", func(u models.AnonymousUser) string { return orDash(u.DeviceType) }},
	{"Country", func(u models.AnonymousUser) string { return orDash(u.Country) }},
	{"First seen", func(u models.AnonymousUser) string { return stamp(u.FirstSeen) }},
	{"Last active", func(u models.AnonymousUser) string { return stamp(u.LastActive) }},
}

var ticketColumns = []column[models.Ticket]{
	{"ID", func(t models.Ticket) string { return strconv.FormatInt(t.ID, 10) }},
	{"User", func(t models.Ticket) string { return t.UserID }},
	{"Status", func(t models.Ticket) string { return string(t.Status) }},
	{"Note", func(t models.Ticket) string { return clip(t.UserNote, 40) }},
	{"Created", func(t models.Ticket) string { return stamp(t.CreatedAt) }},
	{"Resolved by", func(t models.Ticket) string { return deref(t.ResolvedBy) }},
}

func Searches(p models.Page[models.SearchEvent]) Table {
	return table("Searches", "searches", searchColumns, p)
}

func Clicks(p models.Page[models.ClickEvent]) Table {
	return table("Clicks", "clicks", clickColumns, p)
}

func ClickSummaries(p models.Page[models.UserClickSummary]) Table {
	return table("Clicks by user", "clicks", summaryColumns, p)
}

func Users(p models.Page[models.AnonymousUser]) Table {
	return table("Users", "users", userColumns, p)
}

func Tickets(p models.Page[models.Ticket]) Table {
	return table("Tickets", "tickets", ticketColumns, p)
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

// shortDay renders YYYY-MM-DD as "Oct 12"; anything unparsable is passed through.
func shortDay(day string) string {
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return day
	}
	return t.Format("Jan 2")
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func emptyText(rows int, text string) string {
	if rows > 0 {
		return ""
	}
	return text
}
