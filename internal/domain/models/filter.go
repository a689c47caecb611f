package models

import (
	"time"

	"github.com/lostmyescape/opsconsole/internal/lib/timeutil"
)

type EntityKind string

const (
	KindSearches EntityKind = "searches"
	KindClicks   EntityKind = "clicks"
	KindUsers    EntityKind = "users"
	KindTickets  EntityKind = "tickets"
)

// DateRange selects whole calendar days. A zero Start or End leaves that side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Bounds converts the inclusive day range into a half-open [from, to) instant range.
func (r DateRange) Bounds() (from, to time.Time) {
	from = r.Start
	if !r.End.IsZero() {
		to = timeutil.AddDays(r.End, 1)
	}
	return from, to
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

type SearchFilter struct {
	UserID     string
	DeviceType string
	Country    string
	Range      DateRange
}

type ClickFilter struct {
	UserID      string
	Partner     string
	DeviceType  string
	Country     string
	Range       DateRange
	GroupByUser bool
}

// UserFilter ranges over first_seen.
type UserFilter struct {
	DeviceType string
	Country    string
	Range      DateRange
}

type TicketFilter struct {
	Status TicketStatus
	UserID string
	Range  DateRange
}

func (SearchFilter) Kind() EntityKind { return KindSearches }
func (ClickFilter) Kind() EntityKind  { return KindClicks }
func (UserFilter) Kind() EntityKind   { return KindUsers }
func (TicketFilter) Kind() EntityKind { return KindTickets }
