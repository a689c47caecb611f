package models

import (
	"time"
)

// SearchEvent, ClickEvent and AnonymousUser are written by the search and
// tracking services. The console only reads them.

type SearchEvent struct {
	ID          int64     `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Timestamp   time.Time `json:"timestamp" db:"searched_at"`
	DeviceType  string    `json:"device_type" db:"device_type"`
	Country     string    `json:"country" db:"country"`
	ResultCount int       `json:"result_count" db:"result_count"`
}

type ClickEvent struct {
	ID            int64     `json:"id" db:"id"`
	SearchID      int64     `json:"search_id" db:"search_id"`
	UserID        string    `json:"user_id" db:"user_id"`
	ResultID      *int64    `json:"result_id" db:"result_id"`
	PartnerDomain string    `json:"partner_domain" db:"partner_domain"`
	PartnerName   string    `json:"partner_name" db:"partner_name"`
	Brand         *string   `json:"brand" db:"brand"`
	ItemTitle     string    `json:"item_title" db:"item_title"`
	Price         *string   `json:"price" db:"price"`
	Rank          int       `json:"rank" db:"result_rank"`
	Timestamp     time.Time `json:"timestamp" db:"clicked_at"`
	DeviceType    string    `json:"device_type" db:"device_type"`
	Country       string    `json:"country" db:"country"`
}

type AnonymousUser struct {
	ID         string    `json:"user_id" db:"user_id"`
	DeviceType string    `json:"device_type" db:"device_type"`
	Country    string    `json:"country" db:"country"`
	FirstSeen  time.Time `json:"first_seen" db:"first_seen"`
	LastActive time.Time `json:"last_active" db:"last_active"`
}

// UserClickSummary is one row of the clicks list grouped by user.
type UserClickSummary struct {
	UserID             string    `json:"user_id" db:"user_id"`
	TotalClicks        int       `json:"total_clicks" db:"total_clicks"`
	SearchesWithClicks int       `json:"searches_with_clicks" db:"searches_with_clicks"`
	LastClick          time.Time `json:"last_click" db:"last_click"`
}

type SearchDetails struct {
	Search SearchEvent    `json:"search"`
	User   *AnonymousUser `json:"user"`
	Clicks []ClickEvent   `json:"clicks"`
}

type TicketDetails struct {
	Ticket Ticket       `json:"ticket"`
	Search *SearchEvent `json:"search"`
}
