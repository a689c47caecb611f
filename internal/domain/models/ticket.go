package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in-progress"
	StatusResolved   TicketStatus = "resolved"
)

// ParseTicketStatus accepts the canonical names plus the underscore spelling
// older mobile builds still send.
func ParseTicketStatus(s string) (TicketStatus, bool) {
	switch s {
	case string(StatusOpen):
		return StatusOpen, true
	case string(StatusInProgress), "in_progress":
		return StatusInProgress, true
	case string(StatusResolved):
		return StatusResolved, true
	}
	return "", false
}

// Stage orders statuses along the lifecycle; transitions never decrease it.
func (s TicketStatus) Stage() int {
	switch s {
	case StatusOpen:
		return 0
	case StatusInProgress:
		return 1
	case StatusResolved:
		return 2
	}
	return -1
}

type Ticket struct {
	ID               int64         `json:"id" db:"id"`
	UserID           string        `json:"user_id" db:"user_id"`
	SearchID         *int64        `json:"search_id" db:"search_id"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
	Status           TicketStatus  `json:"status" db:"status"`
	UserNote         string        `json:"user_note" db:"user_note"`
	CropImageURL     string        `json:"crop_image_url" db:"crop_image_url"`
	OriginalImageURL *string       `json:"original_image_url" db:"original_image_url"`
	AdminNotes       *string       `json:"admin_notes" db:"admin_notes"`
	ResolvedBy       *string       `json:"resolved_by" db:"resolved_by"`
	ResolvedAt       *time.Time    `json:"resolved_at" db:"resolved_at"`
	ManualResults    ManualResults `json:"manual_results" db:"manual_results"`
}

type ManualResult struct {
	Title string  `json:"title"`
	Link  string  `json:"link"`
	Price *string `json:"price,omitempty"`
}

// ManualResults is stored as a JSON document column.
type ManualResults []ManualResult

func (m ManualResults) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

func (m *ManualResults) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("manual results: unsupported type %T", src)
	}

	if len(raw) == 0 {
		*m = nil
		return nil
	}

	return json.Unmarshal(raw, m)
}

var ErrManualResults = errors.New("manual_results must be a JSON array of {title, link, price?}")

// ParseManualResults decodes the JSON-encoded form field sent by the console.
func ParseManualResults(s string) (ManualResults, error) {
	var out ManualResults

	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, ErrManualResults
	}

	for _, r := range out {
		if r.Title == "" || r.Link == "" {
			return nil, ErrManualResults
		}
	}

	if out == nil {
		out = ManualResults{}
	}

	return out, nil
}

// Equal compares results element by element, treating nil and empty alike.
func (m ManualResults) Equal(other ManualResults) bool {
	if len(m) != len(other) {
		return false
	}

	for i := range m {
		a, b := m[i], other[i]
		if a.Title != b.Title || a.Link != b.Link {
			return false
		}
		if (a.Price == nil) != (b.Price == nil) {
			return false
		}
		if a.Price != nil && *a.Price != *b.Price {
			return false
		}
	}

	return true
}
