package query

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/timeutil"
)

// FilterError carries the operator-facing reason a filter was rejected.
type FilterError struct {
	Detail string
}

func (e *FilterError) Error() string {
	return e.Detail
}

func (e *FilterError) Is(target error) bool {
	return target == ErrInvalidFilter
}

// ParseFilter reads the keys a kind understands from values. Every other key
// is ignored.
func ParseFilter(kind models.EntityKind, values url.Values, loc *time.Location) (Filter, error) {
	const op = "services.query.ParseFilter"

	r, err := ParseRange(values, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch kind {
	case models.KindSearches:
		return models.SearchFilter{
			UserID:     values.Get("user_id"),
			DeviceType: values.Get("device_type"),
			Country:    values.Get("country"),
			Range:      r,
		}, nil
	case models.KindClicks:
		partner := values.Get("partner")
		if partner == "" {
			partner = values.Get("partner_name")
		}
		return models.ClickFilter{
			UserID:      values.Get("user_id"),
			Partner:     partner,
			DeviceType:  values.Get("device_type"),
			Country:     values.Get("country"),
			Range:       r,
			GroupByUser: parseBool(values.Get("group_by_user")),
		}, nil
	case models.KindUsers:
		return models.UserFilter{
			DeviceType: values.Get("device_type"),
			Country:    values.Get("country"),
			Range:      r,
		}, nil
	case models.KindTickets:
		f := models.TicketFilter{
			UserID: values.Get("user_id"),
			Range:  r,
		}
		if s := values.Get("status"); s != "" {
			status, ok := models.ParseTicketStatus(s)
			if !ok {
				return nil, fmt.Errorf("%s: %w", op, &FilterError{Detail: "Invalid status. Use open, in-progress or resolved"})
			}
			f.Status = status
		}
		return f, nil
	}

	return nil, fmt.Errorf("%s: %w", op, &FilterError{Detail: fmt.Sprintf("Unknown entity %q", kind)})
}

// ParseRange reads start_date and end_date as YYYY-MM-DD days in loc.
func ParseRange(values url.Values, loc *time.Location) (models.DateRange, error) {
	var r models.DateRange

	if s := values.Get("start_date"); s != "" {
		day, err := timeutil.ParseDay(s, loc)
		if err != nil {
			return models.DateRange{}, &FilterError{Detail: "Invalid start_date format. Use YYYY-MM-DD"}
		}
		r.Start = day
	}

	if s := values.Get("end_date"); s != "" {
		day, err := timeutil.ParseDay(s, loc)
		if err != nil {
			return models.DateRange{}, &FilterError{Detail: "Invalid end_date format. Use YYYY-MM-DD"}
		}
		r.End = day
	}

	return r, nil
}

// ParsePage clamps page and per_page instead of rejecting them: page below 1
// becomes 1, per_page is held within [1, maxPerPage], and a missing or
// unparsable per_page falls back to defaultPerPage.
func ParsePage(values url.Values, defaultPerPage, maxPerPage int) models.PageRequest {
	page, err := strconv.Atoi(values.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	perPage, err := strconv.Atoi(values.Get("per_page"))
	if err != nil {
		perPage = defaultPerPage
	}

	return models.PageRequest{Page: page, PerPage: clamp(perPage, 1, maxPerPage)}
}

// PageRequest clamps paging with the engine's configured limits.
func (e *Engine) PageRequest(values url.Values) models.PageRequest {
	return ParsePage(values, e.opts.DefaultPerPage, e.opts.MaxPerPage)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
