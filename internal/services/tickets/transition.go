package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
)

// Patch holds the fields an operator may change. A nil field is left as is.
type Patch struct {
	Status        *models.TicketStatus
	AdminNotes    *string
	ResolvedBy    *string
	ManualResults *models.ManualResults
}

func (p Patch) Empty() bool {
	return p.Status == nil && p.AdminNotes == nil && p.ResolvedBy == nil && p.ManualResults == nil
}

// Apply computes the ticket that results from p. changed is false when p
// leaves every field as it was; resolved is true only when this patch moves
// the ticket into resolved.
//
// A resolved ticket accepts only a patch that repeats its current values, so
// duplicate submissions are harmless and everything else is ErrInvalidTransition.
func Apply(cur models.Ticket, p Patch, now time.Time) (next models.Ticket, changed, resolved bool, err error) {
	if cur.Status == models.StatusResolved {
		if conflicts(cur, p) {
			return cur, false, false, fmt.Errorf("%w: ticket %d is already resolved", ErrInvalidTransition, cur.ID)
		}
		return cur, false, false, nil
	}

	next = cur

	if p.Status != nil {
		if p.Status.Stage() < 0 {
			return cur, false, false, &ValidationError{Detail: fmt.Sprintf("unknown status %q", *p.Status)}
		}
		if p.Status.Stage() < cur.Status.Stage() {
			return cur, false, false, fmt.Errorf("%w: cannot move ticket %d from %s to %s",
				ErrInvalidTransition, cur.ID, cur.Status, *p.Status)
		}
		next.Status = *p.Status
	}

	if p.AdminNotes != nil {
		next.AdminNotes = strPtr(*p.AdminNotes)
	}

	if p.ResolvedBy != nil {
		next.ResolvedBy = strPtr(strings.TrimSpace(*p.ResolvedBy))
	}

	if p.ManualResults != nil {
		next.ManualResults = append(models.ManualResults{}, (*p.ManualResults)...)
	}

	if next.Status == models.StatusResolved {
		if next.ResolvedBy == nil || *next.ResolvedBy == "" {
			return cur, false, false, &ValidationError{Detail: "resolved_by is required to resolve a ticket"}
		}
		at := now
		next.ResolvedAt = &at
		resolved = true
	}

	changed = resolved || differs(cur, next)
	if changed {
		next.UpdatedAt = now
	}

	return next, changed, resolved, nil
}

// conflicts reports whether p asks for anything a resolved ticket does not already hold.
func conflicts(cur models.Ticket, p Patch) bool {
	if p.Status != nil && *p.Status != cur.Status {
		return true
	}
	if p.AdminNotes != nil && !samePtr(cur.AdminNotes, p.AdminNotes) {
		return true
	}
	if p.ResolvedBy != nil {
		by := strings.TrimSpace(*p.ResolvedBy)
		if !samePtr(cur.ResolvedBy, &by) {
			return true
		}
	}
	if p.ManualResults != nil && !cur.ManualResults.Equal(*p.ManualResults) {
		return true
	}
	return false
}

func differs(a, b models.Ticket) bool {
	return a.Status != b.Status ||
		!samePtr(a.AdminNotes, b.AdminNotes) ||
		!samePtr(a.ResolvedBy, b.ResolvedBy) ||
		(a.ManualResults == nil) != (b.ManualResults == nil) ||
		!a.ManualResults.Equal(b.ManualResults)
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtr(s string) *string {
	return &s
}
