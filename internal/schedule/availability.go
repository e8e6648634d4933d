package schedule

import (
	"context"
	"time"

	"github.com/spec-kit/govdesk/internal/domain"
)

// Decision is the outcome of an availability check. Reason is set only when
// the slot is not admitted.
type Decision struct {
	Admit  bool   `json:"admit"`
	Reason string `json:"reason,omitempty"`
}

// Rejection reasons, in the order the rules are evaluated.
const (
	ReasonInvalidFormat = "invalid-format"
	ReasonOutsideHours  = "outside-operating-hours"
	ReasonBadAlignment  = "bad-alignment"
	ReasonWeekend       = "weekend"
	ReasonInPast        = "in-past"
	ReasonTooFarAhead   = "too-far-ahead"
	ReasonSlotTaken     = "slot-taken"
)

// ConflictFinder is the ledger lookup the checker needs: an existing ticket
// for the department at the exact instant whose status still blocks the slot.
type ConflictFinder interface {
	FindConflict(ctx context.Context, departmentID string, at time.Time, excludeTicketID string) (*domain.Ticket, error)
}

// Checker is the single decision point for whether a (department, date, time)
// triple can be booked or rebooked.
type Checker struct {
	ledger        ConflictFinder
	granularity   int
	horizonMonths int
	loc           *time.Location
	now           func() time.Time
}

// NewChecker builds a checker. granularity and horizonMonths fall back to
// 15 minutes and 3 months when non-positive; loc defaults to time.Local.
func NewChecker(ledger ConflictFinder, granularity, horizonMonths int, loc *time.Location) *Checker {
	if granularity <= 0 {
		granularity = DefaultSlotMinutes
	}
	if horizonMonths <= 0 {
		horizonMonths = 3
	}
	if loc == nil {
		loc = time.Local
	}
	return &Checker{
		ledger:        ledger,
		granularity:   granularity,
		horizonMonths: horizonMonths,
		loc:           loc,
		now:           time.Now,
	}
}

// WithClock overrides the wall clock. Used by tests.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Granularity returns the configured slot granularity in minutes.
func (c *Checker) Granularity() int {
	return c.granularity
}

// Location returns the booking timezone.
func (c *Checker) Location() *time.Location {
	return c.loc
}

// Check validates the requested slot against the ordered rule set; the first
// failing rule wins. excludeTicketID suppresses a ticket's conflict with
// itself when rescheduling; pass "" at creation time.
func (c *Checker) Check(ctx context.Context, dept *domain.Department, date, timeOfDay, excludeTicketID string) (Decision, error) {
	at, err := ParseSlot(date, timeOfDay, c.loc)
	if err != nil {
		return Decision{Reason: ReasonInvalidFormat}, nil
	}

	minute := at.Hour()*60 + at.Minute()
	open := dept.OpenHour * 60
	lastSlot := dept.CloseHour*60 - c.granularity
	if minute < open || minute > lastSlot {
		return Decision{Reason: ReasonOutsideHours}, nil
	}
	if dept.LunchBreak && minute >= lunchStartMinute && minute < lunchEndMinute {
		return Decision{Reason: ReasonOutsideHours}, nil
	}

	if minute%c.granularity != 0 {
		return Decision{Reason: ReasonBadAlignment}, nil
	}

	if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return Decision{Reason: ReasonWeekend}, nil
	}

	now := c.now()
	if at.Before(now) {
		return Decision{Reason: ReasonInPast}, nil
	}
	if at.After(now.AddDate(0, c.horizonMonths, 0)) {
		return Decision{Reason: ReasonTooFarAhead}, nil
	}

	conflict, err := c.ledger.FindConflict(ctx, dept.ID, at, excludeTicketID)
	if err != nil {
		return Decision{}, err
	}
	if conflict != nil {
		return Decision{Reason: ReasonSlotTaken}, nil
	}

	return Decision{Admit: true}, nil
}
