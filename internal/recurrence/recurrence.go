package recurrence

import (
	"fmt"
	"time"
)

type Policy string

const (
	None     Policy = "none"
	Daily    Policy = "daily"
	Weekly   Policy = "weekly"
	Monthly  Policy = "monthly"
	Weekdays Policy = "weekdays"
	Weekends Policy = "weekends"
)

// Rule is a task's recurrence policy. Weekdays holds weekday indices 0-6
// (Sunday=0) and applies to Weekly; DayOfMonth applies to Monthly.
type Rule struct {
	Policy     Policy
	Weekdays   []int
	DayOfMonth int
}

// Validate checks the policy-specific constraints: weekly needs at least
// one weekday, monthly a day-of-month in 1-31.
func (r Rule) Validate() error {
	switch r.Policy {
	case None, Daily, Weekdays, Weekends:
		return nil
	case Weekly:
		if len(r.Weekdays) == 0 {
			return fmt.Errorf("weekly recurrence requires at least one weekday")
		}
		for _, d := range r.Weekdays {
			if d < 0 || d > 6 {
				return fmt.Errorf("weekday index %d out of range 0-6", d)
			}
		}
		return nil
	case Monthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return fmt.Errorf("monthly recurrence requires day_of_month in 1-31, got %d", r.DayOfMonth)
		}
		return nil
	default:
		return fmt.Errorf("unknown recurrence policy %q", r.Policy)
	}
}

// NextDueDate returns the successor due date for a recurring task, or nil
// when the policy produces no successor (none or unrecognized).
//
// Weekly advances a flat 7 days from the prior due date; the stored weekday
// set is not consulted for successor generation.
func NextDueDate(r Rule, current time.Time) *time.Time {
	switch r.Policy {
	case Daily:
		next := current.AddDate(0, 0, 1)
		return &next
	case Weekly:
		next := current.AddDate(0, 0, 7)
		return &next
	case Monthly:
		next := nextMonthly(r.DayOfMonth, current)
		return &next
	case Weekdays:
		next := nextWeekday(current)
		return &next
	case Weekends:
		next := nextWeekendDay(current)
		return &next
	default:
		return nil
	}
}

// nextMonthly advances to the given day of the next month, clamped to the
// last day when the month is shorter.
func nextMonthly(dayOfMonth int, current time.Time) time.Time {
	if dayOfMonth == 0 {
		dayOfMonth = current.Day()
	}

	year, month, _ := current.Date()
	firstOfNext := time.Date(year, month+1, 1, current.Hour(), current.Minute(), current.Second(), 0, current.Location())

	day := dayOfMonth
	if last := daysInMonth(firstOfNext.Year(), firstOfNext.Month()); day > last {
		day = last
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, current.Hour(), current.Minute(), current.Second(), 0, current.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// nextWeekday advances to the next Monday-Friday calendar day.
func nextWeekday(current time.Time) time.Time {
	next := current.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextWeekendDay advances Saturday to Sunday, anything else to the next
// Saturday.
func nextWeekendDay(current time.Time) time.Time {
	if current.Weekday() == time.Saturday {
		return current.AddDate(0, 0, 1)
	}
	days := (int(time.Saturday) - int(current.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return current.AddDate(0, 0, days)
}
