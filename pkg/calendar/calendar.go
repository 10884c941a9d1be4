package calendar

import (
	"fmt"
	"time"
)

// BusinessHours defines the weekday/hour window during which automated
// messages may be sent. Start and End are hours in 0-23, End exclusive.
type BusinessHours struct {
	Start    int            `json:"start" yaml:"start" validate:"min=0,max=23"`
	End      int            `json:"end" yaml:"end" validate:"min=0,max=23"`
	WorkDays []time.Weekday `json:"work_days" yaml:"work_days" validate:"required,min=1,dive,min=0,max=6"`
}

// CurrentDate returns today truncated to day granularity in UTC.
func CurrentDate() time.Time {
	return Midnight(time.Now())
}

// Midnight normalizes t to midnight UTC of its calendar date. Comparing
// normalized values keeps day arithmetic immune to DST transitions and
// timezone offsets.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysDifference returns target minus reference in whole calendar days.
// Positive means target is in the future, negative in the past, zero the
// same calendar day.
func DaysDifference(target, reference time.Time) int {
	diff := Midnight(target).Sub(Midnight(reference))
	return int(diff.Hours() / 24)
}

// Contains reports whether now falls inside the configured window: the
// weekday must be a workday and the hour in [Start, End).
func (bh BusinessHours) Contains(now time.Time) bool {
	day := now.Weekday()
	found := false
	for _, wd := range bh.WorkDays {
		if wd == day {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	return now.Hour() >= bh.Start && now.Hour() < bh.End
}

// ResolveDueDateForDayOfMonth returns the next occurrence of the given day
// of month on or after reference. If the day has already passed in the
// reference month it rolls to the following month. Days beyond the target
// month's length clamp to the last day of that month, so day 31 resolves to
// Feb 28/29 rather than overflowing into March.
func ResolveDueDateForDayOfMonth(day int, reference time.Time) (time.Time, error) {
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day of month out of range: %d", day)
	}
	ref := Midnight(reference)
	due := dateWithClampedDay(ref.Year(), ref.Month(), day)
	if due.Before(ref) {
		next := ref.AddDate(0, 1, -ref.Day()+1) // first of next month
		due = dateWithClampedDay(next.Year(), next.Month(), day)
	}
	return due, nil
}

func dateWithClampedDay(year int, month time.Month, day int) time.Time {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextWeekday returns the next occurrence of weekday on or after reference.
func NextWeekday(weekday time.Weekday, reference time.Time) time.Time {
	ref := Midnight(reference)
	offset := (int(weekday) - int(ref.Weekday()) + 7) % 7
	return ref.AddDate(0, 0, offset)
}

// StartOfDay returns local midnight for t, used as the lower bound for
// same-day delivery-log queries.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
