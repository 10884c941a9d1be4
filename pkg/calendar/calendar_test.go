package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysDifference(t *testing.T) {
	today := date(2026, time.March, 10)

	assert.Equal(t, 0, DaysDifference(today, today))
	assert.Equal(t, 3, DaysDifference(date(2026, time.March, 13), today))
	assert.Equal(t, -5, DaysDifference(date(2026, time.March, 5), today))

	// Time-of-day never shifts the calendar distance.
	lateEvening := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, time.March, 11, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysDifference(earlyMorning, lateEvening))
}

func TestDaysDifferenceAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// The wall-clock interval between these dates is not a multiple of 24h
	// in zones with DST; calendar distance must still be exact.
	before := time.Date(2018, time.November, 3, 12, 0, 0, 0, loc)
	after := time.Date(2018, time.November, 5, 12, 0, 0, 0, loc)
	assert.Equal(t, 2, DaysDifference(after, before))
	assert.Equal(t, -2, DaysDifference(before, after))
}

func TestMidnight(t *testing.T) {
	ts := time.Date(2026, time.July, 4, 17, 45, 12, 999, time.FixedZone("X", -3*3600))
	m := Midnight(ts)
	assert.Equal(t, time.UTC, m.Location())
	assert.Equal(t, date(2026, time.July, 4), m)
}

func TestBusinessHoursContains(t *testing.T) {
	bh := BusinessHours{
		Start:    8,
		End:      18,
		WorkDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}

	monday := time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
	assert.True(t, bh.Contains(monday))

	// End is exclusive.
	assert.True(t, bh.Contains(time.Date(2026, time.March, 9, 17, 59, 0, 0, time.UTC)))
	assert.False(t, bh.Contains(time.Date(2026, time.March, 9, 18, 0, 0, 0, time.UTC)))
	assert.False(t, bh.Contains(time.Date(2026, time.March, 9, 7, 59, 0, 0, time.UTC)))

	saturday := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	assert.False(t, bh.Contains(saturday))
}

func TestResolveDueDateForDayOfMonth(t *testing.T) {
	due, err := ResolveDueDateForDayOfMonth(15, date(2026, time.March, 10))
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.March, 15), due)

	// Already passed this month: rolls over.
	due, err = ResolveDueDateForDayOfMonth(5, date(2026, time.March, 10))
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.April, 5), due)

	// Same day counts as on-or-after.
	due, err = ResolveDueDateForDayOfMonth(10, date(2026, time.March, 10))
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.March, 10), due)
}

func TestResolveDueDateClampsToMonthEnd(t *testing.T) {
	// Day 31 in a 30-day month.
	due, err := ResolveDueDateForDayOfMonth(31, date(2026, time.April, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.April, 30), due)

	// Day 30 in February clamps to the 28th (2026 is not a leap year).
	due, err = ResolveDueDateForDayOfMonth(30, date(2026, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 28), due)

	// Leap year February keeps the 29th.
	due, err = ResolveDueDateForDayOfMonth(31, date(2028, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2028, time.February, 29), due)
}

func TestResolveDueDateRejectsOutOfRange(t *testing.T) {
	_, err := ResolveDueDateForDayOfMonth(0, date(2026, time.March, 1))
	assert.Error(t, err)
	_, err = ResolveDueDateForDayOfMonth(32, date(2026, time.March, 1))
	assert.Error(t, err)
}

func TestNextWeekday(t *testing.T) {
	tuesday := date(2026, time.March, 10)

	assert.Equal(t, date(2026, time.March, 13), NextWeekday(time.Friday, tuesday))
	// Same weekday resolves to today, not next week.
	assert.Equal(t, tuesday, NextWeekday(time.Tuesday, tuesday))
	// Earlier weekday wraps to next week.
	assert.Equal(t, date(2026, time.March, 16), NextWeekday(time.Monday, tuesday))
}

func TestStartOfDayKeepsLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	ts := time.Date(2026, time.March, 10, 14, 30, 0, 0, loc)
	start := StartOfDay(ts)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 10, start.Day())
	assert.Equal(t, loc, start.Location())
}
