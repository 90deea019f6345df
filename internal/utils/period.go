package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type PeriodKind string

const (
	PeriodMonth PeriodKind = "month"
	PeriodWeek  PeriodKind = "week"
)

// Period is a half-open [Start, End) range of calendar dates at UTC midnight.
type Period struct {
	Kind  PeriodKind
	Key   string
	Start time.Time
	End   time.Time
}

func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours() / 24)
}

func (p Period) Contains(d time.Time) bool {
	d = DateOnly(d)
	return !d.Before(p.Start) && d.Before(p.End)
}

// LastDay is the final calendar date inside the period.
func (p Period) LastDay() time.Time {
	return p.End.AddDate(0, 0, -1)
}

// DateOnly drops the clock, keeping the calendar date as seen in t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Kind:  PeriodMonth,
		Key:   fmt.Sprintf("%04d-%02d", year, int(month)),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// WeekPeriod returns the ISO week (Monday start) of the given ISO year.
func WeekPeriod(isoYear, week int) Period {
	jan4 := time.Date(isoYear, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	start := jan4.AddDate(0, 0, -offset+(week-1)*7)
	return Period{
		Kind:  PeriodWeek,
		Key:   fmt.Sprintf("%04d-W%02d", isoYear, week),
		Start: start,
		End:   start.AddDate(0, 0, 7),
	}
}

func PeriodForDate(kind PeriodKind, d time.Time) Period {
	d = DateOnly(d)
	if kind == PeriodWeek {
		y, w := d.ISOWeek()
		return WeekPeriod(y, w)
	}
	return MonthPeriod(d.Year(), d.Month())
}

func isoWeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// ParsePeriodKey accepts "YYYY-MM" or "YYYY-Www".
func ParsePeriodKey(key string) (Period, error) {
	parts := strings.SplitN(strings.TrimSpace(key), "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 {
		return Period{}, ValidationErrorf("invalid period key %q", key)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1970 {
		return Period{}, ValidationErrorf("invalid period year in %q", key)
	}

	if strings.HasPrefix(parts[1], "W") {
		week, err := strconv.Atoi(parts[1][1:])
		if err != nil || len(parts[1]) != 3 || week < 1 || week > isoWeeksInYear(year) {
			return Period{}, ValidationErrorf("invalid ISO week in %q", key)
		}
		return WeekPeriod(year, week), nil
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || month < 1 || month > 12 {
		return Period{}, ValidationErrorf("invalid month in %q", key)
	}
	return MonthPeriod(year, time.Month(month)), nil
}

// BiweeklyPeriod widens an ISO week into a two-week billing period when the
// week is aligned with the anchor date's week. ok is false for off weeks.
func BiweeklyPeriod(anchor time.Time, week Period) (Period, bool) {
	anchorWeek := PeriodForDate(PeriodWeek, anchor)
	diff := DaysBetween(anchorWeek.Start, week.Start)
	if diff < 0 || (diff/7)%2 != 0 {
		return Period{}, false
	}
	return Period{
		Kind:  PeriodWeek,
		Key:   week.Key,
		Start: week.Start,
		End:   week.Start.AddDate(0, 0, 14),
	}, true
}

// DueDate places billingDay inside the period, clamped to its length.
func DueDate(p Period, billingDay int) time.Time {
	day := billingDay
	if day > p.Days() {
		day = p.Days()
	}
	if day < 1 {
		day = 1
	}
	return p.Start.AddDate(0, 0, day-1)
}
