// Package period derives accounting periods from a company's fiscal year-end.
package period

import "time"

// DateLayout is the wire format for period boundaries
const DateLayout = "2006-01-02"

// Range is an inclusive [Start, End] span of calendar dates (UTC midnight)
type Range struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two inclusive ranges share at least one day
func (r Range) Overlaps(other Range) bool {
	return !r.End.Before(other.Start) && !other.End.Before(r.Start)
}

// ValidYearEnd reports whether month/day can name a recurring year-end.
// 29 February is accepted and clamped in non-leap years.
func ValidYearEnd(month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	return day <= daysIn(2024, time.Month(month)) // 2024 is a leap year
}

// YearEnd returns the year-end date in the given year. A day past the end of
// the month (29 Feb in a non-leap year) is clamped to the month's last day.
func YearEnd(year, month, day int) time.Time {
	m := time.Month(month)
	if last := daysIn(year, m); day > last {
		day = last
	}
	return time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
}

// MostRecentYearEndYear is the current year, or the previous one when today
// falls before this year's year-end.
func MostRecentYearEndYear(month, day int, now time.Time) int {
	today := Truncate(now)
	if today.Before(YearEnd(today.Year(), month, day)) {
		return today.Year() - 1
	}
	return today.Year()
}

// Generate returns the upcoming period followed by the two most recently
// completed ones. An invalid year-end yields no periods.
func Generate(month, day int, now time.Time) []Range {
	if !ValidYearEnd(month, day) {
		return nil
	}

	y := MostRecentYearEndYear(month, day, now)
	span := func(endYear int) Range {
		return Range{
			Start: YearEnd(endYear-1, month, day).AddDate(0, 0, 1),
			End:   YearEnd(endYear, month, day),
		}
	}

	return []Range{span(y + 1), span(y), span(y - 1)}
}

// Next returns the period that follows the one ending on end
func Next(month, day int, end time.Time) Range {
	end = Truncate(end)
	return Range{
		Start: end.AddDate(0, 0, 1),
		End:   YearEnd(end.Year()+1, month, day),
	}
}

// Truncate drops the clock part of t, keeping its calendar date in UTC
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD boundary
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
