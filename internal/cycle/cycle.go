// Package cycle resolves budget cycles: the half-open interval between two
// consecutive occurrences of a user's reset day.
//
// A reset day larger than the month it falls in is clamped to that month's
// last day, so a reset day of 31 starts the February cycle on the 28th (or
// 29th). Every boundary in the system is built through this package.
package cycle

import (
	"fmt"
	"time"
)

const (
	MinResetDay = 1
	MaxResetDay = 31
)

// ValidResetDay reports whether d can be used as a reset day.
func ValidResetDay(d int) bool {
	return d >= MinResetDay && d <= MaxResetDay
}

// Month is a calendar month label, formatted as YYYY-MM.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month t falls in.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a YYYY-MM label.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}

	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	return m.add(1)
}

// Prev returns the preceding calendar month.
func (m Month) Prev() Month {
	return m.add(-1)
}

func (m Month) add(n int) Month {
	// Day 1 never overflows, so time.Date normalisation is exact here.
	return MonthOf(time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// daysIn returns the number of days in the month.
func (m Month) daysIn() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// boundary returns midnight of the reset day in month m, clamped to the
// month's last day.
func boundary(m Month, resetDay int, loc *time.Location) time.Time {
	day := min(resetDay, m.daysIn())
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, loc)
}

// Period is a half-open interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Month returns the label of the period, which is the month it starts in.
func (p Period) Month() Month {
	return MonthOf(p.Start)
}

// Previous returns the cycle immediately before p.
func (p Period) Previous(resetDay int) Period {
	return ForMonth(p.Month().Prev(), resetDay, p.Start.Location())
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s)", p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly))
}

// ForMonth returns the cycle that starts in month m.
func ForMonth(m Month, resetDay int, loc *time.Location) Period {
	return Period{
		Start: boundary(m, resetDay, loc),
		End:   boundary(m.Next(), resetDay, loc),
	}
}

// Current returns the cycle containing now. Boundaries use now's location.
func Current(now time.Time, resetDay int) Period {
	this := MonthOf(now)
	loc := now.Location()

	if !now.Before(boundary(this, resetDay, loc)) {
		return ForMonth(this, resetDay, loc)
	}

	return ForMonth(this.Prev(), resetDay, loc)
}

// Resolve returns the cycle for the given month, or the current cycle when
// month is nil.
func Resolve(now time.Time, resetDay int, month *Month) Period {
	if month != nil {
		return ForMonth(*month, resetDay, now.Location())
	}

	return Current(now, resetDay)
}
