/*
Package calendar provides day-granular dates and periods.

PURPOSE:
  Loan schedules are expressed in calendar days: the disbursement date, the
  start of term, repayment period boundaries. Ledger entries carry full
  timestamps, but every schedule comparison happens at day granularity.

KEY CONCEPTS:
  - Date: A calendar day in UTC (the time-of-day is always midnight)
  - Period: A half-open range of days [Start, End)
  - TemporalUnit: weeks, months or years, used to step through a term

SEE ALSO:
  - period.go: Period arithmetic
  - lending/schedule.go: Builds repayment periods from a case's term
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - A calendar day
// =============================================================================

// Date is a calendar day. The zero value is the zero time.
type Date struct {
	t time.Time
}

// Layout is the textual form of a Date.
const Layout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar day in t's own location.
func FromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current day as reported by now.
func Today(now func() time.Time) Date {
	if now == nil {
		now = time.Now
	}
	return FromTime(now().UTC())
}

// Parse reads a date in YYYY-MM-DD form.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustParse is Parse for tests and fixtures.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddWeeks(n int) Date  { return Date{t: d.t.AddDate(0, 0, 7*n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{t: d.t.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }

// StartOfDay is the first instant of the day in UTC.
func (d Date) StartOfDay() time.Time { return d.t }

func (d Date) String() string { return d.t.Format(Layout) }

// DaysBetween counts whole days from 'from' to 'to'. Negative when to is earlier.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// =============================================================================
// TEMPORAL UNIT - Step size for terms and payment cycles
// =============================================================================

type TemporalUnit string

const (
	Weeks  TemporalUnit = "weeks"
	Months TemporalUnit = "months"
	Years  TemporalUnit = "years"
)

// Add steps d forward by n units. Unknown units step by months.
func (u TemporalUnit) Add(d Date, n int) Date {
	switch u {
	case Weeks:
		return d.AddWeeks(n)
	case Years:
		return d.AddYears(n)
	default:
		return d.AddMonths(n)
	}
}

// Valid reports whether u is one of the known units.
func (u TemporalUnit) Valid() bool {
	return u == Weeks || u == Months || u == Years
}
