package calendar

// =============================================================================
// PERIOD - A half-open range of days
// =============================================================================

// Period is the range [Start, End). A repayment period ending on the 15th
// accrues interest for the 14th but not the 15th; the next period starts there.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End).
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.Before(p.End)
}

// Days returns the number of days in the period.
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End)
}

func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + ")"
}

// Split cuts [start, end) into consecutive periods of n units each. The last
// period is clipped to end. Returns nil when n < 1 or end is not after start.
func Split(start, end Date, unit TemporalUnit, n int) []Period {
	if n < 1 || !end.After(start) {
		return nil
	}
	var periods []Period
	current := start
	for step := 1; current.Before(end); step++ {
		next := unit.Add(start, step*n)
		if next.After(end) {
			next = end
		}
		periods = append(periods, Period{Start: current, End: next})
		current = next
	}
	return periods
}
