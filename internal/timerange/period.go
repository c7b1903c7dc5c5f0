package timerange

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is the calendar unit of a Period.
type Unit string

const (
	UnitDay   Unit = "days"
	UnitWeek  Unit = "weeks"
	UnitMonth Unit = "months"
	UnitYear  Unit = "years"
)

// Period is a calendar step such as "1 month" or "2 weeks". It is used both
// for the spacing between iterations and for the length of one iteration.
type Period struct {
	Value int
	Unit  Unit
}

func Days(n int) Period   { return Period{n, UnitDay} }
func Weeks(n int) Period  { return Period{n, UnitWeek} }
func Months(n int) Period { return Period{n, UnitMonth} }
func Years(n int) Period  { return Period{n, UnitYear} }

// IsZero reports whether p is the zero value (no period).
func (p Period) IsZero() bool { return p.Value == 0 && p.Unit == "" }

// Validate checks that p is a usable step.
func (p Period) Validate() error {
	if p.Value <= 0 {
		return fmt.Errorf("period value must be positive, got %d", p.Value)
	}
	switch p.Unit {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return nil
	}
	return fmt.Errorf("unknown period unit %q", p.Unit)
}

// AddTo returns d advanced by n steps of p. Steps are always counted from d,
// never chained, so month-end clamping does not drift.
func (p Period) AddTo(d Date, n int) Date {
	switch p.Unit {
	case UnitDay:
		return d.AddDays(n * p.Value)
	case UnitWeek:
		return d.AddDays(7 * n * p.Value)
	case UnitMonth:
		return d.AddMonths(n * p.Value)
	case UnitYear:
		return d.AddMonths(12 * n * p.Value)
	}
	return d
}

// maxDays is an upper bound on the length of one step, used to estimate
// iteration indexes without overshooting.
func (p Period) maxDays() int {
	switch p.Unit {
	case UnitWeek:
		return 7 * p.Value
	case UnitMonth:
		return 31 * p.Value
	case UnitYear:
		return 366 * p.Value
	}
	return p.Value
}

func (p Period) String() string {
	if p.IsZero() {
		return "-"
	}
	unit := strings.TrimSuffix(string(p.Unit), "s")
	if p.Value == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", p.Value, unit)
}

// ParsePeriod accepts compact forms ("1m", "2w", "10d", "1y") as well as
// "<n> <unit>" ("3 months").
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Period{}, fmt.Errorf("empty period")
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return Period{}, fmt.Errorf("invalid period %q: missing count", s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	var unit Unit
	switch strings.TrimSpace(s[i:]) {
	case "d", "day", "days":
		unit = UnitDay
	case "w", "week", "weeks":
		unit = UnitWeek
	case "m", "month", "months":
		unit = UnitMonth
	case "y", "year", "years":
		unit = UnitYear
	default:
		return Period{}, fmt.Errorf("invalid period %q: unit must be d, w, m or y", s)
	}
	p := Period{n, unit}
	return p, p.Validate()
}
