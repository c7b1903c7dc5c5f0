package timerange

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the ISO-8601 layout used to store and print dates.
const DateFormat = "2006-01-02"

const readDateFormat = "2006-1-2" // permissive, allows single-digit month/day

// Date represents a calendar day with no time or zone component.
type Date struct {
	y int
	m time.Month
	d int
}

// MaxDate stands in for "no end" on open-ended ranges.
var MaxDate = Date{9999, time.December, 31}

// NewDate returns a normalized Date for the given year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime truncates t to its calendar day in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{y, m, d}
}

// Today returns the current local date. Computation packages never call it;
// the current day is always passed in by the caller.
func Today() Date { return FromTime(time.Now()) }

// ParseDate parses YYYY-MM-DD, tolerating single-digit month and day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(readDateFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return FromTime(t), nil
}

// MustParse is ParseDate for literals known to be valid.
func MustParse(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int              { return d.y }
func (d Date) Month() time.Month      { return d.m }
func (d Date) Day() int               { return d.d }
func (d Date) IsZero() bool           { return d.y == 0 && d.m == 0 && d.d == 0 }
func (d Date) Time() time.Time        { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }
func (d Date) String() string         { return d.Time().Format(DateFormat) }
func (d Date) Format(l string) string { return d.Time().Format(l) }

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.Compare(x) < 0 }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.Compare(x) > 0 }

// Compare returns -1, 0 or +1.
func (d Date) Compare(x Date) int {
	switch {
	case d.y != x.y:
		return sign(d.y - x.y)
	case d.m != x.m:
		return sign(int(d.m) - int(x.m))
	default:
		return sign(d.d - x.d)
	}
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return NewDate(d.y, d.m, d.d+n) }

// AddMonths shifts d by n months, clamping the day to the end of the target
// month (Jan 31 + 1 month = Feb 28 or 29).
func (d Date) AddMonths(n int) Date {
	total := int(d.m) - 1 + n
	y := d.y + floorDiv(total, 12)
	m := time.Month(total - floorDiv(total, 12)*12 + 1)
	return Date{y, m, min(d.d, daysIn(y, m))}
}

// DaysSince returns the number of days from x to d (negative when d is before x).
func (d Date) DaysSince(x Date) int { return d.ordinal() - x.ordinal() }

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date { return Date{d.y, d.m, 1} }

// LastOfMonth returns the last day of d's month.
func (d Date) LastOfMonth() Date { return Date{d.y, d.m, daysIn(d.y, d.m)} }

// Value stores dates as TEXT.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan accepts the forms the sqlite driver hands back for DATE columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v.UTC())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateFormat) {
		s = s[:len(DateFormat)]
	}
	p, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// Earliest returns the earlier of a and b.
func Earliest(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

// Latest returns the later of a and b.
func Latest(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// ordinal counts days since the Unix epoch.
func (d Date) ordinal() int {
	return int(floorDiv64(d.Time().Unix(), 86400))
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
