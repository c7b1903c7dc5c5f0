// Package timerange models single and periodic date ranges and enumerates
// their iterations.
package timerange

import (
	"errors"
	"fmt"
	"iter"
)

// MaxIterations bounds every iteration sequence of an open-ended range.
const MaxIterations = 100_000

var (
	ErrNotPeriodic        = errors.New("time range is not periodic")
	ErrSplitNotAfterStart = errors.New("split date must be strictly after the range start")
	ErrSplitAfterEnd      = errors.New("split date is after the range end")
)

// TimeRange is an immutable date range. A single range covers
// [initial, initial+duration-1]. A periodic range repeats that window every
// period starting from initial, up to an optional inclusive end date.
// Iterations starting before notBefore are left out without moving the
// anchor, so month-end clamping never shifts later iterations.
type TimeRange struct {
	initial   Date
	duration  Period
	period    Period
	end       Date
	notBefore Date
}

// Single returns a one-off range starting at initial and lasting duration.
func Single(initial Date, duration Period) TimeRange {
	return TimeRange{initial: initial, duration: duration}
}

// Day returns a one-off range covering exactly one day.
func Day(d Date) TimeRange { return Single(d, Days(1)) }

// Periodic returns a repeating range. A zero end means open-ended.
func Periodic(initial Date, duration, period Period, end Date) TimeRange {
	return TimeRange{initial: initial, duration: duration, period: period, end: end}
}

// PeriodicDay returns a repeating range of one-day iterations.
func PeriodicDay(initial Date, period Period, end Date) TimeRange {
	return Periodic(initial, Days(1), period, end)
}

func (r TimeRange) InitialDate() Date { return r.initial }
func (r TimeRange) Duration() Period  { return r.duration }
func (r TimeRange) Period() Period    { return r.period }
func (r TimeRange) IsPeriodic() bool  { return !r.period.IsZero() }
func (r TimeRange) EndDate() Date     { return r.end }
func (r TimeRange) HasEndDate() bool  { return !r.end.IsZero() }
func (r TimeRange) IsZero() bool      { return r.initial.IsZero() }
func (r TimeRange) String() string    { return r.describe() }

// FirstDate is the start of the first iteration that is not cut off by
// NotBefore, or the zero date when there is none.
func (r TimeRange) FirstDate() Date {
	for it := range r.Iterations() {
		return it.initial
	}
	return Date{}
}

// skips reports whether an iteration starting at d is cut off.
func (r TimeRange) skips(d Date) bool {
	return !r.notBefore.IsZero() && d.Before(r.notBefore)
}

// Validate reports structural problems with the range.
func (r TimeRange) Validate() error {
	if r.initial.IsZero() {
		return errors.New("time range has no start date")
	}
	if err := r.duration.Validate(); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	if !r.IsPeriodic() {
		return nil
	}
	if err := r.period.Validate(); err != nil {
		return fmt.Errorf("period: %w", err)
	}
	if r.HasEndDate() && r.end.Before(r.initial) {
		return fmt.Errorf("end date %s is before start date %s", r.end, r.initial)
	}
	return nil
}

// LastDate is the last covered day. Open-ended periodic ranges return MaxDate.
func (r TimeRange) LastDate() Date {
	if !r.IsPeriodic() {
		return r.duration.AddTo(r.initial, 1).AddDays(-1)
	}
	if r.HasEndDate() {
		return r.end
	}
	return MaxDate
}

// TotalDays is the number of days in one iteration window.
func (r TimeRange) TotalDays() int {
	return r.duration.AddTo(r.initial, 1).DaysSince(r.initial)
}

// Contains reports whether d falls inside [InitialDate, LastDate].
func (r TimeRange) Contains(d Date) bool {
	return !d.Before(Latest(r.initial, r.notBefore)) && !d.After(r.LastDate())
}

// IsWithin reports whether d falls inside the range widened by before days
// at the start and after days at the end.
func (r TimeRange) IsWithin(d Date, before, after int) bool {
	return !d.Before(r.initial.AddDays(-before)) && !d.After(r.LastDate().AddDays(after))
}

// IsExpired reports whether the whole range is over at d.
func (r TimeRange) IsExpired(d Date) bool { return r.LastDate().Before(d) }

// IsFuture reports whether the range has not started at d.
func (r TimeRange) IsFuture(d Date) bool { return Latest(r.initial, r.notBefore).After(d) }

// Overlap returns the number of days of r that fall inside [from, to].
func (r TimeRange) Overlap(from, to Date) int {
	lo := Latest(r.initial, from)
	hi := Earliest(r.LastDate(), to)
	if hi.Before(lo) {
		return 0
	}
	return hi.DaysSince(lo) + 1
}

// iteration returns the k-th iteration window.
func (r TimeRange) iteration(k int) TimeRange {
	return Single(r.period.AddTo(r.initial, k), r.duration)
}

// inBounds reports whether iteration k starts on or before the end date.
func (r TimeRange) inBounds(k int) bool {
	if k >= MaxIterations {
		return false
	}
	if !r.HasEndDate() {
		return true
	}
	return !r.period.AddTo(r.initial, k).After(r.end)
}

// firstIndexEndingOnOrAfter returns the smallest k whose window ends on or
// after d.
func (r TimeRange) firstIndexEndingOnOrAfter(d Date) int {
	days := d.DaysSince(r.initial)
	if days <= 0 {
		return 0
	}
	k := min(days/r.period.maxDays(), MaxIterations)
	for k > 0 && !r.iteration(k-1).LastDate().Before(d) {
		k--
	}
	for k < MaxIterations && r.iteration(k).LastDate().Before(d) {
		k++
	}
	return k
}

// Iterate yields every iteration whose window overlaps [from, to]. A zero
// from starts at the first iteration; a zero to runs until the end date or
// MaxIterations. Single ranges yield themselves at most once. The sequence
// holds no state and can be ranged over any number of times.
func (r TimeRange) Iterate(from, to Date) iter.Seq[TimeRange] {
	return func(yield func(TimeRange) bool) {
		if !r.IsPeriodic() {
			if r.skips(r.initial) {
				return
			}
			if (from.IsZero() || !r.LastDate().Before(from)) && (to.IsZero() || !r.initial.After(to)) {
				yield(r)
			}
			return
		}
		lower := from
		if !r.notBefore.IsZero() && (lower.IsZero() || lower.Before(r.notBefore)) {
			lower = r.notBefore
		}
		k := 0
		if !lower.IsZero() {
			k = r.firstIndexEndingOnOrAfter(lower)
		}
		for ; r.inBounds(k); k++ {
			it := r.iteration(k)
			if !to.IsZero() && it.initial.After(to) {
				return
			}
			if r.skips(it.initial) {
				continue
			}
			if !yield(it) {
				return
			}
		}
	}
}

// Iterations yields all iterations starting from the first one.
func (r TimeRange) Iterations() iter.Seq[TimeRange] { return r.Iterate(Date{}, Date{}) }

// Current returns the iteration whose window contains d.
func (r TimeRange) Current(d Date) (TimeRange, bool) {
	return r.CurrentWithin(d, 0, 0)
}

// CurrentWithin returns the earliest iteration whose window, widened by
// before and after days, contains d.
func (r TimeRange) CurrentWithin(d Date, before, after int) (TimeRange, bool) {
	for it := range r.Iterate(d.AddDays(-after), d.AddDays(before)) {
		if it.IsWithin(d, before, after) {
			return it, true
		}
	}
	return TimeRange{}, false
}

// Next returns the first iteration starting strictly after d.
func (r TimeRange) Next(d Date) (TimeRange, bool) {
	for it := range r.Iterate(d, Date{}) {
		if it.initial.After(d) {
			return it, true
		}
	}
	return TimeRange{}, false
}

// Last returns the latest iteration starting on or before d.
func (r TimeRange) Last(d Date) (TimeRange, bool) {
	if !r.IsPeriodic() {
		return r, !r.initial.After(d)
	}
	if r.HasEndDate() && r.end.Before(d) {
		d = r.end
	}
	var (
		last  TimeRange
		found bool
	)
	for it := range r.Iterate(d.AddDays(-(r.period.maxDays() + r.TotalDays())), d) {
		last, found = it, true
	}
	return last, found
}

// IsIterationStart reports whether some iteration begins exactly on d.
func (r TimeRange) IsIterationStart(d Date) bool {
	it, ok := r.Last(d)
	return ok && it.initial == d
}

// WithInitialDate returns a copy starting at d.
func (r TimeRange) WithInitialDate(d Date) TimeRange {
	r.initial = d
	return r
}

// NotBefore returns a copy without the iterations starting before d. Every
// remaining iteration keeps the date it has in r.
func (r TimeRange) NotBefore(d Date) TimeRange {
	r.notBefore = d
	return r
}

// WithDuration returns a copy with a new iteration length.
func (r TimeRange) WithDuration(p Period) TimeRange {
	r.duration = p
	return r
}

// WithPeriod returns a copy with a new period. A zero period makes it single.
func (r TimeRange) WithPeriod(p Period) TimeRange {
	r.period = p
	return r
}

// WithEndDate returns a copy ending at d. A zero d removes the end.
func (r TimeRange) WithEndDate(d Date) TimeRange {
	r.end = d
	return r
}

// SplitAt cuts a periodic range at d. The head keeps the original cadence and
// ends the day before d; the tail starts on d and keeps the original end.
func (r TimeRange) SplitAt(d Date) (head, tail TimeRange, err error) {
	if !r.IsPeriodic() {
		return TimeRange{}, TimeRange{}, ErrNotPeriodic
	}
	if !d.After(r.initial) {
		return TimeRange{}, TimeRange{}, ErrSplitNotAfterStart
	}
	if r.HasEndDate() && d.After(r.end) {
		return TimeRange{}, TimeRange{}, ErrSplitAfterEnd
	}
	return r.WithEndDate(d.AddDays(-1)), r.WithInitialDate(d), nil
}

func (r TimeRange) describe() string {
	if !r.IsPeriodic() {
		if r.duration == Days(1) {
			return r.initial.String()
		}
		return fmt.Sprintf("%s..%s", r.initial, r.LastDate())
	}
	end := "open"
	if r.HasEndDate() {
		end = r.end.String()
	}
	if !r.notBefore.IsZero() {
		return fmt.Sprintf("every %s from %s until %s, not before %s", r.period, r.initial, end, r.notBefore)
	}
	return fmt.Sprintf("every %s from %s until %s", r.period, r.initial, end)
}
