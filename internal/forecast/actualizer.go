// Package forecast turns targets, operations and links into an actualized
// forecast and projects the account balance from it.
package forecast

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// DefaultPostponeHorizonDays is how long an unsettled iteration keeps being
// carried forward before it is dropped.
const DefaultPostponeHorizonDays = 62

// Status is the state of one target iteration relative to the balance date.
type Status string

const (
	StatusPending    Status = "pending"    // not due yet
	StatusActualized Status = "actualized" // settled by a link
	StatusLate       Status = "late"       // due, unlinked, still inside the date tolerance
	StatusPostponed  Status = "postponed"  // tolerance exceeded, carried forward
	StatusSkipped    Status = "skipped"    // superseded, too old, or a budget period that elapsed with nothing linked
)

// IterationState describes one iteration of a target.
type IterationState struct {
	Iteration  timerange.TimeRange
	Status     Status
	Planned    decimal.Decimal
	Actual     decimal.Decimal
	Operations []int64
}

// Amount is the figure downstream code uses: the actual amount as soon as a
// link settles the iteration, the planned amount otherwise.
func (s IterationState) Amount() decimal.Decimal {
	if s.Status == StatusActualized && len(s.Operations) > 0 {
		return s.Actual
	}
	return s.Planned
}

// Settings tunes actualization.
type Settings struct {
	PostponeHorizonDays int
}

// Actualizer rewrites targets so they only describe what has not happened
// yet at the balance date.
type Actualizer struct {
	balanceDate timerange.Date
	horizon     int
	links       map[model.TargetKey]map[timerange.Date][]model.Link
	lastLinked  map[model.TargetKey]timerange.Date
	operations  map[int64]model.Operation
	logger      *slog.Logger
}

func NewActualizer(balanceDate timerange.Date, links []model.Link, ops []model.Operation, settings Settings, logger *slog.Logger) *Actualizer {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.PostponeHorizonDays <= 0 {
		settings.PostponeHorizonDays = DefaultPostponeHorizonDays
	}
	a := &Actualizer{
		balanceDate: balanceDate,
		horizon:     settings.PostponeHorizonDays,
		links:       make(map[model.TargetKey]map[timerange.Date][]model.Link),
		lastLinked:  make(map[model.TargetKey]timerange.Date),
		operations:  make(map[int64]model.Operation, len(ops)),
		logger:      logger,
	}
	for _, op := range ops {
		a.operations[op.ID] = op
	}
	for _, l := range links {
		byDate := a.links[l.Target]
		if byDate == nil {
			byDate = make(map[timerange.Date][]model.Link)
			a.links[l.Target] = byDate
		}
		byDate[l.IterationDate] = append(byDate[l.IterationDate], l)
		if last, ok := a.lastLinked[l.Target]; !ok || l.IterationDate.After(last) {
			a.lastLinked[l.Target] = l.IterationDate
		}
	}
	return a
}

// linkedAmounts returns the amounts and ids of operations linked to one
// iteration of t.
func (a *Actualizer) linkedAmounts(key model.TargetKey, iteration timerange.Date) ([]decimal.Decimal, []int64) {
	var (
		amounts []decimal.Decimal
		ids     []int64
	)
	for _, l := range a.links[key][iteration] {
		op, ok := a.operations[l.OperationID]
		if !ok {
			continue
		}
		amounts = append(amounts, op.Amount)
		ids = append(ids, op.ID)
	}
	return amounts, ids
}

// State classifies one iteration of t.
func (a *Actualizer) State(t model.Target, it timerange.TimeRange) IterationState {
	amounts, ids := a.linkedAmounts(t.Key(), it.InitialDate())
	st := IterationState{Iteration: it, Planned: t.Amount, Actual: decimal.Zero, Operations: ids}
	if t.IsBudget() {
		c := Consume(t.Amount, amounts)
		st.Actual = c.Consumed
		switch {
		case it.LastDate().After(a.balanceDate):
			st.Status = StatusPending
		case len(ids) > 0:
			st.Status = StatusActualized
		default:
			st.Status = StatusSkipped
		}
		return st
	}
	for _, amt := range amounts {
		st.Actual = st.Actual.Add(amt)
	}
	st.Status = a.plannedStatus(t, it, len(ids) > 0)
	return st
}

func (a *Actualizer) plannedStatus(t model.Target, it timerange.TimeRange, linked bool) Status {
	switch {
	case linked:
		return StatusActualized
	case it.InitialDate().After(a.balanceDate):
		return StatusPending
	}
	if last, ok := a.lastLinked[t.Key()]; ok && last.After(it.InitialDate()) {
		return StatusSkipped
	}
	age := a.balanceDate.DaysSince(it.LastDate())
	switch {
	case age <= t.Match.DateWindow:
		return StatusLate
	case age <= a.horizon:
		return StatusPostponed
	}
	return StatusSkipped
}

// States lists the iterations of t overlapping [from, to].
func (a *Actualizer) States(t model.Target, from, to timerange.Date) []IterationState {
	var out []IterationState
	for it := range t.Range.Iterate(from, to) {
		out = append(out, a.State(t, it))
	}
	return out
}

// Actualize returns the forecast of what is still to come after the balance
// date. Archived targets are left out.
func (a *Actualizer) Actualize(f model.Forecast) model.Forecast {
	var out model.Forecast
	for _, t := range f.Targets {
		if t.Archived {
			continue
		}
		var next []model.Target
		if t.IsBudget() {
			next = a.actualizeBudget(t)
		} else {
			next = a.actualizePlanned(t)
		}
		a.logger.Debug("target actualized", "target", t.Key().String(), "outputs", len(next))
		out.Targets = append(out.Targets, next...)
	}
	return out
}

// carried returns a one-day copy of t due the day after the balance date.
func (a *Actualizer) carried(t model.Target, amount decimal.Decimal) model.Target {
	c := t
	c.Amount = amount
	c.Range = timerange.Single(a.balanceDate.AddDays(1), t.Range.Duration())
	return c
}

func (a *Actualizer) actualizePlanned(t model.Target) []model.Target {
	var out []model.Target
	lookback := max(t.Match.DateWindow, a.horizon)
	for it := range t.Range.Iterate(a.balanceDate.AddDays(-lookback), a.balanceDate) {
		st := a.State(t, it)
		switch st.Status {
		case StatusLate, StatusPostponed:
			a.logger.Debug("iteration carried forward",
				"target", t.Key().String(), "iteration_date", it.InitialDate().String(), "status", string(st.Status))
			out = append(out, a.carried(t, t.Amount))
		}
	}
	if !t.IsPeriodic() {
		if t.Range.IsFuture(a.balanceDate) && a.State(t, t.Range).Status == StatusPending {
			out = append(out, t)
		}
		return out
	}
	settled := a.balanceDate
	if last, ok := a.lastLinked[t.Key()]; ok {
		settled = timerange.Latest(settled, last)
	}
	if nxt, ok := t.Range.Next(settled); ok {
		c := t
		c.Range = t.Range.NotBefore(nxt.InitialDate())
		out = append(out, c)
	}
	return out
}

func (a *Actualizer) actualizeBudget(t model.Target) []model.Target {
	b := a.balanceDate
	if !t.Range.LastDate().After(b) {
		return nil
	}
	if t.Range.IsFuture(b) {
		return []model.Target{t}
	}
	var out []model.Target
	if cur, ok := t.Range.Current(b); ok && cur.LastDate().After(b) {
		amounts, _ := a.linkedAmounts(t.Key(), cur.InitialDate())
		c := Consume(t.Amount, amounts)
		if !c.Exhausted() {
			rest := t
			rest.Amount = c.Remaining
			rest.Range = timerange.Single(b.AddDays(1), timerange.Days(cur.LastDate().DaysSince(b)))
			out = append(out, rest)
		}
		a.logger.Debug("budget consumption",
			"target", t.Key().String(), "consumed", c.Consumed.String(),
			"ignored", c.Ignored.String(), "remaining", c.Remaining.String(),
			"effective", c.Effective.String())
	}
	if !t.IsPeriodic() {
		return out
	}
	if nxt, ok := t.Range.Next(b); ok {
		c := t
		c.Range = t.Range.NotBefore(nxt.InitialDate())
		out = append(out, c)
	}
	return out
}
