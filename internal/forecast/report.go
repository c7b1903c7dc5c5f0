package forecast

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// CategoryMonth is one cell of the monthly budget report.
type CategoryMonth struct {
	Month     timerange.Date // first day of the month
	Category  model.Category
	Planned   decimal.Decimal // what the raw forecast expects for the month
	Actual    decimal.Decimal // recorded operations attributed to the month
	Projected decimal.Decimal // Actual plus what is still expected
}

// ReportInput is the snapshot the report is computed from.
type ReportInput struct {
	BalanceDate timerange.Date
	Targets     []model.Target // raw, as stored
	Actualized  model.Forecast
	Operations  []model.Operation
	Links       []model.Link
}

// BuildReport summarises [from, to] per month and category. A linked
// operation counts in the month of its iteration rather than its own date,
// so a rent paid on the 30th still lands in the month it settles.
func BuildReport(in ReportInput, from, to timerange.Date) []CategoryMonth {
	type key struct {
		month    timerange.Date
		category model.Category
	}
	cells := make(map[key]*CategoryMonth)
	cell := func(month timerange.Date, cat model.Category) *CategoryMonth {
		k := key{month.FirstOfMonth(), cat}
		c, ok := cells[k]
		if !ok {
			c = &CategoryMonth{Month: k.month, Category: cat, Planned: decimal.Zero, Actual: decimal.Zero, Projected: decimal.Zero}
			cells[k] = c
		}
		return c
	}

	var months []timerange.Date
	for m := from.FirstOfMonth(); !m.After(to); m = m.AddMonths(1) {
		months = append(months, m)
	}

	linkFor := make(map[int64]model.Link, len(in.Links))
	for _, l := range in.Links {
		linkFor[l.OperationID] = l
	}
	for _, op := range in.Operations {
		when := op.Date
		if l, ok := linkFor[op.ID]; ok {
			when = l.IterationDate
		}
		if when.Before(from.FirstOfMonth()) || when.After(to) {
			continue
		}
		c := cell(when, op.Category)
		c.Actual = c.Actual.Add(op.Amount)
	}

	for _, m := range months {
		end := m.LastOfMonth()
		for _, t := range in.Targets {
			if t.Archived {
				continue
			}
			if amt := t.AmountOnPeriod(m, end); !amt.IsZero() {
				c := cell(m, t.Category)
				c.Planned = c.Planned.Add(amt)
			}
		}
		if !end.After(in.BalanceDate) {
			continue
		}
		start := timerange.Latest(m, in.BalanceDate.AddDays(1))
		for _, t := range in.Actualized.Targets {
			if amt := t.AmountOnPeriod(start, end); !amt.IsZero() {
				c := cell(m, t.Category)
				c.Projected = c.Projected.Add(amt)
			}
		}
	}

	out := make([]CategoryMonth, 0, len(cells))
	for _, c := range cells {
		c.Projected = c.Projected.Add(c.Actual)
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b CategoryMonth) int {
		if n := a.Month.Compare(b.Month); n != 0 {
			return n
		}
		return strings.Compare(string(a.Category), string(b.Category))
	})
	return out
}
