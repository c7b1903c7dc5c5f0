package forecast

import (
	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// Projector computes the account balance at any date from a known balance,
// the recorded operations and an actualized forecast. It holds no clock:
// the same inputs always give the same balance.
type Projector struct {
	account    model.Account
	operations []model.Operation
	forecast   model.Forecast
}

func NewProjector(account model.Account, ops []model.Operation, actualized model.Forecast) *Projector {
	return &Projector{account: account, operations: ops, forecast: actualized}
}

// StateAt returns the balance at the end of day d.
//
// Before the balance date the balance is rebuilt backwards by removing the
// operations dated after d up to the balance date. After it, every forecast
// iteration contributes its amount spread evenly over its days, counting
// only the days up to d.
func (p *Projector) StateAt(d timerange.Date) decimal.Decimal {
	b := p.account.BalanceDate
	switch {
	case d.Before(b):
		return p.account.Balance.Sub(p.operationsBetween(d, b))
	case d.After(b):
		return p.account.Balance.Add(p.forecastBetween(b.AddDays(1), d))
	}
	return p.account.Balance
}

// operationsBetween sums operations dated in (from, to].
func (p *Projector) operationsBetween(from, to timerange.Date) decimal.Decimal {
	sum := decimal.Zero
	for _, op := range p.operations {
		if op.Date.After(from) && !op.Date.After(to) {
			sum = sum.Add(op.Amount)
		}
	}
	return sum
}

// forecastBetween sums the forecast share falling in [from, to].
func (p *Projector) forecastBetween(from, to timerange.Date) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range p.forecast.Targets {
		sum = sum.Add(t.AmountOnPeriod(from, to))
	}
	return sum
}

// Point is one day of a balance series.
type Point struct {
	Date    timerange.Date
	Balance decimal.Decimal
}

// Evolution returns the end-of-day balance for every day in [from, to].
func (p *Projector) Evolution(from, to timerange.Date) []Point {
	if to.Before(from) {
		return nil
	}
	out := make([]Point, 0, to.DaysSince(from)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		out = append(out, Point{Date: d, Balance: p.StateAt(d)})
	}
	return out
}
