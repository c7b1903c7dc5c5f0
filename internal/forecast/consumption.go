package forecast

import "github.com/shopspring/decimal"

// Consumption is the outcome of applying linked operation amounts to one
// budget period.
type Consumption struct {
	Budget    decimal.Decimal // nominal, signed
	Consumed  decimal.Decimal // sum of applied amounts, same sign as Budget
	Ignored   decimal.Decimal // sum of amounts with the opposite sign
	Remaining decimal.Decimal // what is still expected, never past zero
	Effective decimal.Decimal // what the period ends up costing: sign(Budget) * max(|Consumed|, |Budget|)
}

// Consume applies amounts to budget. Only amounts whose sign matches the
// budget count; the others are reported in Ignored and change nothing, so a
// refund linked to an expense budget cannot enlarge it.
func Consume(budget decimal.Decimal, amounts []decimal.Decimal) Consumption {
	c := Consumption{Budget: budget, Consumed: decimal.Zero, Ignored: decimal.Zero}
	sign := budget.Sign()
	for _, a := range amounts {
		if sign != 0 && a.Sign() == sign {
			c.Consumed = c.Consumed.Add(a)
		} else {
			c.Ignored = c.Ignored.Add(a)
		}
	}
	if c.Consumed.Abs().GreaterThanOrEqual(budget.Abs()) {
		c.Remaining = decimal.Zero
		c.Effective = c.Consumed
	} else {
		c.Remaining = budget.Sub(c.Consumed)
		c.Effective = budget
	}
	return c
}

// Exhausted reports whether nothing remains of the budget.
func (c Consumption) Exhausted() bool { return c.Remaining.IsZero() }
