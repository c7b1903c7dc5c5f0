package forecast

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

var day = timerange.MustParse

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func rentTarget() model.Target {
	return model.Target{
		Kind:        model.KindPlanned,
		ID:          1,
		Description: "Rent",
		Amount:      dec(-800),
		Category:    "rent",
		Range:       timerange.PeriodicDay(day("2025-01-05"), timerange.Months(1), timerange.Date{}),
		Match:       model.DefaultMatchParams(model.KindPlanned),
	}
}

func groceriesBudget() model.Target {
	return model.Target{
		Kind:        model.KindBudget,
		ID:          1,
		Description: "Groceries",
		Amount:      dec(-500),
		Category:    "groceries",
		Range:       timerange.Periodic(day("2025-01-01"), timerange.Months(1), timerange.Months(1), timerange.Date{}),
		Match:       model.DefaultMatchParams(model.KindBudget),
	}
}

func operation(id int64, date string, amount int64, cat model.Category) model.Operation {
	return model.Operation{ID: id, Date: day(date), Amount: dec(amount), Category: cat, Description: "op"}
}

func link(opID int64, t model.Target, iteration string) model.Link {
	return model.Link{OperationID: opID, Target: t.Key(), IterationDate: day(iteration)}
}

func TestConsumeSignAware(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		budget    int64
		amounts   []int64
		remaining int64
		effective int64
		ignored   int64
	}{
		{"partial", -500, []int64{-80, -120}, -300, -500, 0},
		{"refund ignored", -500, []int64{-80, -120, 30}, -300, -500, 30},
		{"only refund", -500, []int64{30}, -500, -500, 30},
		{"exactly consumed", -500, []int64{-500}, 0, -500, 0},
		{"over consumed", -500, []int64{-450, -150}, 0, -600, 0},
		{"income budget", 300, []int64{100, -40}, 200, 300, -40},
		{"nothing linked", -500, nil, -500, -500, 0},
	}
	for _, c := range cases {
		amounts := make([]decimal.Decimal, 0, len(c.amounts))
		for _, a := range c.amounts {
			amounts = append(amounts, dec(a))
		}
		got := Consume(dec(c.budget), amounts)
		assert.True(t, dec(c.remaining).Equal(got.Remaining), "%s remaining: %s", c.name, got.Remaining)
		assert.True(t, dec(c.effective).Equal(got.Effective), "%s effective: %s", c.name, got.Effective)
		assert.True(t, dec(c.ignored).Equal(got.Ignored), "%s ignored: %s", c.name, got.Ignored)
	}
}

func TestOppositeSignNeverChangesRemaining(t *testing.T) {
	t.Parallel()
	base := []decimal.Decimal{dec(-80), dec(-120)}
	want := Consume(dec(-500), base).Remaining
	for _, refund := range []int64{1, 30, 500, 10_000} {
		got := Consume(dec(-500), append(base, dec(refund))).Remaining
		assert.True(t, want.Equal(got), "refund %d changed remaining to %s", refund, got)
	}
}

// Monthly rent, January settled by a payment two days late.
func TestLinkedIterationIsActualized(t *testing.T) {
	t.Parallel()
	rent := rentTarget()
	ops := []model.Operation{operation(1, "2025-01-07", -800, "rent")}
	a := NewActualizer(day("2025-01-10"), []model.Link{link(1, rent, "2025-01-05")}, ops, Settings{}, nil)

	states := a.States(rent, day("2025-01-01"), day("2025-02-28"))
	require.Len(t, states, 2)
	assert.Equal(t, StatusActualized, states[0].Status)
	assert.True(t, dec(-800).Equal(states[0].Amount()))
	assert.Equal(t, []int64{1}, states[0].Operations)
	assert.Equal(t, StatusPending, states[1].Status)
	assert.True(t, dec(-800).Equal(states[1].Amount()))

	f := a.Actualize(model.Forecast{Targets: []model.Target{rent}})
	require.Len(t, f.Targets, 1)
	assert.Equal(t, day("2025-02-05"), f.Targets[0].Range.FirstDate())
	assert.True(t, f.Targets[0].Range.IsPeriodic())
}

func TestActualAmountReplacesPlanned(t *testing.T) {
	t.Parallel()
	rent := rentTarget()
	ops := []model.Operation{operation(1, "2025-01-05", -815, "rent")}
	a := NewActualizer(day("2025-01-10"), []model.Link{link(1, rent, "2025-01-05")}, ops, Settings{}, nil)
	st := a.State(rent, timerange.Day(day("2025-01-05")))
	assert.True(t, dec(-815).Equal(st.Amount()))
}

func TestLateAndPostponed(t *testing.T) {
	t.Parallel()
	rent := rentTarget()
	ops := []model.Operation{operation(1, "2025-01-05", -800, "rent")}
	links := []model.Link{link(1, rent, "2025-01-05")}

	late := NewActualizer(day("2025-02-08"), links, ops, Settings{}, nil)
	feb := timerange.Day(day("2025-02-05"))
	assert.Equal(t, StatusLate, late.State(rent, feb).Status)

	f := late.Actualize(model.Forecast{Targets: []model.Target{rent}})
	require.Len(t, f.Targets, 2)
	assert.Equal(t, timerange.Day(day("2025-02-09")), f.Targets[0].Range)
	assert.True(t, dec(-800).Equal(f.Targets[0].Amount))
	assert.Equal(t, day("2025-03-05"), f.Targets[1].Range.FirstDate())

	postponed := NewActualizer(day("2025-02-20"), links, ops, Settings{}, nil)
	assert.Equal(t, StatusPostponed, postponed.State(rent, feb).Status)
	f = postponed.Actualize(model.Forecast{Targets: []model.Target{rent}})
	require.Len(t, f.Targets, 2)
	assert.Equal(t, timerange.Day(day("2025-02-21")), f.Targets[0].Range)
}

// Salary due on the 31st: February clamps to the 28th, March is back on the 31st.
func TestMonthEndTargetKeepsItsDays(t *testing.T) {
	t.Parallel()
	salary := model.Target{
		Kind:        model.KindPlanned,
		ID:          2,
		Description: "Salary",
		Amount:      dec(2500),
		Category:    "salary",
		Range:       timerange.PeriodicDay(day("2025-01-31"), timerange.Months(1), timerange.Date{}),
		Match:       model.DefaultMatchParams(model.KindPlanned),
	}
	ops := []model.Operation{operation(1, "2025-01-31", 2500, "salary")}
	a := NewActualizer(day("2025-02-01"), []model.Link{link(1, salary, "2025-01-31")}, ops, Settings{}, nil)

	f := a.Actualize(model.Forecast{Targets: []model.Target{salary}})
	require.Len(t, f.Targets, 1)
	next := f.Targets[0].Range
	assert.Equal(t, day("2025-02-28"), next.FirstDate())

	var got []string
	for it := range next.Iterate(day("2025-03-01"), day("2025-05-31")) {
		got = append(got, it.InitialDate().String())
	}
	assert.Equal(t, []string{"2025-03-31", "2025-04-30", "2025-05-31"}, got)

	p := NewProjector(model.Account{Name: "Main", Balance: dec(0), BalanceDate: day("2025-02-01")}, ops, f)
	assert.Equal(t, "2500.00", p.StateAt(day("2025-03-29")).StringFixed(2))
	assert.Equal(t, "2500.00", p.StateAt(day("2025-03-30")).StringFixed(2))
	assert.Equal(t, "5000.00", p.StateAt(day("2025-03-31")).StringFixed(2))
}

func TestPostponeHorizon(t *testing.T) {
	t.Parallel()
	rent := rentTarget()
	a := NewActualizer(day("2025-06-01"), nil, nil, Settings{PostponeHorizonDays: 62}, nil)

	statuses := map[string]Status{}
	for _, st := range a.States(rent, day("2025-01-01"), day("2025-06-30")) {
		statuses[st.Iteration.InitialDate().String()] = st.Status
	}
	assert.Equal(t, map[string]Status{
		"2025-01-05": StatusSkipped,
		"2025-02-05": StatusSkipped,
		"2025-03-05": StatusSkipped,
		"2025-04-05": StatusPostponed,
		"2025-05-05": StatusPostponed,
		"2025-06-05": StatusPending,
	}, statuses)

	f := a.Actualize(model.Forecast{Targets: []model.Target{rent}})
	require.Len(t, f.Targets, 3)
	assert.Equal(t, timerange.Day(day("2025-06-02")), f.Targets[0].Range)
	assert.Equal(t, timerange.Day(day("2025-06-02")), f.Targets[1].Range)
	assert.Equal(t, day("2025-06-05"), f.Targets[2].Range.FirstDate())
}

func TestLaterSettlementSupersedesMissedIteration(t *testing.T) {
	t.Parallel()
	rent := rentTarget()
	ops := []model.Operation{operation(1, "2025-02-05", -800, "rent")}
	a := NewActualizer(day("2025-02-10"), []model.Link{link(1, rent, "2025-02-05")}, ops, Settings{}, nil)
	assert.Equal(t, StatusSkipped, a.State(rent, timerange.Day(day("2025-01-05"))).Status)

	f := a.Actualize(model.Forecast{Targets: []model.Target{rent}})
	require.Len(t, f.Targets, 1)
	assert.Equal(t, day("2025-03-05"), f.Targets[0].Range.FirstDate())
}

func TestEarlyPaymentAdvancesPastLinkedIteration(t *testing.T) {
	t.Parallel()
	rent := rentTarget()
	ops := []model.Operation{operation(1, "2025-02-28", -800, "rent")}
	a := NewActualizer(day("2025-03-01"), []model.Link{link(1, rent, "2025-03-05")}, ops, Settings{}, nil)
	f := a.Actualize(model.Forecast{Targets: []model.Target{rent}})
	// February is superseded by the settled March iteration
	require.Len(t, f.Targets, 1)
	assert.Equal(t, day("2025-04-05"), f.Targets[0].Range.FirstDate())
}

func TestOneTimePlannedOperation(t *testing.T) {
	t.Parallel()
	once := rentTarget()
	once.Range = timerange.Day(day("2025-03-10"))

	a := NewActualizer(day("2025-03-01"), nil, nil, Settings{}, nil)
	f := a.Actualize(model.Forecast{Targets: []model.Target{once}})
	require.Len(t, f.Targets, 1)
	assert.Equal(t, once.Range, f.Targets[0].Range)

	ops := []model.Operation{operation(1, "2025-02-27", -800, "rent")}
	paid := NewActualizer(day("2025-03-01"), []model.Link{link(1, once, "2025-03-10")}, ops, Settings{}, nil)
	assert.Empty(t, paid.Actualize(model.Forecast{Targets: []model.Target{once}}).Targets)

	late := NewActualizer(day("2025-03-12"), nil, nil, Settings{}, nil)
	f = late.Actualize(model.Forecast{Targets: []model.Target{once}})
	require.Len(t, f.Targets, 1)
	assert.Equal(t, timerange.Day(day("2025-03-13")), f.Targets[0].Range)
}

// Groceries budget of -500 with -80 and -120 spent and a +30 refund linked.
func TestBudgetCurrentPeriod(t *testing.T) {
	t.Parallel()
	g := groceriesBudget()
	ops := []model.Operation{
		operation(1, "2025-01-03", -80, "groceries"),
		operation(2, "2025-01-09", -120, "groceries"),
		operation(3, "2025-01-11", 30, "groceries"),
	}
	links := []model.Link{link(1, g, "2025-01-01"), link(2, g, "2025-01-01"), link(3, g, "2025-01-01")}
	a := NewActualizer(day("2025-01-15"), links, ops, Settings{}, nil)

	f := a.Actualize(model.Forecast{Targets: []model.Target{g}})
	require.Len(t, f.Targets, 2)
	rest := f.Targets[0]
	assert.True(t, dec(-300).Equal(rest.Amount), rest.Amount.String())
	assert.Equal(t, day("2025-01-16"), rest.Range.InitialDate())
	assert.Equal(t, day("2025-01-31"), rest.Range.LastDate())
	assert.False(t, rest.Range.IsPeriodic())

	next := f.Targets[1]
	assert.True(t, dec(-500).Equal(next.Amount))
	assert.Equal(t, day("2025-02-01"), next.Range.FirstDate())
	assert.True(t, next.Range.IsPeriodic())
}

func TestElapsedBudgetPeriodWithoutLinksIsNotSettled(t *testing.T) {
	t.Parallel()
	g := groceriesBudget()
	ops := []model.Operation{operation(1, "2025-01-03", -80, "groceries")}
	a := NewActualizer(day("2025-03-10"), []model.Link{link(1, g, "2025-01-01")}, ops, Settings{}, nil)

	states := a.States(g, day("2025-01-01"), day("2025-03-31"))
	require.Len(t, states, 3)
	assert.Equal(t, StatusActualized, states[0].Status)
	assert.Equal(t, StatusSkipped, states[1].Status)
	assert.Empty(t, states[1].Operations)
	assert.Equal(t, StatusPending, states[2].Status)
}

func TestBudgetExhaustedAndExpired(t *testing.T) {
	t.Parallel()
	g := groceriesBudget()
	ops := []model.Operation{operation(1, "2025-01-03", -520, "groceries")}
	a := NewActualizer(day("2025-01-15"), []model.Link{link(1, g, "2025-01-01")}, ops, Settings{}, nil)
	f := a.Actualize(model.Forecast{Targets: []model.Target{g}})
	require.Len(t, f.Targets, 1)
	assert.Equal(t, day("2025-02-01"), f.Targets[0].Range.FirstDate())

	ended := g
	ended.Range = g.Range.WithEndDate(day("2025-01-31"))
	assert.Empty(t, NewActualizer(day("2025-02-01"), nil, nil, Settings{}, nil).
		Actualize(model.Forecast{Targets: []model.Target{ended}}).Targets)

	future := g
	future.Range = g.Range.WithInitialDate(day("2025-03-01"))
	f = a.Actualize(model.Forecast{Targets: []model.Target{future}})
	require.Len(t, f.Targets, 1)
	assert.Equal(t, future, f.Targets[0])
}

func TestArchivedTargetsAreDropped(t *testing.T) {
	t.Parallel()
	rent := rentTarget()
	rent.Archived = true
	a := NewActualizer(day("2025-01-10"), nil, nil, Settings{}, nil)
	assert.Empty(t, a.Actualize(model.Forecast{Targets: []model.Target{rent}}).Targets)
}

func projectorFixture() *Projector {
	g := groceriesBudget()
	rent := rentTarget()
	ops := []model.Operation{
		operation(1, "2025-01-05", -800, "rent"),
		operation(2, "2025-01-10", -50, "groceries"),
		operation(3, "2025-01-15", -150, "groceries"),
	}
	links := []model.Link{link(1, rent, "2025-01-05"), link(2, g, "2025-01-01"), link(3, g, "2025-01-01")}
	a := NewActualizer(day("2025-01-15"), links, ops, Settings{}, nil)
	f := a.Actualize(model.Forecast{Targets: []model.Target{rent, g}})
	acct := model.Account{Name: "Main", Balance: dec(1000), BalanceDate: day("2025-01-15")}
	return NewProjector(acct, ops, f)
}

func TestProjectorPast(t *testing.T) {
	t.Parallel()
	p := projectorFixture()
	assert.Equal(t, "1000.00", p.StateAt(day("2025-01-15")).StringFixed(2))
	assert.Equal(t, "1150.00", p.StateAt(day("2025-01-14")).StringFixed(2))
	assert.Equal(t, "1150.00", p.StateAt(day("2025-01-10")).StringFixed(2))
	assert.Equal(t, "1200.00", p.StateAt(day("2025-01-09")).StringFixed(2))
	assert.Equal(t, "2000.00", p.StateAt(day("2025-01-04")).StringFixed(2))
}

func TestProjectorFuture(t *testing.T) {
	t.Parallel()
	p := projectorFixture()
	// -300 left for 2025-01-16..31 spread over 16 days
	assert.Equal(t, "850.00", p.StateAt(day("2025-01-23")).StringFixed(2))
	assert.Equal(t, "700.00", p.StateAt(day("2025-01-31")).StringFixed(2))
	// four days of a -500 February budget
	assert.Equal(t, "628.57", p.StateAt(day("2025-02-04")).StringFixed(2))
	// rent lands on the 5th
	assert.Equal(t, "-189.29", p.StateAt(day("2025-02-05")).StringFixed(2))
}

func TestProjectionIsDeterministic(t *testing.T) {
	t.Parallel()
	for _, d := range []string{"2024-12-01", "2025-01-15", "2025-03-17", "2026-01-01"} {
		a := projectorFixture().StateAt(day(d))
		b := projectorFixture().StateAt(day(d))
		assert.True(t, a.Equal(b), d)
	}
}

func TestEvolution(t *testing.T) {
	t.Parallel()
	p := projectorFixture()
	pts := p.Evolution(day("2025-01-14"), day("2025-01-17"))
	require.Len(t, pts, 4)
	assert.Equal(t, day("2025-01-14"), pts[0].Date)
	assert.Equal(t, "1150.00", pts[0].Balance.StringFixed(2))
	assert.Equal(t, "1000.00", pts[1].Balance.StringFixed(2))
	assert.Equal(t, "981.25", pts[2].Balance.StringFixed(2))
	assert.Equal(t, "962.50", pts[3].Balance.StringFixed(2))
	assert.Nil(t, p.Evolution(day("2025-02-01"), day("2025-01-01")))
}

func TestBuildReport(t *testing.T) {
	t.Parallel()
	g := groceriesBudget()
	rent := rentTarget()
	ops := []model.Operation{
		operation(1, "2024-12-31", -800, "rent"), // paid early for January
		operation(2, "2025-01-10", -200, "groceries"),
		operation(3, "2025-01-12", -40, "misc"),
	}
	links := []model.Link{link(1, rent, "2025-01-05"), link(2, g, "2025-01-01")}
	b := day("2025-01-15")
	targets := []model.Target{rent, g}
	act := NewActualizer(b, links, ops, Settings{}, nil).Actualize(model.Forecast{Targets: targets})

	rows := BuildReport(ReportInput{BalanceDate: b, Targets: targets, Actualized: act, Operations: ops, Links: links},
		day("2025-01-01"), day("2025-02-28"))

	byKey := map[string]CategoryMonth{}
	for _, r := range rows {
		byKey[r.Month.Format("2006-01")+"/"+string(r.Category)] = r
	}
	jan := byKey["2025-01/rent"]
	assert.Equal(t, "-800", jan.Actual.String())
	assert.Equal(t, "-800", jan.Planned.String())
	assert.Equal(t, "-800", jan.Projected.String())

	groc := byKey["2025-01/groceries"]
	assert.Equal(t, "-200", groc.Actual.String())
	assert.Equal(t, "-500", groc.Planned.String())
	assert.Equal(t, "-500", groc.Projected.String())

	assert.Equal(t, "-40", byKey["2025-01/misc"].Actual.String())
	assert.Equal(t, "-800", byKey["2025-02/rent"].Projected.String())
	assert.Equal(t, "0", byKey["2025-02/rent"].Actual.String())

	// sorted by month then category
	require.NotEmpty(t, rows)
	assert.Equal(t, day("2025-01-01"), rows[0].Month)
	assert.Equal(t, model.Category("groceries"), rows[0].Category)
}
