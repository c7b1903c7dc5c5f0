// Package testdata seeds a database with a deterministic sample household:
// a few recurring targets, a groceries budget and three months of bank
// operations that the heuristics link on import.
package testdata

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/database"
	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/service"
	"github.com/jask/budgetforecast/internal/timerange"
)

// SeedResult summarises what Seed wrote.
type SeedResult struct {
	Targets    []model.Target
	Imported   int
	Linked     int
	BalanceEnd decimal.Decimal
}

// Seed creates sample targets and operations ending at today. The same
// today always produces the same data.
func Seed(ctx context.Context, db *sql.DB, svc *service.Services, today timerange.Date) (SeedResult, error) {
	var res SeedResult
	if err := database.SeedDefaults(ctx, db, svc.Accounts.AccountName, svc.Accounts.Currency, today); err != nil {
		return res, fmt.Errorf("seed defaults: %w", err)
	}

	start := today.FirstOfMonth().AddMonths(-3)
	for _, t := range sampleTargets(start) {
		created, err := svc.Targets.Create(ctx, t)
		if err != nil {
			return res, fmt.Errorf("seed target %q: %w", t.Description, err)
		}
		res.Targets = append(res.Targets, created)
	}

	ops := sampleOperations(start, today)
	balance := decimal.NewFromInt(1500)
	for _, op := range ops {
		balance = balance.Add(op.Amount)
	}
	imp, err := svc.Import.ImportOperations(ctx, ops, service.ImportOptions{Balance: &balance, BalanceDate: today})
	if err != nil {
		return res, fmt.Errorf("seed operations: %w", err)
	}
	res.Imported, res.Linked, res.BalanceEnd = imp.Imported, imp.Linked, balance
	return res, nil
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleTargets(start timerange.Date) []model.Target {
	planned := model.DefaultMatchParams(model.KindPlanned)
	monthly := func(day int) timerange.TimeRange {
		return timerange.Periodic(start.AddDays(day-1), timerange.Days(1), timerange.Months(1), timerange.Date{})
	}
	return []model.Target{
		{
			Kind: model.KindPlanned, Description: "Salary", Amount: money("2500"), Category: "salary",
			Range: monthly(28),
			Match: model.MatchParams{AmountRatio: planned.AmountRatio, DateWindow: planned.DateWindow, DescriptionHints: []string{"salary"}},
		},
		{
			Kind: model.KindPlanned, Description: "Rent", Amount: money("-800"), Category: "rent",
			Range: monthly(5), Match: planned,
		},
		{
			Kind: model.KindPlanned, Description: "Internet", Amount: money("-39.99"), Category: "internet",
			Range: monthly(12), Match: planned,
		},
		{
			Kind: model.KindPlanned, Description: "Electricity", Amount: money("-120"), Category: "electricity",
			Range: timerange.Periodic(start.AddDays(19), timerange.Days(1), timerange.Months(2), timerange.Date{}),
			Match: model.MatchParams{AmountRatio: 0.25, DateWindow: 7},
		},
		{
			Kind: model.KindBudget, Description: "Groceries", Amount: money("-500"), Category: "groceries",
			Range: timerange.Periodic(start, timerange.Months(1), timerange.Months(1), timerange.Date{}),
		},
		{
			Kind: model.KindBudget, Description: "Summer holidays", Amount: money("-1200"), Category: "holidays",
			Range: timerange.Single(timerange.NewDate(start.Year()+1, 7, 1), timerange.Months(2)),
		},
	}
}

var groceryShops = []string{"CARREFOUR MARKET", "LIDL", "MONOPRIX", "BIOCOOP", "FRANPRIX"}

func sampleOperations(start, today timerange.Date) []model.Operation {
	rng := rand.New(rand.NewPCG(uint64(start.Year()), uint64(start.Month())))
	var ops []model.Operation
	add := func(d timerange.Date, amount decimal.Decimal, desc string, c model.Category) {
		if d.After(today) {
			return
		}
		ops = append(ops, model.Operation{Date: d, Amount: amount, Description: desc, Category: c})
	}
	for m := start; !m.After(today); m = m.AddMonths(1) {
		add(m.AddDays(4+rng.IntN(3)), money("-800"), "VIR LOYER "+m.Format("01/2006"), "rent")
		add(m.AddDays(11), money("-39.99"), "PRLV FREEBOX", "internet")
		add(m.AddDays(26+rng.IntN(3)), money("2500"), "VIR SALARY ACME", "salary")
		for i := 0; i < 6; i++ {
			cents := 2000 + rng.IntN(8000)
			add(m.AddDays(rng.IntN(28)), decimal.New(int64(-cents), -2),
				groceryShops[rng.IntN(len(groceryShops))], "groceries")
		}
	}
	add(start.AddDays(21), money("-131.40"), "PRLV EDF", "electricity")
	add(start.AddDays(14), money("24.90"), "REMBOURSEMENT LIDL", "groceries")
	return ops
}
