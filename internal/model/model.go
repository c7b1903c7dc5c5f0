// Package model holds the domain records shared by matching, forecasting and
// persistence.
package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/timerange"
)

// Category labels operations and targets. Matching requires equality.
type Category string

const Uncategorized Category = "uncategorized"

// DefaultCategories seeds new databases.
var DefaultCategories = []Category{
	Uncategorized,
	"salary",
	"benefits",
	"rent",
	"house_loan",
	"savings",
	"insurance",
	"childcare",
	"entertainment",
	"holidays",
	"electricity",
	"water",
	"internet",
	"phone",
	"groceries",
	"clothing",
	"health_care",
	"public_transport",
	"car_fuel",
	"car_maintenance",
	"gifts",
	"other",
}

// TargetKind tags the two forecast target variants.
type TargetKind string

const (
	KindPlanned TargetKind = "planned_operation"
	KindBudget  TargetKind = "budget"
)

// Label is the user-facing name of the kind.
func (k TargetKind) Label() string {
	switch k {
	case KindPlanned:
		return "planned operation"
	case KindBudget:
		return "budget"
	}
	return string(k)
}

// ParseTargetKind accepts the stored form and short aliases.
func ParseTargetKind(s string) (TargetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindPlanned), "planned", "p":
		return KindPlanned, nil
	case string(KindBudget), "b":
		return KindBudget, nil
	}
	return "", fmt.Errorf("unknown target kind %q (want planned or budget)", s)
}

// TargetKey identifies a target across both variants.
type TargetKey struct {
	Kind TargetKind
	ID   int64
}

func (k TargetKey) String() string { return fmt.Sprintf("%s#%d", k.Kind, k.ID) }

// Less orders keys planned before budget, then by id.
func (k TargetKey) Less(o TargetKey) bool {
	if k.Kind != o.Kind {
		return k.Kind == KindPlanned
	}
	return k.ID < o.ID
}

// MatchParams configures heuristic matching for one target.
type MatchParams struct {
	AmountRatio      float64 // max |op - target| / |target|, ignored for budgets
	DateWindow       int     // days of tolerance around each iteration
	DescriptionHints []string
}

// DefaultMatchParams returns the per-kind defaults.
func DefaultMatchParams(kind TargetKind) MatchParams {
	if kind == KindBudget {
		return MatchParams{}
	}
	return MatchParams{AmountRatio: 0.05, DateWindow: 5}
}

// Target is a planned operation (one-time or recurring) or a budget.
// Both share one shape; Kind selects the few behaviours that differ.
type Target struct {
	Kind        TargetKind
	ID          int64
	Description string
	Amount      decimal.Decimal // signed
	Currency    string
	Category    Category
	Range       timerange.TimeRange
	Match       MatchParams
	Archived    bool
}

func (t Target) Key() TargetKey   { return TargetKey{Kind: t.Kind, ID: t.ID} }
func (t Target) IsBudget() bool   { return t.Kind == KindBudget }
func (t Target) IsPeriodic() bool { return t.Range.IsPeriodic() }

// Validate checks the fields a user can get wrong.
func (t Target) Validate() error {
	if t.Kind != KindPlanned && t.Kind != KindBudget {
		return fmt.Errorf("unknown target kind %q", t.Kind)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if t.Category == "" {
		return fmt.Errorf("category is required")
	}
	if err := t.Range.Validate(); err != nil {
		return fmt.Errorf("time range: %w", err)
	}
	if t.Match.AmountRatio < 0 || t.Match.DateWindow < 0 {
		return fmt.Errorf("match tolerances must not be negative")
	}
	return nil
}

// AmountOnPeriod is the share of the target falling inside [from, to].
// Iterations fully inside count in full; partial ones are prorated per day.
func (t Target) AmountOnPeriod(from, to timerange.Date) decimal.Decimal {
	total := decimal.Zero
	for it := range t.Range.Iterate(from, to) {
		days := it.TotalDays()
		overlap := it.Overlap(from, to)
		if overlap == days {
			total = total.Add(t.Amount)
			continue
		}
		total = total.Add(t.Amount.Mul(decimal.NewFromInt(int64(overlap))).Div(decimal.NewFromInt(int64(days))))
	}
	return total
}

// Operation is an imported bank operation. Only Category changes after import.
type Operation struct {
	ID          int64
	Description string
	Category    Category
	Date        timerange.Date
	Amount      decimal.Decimal // signed
	Currency    string
	Fingerprint string
}

// Link ties an operation to one iteration of a target. An operation has at
// most one link.
type Link struct {
	OperationID   int64
	Target        TargetKey
	IterationDate timerange.Date
	Manual        bool
	Notes         string
}

// Account is the single tracked account: a known balance at a known date.
type Account struct {
	Name        string
	Balance     decimal.Decimal
	Currency    string
	BalanceDate timerange.Date
}

// Forecast is a set of targets, raw or actualized.
type Forecast struct {
	Targets []Target
}

// Planned returns the planned operation targets.
func (f Forecast) Planned() []Target { return f.filter(KindPlanned) }

// Budgets returns the budget targets.
func (f Forecast) Budgets() []Target { return f.filter(KindBudget) }

func (f Forecast) filter(kind TargetKind) []Target {
	var out []Target
	for _, t := range f.Targets {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}
