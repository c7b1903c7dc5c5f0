// Package matcher decides whether an operation belongs to a target iteration,
// either through an existing link or through heuristic scoring.
package matcher

import (
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// Score weights. They add up to 100.
const (
	categoryPoints = 20.0
	datePoints     = 30.0
	amountPoints   = 40.0
	hintPoints     = 10.0
)

// LinkIndex maps operation ids to their link.
type LinkIndex map[int64]model.Link

// NewLinkIndex indexes links by operation id.
func NewLinkIndex(links []model.Link) LinkIndex {
	idx := make(LinkIndex, len(links))
	for _, l := range links {
		idx[l.OperationID] = l
	}
	return idx
}

// Matcher evaluates operations against one target.
type Matcher struct {
	target model.Target
	hints  []string
}

// New builds the matcher for t.
func New(t model.Target) *Matcher {
	hints := make([]string, 0, len(t.Match.DescriptionHints))
	for _, h := range t.Match.DescriptionHints {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hints = append(hints, h)
		}
	}
	return &Matcher{target: t, hints: hints}
}

func (m *Matcher) Target() model.Target { return m.target }

// Key identifies the matcher's target.
func (m *Matcher) Key() model.TargetKey { return m.target.Key() }

// IsLinked reports whether op is already linked to this target.
func (m *Matcher) IsLinked(op model.Operation, links LinkIndex) bool {
	l, ok := links[op.ID]
	return ok && l.Target == m.target.Key()
}

// Matches reports whether op belongs to this target. An existing link always
// wins; heuristics only apply to operations without one.
func (m *Matcher) Matches(op model.Operation, links LinkIndex) bool {
	if m.IsLinked(op, links) {
		return true
	}
	if _, linked := links[op.ID]; linked {
		return false
	}
	return m.MatchesHeuristically(op)
}

// CandidateIteration returns the iteration op would be attached to: the
// earliest one whose window, widened by the date tolerance, holds op.Date.
func (m *Matcher) CandidateIteration(op model.Operation) (timerange.TimeRange, bool) {
	w := m.target.Match.DateWindow
	return m.target.Range.CurrentWithin(op.Date, w, w)
}

// MatchesHeuristically applies the category, date, amount and description
// criteria, ignoring links.
func (m *Matcher) MatchesHeuristically(op model.Operation) bool {
	if op.Category != m.target.Category {
		return false
	}
	if _, ok := m.CandidateIteration(op); !ok {
		return false
	}
	if !m.target.IsBudget() && !m.amountWithinTolerance(op.Amount) {
		return false
	}
	return m.matchesHints(op.Description)
}

func (m *Matcher) amountWithinTolerance(amount decimal.Decimal) bool {
	return m.amountDeviation(amount) <= m.target.Match.AmountRatio
}

// amountDeviation is |amount - target| / |target|. A zero target only
// accepts a zero amount.
func (m *Matcher) amountDeviation(amount decimal.Decimal) float64 {
	planned := m.target.Amount.Abs()
	diff := amount.Sub(m.target.Amount).Abs()
	if planned.IsZero() {
		if diff.IsZero() {
			return 0
		}
		return math.Inf(1)
	}
	ratio, _ := diff.Div(planned).Float64()
	return ratio
}

func (m *Matcher) matchesHints(description string) bool {
	if len(m.hints) == 0 {
		return true
	}
	description = strings.ToLower(description)
	return slices.ContainsFunc(m.hints, func(h string) bool {
		return strings.Contains(description, h)
	})
}

// Score rates op against a given iteration from 0 to 100. A category
// mismatch scores 0. Date and amount points decay linearly to 0 at the edge
// of their tolerance; budgets never earn amount points.
func (m *Matcher) Score(op model.Operation, iteration timerange.TimeRange) float64 {
	if op.Category != m.target.Category {
		return 0
	}
	score := categoryPoints
	score += linearDecay(datePoints, float64(daysOutside(op.Date, iteration)), float64(m.target.Match.DateWindow))
	if !m.target.IsBudget() {
		score += linearDecay(amountPoints, m.amountDeviation(op.Amount), m.target.Match.AmountRatio)
	}
	if len(m.hints) > 0 && m.matchesHints(op.Description) {
		score += hintPoints
	}
	return score
}

// daysOutside is the distance from d to the iteration window, 0 inside it.
func daysOutside(d timerange.Date, iteration timerange.TimeRange) int {
	switch {
	case d.Before(iteration.InitialDate()):
		return iteration.InitialDate().DaysSince(d)
	case d.After(iteration.LastDate()):
		return d.DaysSince(iteration.LastDate())
	}
	return 0
}

// linearDecay gives full points at distance 0 and none at tolerance. A zero
// tolerance only rewards an exact hit.
func linearDecay(points, distance, tolerance float64) float64 {
	if distance <= 0 {
		return points
	}
	if tolerance <= 0 || distance >= tolerance {
		return 0
	}
	return points * (1 - distance/tolerance)
}
