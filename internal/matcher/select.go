package matcher

import (
	"slices"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// DefaultMinScore is the score a candidate must strictly exceed to be linked.
const DefaultMinScore = 20.0

// Candidate is one scored target iteration for an operation.
type Candidate struct {
	Target    model.TargetKey
	Iteration timerange.Date
	Score     float64
}

// better orders candidates: higher score first, then planned operations
// before budgets, then the lowest target id.
func better(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Target.Less(b.Target)
}

// Candidates returns every heuristic candidate for op, best first.
func Candidates(op model.Operation, matchers []*Matcher) []Candidate {
	var out []Candidate
	for _, m := range matchers {
		if !m.MatchesHeuristically(op) {
			continue
		}
		it, _ := m.CandidateIteration(op)
		out = append(out, Candidate{Target: m.Key(), Iteration: it.InitialDate(), Score: m.Score(op, it)})
	}
	slices.SortFunc(out, func(a, b Candidate) int {
		switch {
		case better(a, b):
			return -1
		case better(b, a):
			return 1
		}
		return 0
	})
	return out
}

// Best returns the winning candidate for op, if any scores above minScore.
func Best(op model.Operation, matchers []*Matcher, minScore float64) (Candidate, bool) {
	cands := Candidates(op, matchers)
	if len(cands) == 0 || cands[0].Score <= minScore {
		return Candidate{}, false
	}
	return cands[0], true
}

// AutomaticLinks proposes one automatic link per unlinked operation.
// Operations present in links are left alone.
func AutomaticLinks(ops []model.Operation, matchers []*Matcher, links LinkIndex, minScore float64) []model.Link {
	var out []model.Link
	for _, op := range ops {
		if _, linked := links[op.ID]; linked {
			continue
		}
		c, ok := Best(op, matchers, minScore)
		if !ok {
			continue
		}
		out = append(out, model.Link{OperationID: op.ID, Target: c.Target, IterationDate: c.Iteration})
	}
	return out
}
