package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// parseTargetKey accepts "kind:id", e.g. "planned:3" or "b:2".
func parseTargetKey(s string) (model.TargetKey, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return model.TargetKey{}, fmt.Errorf("target %q: want kind:id, e.g. planned:3 or budget:2", s)
	}
	k, err := model.ParseTargetKind(kind)
	if err != nil {
		return model.TargetKey{}, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return model.TargetKey{}, fmt.Errorf("target %q: id must be a positive number", s)
	}
	return model.TargetKey{Kind: k, ID: n}, nil
}

func parseOperationID(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("operation %q: id must be a positive number", s)
	}
	return n, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, err)
	}
	return d, nil
}

// parseOptionalDate returns the zero date for an empty string.
func parseOptionalDate(s string) (timerange.Date, error) {
	if strings.TrimSpace(s) == "" {
		return timerange.Date{}, nil
	}
	return timerange.ParseDate(s)
}

func splitHints(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
