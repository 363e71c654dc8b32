package scenario

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/anomshot/anomshot/pkg/errors"
)

// Filter selects the scenarios matching an expression such as
// `category == "payment"` or `app startsWith "shopping"`. An empty
// expression keeps everything. The expression sees the fields id,
// category, app, and prompt.
func Filter(specs []Spec, expression string) ([]Spec, error) {
	if expression == "" {
		return specs, nil
	}

	program, err := expr.Compile(expression,
		expr.Env(filterEnv(Spec{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      "filter",
			Message:    fmt.Sprintf("cannot compile filter expression: %v", err),
			Suggestion: `use scenario fields, e.g. category == "payment" && app != "banking"`,
		}
	}

	var kept []Spec
	for _, s := range specs {
		result, err := expr.Run(program, filterEnv(s))
		if err != nil {
			return nil, &errors.ValidationError{
				Field:   "filter",
				Message: fmt.Sprintf("filter failed on scenario %q: %v", s.ID, err),
			}
		}
		if result.(bool) {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

func filterEnv(s Spec) map[string]any {
	return map[string]any{
		"id":       s.ID,
		"category": s.Category,
		"app":      s.App,
		"prompt":   s.Prompt,
	}
}
