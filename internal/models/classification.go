// ABOUTME: Classification types for the deterministic query router
// ABOUTME: A query maps to a tier, a model, an additive score, and the triggered signals
package models

// Tier selects which generation model and output budget a query gets.
type Tier string

const (
	// TierSimple routes to the small fast model.
	TierSimple Tier = "simple"

	// TierComplex routes to the large model with a bigger output budget.
	TierComplex Tier = "complex"
)

// Classification is the router's full decision for one query.
// Signals maps signal names to their triggered evidence (booleans or
// matched keyword lists); it is logged for observability but the Score
// alone drives the tier decision.
type Classification struct {
	Tier    Tier           `json:"classification"`
	Model   string         `json:"model"`
	Score   int            `json:"score"`
	Signals map[string]any `json:"signals"`
}
