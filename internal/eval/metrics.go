// ABOUTME: Deterministic scoring for golden eval answers
// ABOUTME: Grades relevancy, faithfulness, evaluator flags, and model tier

package eval

import (
	"strings"

	"github.com/clearpath-io/support-rag/internal/models"
)

// TurnScore is the metric breakdown for a single graded answer.
type TurnScore struct {
	Relevancy    float64  `json:"relevancy"`
	Faithfulness float64  `json:"faithfulness"`
	FlagAccuracy float64  `json:"flag_accuracy"`
	ModelOK      bool     `json:"model_ok"`
	MissingFlags []string `json:"missing_flags,omitempty"`
	Passed       bool     `json:"passed"`
}

// ScoreTurn grades one answer against its ground truth. Relevancy is the
// expected-keyword hit ratio (1.0 when none are listed). Any disallowed
// keyword zeroes faithfulness. Flag accuracy requires every expected
// evaluator flag to be present; extra flags are fine. An empty model list
// accepts any model.
func ScoreTurn(gt GroundTruth, answer string, meta models.QueryMetadata) TurnScore {
	lowered := strings.ToLower(answer)

	relevancy := 1.0
	if len(gt.ExpectedAnswerKeywords) > 0 {
		hits := 0
		for _, kw := range gt.ExpectedAnswerKeywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				hits++
			}
		}
		relevancy = float64(hits) / float64(len(gt.ExpectedAnswerKeywords))
	}

	faithfulness := 1.0
	for _, kw := range gt.DisallowedAnswerKeywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			faithfulness = 0.0
			break
		}
	}

	var missing []string
	for _, want := range gt.ExpectedFlags {
		if !containsString(meta.EvaluatorFlags, want) {
			missing = append(missing, want)
		}
	}
	flagAccuracy := 1.0
	if len(missing) > 0 {
		flagAccuracy = 0.0
	}

	modelOK := len(gt.ExpectedModel) == 0 || containsString(gt.ExpectedModel, meta.ModelUsed)

	return TurnScore{
		Relevancy:    relevancy,
		Faithfulness: faithfulness,
		FlagAccuracy: flagAccuracy,
		ModelOK:      modelOK,
		MissingFlags: missing,
		Passed:       relevancy >= gt.minRelevancy() && faithfulness == 1.0 && flagAccuracy == 1.0 && modelOK,
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
