// ABOUTME: Golden test case definitions for the eval harness
// ABOUTME: Suites load from JSON and hold single-turn or multi-turn conversations

package eval

import (
	"encoding/json"
	"fmt"
	"os"
)

// defaultMinRelevancy is the pass threshold when a test does not set its own.
const defaultMinRelevancy = 0.5

// GroundTruth defines the expected outcome for one graded answer.
type GroundTruth struct {
	ExpectedAnswerKeywords   []string `json:"expected_answer_keywords,omitempty"`
	DisallowedAnswerKeywords []string `json:"disallowed_answer_keywords,omitempty"`
	ExpectedFlags            []string `json:"expected_flags,omitempty"`
	ExpectedModel            []string `json:"expected_model,omitempty"`
	ExpectedMinRelevancy     *float64 `json:"expected_min_relevancy,omitempty"`
}

// minRelevancy resolves the pass threshold, falling back to the default.
func (gt GroundTruth) minRelevancy() float64 {
	if gt.ExpectedMinRelevancy != nil {
		return *gt.ExpectedMinRelevancy
	}
	return defaultMinRelevancy
}

// TestTurn is one user query inside a multi-turn test.
type TestTurn struct {
	Query string `json:"query"`
	GroundTruth
}

// TestCase is a single golden test. Single-turn cases set Query and the
// inline ground truth fields; multi-turn cases set Turns instead.
type TestCase struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Query       string `json:"query,omitempty"`
	GroundTruth
	Turns []TestTurn `json:"turns,omitempty"`
}

// allTurns normalizes a case to its conversation turns.
func (tc TestCase) allTurns() []TestTurn {
	if len(tc.Turns) > 0 {
		return tc.Turns
	}
	return []TestTurn{{Query: tc.Query, GroundTruth: tc.GroundTruth}}
}

// LoadTestCases reads a JSON suite from disk.
func LoadTestCases(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test cases: %w", err)
	}

	var cases []TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse test cases %s: %w", path, err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no test cases in %s", path)
	}
	for i, tc := range cases {
		if tc.Query == "" && len(tc.Turns) == 0 {
			return nil, fmt.Errorf("test case %d (%q) has neither query nor turns", i, tc.ID)
		}
	}
	return cases, nil
}
