// ABOUTME: HTTP eval runner that posts golden queries to a running server
// ABOUTME: Chains conversation IDs across multi-turn cases and exports JSON results

package eval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/clearpath-io/support-rag/internal/models"
)

// queryTimeout bounds a single /query round trip, including generation.
const queryTimeout = 60 * time.Second

const answerPreviewLen = 80

// TurnResult records one graded answer.
type TurnResult struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	ModelUsed string    `json:"model_used"`
	Flags     []string  `json:"evaluator_flags"`
	Score     TurnScore `json:"score"`
}

// CaseResult is the outcome of one golden test case.
type CaseResult struct {
	TestID string       `json:"test_id"`
	Passed bool         `json:"passed"`
	Turns  []TurnResult `json:"turns,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Runner executes golden test cases against a running query server.
type Runner struct {
	baseURL string
	client  *http.Client
	verbose bool
}

// NewRunner creates a runner targeting baseURL (e.g. http://localhost:8000).
func NewRunner(baseURL string, verbose bool) *Runner {
	return &Runner{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: queryTimeout},
		verbose: verbose,
	}
}

// RunAll executes every case in order, printing a PASS/FAIL line per case.
func (r *Runner) RunAll(cases []TestCase) []CaseResult {
	results := make([]CaseResult, 0, len(cases))
	for _, tc := range cases {
		result := r.RunCase(tc)
		r.printResult(tc, result)
		results = append(results, result)
	}
	return results
}

// RunCase executes one case. The conversation ID returned by the first turn
// is reused for the rest, so follow-up rewriting is exercised end to end. A
// failing turn marks the case failed but the remaining turns still run; only
// a transport error aborts the case.
func (r *Runner) RunCase(tc TestCase) CaseResult {
	result := CaseResult{TestID: tc.ID, Passed: true}

	conversationID := ""
	for i, turn := range tc.allTurns() {
		resp, err := r.ask(turn.Query, conversationID)
		if err != nil {
			result.Passed = false
			result.Error = fmt.Sprintf("turn %d: %v", i+1, err)
			return result
		}
		conversationID = resp.ConversationID

		score := ScoreTurn(turn.GroundTruth, resp.Answer, resp.Metadata)
		if !score.Passed {
			result.Passed = false
		}
		result.Turns = append(result.Turns, TurnResult{
			Query:     turn.Query,
			Answer:    resp.Answer,
			ModelUsed: resp.Metadata.ModelUsed,
			Flags:     resp.Metadata.EvaluatorFlags,
			Score:     score,
		})
	}
	return result
}

// ask posts one question to /query, reusing conversationID when set.
func (r *Runner) ask(question, conversationID string) (*models.QueryResponse, error) {
	body, err := json.Marshal(models.QueryRequest{
		Question:       question,
		ConversationID: conversationID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpResp, err := r.client.Post(r.baseURL+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("post query: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("server returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var resp models.QueryResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// printResult prints one PASS/FAIL line, with per-turn detail for failures
// or when verbose.
func (r *Runner) printResult(tc TestCase, result CaseResult) {
	status := "PASS"
	if !result.Passed {
		status = "FAIL"
	}
	fmt.Printf("[%s] %s\n", status, tc.ID)

	if result.Error != "" {
		fmt.Printf("       error: %s\n", result.Error)
		return
	}
	if result.Passed && !r.verbose {
		return
	}

	for i, turn := range result.Turns {
		if len(result.Turns) > 1 {
			fmt.Printf("       turn %d: %s\n", i+1, turn.Query)
		}
		fmt.Printf("       model: %s  flags: %v\n", turn.ModelUsed, turn.Flags)
		fmt.Printf("       relevancy: %.2f  faithfulness: %.2f  model_ok: %t\n",
			turn.Score.Relevancy, turn.Score.Faithfulness, turn.Score.ModelOK)
		if len(turn.Score.MissingFlags) > 0 {
			fmt.Printf("       missing flags: %v\n", turn.Score.MissingFlags)
		}
		fmt.Printf("       answer: %s\n", preview(turn.Answer))
	}
}

// preview truncates an answer for console output.
func preview(answer string) string {
	runes := []rune(answer)
	if len(runes) <= answerPreviewLen {
		return answer
	}
	return string(runes[:answerPreviewLen]) + "..."
}

// ExportResults writes a summary plus per-case detail as indented JSON.
func (r *Runner) ExportResults(results []CaseResult, outputPath string) error {
	passed := 0
	for _, result := range results {
		if result.Passed {
			passed++
		}
	}

	summary := map[string]interface{}{
		"timestamp":   time.Now().Format(time.RFC3339),
		"total_tests": len(results),
		"passed":      passed,
		"failed":      len(results) - passed,
		"results":     results,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	fmt.Printf("\nResults exported to: %s\n", outputPath)
	return nil
}
