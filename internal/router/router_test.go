// ABOUTME: Tests for greeting detection and the 7-signal classifier
// ABOUTME: Boundary cases around the complexity threshold are covered explicitly
package router

import (
	"reflect"
	"strings"
	"testing"

	"github.com/clearpath-io/support-rag/internal/models"
)

func newTestRouter() *Router {
	return NewRouter("llama-3.1-8b-instant", "llama-3.3-70b-versatile")
}

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"plain hello", "Hello", true},
		{"hey with bangs", "hey!!", true},
		{"thank you with period", "Thank you.", true},
		{"padded hi", "  HI  ", true},
		{"thanks with comma", "thanks,", true},
		{"yo", "yo", true},
		{"good morning", "Good morning", true},
		{"real question", "What is ClearPath?", false},
		{"greeting plus content", "hello there", false},
		{"empty", "", false},
	}

	r := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.IsGreeting(tt.query); got != tt.want {
				t.Errorf("IsGreeting(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestClassify_SimpleQuery(t *testing.T) {
	r := newTestRouter()

	got := r.Classify("What is ClearPath?")

	if got.Tier != models.TierSimple {
		t.Errorf("Tier = %q, want simple", got.Tier)
	}
	if got.Model != "llama-3.1-8b-instant" {
		t.Errorf("Model = %q, want the simple model", got.Model)
	}
	if got.Score != 0 {
		t.Errorf("Score = %d, want 0", got.Score)
	}
	if len(got.Signals) != 0 {
		t.Errorf("Signals = %v, want none", got.Signals)
	}
}

func TestClassify_ComplexQuery(t *testing.T) {
	r := newTestRouter()

	// compare (+2), two entities (+2), pricing (+1)
	got := r.Classify("Compare Pro and Enterprise pricing")

	if got.Tier != models.TierComplex {
		t.Errorf("Tier = %q, want complex", got.Tier)
	}
	if got.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Model = %q, want the complex model", got.Model)
	}
	if got.Score != 5 {
		t.Errorf("Score = %d, want 5", got.Score)
	}
	if got.Signals["multi_entity"] != true {
		t.Error("multi_entity signal missing")
	}
	if got.Signals["sensitive_topic"] != true {
		t.Error("sensitive_topic signal missing")
	}
	kws, ok := got.Signals["analytical_keywords"].([]string)
	if !ok || !reflect.DeepEqual(kws, []string{"compare"}) {
		t.Errorf("analytical_keywords = %v, want [compare]", got.Signals["analytical_keywords"])
	}
}

func TestClassify_ThresholdBoundary(t *testing.T) {
	r := newTestRouter()

	// explain (+2) plus two entities (+2) lands exactly on the threshold
	atThreshold := r.Classify("Explain Slack and GitHub integrations")
	if atThreshold.Score != 4 {
		t.Fatalf("Score = %d, want 4", atThreshold.Score)
	}
	if atThreshold.Tier != models.TierComplex {
		t.Errorf("Tier = %q, want complex at score 4", atThreshold.Tier)
	}

	// explain (+2) plus pricing (+1) stays below it
	below := r.Classify("Explain the Slack integration pricing")
	if below.Score != 3 {
		t.Fatalf("Score = %d, want 3", below.Score)
	}
	if below.Tier != models.TierSimple {
		t.Errorf("Tier = %q, want simple at score 3", below.Tier)
	}
}

func TestClassify_TroubleshootingQuery(t *testing.T) {
	r := newTestRouter()

	got := r.Classify("My timeline view isn't loading after upgrading")

	// isn't loading is an error phrase (+1) and isn't a negation word (+1)
	if got.Score != 2 {
		t.Errorf("Score = %d, want 2", got.Score)
	}
	if got.Signals["error_keywords"] != true {
		t.Error("error_keywords signal missing")
	}
	if got.Signals["negation"] != true {
		t.Error("negation signal missing")
	}
	if got.Tier != models.TierSimple {
		t.Errorf("Tier = %q, want simple", got.Tier)
	}
}

func TestClassify_LengthSignals(t *testing.T) {
	r := newTestRouter()

	medium := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen"
	got := r.Classify(medium)
	if got.Score != 1 || got.Signals["medium_query"] != true {
		t.Errorf("medium query: score = %d, signals = %v, want score 1 with medium_query", got.Score, got.Signals)
	}

	long := medium + " seventeen eighteen nineteen twenty alpha beta gamma delta epsilon zeta"
	got = r.Classify(long)
	if got.Score != 2 || got.Signals["long_query"] != true {
		t.Errorf("long query: score = %d, signals = %v, want score 2 with long_query", got.Score, got.Signals)
	}
	if got.Signals["medium_query"] != nil {
		t.Error("long query should not also set medium_query")
	}
}

func TestClassify_CompoundStructure(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name  string
		query string
	}{
		{"two question marks", "what? where?"},
		{"three commas", "alpha, beta, gamma, delta"},
		{"semicolon", "first part; second part"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Classify(tt.query)
			if got.Signals["compound"] != true {
				t.Errorf("Classify(%q) missing compound signal, got %v", tt.query, got.Signals)
			}
		})
	}
}

func TestClassify_DeduplicatesAnalyticalKeywords(t *testing.T) {
	r := newTestRouter()

	got := r.Classify("why why why")

	if got.Score != 2 {
		t.Errorf("Score = %d, want 2 for a single analytical signal", got.Score)
	}
	kws, ok := got.Signals["analytical_keywords"].([]string)
	if !ok || len(kws) != 1 || kws[0] != "why" {
		t.Errorf("analytical_keywords = %v, want [why]", got.Signals["analytical_keywords"])
	}
}

func TestClassify_Deterministic(t *testing.T) {
	r := newTestRouter()
	query := "Why can't I connect Slack and GitHub; is it a billing issue?"

	first := r.Classify(query)
	second := r.Classify(query)

	if first.Tier != second.Tier || first.Score != second.Score {
		t.Errorf("classification changed between runs: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(first.Signals, second.Signals) {
		t.Errorf("signals changed between runs: %v vs %v", first.Signals, second.Signals)
	}
}

func TestGreetingResponse_MentionsSupportScope(t *testing.T) {
	if GreetingResponse == "" {
		t.Fatal("GreetingResponse is empty")
	}
	for _, want := range []string{"ClearPath", "pricing", "integrations"} {
		if !strings.Contains(GreetingResponse, want) {
			t.Errorf("GreetingResponse missing %q", want)
		}
	}
}
