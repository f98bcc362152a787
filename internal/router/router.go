// ABOUTME: Deterministic query router: greeting short-circuit plus 7-signal scorer
// ABOUTME: Maps each query to a simple or complex tier for model selection
package router

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clearpath-io/support-rag/internal/models"
)

// GreetingResponse is the canned reply for greeting queries. These never
// reach scoring, retrieval, or generation.
const GreetingResponse = "Hello! I'm ClearPath's support assistant. " +
	"I can help you with questions about ClearPath's features, pricing, " +
	"integrations, policies, and more. What would you like to know?"

// complexityThreshold is the score at which a query routes to the complex tier.
const complexityThreshold = 4

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "thanks": true, "thank you": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"howdy": true, "greetings": true, "sup": true, "yo": true,
}

var analyticalKeywords = map[string]bool{
	"how": true, "why": true, "explain": true, "compare": true,
	"difference": true, "troubleshoot": true, "debug": true, "analyze": true,
	"evaluate": true, "versus": true, "vs": true, "between": true,
}

var errorKeywords = []string{
	"error", "cannot", "can't", "failed", "broken",
	"not working", "bug", "issue", "not loading",
	"won't load", "doesn't work", "isn't working",
	"isn't loading", "doesn't load", "can't load",
	"won't start", "crash", "crashing",
}

var negationWords = map[string]bool{
	"not": true, "no": true, "doesn't": true, "don't": true, "won't": true,
	"without": true, "except": true, "never": true, "isn't": true,
	"can't": true, "couldn't": true, "shouldn't": true, "wouldn't": true,
	"hasn't": true, "haven't": true, "weren't": true, "wasn't": true,
}

var sensitiveTopics = map[string]bool{
	"price": true, "pricing": true, "cost": true, "billing": true,
	"payment": true, "security": true, "data": true, "privacy": true,
	"compliance": true, "legal": true,
}

// Router classifies queries into routing tiers. Classification is pure:
// the same query text always produces the same score and tier.
type Router struct {
	simpleModel  string
	complexModel string
}

// NewRouter creates a Router that maps tiers to the given model names.
func NewRouter(simpleModel, complexModel string) *Router {
	return &Router{simpleModel: simpleModel, complexModel: complexModel}
}

// IsGreeting reports whether the normalized query exactly matches a known
// greeting or thanks phrase.
func (r *Router) IsGreeting(query string) bool {
	cleaned := strings.TrimRight(strings.TrimSpace(strings.ToLower(query)), "!.,?")
	return greetings[cleaned]
}

// Classify scores the query over seven signals and picks a tier. Signals
// are recorded by name for logging; only the total score drives routing.
func (r *Router) Classify(query string) models.Classification {
	score := 0
	signals := make(map[string]any)

	lower := strings.ToLower(query)
	words := strings.Fields(lower)

	// 1. Length
	if len(words) > 25 {
		score += 2
		signals["long_query"] = true
	} else if len(words) > 15 {
		score++
		signals["medium_query"] = true
	}

	// 2. Analytical keywords
	matched := make(map[string]bool)
	for _, w := range words {
		if analyticalKeywords[w] {
			matched[w] = true
		}
	}
	if len(matched) > 0 {
		score += 2
		found := make([]string, 0, len(matched))
		for kw := range matched {
			found = append(found, kw)
		}
		sort.Strings(found)
		signals["analytical_keywords"] = found
	}

	// 3. Error and troubleshooting phrases, matched as substrings
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			score++
			signals["error_keywords"] = true
			break
		}
	}

	// 4. Negation
	for _, w := range words {
		if negationWords[w] {
			score++
			signals["negation"] = true
			break
		}
	}

	// 5. Multiple named entities, skipping the sentence-initial capital
	rawWords := strings.Fields(query)
	if len(rawWords) > 1 {
		entities := 0
		for _, w := range rawWords[1:] {
			first, _ := utf8.DecodeRuneInString(w)
			if unicode.IsUpper(first) && utf8.RuneCountInString(w) > 1 {
				entities++
			}
		}
		if entities >= 2 {
			score += 2
			signals["multi_entity"] = true
		}
	}

	// 6. Compound structure
	if strings.Count(query, "?") > 1 || strings.Count(query, ",") > 2 || strings.Contains(query, ";") {
		score++
		signals["compound"] = true
	}

	// 7. Sensitive topics
	for _, w := range words {
		if sensitiveTopics[w] {
			score++
			signals["sensitive_topic"] = true
			break
		}
	}

	tier := models.TierSimple
	model := r.simpleModel
	if score >= complexityThreshold {
		tier = models.TierComplex
		model = r.complexModel
	}

	return models.Classification{
		Tier:    tier,
		Model:   model,
		Score:   score,
		Signals: signals,
	}
}
