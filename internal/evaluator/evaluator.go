// ABOUTME: Post-generation answer evaluation producing reliability flags
// ABOUTME: Flags refusals, answers without context, and conflicting sources
package evaluator

import (
	"regexp"
	"strings"

	"github.com/clearpath-io/support-rag/internal/models"
)

// Flag values attached to query responses.
const (
	FlagNoContext          = "no_context"
	FlagRefusal            = "refusal"
	FlagConflictingSources = "conflicting_sources"
)

var refusalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i don'?t have (that |enough )?information`),
	regexp.MustCompile(`(?i)not mentioned in the (provided |available )?documents`),
	regexp.MustCompile(`(?i)i('m| am) (not sure|unable|sorry)`),
	regexp.MustCompile(`(?i)cannot (find|answer|help with)`),
	regexp.MustCompile(`(?i)no information (about|on|regarding)`),
	regexp.MustCompile(`(?i)not covered in the (context|documentation)`),
	regexp.MustCompile(`(?i)beyond (my|the) (scope|available)`),
}

// conflictSelfReports are phrases the model uses when it notices
// disagreement between sources.
var conflictSelfReports = []string{
	"conflicting",
	"inconsistent",
	"differs between",
	"varies across",
	"discrepancy",
	"contradicts",
	"different values",
	"conflicting information",
}

var priceRe = regexp.MustCompile(`\$\d+(?:\.\d{2})?`)

// knownPriceVariants are plan prices that appear with different values in
// different documents. Two or more of them across documents is a conflict.
var knownPriceVariants = map[string]bool{
	"$49": true,
	"$45": true,
	"$52": true,
	"$99": true,
}

// Evaluate inspects a generated answer and the chunks behind it, returning
// zero or more flag strings. The result is never nil so it serializes as a
// JSON array.
func Evaluate(answer string, results []models.SearchResult) []string {
	flags := []string{}

	refusal := isRefusal(answer)

	// An answer produced with no retrieved context is suspect unless the
	// model refused, which is the correct behavior in that case.
	if len(results) == 0 && !refusal {
		flags = append(flags, FlagNoContext)
	}
	if refusal {
		flags = append(flags, FlagRefusal)
	}
	if len(results) >= 2 && hasConflictingSources(answer, results) {
		flags = append(flags, FlagConflictingSources)
	}

	return flags
}

func isRefusal(answer string) bool {
	for _, pattern := range refusalPatterns {
		if pattern.MatchString(answer) {
			return true
		}
	}
	return false
}

// hasConflictingSources detects disagreement three ways: the model says so
// itself, two or more known price variants appear across documents, or two
// documents carry entirely disjoint price sets.
func hasConflictingSources(answer string, results []models.SearchResult) bool {
	lowered := strings.ToLower(answer)
	for _, phrase := range conflictSelfReports {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}

	pricesByDoc := make(map[string]map[string]bool)
	for _, result := range results {
		prices := priceRe.FindAllString(result.Chunk.Text, -1)
		if len(prices) == 0 {
			continue
		}
		set := make(map[string]bool, len(prices))
		for _, price := range prices {
			set[price] = true
		}
		pricesByDoc[result.Chunk.Document] = set
	}
	if len(pricesByDoc) < 2 {
		return false
	}

	knownHits := make(map[string]bool)
	for _, set := range pricesByDoc {
		for price := range set {
			if knownPriceVariants[price] {
				knownHits[price] = true
			}
		}
	}
	if len(knownHits) >= 2 {
		return true
	}

	sets := make([]map[string]bool, 0, len(pricesByDoc))
	for _, set := range pricesByDoc {
		sets = append(sets, set)
	}
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			if disjoint(sets[i], sets[j]) {
				return true
			}
		}
	}
	return false
}

func disjoint(a, b map[string]bool) bool {
	for price := range a {
		if b[price] {
			return false
		}
	}
	return true
}
