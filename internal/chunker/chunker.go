// ABOUTME: Structure-aware chunker that splits extracted pages into retrieval units
// ABOUTME: Detects headings and FAQ pairs, merges small chunks, applies overlap
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clearpath-io/support-rag/internal/models"
)

const (
	defaultHeading = "General"
	faqHeading     = "FAQ"

	// tableChunkCeiling lets pricing and table content grow past the normal
	// chunk size so rows stay together with their headers.
	tableChunkCeiling = 500
)

var (
	numericLineRe = regexp.MustCompile(`^[\d$%.,\-+]+$`)
	faqLineRe     = regexp.MustCompile(`(?m)^Q[:.]`)
	faqStartRe    = regexp.MustCompile(`^Q[:.]\s`)
	paragraphRe   = regexp.MustCompile(`\n\s*\n`)
	sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)
)

// titleStopwords do not count against a line's title-case ratio.
var titleStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "for": true, "with": true,
	"on": true, "at": true, "by": true,
}

// planNames mark pricing content that should stay in larger chunks.
var planNames = []string{"free", "pro", "enterprise", "starter", "basic"}

// Chunker splits extracted document pages into retrieval-ready chunks.
type Chunker struct {
	chunkSize      int
	chunkOverlap   int
	minChunkTokens int
}

// NewChunker creates a Chunker with the given token budgets.
func NewChunker(chunkSize, chunkOverlap, minChunkTokens int) *Chunker {
	return &Chunker{
		chunkSize:      chunkSize,
		chunkOverlap:   chunkOverlap,
		minChunkTokens: minChunkTokens,
	}
}

// pageChunk is an intermediate chunk carrying its section heading.
type pageChunk struct {
	text    string
	heading string
}

// section is a heading label and the body text under it.
type section struct {
	heading string
	body    string
}

// ChunkDocuments turns extracted pages into chunks with stable IDs.
// FAQ Q&A pairs are extracted first and kept atomic; the remaining text
// is split by section and paragraph, merged, overlapped, and consolidated.
func (c *Chunker) ChunkDocuments(docs []models.Document) []models.Chunk {
	var all []models.Chunk

	for _, doc := range docs {
		base := strings.TrimSuffix(doc.SourceName, ".pdf")
		docText := doc.Text

		if isFAQContent(docText) {
			pairs, remaining := extractFAQPairs(docText)
			docText = remaining
			for i, pair := range pairs {
				all = append(all, models.Chunk{
					ChunkID:        fmt.Sprintf("%s_p%d_faq%d", base, doc.PageNumber, i),
					Document:       doc.SourceName,
					Page:           doc.PageNumber,
					SectionHeading: faqHeading,
					Text:           pair,
					TokenCount:     estimateTokens(pair),
				})
			}
		}

		if strings.TrimSpace(docText) == "" {
			continue
		}

		var pageChunks []pageChunk
		for _, sec := range splitIntoSections(docText) {
			paragraphs := splitParagraphs(sec.body)
			merged := mergeSmallParagraphs(paragraphs, c.chunkSize)

			var texts []string
			for _, m := range merged {
				texts = append(texts, splitLongText(m, c.chunkSize)...)
			}
			texts = applyOverlap(texts, c.chunkOverlap)

			for _, t := range texts {
				pageChunks = append(pageChunks, pageChunk{text: t, heading: sec.heading})
			}
		}

		pageChunks = c.postMergeSmallChunks(pageChunks)

		for i, pc := range pageChunks {
			all = append(all, models.Chunk{
				ChunkID:        fmt.Sprintf("%s_p%d_c%d", base, doc.PageNumber, i),
				Document:       doc.SourceName,
				Page:           doc.PageNumber,
				SectionHeading: pc.heading,
				Text:           pc.text,
				TokenCount:     estimateTokens(pc.text),
			})
		}
	}

	return all
}

// estimateTokens approximates token count as characters divided by four.
func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// isHeading reports whether a line is likely a section heading.
// Conservative on purpose: table cells and price figures must never match.
func isHeading(line string) bool {
	stripped := strings.TrimSpace(line)
	runeLen := utf8.RuneCountInString(stripped)
	if runeLen == 0 || runeLen > 120 {
		return false
	}
	// Too short to be a heading, avoids table cells like "High" or "Low"
	if runeLen < 4 {
		return false
	}
	words := strings.Fields(stripped)
	if len(words) < 2 || len(words) > 10 {
		return false
	}
	// Lines that are just numbers and symbols look like table data
	if numericLineRe.MatchString(stripped) {
		return false
	}
	if strings.ContainsAny(stripped[len(stripped)-1:], ".,:;") {
		return false
	}
	// All-caps lines of reasonable length
	if isAllUpper(stripped) && runeLen > 3 && runeLen < 60 {
		return true
	}
	// Title-case lines without ending punctuation
	first, _ := utf8.DecodeRuneInString(stripped)
	if unicode.IsUpper(first) && !strings.HasSuffix(stripped, "?") && !strings.HasSuffix(stripped, "!") {
		capWords := 0
		for _, w := range words {
			r, _ := utf8.DecodeRuneInString(w)
			if unicode.IsUpper(r) || titleStopwords[strings.ToLower(w)] {
				capWords++
			}
		}
		if float64(capWords) >= float64(len(words))*0.6 {
			return true
		}
	}
	return false
}

// isAllUpper reports whether s contains at least one letter and no lowercase.
func isAllUpper(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

// isFAQContent reports whether text holds at least two "Q:" lines.
func isFAQContent(text string) bool {
	return len(faqLineRe.FindAllString(text, -1)) >= 2
}

// extractFAQPairs pulls Q&A blocks out as atomic strings and returns the
// rest of the text joined back together.
func extractFAQPairs(text string) (pairs []string, remaining string) {
	var nonFAQ []string
	for _, part := range splitFAQParts(text) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if faqStartRe.MatchString(part) {
			pairs = append(pairs, part)
		} else {
			nonFAQ = append(nonFAQ, part)
		}
	}
	return pairs, strings.Join(nonFAQ, "\n\n")
}

// splitFAQParts breaks text before each line starting with "Q:" or "Q.".
func splitFAQParts(text string) []string {
	var parts []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if faqStartRe.MatchString(line) && len(current) > 0 {
			parts = append(parts, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, "\n"))
	}
	return parts
}

// splitIntoSections breaks text into heading/body pairs. A heading only
// opens a new section once some body text has accumulated, so a heading
// on the very first line stays inside the default section.
func splitIntoSections(text string) []section {
	var sections []section
	heading := defaultHeading
	var current []string

	for _, line := range strings.Split(text, "\n") {
		if isHeading(line) && len(current) > 0 {
			body := strings.TrimSpace(strings.Join(current, "\n"))
			if body != "" {
				sections = append(sections, section{heading: heading, body: body})
			}
			heading = strings.TrimSpace(line)
			current = nil
		} else {
			current = append(current, line)
		}
	}

	body := strings.TrimSpace(strings.Join(current, "\n"))
	if body != "" {
		sections = append(sections, section{heading: heading, body: body})
	}

	if len(sections) == 0 {
		return []section{{heading: defaultHeading, body: text}}
	}
	return sections
}

// splitParagraphs splits text on blank-line boundaries.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range paragraphRe.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// mergeSmallParagraphs greedily concatenates consecutive paragraphs while
// the running token estimate stays within maxTokens.
func mergeSmallParagraphs(paragraphs []string, maxTokens int) []string {
	if len(paragraphs) == 0 {
		return nil
	}

	var merged []string
	buffer := ""

	for _, para := range paragraphs {
		candidate := para
		if buffer != "" {
			candidate = buffer + "\n\n" + para
		}
		if estimateTokens(candidate) <= maxTokens {
			buffer = candidate
		} else {
			if buffer != "" {
				merged = append(merged, buffer)
			}
			// A single oversized paragraph is kept whole here and split later
			buffer = para
		}
	}

	if buffer != "" {
		merged = append(merged, buffer)
	}
	return merged
}

// splitLongText breaks text exceeding maxTokens on sentence boundaries,
// accumulating sentences greedily and never cutting mid-sentence.
func splitLongText(text string, maxTokens int) []string {
	if estimateTokens(text) <= maxTokens {
		return []string{text}
	}

	var chunks []string
	current := ""

	for _, sent := range splitSentences(text) {
		candidate := sent
		if current != "" {
			candidate = current + " " + sent
		}
		if estimateTokens(candidate) <= maxTokens {
			current = candidate
		} else {
			if current != "" {
				chunks = append(chunks, current)
			}
			current = sent
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// splitSentences splits after sentence punctuation followed by whitespace.
// Punctuation stays with the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[last:loc[0]+1])
		last = loc[1]
	}
	if last < len(text) {
		sentences = append(sentences, text[last:])
	}
	return sentences
}

// isPricingOrTable reports whether text looks like pricing or tabular data.
func isPricingOrTable(text string) bool {
	lower := strings.ToLower(text)
	hasDollar := strings.Contains(text, "$")
	hasPlan := false
	for _, p := range planNames {
		if strings.Contains(lower, p) {
			hasPlan = true
			break
		}
	}
	hasTableMarkers := strings.Count(text, "|") >= 3 || strings.Count(text, "\t") >= 3
	return (hasDollar && hasPlan) || hasTableMarkers
}

// applyOverlap prepends the tail words of each previous chunk to the next
// one, sized from the overlap token budget at roughly 1.3 words per token.
func applyOverlap(chunks []string, overlapTokens int) []string {
	if len(chunks) <= 1 || overlapTokens <= 0 {
		return chunks
	}

	result := []string{chunks[0]}
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		overlapWords := int(float64(overlapTokens) * 1.3)
		if overlapWords < 1 {
			overlapWords = 1
		}
		if overlapWords < len(prevWords) {
			tail := strings.Join(prevWords[len(prevWords)-overlapWords:], " ")
			result = append(result, tail+" "+chunks[i])
		} else {
			result = append(result, chunks[i])
		}
	}
	return result
}

// postMergeSmallChunks merges undersized chunks with their neighbors, even
// across section boundaries. Merged chunks keep a real heading over the
// default one, and pricing or table content may grow to the raised ceiling.
func (c *Chunker) postMergeSmallChunks(chunks []pageChunk) []pageChunk {
	if len(chunks) == 0 {
		return nil
	}

	var merged []pageChunk
	var buffer pageChunk

	for _, ch := range chunks {
		if buffer.text == "" {
			buffer = ch
			continue
		}

		combined := buffer.text + "\n\n" + ch.text
		effectiveMax := c.chunkSize
		if isPricingOrTable(combined) {
			effectiveMax = tableChunkCeiling
		}

		if (estimateTokens(buffer.text) < c.minChunkTokens || estimateTokens(ch.text) < c.minChunkTokens) &&
			estimateTokens(combined) <= effectiveMax {
			buffer.text = combined
			if ch.heading != defaultHeading {
				buffer.heading = ch.heading
			}
			continue
		}

		merged = append(merged, buffer)
		buffer = ch
	}

	if buffer.text != "" {
		// A trailing chunk still under the floor folds into the previous one when it fits
		if len(merged) > 0 && estimateTokens(buffer.text) < c.minChunkTokens {
			prev := merged[len(merged)-1]
			combined := prev.text + "\n\n" + buffer.text
			effectiveMax := c.chunkSize
			if isPricingOrTable(combined) {
				effectiveMax = tableChunkCeiling
			}
			if estimateTokens(combined) <= effectiveMax {
				merged[len(merged)-1].text = combined
			} else {
				merged = append(merged, buffer)
			}
		} else {
			merged = append(merged, buffer)
		}
	}

	return merged
}
