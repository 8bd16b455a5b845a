package advisor

import "strings"

// Stop words to filter out when extracting significant terms
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "your": true, "what": true, "which": true,
	"how": true, "does": true, "or": true,
}

// significantTerms splits text into lowercase words, trims punctuation, and
// removes stop words and short tokens.
func significantTerms(text string) []string {
	words := strings.Fields(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if len(cleaned) > 2 && !stopWords[cleaned] {
			terms = append(terms, cleaned)
		}
	}
	return terms
}

// termOverlap returns the fraction of a's significant terms also present
// in b's. Zero when a has no significant terms.
func termOverlap(a, b string) float64 {
	aTerms := significantTerms(a)
	if len(aTerms) == 0 {
		return 0
	}
	bSet := make(map[string]bool)
	for _, term := range significantTerms(b) {
		bSet[term] = true
	}
	common := 0
	for _, term := range aTerms {
		if bSet[term] {
			common++
		}
	}
	return float64(common) / float64(len(aTerms))
}
