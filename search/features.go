package search

import "strings"

// Stop words to filter out when extracting significant query terms
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// Negation markers flip the polarity of the immediately following word.
var negationMarkers = map[string]bool{
	"not": true, "without": true, "no": true, "non": true,
	"except": true, "excluding": true,
}

// tokenize splits text into words, lowercases, and trims punctuation.
// Stop words are kept; negation tagging needs them in place.
func tokenize(text string) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	tokens := tokenize(text)
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !stopWords[token] {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

// queryFeatures carries the polarity-tagged significant terms of a query.
type queryFeatures struct {
	positive []string
	negative []string
}

// extractFeatures tags each significant query word as positive or negative.
// A word is negative when immediately preceded by a negation marker
// ("fresh apples not dried" yields positive fresh, apples and negative
// dried). Markers and stop words themselves are not terms.
func extractFeatures(query string) queryFeatures {
	tokens := tokenize(query)

	var f queryFeatures
	negateNext := false
	for _, token := range tokens {
		// "non-dairy" style prefixes negate the attached word.
		if rest, ok := strings.CutPrefix(token, "non-"); ok && rest != "" {
			f.negative = append(f.negative, rest)
			negateNext = false
			continue
		}
		if negationMarkers[token] {
			negateNext = true
			continue
		}
		if stopWords[token] {
			negateNext = false
			continue
		}
		if negateNext {
			f.negative = append(f.negative, token)
			negateNext = false
		} else {
			f.positive = append(f.positive, token)
		}
	}
	return f
}

// variants expands a word with simple plural/singular morphological forms
// so "apples" and "apple" match equivalently. The word itself is always the
// first element.
func variants(word string) []string {
	out := []string{word}
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 3:
		out = append(out, word[:len(word)-3]+"y")
	case strings.HasSuffix(word, "es") && len(word) > 2:
		out = append(out, word[:len(word)-2], word[:len(word)-1])
	case strings.HasSuffix(word, "s") && len(word) > 1:
		out = append(out, word[:len(word)-1])
	default:
		out = append(out, word+"s", word+"es")
		if strings.HasSuffix(word, "y") && len(word) > 1 {
			out = append(out, word[:len(word)-1]+"ies")
		}
	}
	return out
}

// termMatches reports whether the term (or a morphological variant of it)
// equals any of the tokens.
func termMatches(term string, tokens []string) bool {
	for _, v := range variants(term) {
		for _, token := range tokens {
			if token == v {
				return true
			}
		}
	}
	return false
}

// minPartialLen guards against spurious prefix hits on short words.
const minPartialLen = 4

// termMatchesPartial reports whether the term shares a word-boundary prefix
// with any token. Both sides must carry at least minPartialLen characters
// of common prefix.
func termMatchesPartial(term string, tokens []string) bool {
	if len(term) < minPartialLen {
		return false
	}
	for _, token := range tokens {
		if len(token) < minPartialLen {
			continue
		}
		if strings.HasPrefix(token, term) || strings.HasPrefix(term, token) {
			return true
		}
	}
	return false
}

// tokenSet builds a membership set over tokens including morphological
// variants, used for Q&A contradiction checks.
func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens)*2)
	for _, token := range tokens {
		for _, v := range variants(token) {
			set[v] = true
		}
	}
	return set
}
