package routing

import (
	"regexp"
	"strings"
	"unicode"
)

var modelCodeRe = regexp.MustCompile(`\b[A-Za-z0-9]{4}\b`)

// fillerWords are four-letter tokens that show up in pricing questions but are
// never product codes.
var fillerWords = map[string]struct{}{
	"what": {}, "much": {}, "does": {}, "this": {}, "that": {},
	"with": {}, "from": {}, "have": {}, "tell": {}, "give": {}, "show": {},
	"need": {}, "want": {}, "your": {}, "many": {}, "when": {}, "will": {},
	"send": {}, "cost": {}, "rate": {}, "list": {}, "unit": {}, "each": {},
	"some": {}, "more": {}, "also": {}, "they": {}, "them": {}, "then": {},
	"than": {}, "here": {}, "just": {}, "like": {}, "know": {}, "only": {},
	"same": {}, "very": {}, "were": {}, "item": {}, "kind": {}, "dear": {},
	"info": {}, "type": {},
}

// ExtractModelCode returns the product code referenced in text, if any.
// Candidates are four-character alphanumeric words. A candidate containing a
// digit wins over plain words, and filler words are never picked.
func ExtractModelCode(text string) (string, bool) {
	candidates := modelCodeRe.FindAllString(text, -1)
	if len(candidates) == 0 {
		return "", false
	}
	for _, c := range candidates {
		if strings.IndexFunc(c, unicode.IsDigit) >= 0 {
			return c, true
		}
	}
	for _, c := range candidates {
		if _, skip := fillerWords[strings.ToLower(c)]; !skip {
			return c, true
		}
	}
	return "", false
}

// isModelCode reports whether s is exactly four letters or digits.
func isModelCode(s string) bool {
	n := 0
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
		n++
		if n > 4 {
			return false
		}
	}
	return n == 4
}
