package similarity

import (
	"regexp"
	"strings"
)

var (
	tokenPattern = regexp.MustCompile(`[a-z0-9']+`)
	stopwords    = map[string]struct{}{
		"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "for": {},
		"from": {}, "have": {}, "i": {}, "im": {}, "i'm": {}, "in": {}, "is": {}, "it": {},
		"me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "please": {},
		"some": {}, "that": {}, "the": {}, "their": {}, "them": {}, "there": {},
		"these": {}, "they": {}, "this": {}, "those": {}, "to": {}, "was": {}, "we": {},
		"were": {}, "with": {}, "you": {}, "your": {},
	}
)

// tokenize lowercases text and splits it into alphanumeric tokens
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return tokenPattern.FindAllString(lower, -1)
}

// contentTokens tokenizes text and removes stopwords, preserving order
func contentTokens(text string) []string {
	tokens := tokenize(text)
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) == 1 && (token[0] < '0' || token[0] > '9') {
			continue
		}
		if _, isStopword := stopwords[token]; isStopword {
			continue
		}
		result = append(result, token)
	}
	return result
}

// tokenSet builds a unique token set from text
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range tokenize(text) {
		set[token] = struct{}{}
	}
	return set
}
