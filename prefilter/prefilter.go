// Package prefilter implements the conversational pre-filter the
// router consults before classification: a query that is pure
// chitchat with no data intent short-circuits the whole pipeline
// rather than fanning out to providers that have nothing to answer
// (§4.7).
//
// Grounded on the same ordered-rule shape as classifier.Classify
// (itself grounded on the teacher's llm/router/prefix_router.go): a
// fixed sequence of keyword/phrase checks, first match wins. The
// router depends only on the Filter interface, so a richer
// intent-classifier implementation can be swapped in without touching
// router code.
package prefilter

import "strings"

// Filter decides whether a query carries no data intent at all. The
// router treats a Filter as an external collaborator: it is consulted
// once per query, before classification, and never itself touches the
// registry, fanout, or audit log.
type Filter interface {
	IsConversational(text string) bool
}

// KeywordFilter is a minimal heuristic Filter: a query is judged
// conversational if it matches a short greeting/small-talk phrase and
// contains none of the data-intent keywords the classifier itself
// would recognize.
type KeywordFilter struct {
	greetings    []string
	dataKeywords []string
}

// NewKeywordFilter builds a KeywordFilter with a sensible default
// phrase table.
func NewKeywordFilter() *KeywordFilter {
	return &KeywordFilter{
		greetings: []string{
			"hello", "hi", "hey", "good morning", "good evening",
			"how are you", "thanks", "thank you", "who are you",
			"what can you do", "goodbye", "bye",
		},
		dataKeywords: []string{
			"price", "cost", "worth", "exchange", "convert", "weather",
			"temperature", "news", "headline", "what is", "who is",
			"explain", "define", "status", "health", "balance",
			"astronomy", "space",
		},
	}
}

// IsConversational reports whether text matches a greeting/small-talk
// phrase and carries none of the data-intent keywords. An empty or
// whitespace-only query is also treated as conversational, since there
// is no query text to classify.
func (f *KeywordFilter) IsConversational(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return true
	}

	for _, kw := range f.dataKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}

	for _, g := range f.greetings {
		if strings.Contains(lower, g) {
			return true
		}
	}

	return false
}
