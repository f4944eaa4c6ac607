// Package classifier implements the query-type classifier (C5): a
// pure, deterministic function mapping a natural-language query to a
// QueryType, which in turn restricts the eligible provider set.
//
// Grounded on the teacher's llm/router/prefix_router.go: an ordered
// sequence of rules is tried in priority order and the first match
// wins, the same shape as PrefixRouter.RouteByModelID's longest-prefix
// scan, generalized here from prefix-matching a model ID to
// keyword-matching free text.
package classifier

import (
	"regexp"
	"strings"

	"github.com/oraclemesh/oracle/oracle"
)

// rule is one ordered classification step: if any of its keywords
// appears in the lowercased query, result wins.
type rule struct {
	keywords []string
	result   oracle.QueryType
}

var fxPairPattern = regexp.MustCompile(`\b[a-z]{3}\s*/\s*[a-z]{3}\b`)

var fiatCodes = []string{
	"usd", "eur", "gbp", "jpy", "cny", "chf", "aud", "cad", "nzd", "sek",
	"nok", "dkk", "inr", "krw", "mxn", "brl", "zar", "sgd", "hkd", "try",
}

var cryptoTickers = []string{
	"btc", "bitcoin", "eth", "ethereum", "sol", "solana", "usdt", "usdc",
	"bnb", "xrp", "ada", "doge", "dot", "matic", "avax", "link",
}

// Ordered classification rules, tried top to bottom. The first rule
// whose keyword set matches the query wins; ties are broken by
// position, never by keyword length or specificity.
var rules = []rule{
	{
		// System introspection keywords take priority over anything
		// else, since "status of bitcoin price feed" is a question
		// about the oracle itself, not a price query.
		keywords: []string{"status", "health", "provider", "balance"},
		result:   oracle.QueryCustom,
	},
	{
		keywords: append([]string{"price", "cost", "value", "worth"}, cryptoTickers...),
		result:   oracle.QueryPriceFeed,
	},
	{
		keywords: append([]string{"exchange", "fx rate", "convert"}, fiatCodes...),
		result:   oracle.QueryExchangeRate,
	},
	{
		keywords: []string{"weather", "temperature", "forecast", "humidity", "rainfall"},
		result:   oracle.QueryWeather,
	},
	{
		keywords: []string{"news", "headline", "search for", "latest on", "article"},
		result:   oracle.QueryNewsOrSearch,
	},
	{
		keywords: []string{"astronomy", "space", "satellite", "orbit", "asteroid", "nasa", "planet"},
		result:   oracle.QuerySpaceData,
	},
	{
		keywords: []string{"what is", "who is", "explain", "define", "definition of"},
		result:   oracle.QueryKnowledge,
	},
}

// Classify maps text to a QueryType by applying the ordered rules in
// §4.3. Unrecognized input deliberately falls through to QueryCustom,
// which fans out to every registered provider rather than narrowing
// the eligible set on an unconfident guess.
func Classify(text string) oracle.QueryType {
	lower := strings.ToLower(text)

	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.result
			}
		}
	}

	if fxPairPattern.MatchString(lower) {
		return oracle.QueryExchangeRate
	}

	return oracle.QueryCustom
}

// EligibleProviders derives the fixed eligible-provider-name set for a
// QueryType (§4.3's table). QueryCustom intentionally has no fixed
// entry here: the caller is expected to fall back to "every registered
// provider name" in that case, since the set isn't bounded by type.
var EligibleProviders = map[oracle.QueryType][]string{
	oracle.QueryPriceFeed:    {"chainlink", "coingecko", "dia"},
	oracle.QueryExchangeRate: {"chainlink", "coingecko", "dia"},
	oracle.QueryWeather:      {"openweather"},
	oracle.QuerySpaceData:    {"custom"},
	oracle.QueryKnowledge:    {"wikipedia"},
	oracle.QueryNewsOrSearch: {"newsapi"},
}

// Eligible returns the provider names eligible for queryType, given
// the full set of registered provider names. QueryCustom and any
// QueryType absent from the fixed table resolve to the full
// registered set, per §4.3's "Custom -> all registered providers" and
// the conservative-fallback rationale.
func Eligible(queryType oracle.QueryType, registered []string) []string {
	names, ok := EligibleProviders[queryType]
	if !ok || queryType == oracle.QueryCustom {
		out := make([]string, len(registered))
		copy(out, registered)
		return out
	}

	registeredSet := make(map[string]struct{}, len(registered))
	for _, n := range registered {
		registeredSet[n] = struct{}{}
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := registeredSet[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Intersect narrows providers to the caller-supplied sources list
// (options.Sources), intersected with the registered set, per §4.3:
// an explicit sources list overrides the classifier entirely.
func Intersect(sources []string, registered []string) []string {
	registeredSet := make(map[string]struct{}, len(registered))
	for _, n := range registered {
		registeredSet[n] = struct{}{}
	}

	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if _, ok := registeredSet[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
