package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// httpDoer is the minimal surface providers depend on instead of
// *http.Client directly, so tests can substitute a stub round tripper
// without spinning up a real listener.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// getJSON issues a GET to rawURL, decoding a JSON body into out. A
// non-2xx status is reported as an Upstream ProviderFailure so callers
// don't need to special-case status codes themselves.
func getJSON(ctx context.Context, doer httpDoer, rawURL string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &oracle.ProviderFailure{Kind: oracle.FailureMalformed, Message: err.Error()}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := doer.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &oracle.ProviderFailure{Kind: oracle.FailureTimeout, Message: ctx.Err().Error()}
		}
		return &oracle.ProviderFailure{Kind: oracle.FailureUpstream, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &oracle.ProviderFailure{Kind: oracle.FailureRateLimited, Message: "upstream rate limited the request"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &oracle.ProviderFailure{Kind: oracle.FailureUpstream, Message: fmt.Sprintf("upstream status %d: %s", resp.StatusCode, string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &oracle.ProviderFailure{Kind: oracle.FailureMalformed, Message: err.Error()}
	}
	return nil
}

// extractSymbol pulls a plausible ticker/symbol token out of free text,
// uppercased, defaulting to "BTC" when nothing recognizable is present.
// This is the provider-specific "selector logic" spec §1 treats as
// implementation detail.
func extractSymbol(query string, known []string) string {
	lower := strings.ToLower(query)
	for _, sym := range known {
		if strings.Contains(lower, strings.ToLower(sym)) {
			return strings.ToUpper(sym)
		}
	}
	return "BTC"
}

// extractFiatPair pulls a "FROM/TO" or "FROM to TO" fiat pair out of
// free text, defaulting to USD/EUR.
func extractFiatPair(query string) (string, string) {
	lower := strings.ToLower(query)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return r == '/' || r == ' ' || r == ','
	})
	var codes []string
	for _, f := range fields {
		if len(f) == 3 && isAlpha(f) {
			codes = append(codes, strings.ToUpper(f))
		}
	}
	if len(codes) >= 2 {
		return codes[0], codes[1]
	}
	if len(codes) == 1 {
		return codes[0], "USD"
	}
	return "USD", "EUR"
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// extractCity pulls a trailing "in <city>" location out of free text,
// defaulting to "London".
func extractCity(query string) string {
	lower := strings.ToLower(query)
	idx := strings.LastIndex(lower, " in ")
	if idx == -1 {
		return "London"
	}
	city := strings.TrimSpace(query[idx+4:])
	city = strings.Trim(city, "?.! ")
	if city == "" {
		return "London"
	}
	return city
}

// extractTopic strips common search-intent prefixes off a query to
// recover the underlying topic, for the knowledge/news providers.
func extractTopic(query string) string {
	lower := strings.ToLower(query)
	prefixes := []string{"what is ", "who is ", "explain ", "define ", "definition of ", "news on ", "latest on ", "search for "}
	for _, p := range prefixes {
		if idx := strings.Index(lower, p); idx == 0 {
			return strings.TrimSpace(query[len(p):])
		}
	}
	return strings.TrimSpace(query)
}

// reliabilityConfidence is the shared CalculateConfidence fallback for
// providers without a richer quality signal of their own: it simply
// reports the provider's static reliability, clamped to [0,1].
func reliabilityConfidence(reliability float64) float64 {
	if reliability <= 0 {
		return 0.5
	}
	if reliability > 1 {
		return 1
	}
	return reliability
}

// queryEscape is a thin readability wrapper over url.QueryEscape used
// by every HTTP provider below.
func queryEscape(s string) string { return url.QueryEscape(s) }

// defaultTimeout bounds provider-internal HTTP calls when the caller's
// context carries no deadline of its own (it normally does, via the
// fanout engine's per-provider timeout).
const defaultTimeout = 10 * time.Second

// baseMeta is embedded by every concrete provider to satisfy the
// Name()/Meta() half of provider.Provider without repeating the same
// three-line accessor in each file.
type baseMeta struct {
	meta provider.Meta
}

func (b baseMeta) Name() string         { return b.meta.Name }
func (b baseMeta) Meta() provider.Meta  { return b.meta }
