package providers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/oraclemesh/oracle/oracle"
)

// stubDoer is a minimal httpDoer test double that returns a canned
// JSON body for every request, regardless of URL.
type stubDoer struct {
	status int
	body   string
	err    error
}

func (s stubDoer) Do(req *http.Request) (*http.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(s.body)),
		Header:     make(http.Header),
	}, nil
}

func TestCoinGeckoProvider_Fetch(t *testing.T) {
	doer := stubDoer{body: `{"bitcoin":{"usd":42000.5}}`}
	p := NewCoinGeckoProvider(CoinGeckoConfig{}, doer)

	resp, err := p.Fetch(context.Background(), "price of bitcoin", oracle.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := resp.Value.Scalar()
	if !ok || v != 42000.5 {
		t.Fatalf("expected scalar 42000.5, got %v (ok=%v)", v, ok)
	}
	if resp.Confidence <= 0 || resp.Confidence > 1 {
		t.Errorf("confidence out of range: %v", resp.Confidence)
	}
}

func TestCoinGeckoProvider_RateLimited(t *testing.T) {
	doer := stubDoer{body: `{"bitcoin":{"usd":1}}`}
	p := NewCoinGeckoProvider(CoinGeckoConfig{}, doer)
	p.limiter = newTokenBucket(1, 0.001) // effectively exhausted after one call

	if _, err := p.Fetch(context.Background(), "btc price", oracle.Options{}); err != nil {
		t.Fatalf("first fetch should succeed: %v", err)
	}
	_, err := p.Fetch(context.Background(), "btc price", oracle.Options{})
	if err == nil {
		t.Fatal("expected rate-limited failure on second call")
	}
	pf, ok := err.(*oracle.ProviderFailure)
	if !ok || pf.Kind != oracle.FailureRateLimited {
		t.Fatalf("expected FailureRateLimited, got %+v", err)
	}
}

func TestCoinGeckoProvider_UpstreamError(t *testing.T) {
	doer := stubDoer{status: http.StatusInternalServerError, body: `{}`}
	p := NewCoinGeckoProvider(CoinGeckoConfig{}, doer)

	_, err := p.Fetch(context.Background(), "btc price", oracle.Options{})
	if err == nil {
		t.Fatal("expected error on 500 response")
	}
	pf, ok := err.(*oracle.ProviderFailure)
	if !ok || pf.Kind != oracle.FailureUpstream {
		t.Fatalf("expected FailureUpstream, got %+v", err)
	}
}

func TestOpenWeatherProvider_Fetch(t *testing.T) {
	body := `{"main":{"temp":21.5,"humidity":60},"weather":[{"main":"Clear"}],"name":"London"}`
	p := NewOpenWeatherProvider(OpenWeatherConfig{APIKey: "k"}, stubDoer{body: body})

	resp, err := p.Fetch(context.Background(), "weather forecast in London", oracle.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	record, ok := resp.Value.Struct()
	if !ok {
		t.Fatal("expected a structured value")
	}
	if record["conditions"] != "Clear" {
		t.Errorf("expected conditions=Clear, got %v", record["conditions"])
	}
}

func TestWikipediaProvider_EmptyExtractIsMalformed(t *testing.T) {
	p := NewWikipediaProvider(WikipediaConfig{}, stubDoer{body: `{"title":"Go","extract":""}`})

	_, err := p.Fetch(context.Background(), "what is go", oracle.Options{})
	if err == nil {
		t.Fatal("expected malformed failure on empty extract")
	}
	pf, ok := err.(*oracle.ProviderFailure)
	if !ok || pf.Kind != oracle.FailureMalformed {
		t.Fatalf("expected FailureMalformed, got %+v", err)
	}
}

func TestNewsAPIProvider_NoArticlesIsMalformed(t *testing.T) {
	p := NewNewsAPIProvider(NewsAPIConfig{}, stubDoer{body: `{"articles":[]}`})

	_, err := p.Fetch(context.Background(), "latest on markets", oracle.Options{})
	if err == nil {
		t.Fatal("expected malformed failure on empty articles")
	}
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	b := newTokenBucket(1, 100) // 100 tokens/sec refill
	if !b.Allow() {
		t.Fatal("expected first call to be allowed")
	}
	if b.Allow() {
		t.Fatal("expected immediate second call to be denied")
	}
	time.Sleep(15 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("expected call to be allowed after refill window")
	}
}

func TestExtractSymbol_DefaultsToBTC(t *testing.T) {
	if got := extractSymbol("what's up", []string{"eth", "sol"}); got != "BTC" {
		t.Errorf("expected default BTC, got %s", got)
	}
	if got := extractSymbol("price of ETH today", []string{"eth", "sol"}); got != "ETH" {
		t.Errorf("expected ETH, got %s", got)
	}
}

func TestExtractCity_DefaultsToLondon(t *testing.T) {
	if got := extractCity("what's the weather"); got != "London" {
		t.Errorf("expected default London, got %s", got)
	}
	if got := extractCity("weather in Paris"); got != "Paris" {
		t.Errorf("expected Paris, got %s", got)
	}
}
