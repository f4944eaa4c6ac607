package providers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// chainlinkTickers are the symbols this adapter recognizes; §4.3's
// example eligible-set table names "chainlink" as a canonical
// PriceFeed/ExchangeRate provider.
var chainlinkTickers = []string{"btc", "eth", "sol", "bnb", "matic", "link", "avax"}

// ChainlinkProvider reads price data from a Chainlink price-feed
// aggregator HTTP endpoint. Grounded on other_examples/
// 2aa11d75_smartcontractkit-chainlink-mercury__llo-plugin.go.go for
// the "chainlink" provider-naming convention; the HTTP-fetch shape
// itself follows the teacher's llm.Provider.Completion adapters.
// Rate-limited with golang.org/x/time/rate, per spec §9's token-bucket
// self-throttle note: real Chainlink feed aggregators enforce a
// per-key request budget.
type ChainlinkProvider struct {
	baseMeta
	baseURL string
	client  httpDoer
	limiter *rate.Limiter
}

// ChainlinkConfig configures a ChainlinkProvider.
type ChainlinkConfig struct {
	BaseURL     string // e.g. "https://api.chain.link"
	Weight      float64
	Reliability float64
	RPS         float64 // requests/sec the provider self-throttles to
}

// NewChainlinkProvider builds a ChainlinkProvider. client may be nil
// to use an http.Client with defaultTimeout.
func NewChainlinkProvider(cfg ChainlinkConfig, client httpDoer) *ChainlinkProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	return &ChainlinkProvider{
		baseMeta: baseMeta{meta: provider.Meta{
			Name:        "chainlink",
			Weight:      orDefault(cfg.Weight, 0.9),
			Reliability: orDefault(cfg.Reliability, 0.95),
			Latency:     250,
		}},
		baseURL: cfg.BaseURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

type chainlinkFeedResponse struct {
	Answer    float64 `json:"answer"`
	UpdatedAt int64   `json:"updatedAt"`
}

// Fetch resolves the ticker/pair in query against the Chainlink feed
// aggregator and reports the latest round answer.
func (p *ChainlinkProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureRateLimited, Message: "chainlink self-throttle: " + err.Error()}
	}

	symbol := extractSymbol(query, chainlinkTickers)
	var out chainlinkFeedResponse
	endpoint := p.baseURL + "/v1/feeds/" + queryEscape(symbol) + "-usd/latest"
	if err := getJSON(ctx, p.client, endpoint, nil, &out); err != nil {
		return oracle.Response{}, err
	}

	value := oracle.NewScalarValue(out.Answer)
	return oracle.Response{
		Value:      value,
		Confidence: p.CalculateConfidence(value),
		Timestamp:  time.Now(),
		Metadata:   map[string]string{"symbol": symbol, "query": query},
	}, nil
}

// HealthCheck pings the feed aggregator's status endpoint.
func (p *ChainlinkProvider) HealthCheck(ctx context.Context) bool {
	err := getJSON(ctx, p.client, p.baseURL+"/v1/health", nil, nil)
	return err == nil
}

// CalculateConfidence reports Chainlink's static reliability: a
// decentralized aggregator's per-answer quality isn't something this
// adapter can assess beyond its own prior.
func (p *ChainlinkProvider) CalculateConfidence(oracle.Value) float64 {
	return reliabilityConfidence(p.meta.Reliability)
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
