package providers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

var coingeckoIDs = map[string]string{
	"btc": "bitcoin", "bitcoin": "bitcoin",
	"eth": "ethereum", "ethereum": "ethereum",
	"sol": "solana", "solana": "solana",
	"bnb": "binancecoin",
	"ada": "cardano",
	"doge": "dogecoin",
	"xrp": "ripple",
	"dot": "polkadot",
	"matic": "matic-network",
	"avax": "avalanche-2",
	"link": "chainlink",
}

// CoinGeckoProvider reads spot prices from the CoinGecko simple-price
// REST API, satisfying §4.3's "PriceFeed -> {chainlink, coingecko,
// dia}" eligible-set table. Grounded on the teacher's llm.Provider
// HTTP-adapter shape; rate-limited with the package's own hand-rolled
// tokenBucket (spec §9 names both a token-bucket self-throttle and,
// separately, the teacher's own dependency-free limiter — this
// provider exercises the latter, ChainlinkProvider the former).
type CoinGeckoProvider struct {
	baseMeta
	baseURL string
	client  httpDoer
	limiter *tokenBucket
}

// CoinGeckoConfig configures a CoinGeckoProvider.
type CoinGeckoConfig struct {
	BaseURL     string
	Weight      float64
	Reliability float64
}

// NewCoinGeckoProvider builds a CoinGeckoProvider. client may be nil
// to use an http.Client with defaultTimeout.
func NewCoinGeckoProvider(cfg CoinGeckoConfig, client httpDoer) *CoinGeckoProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &CoinGeckoProvider{
		baseMeta: baseMeta{meta: provider.Meta{
			Name:        "coingecko",
			Weight:      orDefault(cfg.Weight, 0.8),
			Reliability: orDefault(cfg.Reliability, 0.9),
			Latency:     400,
		}},
		baseURL: baseURL,
		client:  client,
		limiter: newTokenBucket(10, 10.0/60.0), // free tier: ~10 req/min
	}
}

type coingeckoPriceResponse map[string]map[string]float64

// Fetch resolves query to a CoinGecko coin id and returns its USD spot
// price.
func (p *CoinGeckoProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	if !p.limiter.Allow() {
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureRateLimited, Message: "coingecko free-tier budget exhausted"}
	}

	symbol := strings.ToLower(extractSymbol(query, symbolKeys(coingeckoIDs)))
	id, ok := coingeckoIDs[symbol]
	if !ok {
		id = "bitcoin"
	}

	endpoint := p.baseURL + "/simple/price?ids=" + queryEscape(id) + "&vs_currencies=usd"
	var out coingeckoPriceResponse
	if err := getJSON(ctx, p.client, endpoint, nil, &out); err != nil {
		return oracle.Response{}, err
	}

	priceUSD, ok := out[id]["usd"]
	if !ok {
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureMalformed, Message: "coingecko response missing usd price for " + id}
	}

	value := oracle.NewScalarValue(priceUSD)
	return oracle.Response{
		Value:      value,
		Confidence: p.CalculateConfidence(value),
		Timestamp:  time.Now(),
		Metadata:   map[string]string{"coin_id": id, "query": query},
	}, nil
}

// HealthCheck pings CoinGecko's /ping endpoint.
func (p *CoinGeckoProvider) HealthCheck(ctx context.Context) bool {
	err := getJSON(ctx, p.client, p.baseURL+"/ping", nil, nil)
	return err == nil
}

// CalculateConfidence reports CoinGecko's static reliability prior;
// the public API doesn't expose a per-quote freshness/quality score.
func (p *CoinGeckoProvider) CalculateConfidence(oracle.Value) float64 {
	return reliabilityConfidence(p.meta.Reliability)
}

func symbolKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
