package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// DIAProvider reads asset quotes from the DIA (Decentralised
// Information Asset) price-feed REST API, the third member of §4.3's
// "PriceFeed -> {chainlink, coingecko, dia}" eligible set.
type DIAProvider struct {
	baseMeta
	baseURL string
	client  httpDoer
}

// DIAConfig configures a DIAProvider.
type DIAConfig struct {
	BaseURL     string
	Weight      float64
	Reliability float64
}

// NewDIAProvider builds a DIAProvider. client may be nil to use an
// http.Client with defaultTimeout.
func NewDIAProvider(cfg DIAConfig, client httpDoer) *DIAProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.diadata.org/v1"
	}
	return &DIAProvider{
		baseMeta: baseMeta{meta: provider.Meta{
			Name:        "dia",
			Weight:      orDefault(cfg.Weight, 0.75),
			Reliability: orDefault(cfg.Reliability, 0.85),
			Latency:     500,
		}},
		baseURL: baseURL,
		client:  client,
	}
}

type diaQuoteResponse struct {
	Symbol string  `json:"Symbol"`
	Price  float64 `json:"Price"`
	Time   string  `json:"Time"`
}

var diaTickers = []string{"btc", "eth", "sol", "bnb", "link", "matic"}

// Fetch reads the latest DIA quote for the symbol named in query.
func (p *DIAProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	symbol := extractSymbol(query, diaTickers)

	endpoint := p.baseURL + "/quotation/" + queryEscape(symbol)
	var out diaQuoteResponse
	if err := getJSON(ctx, p.client, endpoint, nil, &out); err != nil {
		return oracle.Response{}, err
	}

	value := oracle.NewScalarValue(out.Price)
	return oracle.Response{
		Value:      value,
		Confidence: p.CalculateConfidence(value),
		Timestamp:  time.Now(),
		Metadata:   map[string]string{"symbol": symbol, "query": query},
	}, nil
}

// HealthCheck reads a well-known quote endpoint as a liveness probe;
// DIA exposes no dedicated health route.
func (p *DIAProvider) HealthCheck(ctx context.Context) bool {
	var out diaQuoteResponse
	err := getJSON(ctx, p.client, p.baseURL+"/quotation/BTC", nil, &out)
	return err == nil
}

// CalculateConfidence scales the provider's static reliability down
// by a fixed 5%, since DIA's free quotation endpoint can lag its
// source exchanges; the quote's age is not examined.
func (p *DIAProvider) CalculateConfidence(value oracle.Value) float64 {
	return reliabilityConfidence(p.meta.Reliability) * 0.95
}
