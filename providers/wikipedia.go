package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// WikipediaProvider reads page summaries from the Wikipedia REST API,
// satisfying §4.3's "Knowledge -> {wikipedia}" eligible set.
type WikipediaProvider struct {
	baseMeta
	baseURL string
	client  httpDoer
}

// WikipediaConfig configures a WikipediaProvider.
type WikipediaConfig struct {
	BaseURL     string
	Weight      float64
	Reliability float64
}

// NewWikipediaProvider builds a WikipediaProvider. client may be nil
// to use an http.Client with defaultTimeout.
func NewWikipediaProvider(cfg WikipediaConfig, client httpDoer) *WikipediaProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org/api/rest_v1/page/summary"
	}
	return &WikipediaProvider{
		baseMeta: baseMeta{meta: provider.Meta{
			Name:        "wikipedia",
			Weight:      orDefault(cfg.Weight, 0.8),
			Reliability: orDefault(cfg.Reliability, 0.88),
			Latency:     300,
		}},
		baseURL: baseURL,
		client:  client,
	}
}

type wikipediaSummaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Fetch resolves the topic named in query and returns a structured
// {title, extract} record.
func (p *WikipediaProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	topic := extractTopic(query)

	endpoint := p.baseURL + "/" + queryEscape(topic)
	var out wikipediaSummaryResponse
	if err := getJSON(ctx, p.client, endpoint, nil, &out); err != nil {
		return oracle.Response{}, err
	}
	if out.Extract == "" {
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureMalformed, Message: "wikipedia returned an empty extract for " + topic}
	}

	value := oracle.NewStructValue(map[string]any{
		"title":   out.Title,
		"extract": out.Extract,
	})

	return oracle.Response{
		Value:      value,
		Confidence: p.CalculateConfidence(value),
		Timestamp:  time.Now(),
		Metadata:   map[string]string{"topic": topic, "query": query},
	}, nil
}

// HealthCheck fetches a well-known page summary as a liveness probe.
func (p *WikipediaProvider) HealthCheck(ctx context.Context) bool {
	var out wikipediaSummaryResponse
	err := getJSON(ctx, p.client, p.baseURL+"/Earth", nil, &out)
	return err == nil
}

// CalculateConfidence rewards longer extracts slightly, on the theory
// that a stub article carries less information than a developed one,
// while staying anchored to the provider's reliability prior.
func (p *WikipediaProvider) CalculateConfidence(value oracle.Value) float64 {
	base := reliabilityConfidence(p.meta.Reliability)
	record, ok := value.Struct()
	if !ok {
		return base
	}
	extract, _ := record["extract"].(string)
	if len(extract) < 40 {
		return base * 0.8
	}
	return base
}
