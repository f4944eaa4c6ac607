package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// NewsAPIProvider reads top headlines from the NewsAPI REST API,
// satisfying §4.3's NewsOrSearch query type.
type NewsAPIProvider struct {
	baseMeta
	baseURL string
	apiKey  string
	client  httpDoer
}

// NewsAPIConfig configures a NewsAPIProvider.
type NewsAPIConfig struct {
	BaseURL     string
	APIKey      string
	Weight      float64
	Reliability float64
}

// NewNewsAPIProvider builds a NewsAPIProvider. client may be nil to
// use an http.Client with defaultTimeout.
func NewNewsAPIProvider(cfg NewsAPIConfig, client httpDoer) *NewsAPIProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://newsapi.org/v2"
	}
	return &NewsAPIProvider{
		baseMeta: baseMeta{meta: provider.Meta{
			Name:        "newsapi",
			Weight:      orDefault(cfg.Weight, 0.7),
			Reliability: orDefault(cfg.Reliability, 0.75),
			Latency:     450,
		}},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

type newsAPIResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Source      struct{ Name string `json:"name"` } `json:"source"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Fetch returns the single top headline matching the topic named in
// query, as a structured record.
func (p *NewsAPIProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	topic := extractTopic(query)

	endpoint := p.baseURL + "/everything?q=" + queryEscape(topic) + "&sortBy=publishedAt&pageSize=1&apiKey=" + queryEscape(p.apiKey)
	var out newsAPIResponse
	if err := getJSON(ctx, p.client, endpoint, nil, &out); err != nil {
		return oracle.Response{}, err
	}
	if len(out.Articles) == 0 {
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureMalformed, Message: "newsapi returned no articles for " + topic}
	}

	a := out.Articles[0]
	value := oracle.NewStructValue(map[string]any{
		"headline": a.Title,
		"source":   a.Source.Name,
		"url":      a.URL,
	})

	return oracle.Response{
		Value:      value,
		Confidence: p.CalculateConfidence(value),
		Timestamp:  time.Now(),
		Metadata:   map[string]string{"topic": topic, "query": query},
	}, nil
}

// HealthCheck issues a minimal top-headlines request as a liveness
// probe.
func (p *NewsAPIProvider) HealthCheck(ctx context.Context) bool {
	endpoint := p.baseURL + "/top-headlines?pageSize=1&country=us&apiKey=" + queryEscape(p.apiKey)
	err := getJSON(ctx, p.client, endpoint, nil, nil)
	return err == nil
}

// CalculateConfidence reports the provider's static reliability;
// NewsAPI's free tier doesn't expose a per-article quality score.
func (p *NewsAPIProvider) CalculateConfidence(oracle.Value) float64 {
	return reliabilityConfidence(p.meta.Reliability)
}
