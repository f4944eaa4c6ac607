package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// OpenWeatherProvider reads current conditions from the OpenWeatherMap
// REST API, satisfying §4.3's "Weather -> {weather}" eligible set (the
// fixed-table entry is named by query type here, "openweather", to
// disambiguate it from the QueryWeather type itself).
type OpenWeatherProvider struct {
	baseMeta
	baseURL string
	apiKey  string
	client  httpDoer
}

// OpenWeatherConfig configures an OpenWeatherProvider.
type OpenWeatherConfig struct {
	BaseURL     string
	APIKey      string
	Weight      float64
	Reliability float64
}

// NewOpenWeatherProvider builds an OpenWeatherProvider. client may be
// nil to use an http.Client with defaultTimeout.
func NewOpenWeatherProvider(cfg OpenWeatherConfig, client httpDoer) *OpenWeatherProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org/data/2.5"
	}
	return &OpenWeatherProvider{
		baseMeta: baseMeta{meta: provider.Meta{
			Name:        "openweather",
			Weight:      orDefault(cfg.Weight, 0.85),
			Reliability: orDefault(cfg.Reliability, 0.9),
			Latency:     350,
		}},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

type openWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Name string `json:"name"`
}

// Fetch returns a structured weather record for the city named in
// query: the Value tag is the non-numeric branch, so the consensus
// engine routes it through MajorityVote rather than the numeric
// aggregation methods (§4.5.2, §9).
func (p *OpenWeatherProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	city := extractCity(query)

	endpoint := p.baseURL + "/weather?q=" + queryEscape(city) + "&appid=" + queryEscape(p.apiKey) + "&units=metric"
	var out openWeatherResponse
	if err := getJSON(ctx, p.client, endpoint, nil, &out); err != nil {
		return oracle.Response{}, err
	}

	conditions := "unknown"
	if len(out.Weather) > 0 {
		conditions = out.Weather[0].Main
	}

	value := oracle.NewStructValue(map[string]any{
		"city":        out.Name,
		"temperature": out.Main.Temp,
		"humidity":    out.Main.Humidity,
		"conditions":  conditions,
	})

	return oracle.Response{
		Value:      value,
		Confidence: p.CalculateConfidence(value),
		Timestamp:  time.Now(),
		Metadata:   map[string]string{"city": city, "query": query},
	}, nil
}

// HealthCheck issues a lightweight weather request for a well-known
// city as a liveness probe.
func (p *OpenWeatherProvider) HealthCheck(ctx context.Context) bool {
	endpoint := p.baseURL + "/weather?q=London&appid=" + queryEscape(p.apiKey)
	var out openWeatherResponse
	err := getJSON(ctx, p.client, endpoint, nil, &out)
	return err == nil
}

// CalculateConfidence reports the provider's static reliability;
// OpenWeatherMap's free tier doesn't report per-observation quality.
func (p *OpenWeatherProvider) CalculateConfidence(oracle.Value) float64 {
	return reliabilityConfidence(p.meta.Reliability)
}
