package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// CustomProvider is a generic HTTP passthrough adapter for the Custom
// query type (and, per classifier.EligibleProviders, SpaceData) — it
// forwards the raw query text to a configured endpoint and maps
// whatever JSON comes back onto a Response, without knowing the
// upstream's schema ahead of time. Grounded on the teacher's
// cmd/agentflow webhook-forwarding pattern: a thin adapter whose job
// is transport, not domain logic.
type CustomProvider struct {
	baseMeta
	endpointTemplate string // "{query}" is replaced with the escaped query text
	client           httpDoer
	limiter          *tokenBucket
}

// CustomConfig configures a CustomProvider.
type CustomConfig struct {
	Name             string
	EndpointTemplate string
	Weight           float64
	Reliability      float64
	RPS              float64
}

// NewCustomProvider builds a CustomProvider. client may be nil to use
// an http.Client with defaultTimeout.
func NewCustomProvider(cfg CustomConfig, client httpDoer) *CustomProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	name := cfg.Name
	if name == "" {
		name = "custom"
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 2
	}
	return &CustomProvider{
		baseMeta: baseMeta{meta: provider.Meta{
			Name:        name,
			Weight:      orDefault(cfg.Weight, 0.5),
			Reliability: orDefault(cfg.Reliability, 0.6),
			Latency:     600,
		}},
		endpointTemplate: cfg.EndpointTemplate,
		client:           client,
		limiter:          newTokenBucket(rps*2, rps),
	}
}

// customEnvelope is the loosely-typed shape this adapter accepts from
// an arbitrary upstream: either a bare numeric "value", or an
// arbitrary JSON object treated as a structured record.
type customEnvelope struct {
	Value      *float64       `json:"value,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Record     map[string]any `json:"-"`
}

// Fetch forwards query to the configured endpoint and maps the JSON
// response onto a scalar or structured oracle.Value depending on
// whether the upstream returned a bare numeric "value" field.
func (p *CustomProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	if !p.limiter.Allow() {
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureRateLimited, Message: "custom provider self-throttle exhausted"}
	}

	endpoint := strings.ReplaceAll(p.endpointTemplate, "{query}", queryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureMalformed, Message: err.Error()}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureTimeout, Message: ctx.Err().Error()}
		}
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureUpstream, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureUpstream, Message: "custom endpoint returned non-2xx"}
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureMalformed, Message: err.Error()}
	}

	var value oracle.Value
	if v, ok := raw["value"]; ok {
		if f, ok := v.(float64); ok {
			value = oracle.NewScalarValue(f)
		} else {
			value = oracle.NewStructValue(raw)
		}
	} else {
		value = oracle.NewStructValue(raw)
	}

	return oracle.Response{
		Value:      value,
		Confidence: p.CalculateConfidence(value),
		Timestamp:  time.Now(),
		Metadata:   map[string]string{"query": query, "endpoint": endpoint},
	}, nil
}

// HealthCheck always reports healthy: a passthrough adapter has no
// fixed upstream to probe ahead of a real query.
func (p *CustomProvider) HealthCheck(ctx context.Context) bool { return true }

// CalculateConfidence reports the provider's configured reliability
// prior, since a generic passthrough has no built-in quality signal.
func (p *CustomProvider) CalculateConfidence(oracle.Value) float64 {
	return reliabilityConfidence(p.meta.Reliability)
}
