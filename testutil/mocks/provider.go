// Package mocks provides a builder-style Provider test double so
// fanout/consensus/router tests can exercise the pipeline without a
// live upstream call. Grounded on the teacher's
// testutil/mocks/provider.go MockProvider (WithResponse/WithError/
// WithDelay/WithFailAfter builder chain plus call recording).
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// MockProvider is a provider.Provider test double configured via a
// builder chain. The zero value (via NewMockProvider) responds with a
// scalar 0 and confidence 1 until configured otherwise.
type MockProvider struct {
	mu sync.Mutex

	name  string
	meta  provider.Meta
	value oracle.Value
	conf  float64
	err   error
	delay time.Duration

	// failAfter makes the first failAfter calls succeed and every call
	// after that fail with err, modeling a provider that degrades
	// partway through a test.
	failAfter int
	calls     int

	healthy bool
}

// NewMockProvider builds a MockProvider named name with default weight
// and reliability of 0.5 and 0.9.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:    name,
		meta:    provider.Meta{Name: name, Weight: 0.5, Reliability: 0.9},
		value:   oracle.NewScalarValue(0),
		conf:    1.0,
		healthy: true,
	}
}

// WithResponse configures the value and confidence returned on success.
func (m *MockProvider) WithResponse(value float64, confidence float64) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = oracle.NewScalarValue(value)
	m.conf = confidence
	return m
}

// WithStructResponse configures a non-numeric (structured) response.
func (m *MockProvider) WithStructResponse(value map[string]any, confidence float64) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = oracle.NewStructValue(value)
	m.conf = confidence
	return m
}

// WithError makes every Fetch call fail with err.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithDelay makes Fetch sleep for d (respecting ctx cancellation)
// before returning, for exercising the fanout engine's per-provider
// timeout.
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter makes the first n calls succeed, and every call after
// that fail with err.
func (m *MockProvider) WithFailAfter(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.err = err
	return m
}

// WithWeight overrides the descriptor weight (registry scoring tests).
func (m *MockProvider) WithWeight(w float64) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta.Weight = w
	return m
}

// WithUnhealthy makes HealthCheck report false.
func (m *MockProvider) WithUnhealthy() *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = false
	return m
}

// Name implements provider.Provider.
func (m *MockProvider) Name() string { return m.name }

// Meta implements provider.Provider.
func (m *MockProvider) Meta() provider.Meta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta
}

// Fetch implements provider.Provider.
func (m *MockProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	m.mu.Lock()
	m.calls++
	calls := m.calls
	delay := m.delay
	failAfter := m.failAfter
	err := m.err
	value := m.value
	conf := m.conf
	name := m.name
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureTimeout, Message: "deadline exceeded"}
		}
	}

	if err != nil && (failAfter == 0 || calls > failAfter) {
		return oracle.Response{}, err
	}

	return oracle.Response{
		Value:      value,
		Confidence: conf,
		Source:     name,
		Timestamp:  time.Now(),
	}, nil
}

// HealthCheck implements provider.Provider.
func (m *MockProvider) HealthCheck(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// CalculateConfidence implements provider.Provider.
func (m *MockProvider) CalculateConfidence(value oracle.Value) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conf
}

// CallCount returns the number of times Fetch has been called so far.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
