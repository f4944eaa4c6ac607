// Package provider defines the uniform capability contract every data
// source adapter implements (C1), grounded on the teacher's llm.Provider
// interface (_examples/BaSui01-agentflow/llm/provider.go): a small
// capability surface plus a name/weight/reliability/latency descriptor,
// rather than an inheritance hierarchy of concrete provider types.
package provider

import (
	"context"

	"github.com/oraclemesh/oracle/oracle"
)

// Provider is the capability every data source adapter must satisfy.
// Built-in providers (price, weather, knowledge, ...) are concrete types
// satisfying this interface; none of them is modeled as a subclass of
// another.
type Provider interface {
	// Name returns the provider's unique registry key.
	Name() string

	// Meta returns the provider's static descriptor.
	Meta() Meta

	// Fetch answers query within ctx's deadline. It must return within
	// the caller's deadline or be abandoned; a late result after
	// cancellation is discarded by the caller, not by Fetch itself.
	Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error)

	// HealthCheck is a best-effort liveness probe. It has no side effect
	// on fetch metrics beyond the registry's own lastHealth bookkeeping.
	HealthCheck(ctx context.Context) bool

	// CalculateConfidence scores a fetched value's quality in [0,1].
	// Called once per successful fetch, before the Response is emitted.
	CalculateConfidence(value oracle.Value) float64
}

// Meta is a provider's static descriptor: name, weight, reliability, and
// an informational latency estimate. Weight and reliability both live in
// (0,1]; Latency is advisory only and never gates fetch behavior.
type Meta struct {
	Name        string
	Weight      float64
	Reliability float64
	Latency     int64 // milliseconds, informational
}

// DefaultWeight is used by the consensus engine when a response's source
// provider is not found in the registry (§4.5.2).
const DefaultWeight = 0.5
