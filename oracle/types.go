// Package oracle defines the data model shared by every stage of the
// provider-fanout / consensus / audit pipeline: query types, consensus
// methods, provider responses, and the final consensus result.
package oracle

import (
	"encoding/json"
	"time"
)

// QueryType is the closed set of query categories the classifier can
// produce. It restricts the eligible provider set for a query.
type QueryType string

const (
	QueryPriceFeed    QueryType = "price_feed"
	QueryExchangeRate QueryType = "exchange_rate"
	QueryWeather      QueryType = "weather"
	QuerySpaceData    QueryType = "space_data"
	QueryKnowledge    QueryType = "knowledge"
	QueryNewsOrSearch QueryType = "news_or_search"
	QueryCustom       QueryType = "custom"
)

// ConsensusMethod is the closed set of aggregation strategies the
// consensus engine implements. The wire tokens match §6 literally.
type ConsensusMethod string

const (
	MethodMedian             ConsensusMethod = "median"
	MethodWeightedAverage    ConsensusMethod = "weighted_average"
	MethodMajorityVote       ConsensusMethod = "majority_vote"
	MethodConfidenceWeighted ConsensusMethod = "confidence_weighted"
)

// ValidMethod reports whether token is a recognized ConsensusMethod.
func ValidMethod(token string) bool {
	switch ConsensusMethod(token) {
	case MethodMedian, MethodWeightedAverage, MethodMajorityVote, MethodConfidenceWeighted:
		return true
	default:
		return false
	}
}

// Value is the polymorphic payload a provider returns: either a scalar
// number or a structured record. It is a tagged variant, never an
// untyped interface{} that callers must type-switch blindly.
type Value struct {
	scalar   float64
	isScalar bool
	record   map[string]any
}

// NewScalarValue wraps a numeric response value.
func NewScalarValue(v float64) Value {
	return Value{scalar: v, isScalar: true}
}

// NewStructValue wraps a structured (non-numeric) response value.
func NewStructValue(v map[string]any) Value {
	return Value{record: v, isScalar: false}
}

// IsScalar reports whether the value carries a numeric payload.
func (v Value) IsScalar() bool { return v.isScalar }

// Scalar returns the numeric payload and whether the value is numeric.
func (v Value) Scalar() (float64, bool) { return v.scalar, v.isScalar }

// Struct returns the structured payload and whether the value is a record.
func (v Value) Struct() (map[string]any, bool) { return v.record, !v.isScalar }

// Raw returns the value in a form suitable for JSON encoding or canonical
// serialization: the float64 for a scalar, the map for a struct.
func (v Value) Raw() any {
	if v.isScalar {
		return v.scalar
	}
	return v.record
}

type jsonValue struct {
	Scalar   *float64       `json:"scalar,omitempty"`
	Struct   map[string]any `json:"struct,omitempty"`
}

// MarshalJSON encodes the tagged variant as whichever branch is set.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isScalar {
		s := v.scalar
		return json.Marshal(jsonValue{Scalar: &s})
	}
	return json.Marshal(jsonValue{Struct: v.record})
}

// UnmarshalJSON decodes a Value previously encoded by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	if jv.Scalar != nil {
		v.scalar = *jv.Scalar
		v.isScalar = true
		v.record = nil
		return nil
	}
	v.record = jv.Struct
	v.isScalar = false
	return nil
}

// Response is one provider's successful reply. A Response is only ever
// constructed on success; failures are represented by Failure and never
// surface as a Response with a zero value.
type Response struct {
	Value      Value
	Confidence float64
	Source     string
	Timestamp  time.Time
	LatencyMs  int64
	Metadata   map[string]string
}

// FailureKind is the closed set of ways a single provider fetch can fail.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureUnsupported FailureKind = "unsupported"
	FailureUpstream    FailureKind = "upstream"
	FailureRateLimited FailureKind = "rate_limited"
	FailureMalformed   FailureKind = "malformed"
)

// ProviderFailure is a single provider's fetch failure. It is observable
// to the fanout engine (for metrics) but never surfaced verbatim to the
// query() caller.
type ProviderFailure struct {
	Kind    FailureKind
	Message string
}

func (f *ProviderFailure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// ConsensusResult is the core's public output: a single reconciled value
// with a confidence score and full provenance.
type ConsensusResult struct {
	Value         Value
	Confidence    float64
	Method        ConsensusMethod
	Sources       []string
	RawResponses  []Response
	Timestamp     time.Time
}

// QueryFailureKind is the closed set of fatal, caller-visible query()
// failures (§7).
type QueryFailureKind string

const (
	FailInsufficientProviders QueryFailureKind = "insufficient_providers"
	FailInsufficientResponses QueryFailureKind = "insufficient_responses"
	FailUnsupportedMethod     QueryFailureKind = "unsupported_method"
	FailTimeout               QueryFailureKind = "timeout"
	FailProviderError         QueryFailureKind = "provider_error"
)

// QueryFailure is the single fatal failure shape returned to a query()
// caller: never a partial result with silently dropped providers.
type QueryFailure struct {
	Kind         QueryFailureKind
	Message      string
	RawResponses []Response
}

func (f *QueryFailure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// Options carries the per-query tunables a caller may override (§6).
type Options struct {
	Sources         []string
	ConsensusMethod ConsensusMethod
	Timeout         time.Duration
	CacheTime       time.Duration
}

// AuditRecord is the immutable post-consensus log entry appended to the
// external ledger topic.
type AuditRecord struct {
	QueryID         string
	QueryText       string
	ConsensusResult ConsensusResult
	SubmittedAt     time.Time
	TransactionID   string
}
