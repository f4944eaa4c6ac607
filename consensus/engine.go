// Package consensus implements the consensus engine (C7): outlier
// removal followed by one of four aggregation methods, producing a
// single ConsensusResult from a set of provider Responses.
//
// Statistical helpers (mean, population standard deviation) are
// grounded on the teacher's agent/evaluation/evaluator.go
// calculateStdDev; the outlier rule, aggregation methods, and
// tie-breaking are this package's own domain logic, since the teacher
// has no multi-source consensus concept to draw on directly.
package consensus

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/oraclemesh/oracle/internal/metrics"
	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// Config parameterizes a consensus computation.
type Config struct {
	MinResponses     int
	OutlierThreshold float64 // default 0.3, scales the 3-sigma rule
}

// Engine computes a ConsensusResult from provider responses.
type Engine struct {
	cfg       Config
	collector *metrics.Collector // may be nil (metrics export optional)
}

// New builds a consensus Engine, optionally publishing outlier counts
// to a prometheus Collector (modeled on internal/metrics/collector.go).
func New(cfg Config, collector *metrics.Collector) *Engine {
	return &Engine{cfg: cfg, collector: collector}
}

// numericEntry pairs a numeric response with its parsed scalar value,
// so the response itself (and with it the source name for weight
// lookups) survives outlier filtering.
type numericEntry struct {
	resp  oracle.Response
	value float64
}

// Compute runs the full C7 pipeline: the pre-check, outlier removal,
// per-method aggregation, and result assembly. weights maps a
// provider/source name to its registry weight; a missing entry uses
// provider.DefaultWeight (§4.5.2's "default 0.5 if provider not in
// registry"). queryType only labels the outliers-dropped series; it
// has no bearing on the computation itself.
func (e *Engine) Compute(responses []oracle.Response, method oracle.ConsensusMethod, weights map[string]float64, queryType oracle.QueryType) (oracle.ConsensusResult, *oracle.QueryFailure) {
	if len(responses) < e.cfg.MinResponses {
		return oracle.ConsensusResult{}, &oracle.QueryFailure{
			Kind:         oracle.FailInsufficientResponses,
			Message:      "fewer responses than minResponses",
			RawResponses: responses,
		}
	}

	if !oracle.ValidMethod(string(method)) {
		return oracle.ConsensusResult{}, &oracle.QueryFailure{
			Kind:         oracle.FailUnsupportedMethod,
			Message:      "unrecognized consensus method: " + string(method),
			RawResponses: responses,
		}
	}

	survivors := e.removeOutliers(responses, queryType)

	var value oracle.Value
	var confidence float64

	switch method {
	case oracle.MethodMedian:
		value, confidence = e.median(survivors)
	case oracle.MethodWeightedAverage:
		value, confidence = e.weightedAverage(survivors, weights, responseConfidenceWeight(false))
	case oracle.MethodConfidenceWeighted:
		value, confidence = e.weightedAverage(survivors, weights, responseConfidenceWeight(true))
	case oracle.MethodMajorityVote:
		value, confidence = e.majorityVote(survivors, weights)
		// The winner's share is taken over every response, outliers included.
		if len(responses) > 0 {
			confidence = confidence * float64(len(survivors)) / float64(len(responses))
		}
	}

	sources := make([]string, 0, len(survivors))
	for _, r := range survivors {
		sources = append(sources, r.Source)
	}

	return oracle.ConsensusResult{
		Value:        value,
		Confidence:   confidence,
		Method:       method,
		Sources:      sources,
		RawResponses: responses,
		Timestamp:    time.Now(),
	}, nil
}

// removeOutliers applies the 3-sigma rule scaled by OutlierThreshold
// to the numeric subset of responses, leaving non-numeric responses
// untouched. Skipped entirely when fewer than 3 numeric samples exist
// (§4.5.1).
func (e *Engine) removeOutliers(responses []oracle.Response, queryType oracle.QueryType) []oracle.Response {
	var numeric []numericEntry
	var nonNumeric []oracle.Response

	for _, r := range responses {
		if v, ok := r.Value.Scalar(); ok {
			numeric = append(numeric, numericEntry{resp: r, value: v})
		} else {
			nonNumeric = append(nonNumeric, r)
		}
	}

	if len(numeric) < 3 {
		return responses
	}

	values := make([]float64, len(numeric))
	for i, n := range numeric {
		values[i] = n.value
	}

	m := mean(values)
	sd := stdDev(values, m)
	threshold := e.cfg.OutlierThreshold
	if threshold <= 0 {
		threshold = 0.3
	}
	bound := 3 * threshold * sd

	survivors := make([]oracle.Response, 0, len(responses))
	for _, n := range numeric {
		if math.Abs(n.value-m) <= bound {
			survivors = append(survivors, n.resp)
		}
	}
	numericSurvivors := len(survivors)
	survivors = append(survivors, nonNumeric...)

	if e.collector != nil {
		e.collector.RecordOutliersDropped(string(queryType), len(numeric)-numericSurvivors)
	}

	return survivors
}

// median implements §4.5.2's Median method, falling back to
// MajorityVote when no numeric survivors remain.
func (e *Engine) median(responses []oracle.Response) (oracle.Value, float64) {
	values := numericValues(responses)
	if len(values) == 0 {
		return e.majorityVote(responses, nil)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	med := median(sorted)

	mad := meanAbsoluteDeviation(values, med)
	var confidence float64
	if med != 0 {
		confidence = math.Max(0.1, 1-mad/math.Abs(med))
	} else {
		confidence = 0.1
	}

	return oracle.NewScalarValue(med), confidence
}

// weightKind picks the weight source for weightedAverage: provider
// registry weight (WeightedAverage) or the response's own reported
// confidence (ConfidenceWeighted), per §4.5.2.
type weightKind bool

func responseConfidenceWeight(useConfidence bool) weightKind { return weightKind(useConfidence) }

// weightedAverage implements both WeightedAverage and
// ConfidenceWeighted (§4.5.2): the formula is identical, only the
// weight source differs.
func (e *Engine) weightedAverage(responses []oracle.Response, weights map[string]float64, useConfidence weightKind) (oracle.Value, float64) {
	var weightedSum, weightSum, confWeightedSum float64
	found := false

	for _, r := range responses {
		v, ok := r.Value.Scalar()
		if !ok {
			continue
		}
		found = true

		var w float64
		if bool(useConfidence) {
			w = r.Confidence
		} else {
			w = providerWeight(weights, r.Source)
		}

		weightedSum += v * w
		weightSum += w
		confWeightedSum += r.Confidence * w
	}

	if !found || weightSum == 0 {
		return e.majorityVote(responses, weights)
	}

	return oracle.NewScalarValue(weightedSum / weightSum), confWeightedSum / weightSum
}

// majorityVote implements §4.5.2's MajorityVote: group by canonical
// value serialization, the largest group wins, ties broken by total
// provider weight within the group then by first appearance.
func (e *Engine) majorityVote(responses []oracle.Response, weights map[string]float64) (oracle.Value, float64) {
	if len(responses) == 0 {
		return oracle.Value{}, 0
	}

	type group struct {
		value       oracle.Value
		count       int
		totalWeight float64
		firstIndex  int
	}

	order := make([]string, 0)
	groups := make(map[string]*group)

	for i, r := range responses {
		key := canonicalKey(r.Value)
		g, ok := groups[key]
		if !ok {
			g = &group{value: r.Value, firstIndex: i}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
		g.totalWeight += providerWeight(weights, r.Source)
	}

	var winner *group
	for _, key := range order {
		g := groups[key]
		if winner == nil {
			winner = g
			continue
		}
		switch {
		case g.count > winner.count:
			winner = g
		case g.count == winner.count && g.totalWeight > winner.totalWeight:
			winner = g
		case g.count == winner.count && g.totalWeight == winner.totalWeight && g.firstIndex < winner.firstIndex:
			winner = g
		}
	}

	confidence := float64(winner.count) / float64(len(responses))
	return winner.value, confidence
}

// canonicalKey serializes a Value deterministically for grouping:
// encoding/json sorts map keys, so two structurally equal maps always
// produce the same bytes.
func canonicalKey(v oracle.Value) string {
	data, err := json.Marshal(v.Raw())
	if err != nil {
		return ""
	}
	return string(data)
}

// providerWeight looks up name's registry weight, defaulting to
// provider.DefaultWeight when absent (§4.5.2).
func providerWeight(weights map[string]float64, name string) float64 {
	if weights == nil {
		return provider.DefaultWeight
	}
	if w, ok := weights[name]; ok {
		return w
	}
	return provider.DefaultWeight
}

// numericValues extracts the scalar payloads from responses.
func numericValues(responses []oracle.Response) []float64 {
	out := make([]float64, 0, len(responses))
	for _, r := range responses {
		if v, ok := r.Value.Scalar(); ok {
			out = append(out, v)
		}
	}
	return out
}
