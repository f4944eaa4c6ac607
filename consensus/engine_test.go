package consensus

import (
	"testing"

	"github.com/oraclemesh/oracle/oracle"
)

func resp(source string, value float64, confidence float64) oracle.Response {
	return oracle.Response{Value: oracle.NewScalarValue(value), Confidence: confidence, Source: source}
}

func TestCompute_InsufficientResponses(t *testing.T) {
	e := New(Config{MinResponses: 3, OutlierThreshold: 0.3}, nil)
	_, failure := e.Compute([]oracle.Response{resp("a", 1, 0.9), resp("b", 2, 0.9)}, oracle.MethodMedian, nil, oracle.QueryCustom)
	if failure == nil || failure.Kind != oracle.FailInsufficientResponses {
		t.Fatalf("expected InsufficientResponses, got %+v", failure)
	}
}

func TestCompute_UnsupportedMethod(t *testing.T) {
	e := New(Config{MinResponses: 1, OutlierThreshold: 0.3}, nil)
	_, failure := e.Compute([]oracle.Response{resp("a", 1, 0.9)}, oracle.ConsensusMethod("bogus"), nil, oracle.QueryCustom)
	if failure == nil || failure.Kind != oracle.FailUnsupportedMethod {
		t.Fatalf("expected UnsupportedMethod, got %+v", failure)
	}
}

func TestCompute_Median_Odd(t *testing.T) {
	e := New(Config{MinResponses: 1, OutlierThreshold: 0.3}, nil)
	result, failure := e.Compute([]oracle.Response{resp("a", 10, 0.9), resp("b", 20, 0.9), resp("c", 30, 0.9)}, oracle.MethodMedian, nil, oracle.QueryCustom)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	v, _ := result.Value.Scalar()
	if v != 20 {
		t.Errorf("expected median 20, got %v", v)
	}
}

func TestCompute_Median_Even(t *testing.T) {
	e := New(Config{MinResponses: 1, OutlierThreshold: 0.3}, nil)
	result, failure := e.Compute([]oracle.Response{resp("a", 10, 0.9), resp("b", 20, 0.9), resp("c", 30, 0.9), resp("d", 40, 0.9)}, oracle.MethodMedian, nil, oracle.QueryCustom)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	v, _ := result.Value.Scalar()
	if v != 25 {
		t.Errorf("expected median 25, got %v", v)
	}
}

func TestCompute_WeightedAverage(t *testing.T) {
	e := New(Config{MinResponses: 1, OutlierThreshold: 0.3}, nil)
	weights := map[string]float64{"a": 1.0, "b": 3.0}
	result, failure := e.Compute([]oracle.Response{resp("a", 10, 0.5), resp("b", 20, 0.5)}, oracle.MethodWeightedAverage, weights, oracle.QueryCustom)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	v, _ := result.Value.Scalar()
	want := (10*1.0 + 20*3.0) / 4.0
	if v != want {
		t.Errorf("got %v, want %v", v, want)
	}
}

func TestCompute_ConfidenceWeighted(t *testing.T) {
	e := New(Config{MinResponses: 1, OutlierThreshold: 0.3}, nil)
	result, failure := e.Compute([]oracle.Response{resp("a", 10, 0.2), resp("b", 20, 0.8)}, oracle.MethodConfidenceWeighted, nil, oracle.QueryCustom)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	v, _ := result.Value.Scalar()
	want := (10*0.2 + 20*0.8) / (0.2 + 0.8)
	if v != want {
		t.Errorf("got %v, want %v", v, want)
	}
}

func TestCompute_MajorityVote(t *testing.T) {
	e := New(Config{MinResponses: 1, OutlierThreshold: 0.3}, nil)
	responses := []oracle.Response{
		resp("a", 100, 0.9),
		resp("b", 100, 0.9),
		resp("c", 200, 0.9),
	}
	result, failure := e.Compute(responses, oracle.MethodMajorityVote, nil, oracle.QueryCustom)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	v, _ := result.Value.Scalar()
	if v != 100 {
		t.Errorf("expected winner 100, got %v", v)
	}
	if result.Confidence != float64(2)/float64(3) {
		t.Errorf("expected confidence 2/3, got %v", result.Confidence)
	}
}

func TestCompute_OutlierRemoval(t *testing.T) {
	e := New(Config{MinResponses: 1, OutlierThreshold: 0.3}, nil)
	responses := []oracle.Response{
		resp("a", 100, 0.9),
		resp("b", 101, 0.9),
		resp("c", 99, 0.9),
		resp("d", 10000, 0.9), // extreme outlier
	}
	result, failure := e.Compute(responses, oracle.MethodMedian, nil, oracle.QueryCustom)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	if len(result.Sources) != 3 {
		t.Errorf("expected outlier dropped, sources=%v", result.Sources)
	}
	if len(result.RawResponses) != 4 {
		t.Errorf("expected rawResponses to retain all 4, got %d", len(result.RawResponses))
	}
}

func TestCompute_FewerThanThreeNumericSkipsOutlierRemoval(t *testing.T) {
	e := New(Config{MinResponses: 1, OutlierThreshold: 0.3}, nil)
	responses := []oracle.Response{resp("a", 1, 0.9), resp("b", 100000, 0.9)}
	result, failure := e.Compute(responses, oracle.MethodMedian, nil, oracle.QueryCustom)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	if len(result.Sources) != 2 {
		t.Errorf("expected no outlier removal with <3 numeric samples, sources=%v", result.Sources)
	}
}
