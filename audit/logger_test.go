package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oracle/oracle"
)

func sampleRecord(queryID string) oracle.AuditRecord {
	return oracle.AuditRecord{
		QueryID:   queryID,
		QueryText: "price of bitcoin",
		ConsensusResult: oracle.ConsensusResult{
			Value:      oracle.NewScalarValue(42000),
			Confidence: 0.92,
			Method:     oracle.MethodMedian,
			Sources:    []string{"coingecko", "dia"},
			Timestamp:  time.Now(),
		},
		SubmittedAt: time.Now(),
	}
}

func TestLogger_Immediate(t *testing.T) {
	ledger := NewMemoryLedger()
	l := NewLogger(ledger, Config{BatchSize: 1}, nil, zap.NewNop())

	txID, err := l.Submit(context.Background(), sampleRecord("q1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txID == "" {
		t.Error("expected a non-empty ledger transaction id")
	}

	entries := ledger.Entries(defaultTopic)
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
}

func TestLogger_BatchedBySize(t *testing.T) {
	ledger := NewMemoryLedger()
	l := NewLogger(ledger, Config{BatchSize: 2}, nil, zap.NewNop())
	defer l.Close(context.Background())

	handle1, _ := l.Submit(context.Background(), sampleRecord("q1"))
	if handle1 == "" {
		t.Fatal("expected a synthetic handle")
	}
	l.Submit(context.Background(), sampleRecord("q2"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(ledger.Entries(defaultTopic)) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	entries := ledger.Entries(defaultTopic)
	if len(entries) != 2 {
		t.Fatalf("expected batch of 2 flushed, got %d", len(entries))
	}
}

func TestLogger_BatchedByTimer(t *testing.T) {
	ledger := NewMemoryLedger()
	l := NewLogger(ledger, Config{BatchSize: 100}, nil, zap.NewNop())
	defer l.Close(context.Background())

	// Override the timer window indirectly isn't exposed; instead
	// directly invoke Flush to simulate the timer firing, since
	// batchWindow is a package constant not meant to be test-tuned.
	l.Submit(context.Background(), sampleRecord("q1"))
	l.Flush(context.Background())

	entries := ledger.Entries(defaultTopic)
	if len(entries) != 1 {
		t.Fatalf("expected flush to submit the lone entry, got %d", len(entries))
	}
}

func TestLogger_CloseDrainsPending(t *testing.T) {
	ledger := NewMemoryLedger()
	l := NewLogger(ledger, Config{BatchSize: 10}, nil, zap.NewNop())

	l.Submit(context.Background(), sampleRecord("q1"))
	l.Submit(context.Background(), sampleRecord("q2"))

	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := ledger.Entries(defaultTopic)
	if len(entries) != 2 {
		t.Fatalf("expected close to drain both pending entries, got %d", len(entries))
	}
}

func TestEncodeRecord_SmallFitsOneMessage(t *testing.T) {
	record := sampleRecord("q1")
	chunks, err := encodeRecord(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for a small record, got %d", len(chunks))
	}

	var decoded map[string]any
	if err := json.Unmarshal(chunks[0], &decoded); err != nil {
		t.Fatalf("expected valid json, got error: %v", err)
	}
	if decoded["queryId"] != "q1" {
		t.Errorf("expected queryId q1, got %v", decoded["queryId"])
	}
}

func TestEncodeRecord_PrunesOversizedRawResponses(t *testing.T) {
	record := sampleRecord("q1")
	for i := 0; i < 50; i++ {
		record.ConsensusResult.RawResponses = append(record.ConsensusResult.RawResponses, oracle.Response{
			Value:      oracle.NewScalarValue(float64(i)),
			Confidence: 0.5,
			Source:     "provider-with-a-long-identifying-name",
			Metadata:   map[string]string{"note": "padding to exceed the message budget with verbose fields"},
		})
	}

	chunks, err := encodeRecord(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) == 1 {
		var decoded map[string]any
		if err := json.Unmarshal(chunks[0], &decoded); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := decoded["rawResponses"]; ok {
			t.Error("expected rawResponses to be pruned")
		}
	}
}

func TestEncodeRecord_ChunksWhenPruningIsNotEnough(t *testing.T) {
	record := sampleRecord("q1")
	longText := ""
	for i := 0; i < 2000; i++ {
		longText += "x"
	}
	record.QueryText = longText

	chunks, err := encodeRecord(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected chunking for an oversized record, got %d chunk(s)", len(chunks))
	}

	reassembled, err := reassembleChunks(chunks)
	if err != nil {
		t.Fatalf("unexpected error reassembling: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(reassembled, &decoded); err != nil {
		t.Fatalf("reassembled payload is not valid json: %v", err)
	}

	var envelope map[string]any
	if err := json.Unmarshal(chunks[0], &envelope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope["type"] != "chunk" {
		t.Errorf("expected type=chunk, got %v", envelope["type"])
	}
	entries, ok := envelope["entries"].([]any)
	if !ok || len(entries) == 0 {
		t.Fatalf("expected a non-empty entries array in the chunk envelope, got %v", envelope["entries"])
	}
	if _, hasData := envelope["data"]; hasData {
		t.Error("chunk envelope should carry entries, not a data field")
	}
}
