package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/oraclemesh/oracle/oracle"
)

// messageBudget is the ledger's hard upper bound on a single
// serialized message, per §4.6.
const messageBudget = 1024

// encodeRecord serializes record to fit the ledger's single-message
// budget, pruning fields first and falling back to ordered chunks
// when pruning still isn't enough. The returned slice has exactly one
// entry for an unchunked record, or N ordered chunk entries.
func encodeRecord(record oracle.AuditRecord) ([][]byte, error) {
	full, err := json.Marshal(auditWireRecordFrom(record))
	if err != nil {
		return nil, fmt.Errorf("marshal audit record: %w", err)
	}

	if len(full) <= messageBudget {
		return [][]byte{full}, nil
	}

	pruned, err := pruneRecord(full)
	if err != nil {
		return nil, err
	}
	if len(pruned) <= messageBudget {
		return [][]byte{pruned}, nil
	}

	return chunkRecord(record.QueryID, pruned)
}

// auditWireRecord is the JSON shape submitted to the ledger, matching
// §6's literal wire shape (queryId/query/result/hcsTimestamp/
// transactionId) with rawResponses and metadata carried as extra
// diagnostic fields that pruneRecord strips first when a record
// exceeds the message budget.
type auditWireRecord struct {
	QueryID       string            `json:"queryId"`
	Query         string            `json:"query"`
	Result        auditResultWire   `json:"result"`
	HCSTimestamp  string            `json:"hcsTimestamp"`
	TransactionID string            `json:"transactionId,omitempty"`
	RawResponses  []oracle.Response `json:"rawResponses,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// auditResultWire is the nested "result" object in §6's wire shape.
type auditResultWire struct {
	Value      any                    `json:"value"`
	Confidence float64                `json:"confidence"`
	Method     oracle.ConsensusMethod `json:"method"`
	Sources    []string               `json:"sources"`
	Timestamp  string                 `json:"timestamp"`
}

func auditWireRecordFrom(record oracle.AuditRecord) auditWireRecord {
	return auditWireRecord{
		QueryID: record.QueryID,
		Query:   record.QueryText,
		Result: auditResultWire{
			Value:      record.ConsensusResult.Value.Raw(),
			Confidence: record.ConsensusResult.Confidence,
			Method:     record.ConsensusResult.Method,
			Sources:    record.ConsensusResult.Sources,
			Timestamp:  record.ConsensusResult.Timestamp.UTC().Format(time.RFC3339),
		},
		HCSTimestamp:  record.SubmittedAt.UTC().Format(time.RFC3339),
		TransactionID: record.TransactionID,
		RawResponses:  record.ConsensusResult.RawResponses,
	}
}

// pruneRecord drops rawResponses and metadata from the wire-format
// JSON, keeping queryId/value/confidence/sources per §4.6(a).
func pruneRecord(full []byte) ([]byte, error) {
	pruned, err := sjson.DeleteBytes(full, "rawResponses")
	if err != nil {
		return nil, fmt.Errorf("prune rawResponses: %w", err)
	}
	pruned, err = sjson.DeleteBytes(pruned, "metadata")
	if err != nil {
		return nil, fmt.Errorf("prune metadata: %w", err)
	}
	return pruned, nil
}

// chunkRecord splits payload into ordered chunk messages, each tagged
// per §6's chunk envelope: {type, chunkIndex, totalChunks, queryId,
// entries}. entries carries the chunk's slice of the pruned payload as
// its sole element, so a downstream ledger consumer sees the same
// "entries" array shape regardless of how many pieces one chunk ends
// up holding. The chunk size is sized to leave headroom for the
// envelope fields themselves and for the queryId; it is halved because
// quotes and backslashes in the payload double in size once the chunk
// is re-encoded as a JSON string.
func chunkRecord(queryID string, payload []byte) ([][]byte, error) {
	const envelopeOverhead = 96
	chunkSize := (messageBudget - envelopeOverhead - len(queryID)) / 2
	if chunkSize <= 0 {
		return nil, fmt.Errorf("message budget too small to chunk")
	}

	totalChunks := (len(payload) + chunkSize - 1) / chunkSize
	chunks := make([][]byte, 0, totalChunks)

	for i := 0; i < totalChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}

		envelope := map[string]any{
			"type":        "chunk",
			"chunkIndex":  i,
			"totalChunks": totalChunks,
			"queryId":     queryID,
			"entries":     []string{string(payload[start:end])},
		}

		data, err := json.Marshal(envelope)
		if err != nil {
			return nil, fmt.Errorf("marshal chunk %d: %w", i, err)
		}
		chunks = append(chunks, data)
	}

	return chunks, nil
}

// reassembleChunks is the inverse of chunkRecord, used by tests and
// any downstream consumer reading raw ledger entries back out.
func reassembleChunks(entries [][]byte) ([]byte, error) {
	ordered := make([]string, len(entries))
	for _, e := range entries {
		result := gjson.ParseBytes(e)
		idx := int(result.Get("chunkIndex").Int())
		if idx < 0 || idx >= len(ordered) {
			return nil, fmt.Errorf("chunk index %d out of range", idx)
		}
		parts := result.Get("entries")
		if !parts.IsArray() || len(parts.Array()) == 0 {
			return nil, fmt.Errorf("chunk %d missing entries", idx)
		}
		ordered[idx] = parts.Array()[0].String()
	}

	var out string
	for _, part := range ordered {
		out += part
	}
	return []byte(out), nil
}
