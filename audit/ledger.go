// Package audit implements the audit logger (C8): it appends a
// compact representation of (query, ConsensusResult) to an
// append-only topic on a pluggable Ledger, batching submissions and
// pruning/chunking records that exceed the ledger's single-message
// size budget.
//
// Grounded on the teacher's agent/persistence.MessageStore
// (agent/persistence/message_store.go): an append-mostly store
// interface with pluggable backends (memory/file/redis in the
// teacher), generalized here to three backends (in-process memory,
// MongoDB, and an HTTP ledger gateway) since the audit trail's backend
// concern is ledger storage,
// not message delivery.
package audit

import (
	"context"
	"time"
)

// Ledger is the append-only store an AuditRecord is submitted to. A
// ledger transaction id is returned for unbatched (batchSize=1)
// submissions; batched submissions never see this id directly (the
// Logger hands back a synthetic handle instead).
type Ledger interface {
	// Append writes one entry's raw bytes to topic, returning the
	// ledger's transaction id.
	Append(ctx context.Context, topic string, entry []byte) (string, error)

	// Close releases the ledger's resources.
	Close(ctx context.Context) error
}

// Entry is one submitted audit message, already serialized and
// pruned/chunked to fit the message-size budget.
type Entry struct {
	QueryID    string
	Payload    []byte
	EnqueuedAt time.Time
}
