package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryLedger is an in-process Ledger implementation, used in tests
// and standalone deployments that don't need a durable external
// ledger. Grounded on the teacher's
// agent/persistence/memory_message_store.go mutex-guarded in-memory
// store shape.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string][][]byte // topic -> ordered entries
}

// NewMemoryLedger builds an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string][][]byte)}
}

// Append stores entry under topic, preserving submission order, and
// returns a synthetic transaction id.
func (l *MemoryLedger) Append(ctx context.Context, topic string, entry []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[topic] = append(l.entries[topic], append([]byte(nil), entry...))
	txID := fmt.Sprintf("mem-%s", uuid.NewString())
	return txID, nil
}

// Close is a no-op for the in-memory ledger.
func (l *MemoryLedger) Close(ctx context.Context) error { return nil }

// Entries returns a copy of everything appended to topic, for test
// assertions.
func (l *MemoryLedger) Entries(topic string) [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([][]byte, len(l.entries[topic]))
	copy(out, l.entries[topic])
	return out
}
