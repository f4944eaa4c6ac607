package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oracle/internal/metrics"
	"github.com/oraclemesh/oracle/oracle"
)

const defaultTopic = "oracle.consensus"

// batchWindow is the 5s timer that flushes a batch even if it never
// reaches batchSize (§4.6).
const batchWindow = 5 * time.Second

// maxRetries bounds re-queued batch entry attempts before the entry
// is dropped with an error event (§4.6's "bounded retries").
const maxRetries = 5

// Logger is the audit logger (C8): it submits AuditRecords to a
// Ledger, either immediately (batchSize=1) or batched on a size/timer
// trigger. Grounded on the teacher's llm/retry/backoff.go retry shape
// (bounded attempts) applied to re-queued batch entries instead of a
// single outbound call; a failed entry is retried on a later flush,
// with no backoff delay between attempts.
type Logger struct {
	ledger    Ledger
	batchSize int
	topic     string
	logger    *zap.Logger
	metrics   *metrics.Collector

	mu      sync.Mutex
	pending []pendingEntry
	timer   *time.Timer
	closed  bool

	flushCh chan struct{}
	doneCh  chan struct{}
}

type pendingEntry struct {
	queryID string
	chunks  [][]byte
	retries int
}

// Config configures a Logger.
type Config struct {
	BatchSize int
	Topic     string
}

// NewLogger builds a Logger around ledger. A background goroutine
// owns the batch timer and drains flush signals; call Close to stop
// it and drain any pending batch.
func NewLogger(ledger Ledger, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Logger {
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	l := &Logger{
		ledger:    ledger,
		batchSize: batchSize,
		topic:     topic,
		logger:    logger.With(zap.String("component", "audit_logger")),
		metrics:   collector,
		flushCh:   make(chan struct{}, 1),
		doneCh:    make(chan struct{}),
	}

	if batchSize > 1 {
		go l.batchLoop()
	}

	return l
}

// Submit appends record's audit entry. With batchSize=1 it submits
// immediately and returns the ledger's transaction id. With
// batchSize>1 it enqueues and returns a synthetic handle; the caller
// never blocks on ledger I/O (§4.6).
func (l *Logger) Submit(ctx context.Context, record oracle.AuditRecord) (string, error) {
	chunks, err := encodeRecord(record)
	if err != nil {
		return "", fmt.Errorf("encode audit record: %w", err)
	}

	if l.batchSize == 1 {
		return l.submitNow(ctx, record.QueryID, chunks)
	}

	l.enqueue(record.QueryID, chunks)
	return fmt.Sprintf("batched:%s", record.QueryID), nil
}

func (l *Logger) submitNow(ctx context.Context, queryID string, chunks [][]byte) (string, error) {
	var lastTxID string
	for _, chunk := range chunks {
		txID, err := l.ledger.Append(ctx, l.topic, chunk)
		if err != nil {
			l.logger.Error("audit submission failed", zap.String("query_id", queryID), zap.Error(err))
			if l.metrics != nil {
				l.metrics.RecordAuditDropped("ledger")
			}
			return "", err
		}
		lastTxID = txID
	}
	if l.metrics != nil {
		l.metrics.RecordAuditSubmitted("ledger")
	}
	return lastTxID, nil
}

func (l *Logger) enqueue(queryID string, chunks [][]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	isFirstInBatch := len(l.pending) == 0
	l.pending = append(l.pending, pendingEntry{queryID: queryID, chunks: chunks})

	if isFirstInBatch {
		l.timer = time.AfterFunc(batchWindow, l.requestFlush)
	}

	if len(l.pending) >= l.batchSize {
		l.requestFlush()
	}
}

func (l *Logger) requestFlush() {
	select {
	case l.flushCh <- struct{}{}:
	default:
	}
}

func (l *Logger) batchLoop() {
	for {
		select {
		case <-l.flushCh:
			l.flush(context.Background())
		case <-l.doneCh:
			l.flush(context.Background())
			return
		}
	}
}

// flush drains the current pending batch in enqueue order, retrying
// failed entries with re-queueing ahead of new entries up to
// maxRetries, then dropping and logging an error event.
func (l *Logger) flush(ctx context.Context) {
	l.mu.Lock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var retry []pendingEntry

	for _, entry := range batch {
		submitted := true
		for _, chunk := range entry.chunks {
			if _, err := l.ledger.Append(ctx, l.topic, chunk); err != nil {
				submitted = false
				l.logger.Warn("batched audit entry failed",
					zap.String("query_id", entry.queryID),
					zap.Int("retries", entry.retries),
					zap.Error(err),
				)
				break
			}
		}

		if submitted {
			if l.metrics != nil {
				l.metrics.RecordAuditSubmitted("ledger")
			}
			continue
		}

		entry.retries++
		if entry.retries > maxRetries {
			l.logger.Error("audit entry dropped after exhausting retries",
				zap.String("query_id", entry.queryID),
			)
			if l.metrics != nil {
				l.metrics.RecordAuditDropped("ledger")
			}
			continue
		}
		retry = append(retry, entry)
	}

	if len(retry) > 0 {
		l.mu.Lock()
		// Re-queued entries go ahead of anything enqueued since this
		// flush started (§4.6's ordering guarantee for retries).
		l.pending = append(retry, l.pending...)
		if l.timer == nil {
			l.timer = time.AfterFunc(batchWindow, l.requestFlush)
		}
		l.mu.Unlock()
	}
}

// Flush drains the pending batch synchronously, blocking until the
// drain completes. Safe to call even with batchSize=1 (a no-op then).
func (l *Logger) Flush(ctx context.Context) {
	l.flush(ctx)
}

// Close flushes any pending batch and stops the background loop. Must
// be called during orderly process shutdown (§4.6).
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.flush(ctx)
	if l.batchSize > 1 {
		close(l.doneCh)
	}

	return l.ledger.Close(ctx)
}
