// Package audit implements the append-only audit trail: the in-process log
// owned by the key manager, HMAC entry signing for tamper evidence, and
// best-effort sinks that fan entries out to Kafka or Postgres.
package audit

import (
	"context"
	"sync"

	"github.com/keyforge/keyforge/internal/domain/models"
	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/pkg/logger"
)

// Log is the authoritative in-process audit trail. Entries are appended in
// completion order and never mutated or removed. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	sinks   []service.AuditSink
	log     logger.Logger
}

// NewLog creates an empty audit log. Entries are additionally forwarded to
// each sink; a sink failure is logged and never fails the audited operation.
func NewLog(log logger.Logger, sinks ...service.AuditSink) *Log {
	return &Log{
		sinks: sinks,
		log:   log.WithComponent("AuditLog"),
	}
}

// Append records an entry and forwards it to the configured sinks.
func (l *Log) Append(ctx context.Context, entry models.AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	for _, sink := range l.sinks {
		if err := sink.Record(ctx, entry); err != nil {
			l.log.Warn(ctx, "audit sink rejected entry", logger.Fields{
				"action": string(entry.Action),
				"key_id": entry.KeyID,
				"error":  err.Error(),
			})
		}
	}
}

// Snapshot returns a read-only copy of the log in insertion order.
func (l *Log) Snapshot() []models.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries recorded so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
