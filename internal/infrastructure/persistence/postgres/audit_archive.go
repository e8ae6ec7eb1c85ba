// Package postgres provides the pgx-backed audit archive sink.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keyforge/keyforge/internal/domain/models"
	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/internal/infrastructure/audit"
)

// AuditArchive persists signed audit entries to an audit_logs table. It is a
// sink behind the in-process log, not a replacement for it: the archive may
// lag or fail without affecting the audited operation.
type AuditArchive struct {
	pool       *pgxpool.Pool
	signingKey string
}

// NewAuditArchive wraps an existing connection pool. signingKey may be empty,
// in which case entries are archived unsigned.
func NewAuditArchive(pool *pgxpool.Pool, signingKey string) *AuditArchive {
	return &AuditArchive{pool: pool, signingKey: signingKey}
}

// Migrate creates the audit_logs table.
func (a *AuditArchive) Migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id         UUID PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			action     TEXT NOT NULL,
			key_id     TEXT NOT NULL,
			detail     TEXT,
			sig        TEXT
		)
	`)
	return err
}

// Record inserts one signed entry.
func (a *AuditArchive) Record(ctx context.Context, entry models.AuditEntry) error {
	var sig string
	if a.signingKey != "" {
		var err error
		sig, err = audit.SignEntry(entry, a.signingKey)
		if err != nil {
			return err
		}
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, ts, action, key_id, detail, sig)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.Timestamp, string(entry.Action), entry.KeyID, entry.Detail, sig)
	return err
}

var _ service.AuditSink = (*AuditArchive)(nil)
