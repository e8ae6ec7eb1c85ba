package fakes

import (
	"context"
	"sync"

	"github.com/keyforge/keyforge/internal/domain/models"
	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/pkg/errors"
)

// FakeAuditSink captures forwarded audit entries.
type FakeAuditSink struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	failing bool
}

// NewFakeAuditSink creates an empty sink.
func NewFakeAuditSink() *FakeAuditSink {
	return &FakeAuditSink{}
}

// SetFailing makes Record return an error without capturing.
func (s *FakeAuditSink) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *FakeAuditSink) Record(ctx context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.ErrInternal("sink unavailable")
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (s *FakeAuditSink) Entries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

var _ service.AuditSink = (*FakeAuditSink)(nil)
