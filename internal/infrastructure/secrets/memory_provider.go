// Package secrets provides SecretProvider implementations: an in-memory map
// for tests and single-node deployments, and a HashiCorp Vault KVv2 backend.
package secrets

import (
	"context"
	"sync"

	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/pkg/errors"
)

// MemoryProvider holds secrets in a process-local map. Writable.
type MemoryProvider struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryProvider returns an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{secrets: make(map[string]string)}
}

// FetchSecret resolves a reference to its secret.
func (p *MemoryProvider) FetchSecret(ctx context.Context, ref string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	secret, ok := p.secrets[ref]
	if !ok {
		return "", errors.ErrKeyNotFound(ref)
	}
	return secret, nil
}

// StoreSecret files the secret under the key identifier.
func (p *MemoryProvider) StoreSecret(ctx context.Context, keyID, secret string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[keyID] = secret
	return nil
}

// DeleteSecret removes the secret for the reference. Missing refs are a no-op.
func (p *MemoryProvider) DeleteSecret(ctx context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.secrets, ref)
	return nil
}

var _ service.WritableSecretProvider = (*MemoryProvider)(nil)
