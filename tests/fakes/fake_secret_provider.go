package fakes

import (
	"context"
	"sync"

	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/pkg/errors"
)

// FakeSecretProvider is an in-memory provider whose failure behavior can be
// toggled per test.
type FakeSecretProvider struct {
	mu      sync.RWMutex
	secrets map[string]string
	failing bool

	FetchCalls int
}

// NewFakeSecretProvider creates an empty provider.
func NewFakeSecretProvider() *FakeSecretProvider {
	return &FakeSecretProvider{secrets: make(map[string]string)}
}

// SetFailing makes every FetchSecret call return a resolution error.
func (p *FakeSecretProvider) SetFailing(failing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = failing
}

func (p *FakeSecretProvider) FetchSecret(ctx context.Context, ref string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.FetchCalls++
	if p.failing {
		return "", errors.ErrSecretResolution(nil)
	}
	secret, ok := p.secrets[ref]
	if !ok {
		return "", errors.ErrKeyNotFound(ref)
	}
	return secret, nil
}

func (p *FakeSecretProvider) StoreSecret(ctx context.Context, keyID, secret string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[keyID] = secret
	return nil
}

func (p *FakeSecretProvider) DeleteSecret(ctx context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.secrets, ref)
	return nil
}

var _ service.WritableSecretProvider = (*FakeSecretProvider)(nil)
