package secrets

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"time"

	vault "github.com/hashicorp/vault/api"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/pkg/errors"
	"github.com/keyforge/keyforge/pkg/logger"
)

// secretField is the KVv2 data field holding the shared secret.
const secretField = "secret"

// VaultConfig configures the Vault KVv2 secret provider.
type VaultConfig struct {
	Address    string
	Token      string
	MountPath  string
	PathPrefix string
	// L1TTL is the lifetime of the in-process secret cache in front of Vault.
	// Kept short so revoked secrets age out quickly.
	L1TTL time.Duration
}

// VaultProvider resolves secrets from a HashiCorp Vault KVv2 engine.
// Concurrent fetches of the same reference are deduplicated through
// singleflight, and resolved secrets are held in a short-lived in-process
// cache to keep Vault off the hot validation path.
type VaultProvider struct {
	client  *vault.Client
	cfg     VaultConfig
	l1Cache *gocache.Cache
	group   singleflight.Group
	log     logger.Logger
}

// NewVaultProvider creates and configures a Vault-backed provider.
func NewVaultProvider(cfg VaultConfig, log logger.Logger) (*VaultProvider, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, errors.ErrSecretResolution(err)
	}
	client.SetToken(cfg.Token)

	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.L1TTL <= 0 {
		cfg.L1TTL = time.Minute
	}

	return &VaultProvider{
		client:  client,
		cfg:     cfg,
		l1Cache: gocache.New(cfg.L1TTL, 5*time.Minute),
		log:     log.WithComponent("VaultProvider"),
	}, nil
}

// NewVaultProviderWithClient wraps an existing Vault client. Used in tests.
func NewVaultProviderWithClient(client *vault.Client, cfg VaultConfig, log logger.Logger) *VaultProvider {
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.L1TTL <= 0 {
		cfg.L1TTL = time.Minute
	}
	return &VaultProvider{
		client:  client,
		cfg:     cfg,
		l1Cache: gocache.New(cfg.L1TTL, 5*time.Minute),
		log:     log.WithComponent("VaultProvider"),
	}
}

// FetchSecret resolves a reference from Vault. A missing secret maps to a
// key-not-found error; any other backend failure is a retryable
// secret-resolution error.
func (p *VaultProvider) FetchSecret(ctx context.Context, ref string) (string, error) {
	if cached, found := p.l1Cache.Get(ref); found {
		return cached.(string), nil
	}

	val, err, _ := p.group.Do(ref, func() (interface{}, error) {
		secret, err := p.client.KVv2(p.cfg.MountPath).Get(ctx, p.secretPath(ref))
		if err != nil {
			if stderrors.Is(err, vault.ErrSecretNotFound) {
				return nil, errors.ErrKeyNotFound(ref)
			}
			return nil, errors.ErrSecretResolution(err)
		}
		if secret == nil || secret.Data == nil {
			return nil, errors.ErrKeyNotFound(ref)
		}
		raw, ok := secret.Data[secretField].(string)
		if !ok {
			return nil, errors.ErrSecretResolution(
				fmt.Errorf("field %q missing in vault secret", secretField))
		}
		return raw, nil
	})
	if err != nil {
		return "", err
	}

	resolved := val.(string)
	p.l1Cache.Set(ref, resolved, p.cfg.L1TTL)
	return resolved, nil
}

// StoreSecret writes the secret under the key identifier.
func (p *VaultProvider) StoreSecret(ctx context.Context, keyID, secret string) error {
	data := map[string]interface{}{secretField: secret}
	if _, err := p.client.KVv2(p.cfg.MountPath).Put(ctx, p.secretPath(keyID), data); err != nil {
		return errors.ErrSecretResolution(err)
	}
	return nil
}

// DeleteSecret removes the secret for the reference and drops the L1 entry.
func (p *VaultProvider) DeleteSecret(ctx context.Context, ref string) error {
	if err := p.client.KVv2(p.cfg.MountPath).Delete(ctx, p.secretPath(ref)); err != nil {
		return errors.ErrSecretResolution(err)
	}
	p.l1Cache.Delete(ref)
	return nil
}

func (p *VaultProvider) secretPath(ref string) string {
	return path.Join(p.cfg.PathPrefix, ref)
}

var _ service.WritableSecretProvider = (*VaultProvider)(nil)
