// Package keyforgeclient is a small client for the keyforge HTTP API. It
// signs requests locally and round-trips them through the validation and
// lifecycle endpoints.
package keyforgeclient

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("key not found")
	ErrRateLimited  = errors.New("rate limited")
)

// Client talks to a keyforge server.
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithAdminToken attaches a bearer token to lifecycle calls.
func WithAdminToken(token string) Option {
	return func(c *Client) { c.adminToken = token }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sign computes the request signature for keyID and timestamp with the given
// secret. The server computes the same HMAC-SHA256 over "keyID\ntimestamp".
func Sign(keyID, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(keyID))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Key is the wire form of an API key.
type Key struct {
	KeyID      string            `json:"key_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Active     bool              `json:"active"`
	CreatedAt  time.Time         `json:"created_at"`
	RevokedAt  *time.Time        `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time        `json:"last_used_at,omitempty"`
}

// ValidationResult reports one validation outcome.
type ValidationResult struct {
	Valid  bool `json:"valid"`
	Cached bool `json:"cached"`
}

// AuditEntry is one audit log record.
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	KeyID     string    `json:"key_id"`
	Detail    string    `json:"detail,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateKey registers a key with the server.
func (c *Client) CreateKey(ctx context.Context, keyID, secret string, metadata map[string]string) (*Key, error) {
	body := map[string]interface{}{"key_id": keyID, "secret": secret, "metadata": metadata}
	var key Key
	if err := c.do(ctx, http.MethodPost, "/v1/keys", body, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// RevokeKey revokes a key. It returns false when the key was already revoked.
func (c *Client) RevokeKey(ctx context.Context, keyID string) (bool, error) {
	var resp struct {
		Revoked bool `json:"revoked"`
	}
	path := "/v1/keys/" + url.PathEscape(keyID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Revoked, nil
}

// GetKey fetches a key's public record.
func (c *Client) GetKey(ctx context.Context, keyID string) (*Key, error) {
	var key Key
	if err := c.do(ctx, http.MethodGet, "/v1/keys/"+url.PathEscape(keyID), nil, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// ListKeys lists keys, optionally only the active ones.
func (c *Client) ListKeys(ctx context.Context, activeOnly bool) ([]Key, error) {
	var keys []Key
	path := "/v1/keys?active_only=" + strconv.FormatBool(activeOnly)
	if err := c.do(ctx, http.MethodGet, path, nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Validate signs a request with secret at the current time and asks the
// server to validate it.
func (c *Client) Validate(ctx context.Context, keyID, secret string) (*ValidationResult, error) {
	ts := time.Now().Unix()
	return c.ValidateSignature(ctx, keyID, Sign(keyID, secret, ts), ts)
}

// ValidateSignature validates an externally produced signature.
func (c *Client) ValidateSignature(ctx context.Context, keyID, signature string, timestamp int64) (*ValidationResult, error) {
	body := map[string]interface{}{"key_id": keyID, "signature": signature, "timestamp": timestamp}
	var result ValidationResult
	if err := c.do(ctx, http.MethodPost, "/v1/validate", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AuditLog fetches the audit trail.
func (c *Client) AuditLog(ctx context.Context) ([]AuditEntry, error) {
	var entries []AuditEntry
	if err := c.do(ctx, http.MethodGet, "/v1/audit", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if !env.Success {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusTooManyRequests:
			return ErrRateLimited
		}
		if env.Error != nil {
			return fmt.Errorf("server error %s: %s", env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
