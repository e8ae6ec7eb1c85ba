// Package dto defines the HTTP request and response shapes and the helpers
// that render them.
package dto

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/domain/models"
	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/errors"
)

// CreateKeyRequest creates a new API key.
type CreateKeyRequest struct {
	KeyID    string            `json:"key_id" binding:"required"`
	Secret   string            `json:"secret" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

// ValidateRequest validates one signed request.
type ValidateRequest struct {
	KeyID     string `json:"key_id"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	UseCache  *bool  `json:"use_cache"`
}

// BatchValidateRequest validates several signed requests in one call.
type BatchValidateRequest struct {
	Items []ValidateRequest `json:"items" binding:"required"`
}

// KeyResponse is the wire form of a key. The secret never appears here.
type KeyResponse struct {
	KeyID      string            `json:"key_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Active     bool              `json:"active"`
	CreatedAt  time.Time         `json:"created_at"`
	RevokedAt  *time.Time        `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time        `json:"last_used_at,omitempty"`
}

// ValidateResponse reports a single validation outcome.
type ValidateResponse struct {
	Valid  bool `json:"valid"`
	Cached bool `json:"cached"`
}

// BatchValidateItem is one positional result of a batch validation.
type BatchValidateItem struct {
	KeyID  string `json:"key_id"`
	Valid  bool   `json:"valid"`
	Cached bool   `json:"cached"`
	Error  string `json:"error,omitempty"`
}

// RevokeResponse reports whether a revocation changed state.
type RevokeResponse struct {
	KeyID   string `json:"key_id"`
	Revoked bool   `json:"revoked"`
}

// AuditEntryResponse is the wire form of an audit entry.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	KeyID     string    `json:"key_id"`
	Detail    string    `json:"detail,omitempty"`
}

// APIResponse is the envelope every endpoint responds with.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO carries the machine-readable error code and a human message.
type ErrorDTO struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SendSuccess renders data in the success envelope.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// SendError renders err in the error envelope, mapping AppError codes to
// their HTTP status. Unknown errors become an opaque internal error.
func SendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	dto := &ErrorDTO{
		Code:    string(constants.ErrCodeInternal),
		Message: "internal error",
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		status = appErr.HTTPStatus()
		dto.Code = string(appErr.Code())
		dto.Message = appErr.Error()
		if md := appErr.Metadata(); len(md) > 0 {
			dto.Details = md
		}
	}

	c.JSON(status, &APIResponse{
		Success:   false,
		Error:     dto,
		RequestID: requestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// NewKeyResponse maps a domain key to its wire form.
func NewKeyResponse(key *models.Key) KeyResponse {
	return KeyResponse{
		KeyID:      key.KeyID,
		Metadata:   key.Metadata,
		Active:     key.Active,
		CreatedAt:  key.CreatedAt,
		RevokedAt:  key.RevokedAt,
		LastUsedAt: key.LastUsedAt,
	}
}

// NewKeyResponses maps a list of domain keys.
func NewKeyResponses(keys []*models.Key) []KeyResponse {
	out := make([]KeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, NewKeyResponse(k))
	}
	return out
}

// NewAuditEntryResponses maps audit entries to their wire form.
func NewAuditEntryResponses(entries []models.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID.String(),
			Timestamp: e.Timestamp,
			Action:    string(e.Action),
			KeyID:     e.KeyID,
			Detail:    e.Detail,
		})
	}
	return out
}

func requestID(c *gin.Context) string {
	if id, ok := c.Value(string(constants.ContextKeyRequestID)).(string); ok {
		return id
	}
	return ""
}
