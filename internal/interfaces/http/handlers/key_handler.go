// Package handlers contains the gin handlers for the key lifecycle and
// validation endpoints.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/application"
	"github.com/keyforge/keyforge/internal/infrastructure/monitoring"
	"github.com/keyforge/keyforge/internal/interfaces/http/dto"
	"github.com/keyforge/keyforge/pkg/errors"
	"github.com/keyforge/keyforge/pkg/logger"
)

// KeyHandler exposes the key manager over HTTP.
type KeyHandler struct {
	manager *application.KeyManager
	metrics *monitoring.Metrics
	log     logger.Logger
}

// NewKeyHandler creates a KeyHandler.
func NewKeyHandler(manager *application.KeyManager, metrics *monitoring.Metrics, log logger.Logger) *KeyHandler {
	return &KeyHandler{
		manager: manager,
		metrics: metrics,
		log:     log.WithComponent("http.keys"),
	}
}

// CreateKey handles POST /v1/keys.
func (h *KeyHandler) CreateKey(c *gin.Context) {
	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidInput("malformed request body").WithCause(err))
		return
	}

	key, err := h.manager.CreateKey(c.Request.Context(), req.KeyID, req.Secret, req.Metadata)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	h.metrics.KeysCreated.Inc()
	dto.SendSuccess(c, http.StatusCreated, dto.NewKeyResponse(key))
}

// RevokeKey handles DELETE /v1/keys/:key_id.
func (h *KeyHandler) RevokeKey(c *gin.Context) {
	keyID := c.Param("key_id")

	revoked, err := h.manager.RevokeKey(c.Request.Context(), keyID)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	if revoked {
		h.metrics.KeysRevoked.Inc()
	}
	dto.SendSuccess(c, http.StatusOK, dto.RevokeResponse{KeyID: keyID, Revoked: revoked})
}

// GetKey handles GET /v1/keys/:key_id.
func (h *KeyHandler) GetKey(c *gin.Context) {
	key, err := h.manager.GetKey(c.Request.Context(), c.Param("key_id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, dto.NewKeyResponse(key))
}

// ListKeys handles GET /v1/keys. Revoked keys are filtered out unless the
// caller asks for them with active_only=false.
func (h *KeyHandler) ListKeys(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "true"))

	keys, err := h.manager.ListKeys(c.Request.Context(), activeOnly)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, dto.NewKeyResponses(keys))
}

// Validate handles POST /v1/validate.
func (h *KeyHandler) Validate(c *gin.Context) {
	start := time.Now()

	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidInput("malformed request body").WithCause(err))
		return
	}

	result, err := h.manager.ValidateKey(c.Request.Context(), application.ValidateRequest{
		KeyID:     req.KeyID,
		Signature: req.Signature,
		Timestamp: req.Timestamp,
		UseCache:  req.UseCache,
	})
	if err != nil {
		h.metrics.RecordValidation(false, false, time.Since(start))
		dto.SendError(c, err)
		return
	}

	h.metrics.RecordValidation(result.Valid, result.Cached, time.Since(start))
	dto.SendSuccess(c, http.StatusOK, dto.ValidateResponse{Valid: result.Valid, Cached: result.Cached})
}

// BatchValidate handles POST /v1/validate/batch. Results are positional and
// a failing entry never aborts the rest of the batch.
func (h *KeyHandler) BatchValidate(c *gin.Context) {
	start := time.Now()

	var req dto.BatchValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidInput("malformed request body").WithCause(err))
		return
	}

	reqs := make([]application.ValidateRequest, 0, len(req.Items))
	for _, item := range req.Items {
		reqs = append(reqs, application.ValidateRequest{
			KeyID:     item.KeyID,
			Signature: item.Signature,
			Timestamp: item.Timestamp,
			UseCache:  item.UseCache,
		})
	}

	results := h.manager.BatchValidate(c.Request.Context(), reqs)

	items := make([]dto.BatchValidateItem, 0, len(results))
	for _, r := range results {
		item := dto.BatchValidateItem{
			KeyID:  r.KeyID,
			Valid:  r.Result.Valid,
			Cached: r.Result.Cached,
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		result := "invalid"
		if r.Result.Valid {
			result = "valid"
		}
		h.metrics.ValidationRequests.WithLabelValues(result, strconv.FormatBool(r.Result.Cached)).Inc()
		items = append(items, item)
	}

	h.metrics.BatchSize.Observe(float64(len(req.Items)))
	h.log.Debug(c.Request.Context(), "batch validation served",
		logger.Fields{"size": len(req.Items), "duration_ms": time.Since(start).Milliseconds()})
	dto.SendSuccess(c, http.StatusOK, items)
}

// AuditLog handles GET /v1/audit.
func (h *KeyHandler) AuditLog(c *gin.Context) {
	entries := h.manager.AuditLog()
	dto.SendSuccess(c, http.StatusOK, dto.NewAuditEntryResponses(entries))
}

// CacheStats handles GET /v1/cache/stats.
func (h *KeyHandler) CacheStats(c *gin.Context) {
	stats := h.manager.ValidationCacheStats()
	dto.SendSuccess(c, http.StatusOK, gin.H{
		"hits":   stats.Hits,
		"misses": stats.Misses,
		"size":   stats.Size,
	})
}

// ClearCache handles POST /v1/cache/clear.
func (h *KeyHandler) ClearCache(c *gin.Context) {
	if err := h.manager.ClearValidationCache(c.Request.Context()); err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, gin.H{"status": "cleared"})
}
