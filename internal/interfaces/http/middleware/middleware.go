// Package middleware contains the gin middleware chain: request IDs, access
// logging, panic recovery, rate limiting, and admin JWT auth.
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/keyforge/keyforge/internal/interfaces/http/dto"
	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/errors"
	"github.com/keyforge/keyforge/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request an ID, honoring one supplied by the caller,
// and propagates it through the request context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(string(constants.ContextKeyRequestID), id)
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(ctx)

		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs one line per request after it completes.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	accessLog := log.WithComponent("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logger.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}
		if c.Writer.Status() >= 500 {
			accessLog.Error(c.Request.Context(), "request failed", nil, fields)
			return
		}
		accessLog.Info(c.Request.Context(), "request served", fields)
	}
}

// Recovery converts a handler panic into a 500 response instead of tearing
// down the connection.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "handler panic", nil, logger.Fields{
					"panic": r,
					"path":  c.FullPath(),
				})
				dto.SendError(c, errors.ErrInternal("internal error"))
				c.Abort()
			}
		}()
		c.Next()
	}
}
