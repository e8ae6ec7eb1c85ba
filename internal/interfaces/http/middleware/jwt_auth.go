package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/keyforge/keyforge/internal/interfaces/http/dto"
	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/errors"
	"github.com/keyforge/keyforge/pkg/logger"
)

// extractBearer pulls the token out of an Authorization header.
func extractBearer(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireAdminJWT protects the mutating routes with an HS256 bearer token.
// The subject claim of a verified token is stored in the request context.
func RequireAdminJWT(secret string, log logger.Logger) gin.HandlerFunc {
	authLog := log.WithComponent("http.auth")
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}

	return func(c *gin.Context) {
		tokenStr := extractBearer(c.GetHeader("Authorization"))
		if tokenStr == "" {
			dto.SendError(c, errors.ErrUnauthorized("missing bearer token"))
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenStr, keyFunc,
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid {
			authLog.Warn(c.Request.Context(), "admin token rejected", logger.Fields{"error": errString(err)})
			dto.SendError(c, errors.ErrUnauthorized("invalid bearer token"))
			c.Abort()
			return
		}

		sub, _ := token.Claims.GetSubject()
		c.Set(string(constants.ContextKeyAdminSub), sub)
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyAdminSub, sub)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func errString(err error) string {
	if err == nil {
		return "token invalid"
	}
	return err.Error()
}
