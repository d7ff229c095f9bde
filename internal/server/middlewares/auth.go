package middlewares

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/emnt/spacesync/internal/server/handlers/api"
	"github.com/gin-gonic/gin"
)

const (
	bearerPrefix = "Bearer "
	authHeader   = "Authorization"
)

// TokenAuth requires `Authorization: Bearer <token>`. An empty token disables the check.
func TokenAuth(token string) gin.HandlerFunc {
	if token == "" {
		slog.Warn("auth middleware disabled, no http token configured")
		return func(ctx *gin.Context) {
			ctx.Next()
		}
	}
	slog.Info("auth middleware enabled")

	expected := []byte(token)
	return func(ctx *gin.Context) {
		value := ctx.GetHeader(authHeader)
		if value == "" {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeUnauthorized, errors.New("authorization header is missing"))
			return
		}
		if !strings.HasPrefix(value, bearerPrefix) {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeUnauthorized, errors.New("authorization header format must be Bearer {token}"))
			return
		}

		got := []byte(strings.TrimPrefix(value, bearerPrefix))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeUnauthorized, errors.New("invalid token"))
			return
		}
		ctx.Next()
	}
}
