package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// WebhookSecretMiddleware authenticates provider notifications carrying
// "Authorization: Bearer <secret>". An empty secret rejects everything.
func WebhookSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		token, problem := bearerToken(c)
		if problem != "" {
			logger.Warn("Webhook rejected", slog.String("reason", problem))
			abortUnauthorized(c, problem)
			return
		}
		if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			logger.Warn("Webhook rejected: invalid secret")
			abortUnauthorized(c, "Invalid webhook secret")
			return
		}

		c.Next()
	}
}
