package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// accountIDKey stores the authenticated account ID (the JWT subject).
const accountIDKey = contextKey("accountID")

// WithAccountID returns a copy of ctx carrying the authenticated account ID.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// GetAccountIDFromContext retrieves the authenticated account ID from the Gin context.
// It returns the account ID and a boolean indicating if it was found.
func GetAccountIDFromContext(c *gin.Context) (string, bool) {
	if val, exists := c.Get(string(accountIDKey)); exists {
		accountID, ok := val.(string)
		return accountID, ok && accountID != ""
	}
	// check in the request context as well
	accountID, ok := c.Request.Context().Value(accountIDKey).(string)
	return accountID, ok && accountID != ""
}
