package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/dto"
	"github.com/SscSPs/credit_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: ErrStoreFailure also matches any 5xx AppError.
var errorTable = []errorMapping{
	{apperrors.ErrValidation, http.StatusBadRequest, "bad_request"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{apperrors.ErrInsufficientCredits, http.StatusPaymentRequired, "insufficient_credits"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrConcurrentGeneration, http.StatusConflict, "concurrent_generation"},
	{apperrors.ErrDuplicate, http.StatusConflict, "duplicate"},
	{apperrors.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limit_exceeded"},
	{apperrors.ErrProviderFailure, http.StatusBadGateway, "external_api_error"},
	{apperrors.ErrStoreFailure, http.StatusInternalServerError, "database_error"},
}

func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes the error envelope for err. Client errors echo the error
// text; server errors only show fallback so store details stay in the logs.
func respondError(c *gin.Context, err error, fallback string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status, code := classify(err)

	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.Error(fallback, slog.String("error", err.Error()), slog.String("code", code))
		msg = fallback
	} else {
		logger.Warn(fallback, slog.String("error", err.Error()), slog.String("code", code))
	}
	if apperrors.IsRetryable(err) {
		c.Header("Retry-After", "30")
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: dto.ErrorDetail{Code: code, Message: msg}})
}

// badRequest answers a request that could not be bound.
func badRequest(c *gin.Context, msg string, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn(msg, slog.String("error", err.Error()))
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrorDetail{
		Code:    "bad_request",
		Message: msg + ": " + err.Error(),
	}})
}

// requireAccountID reads the authenticated account or answers 401.
func requireAccountID(c *gin.Context) (string, bool) {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Account ID not found in context")
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: dto.ErrorDetail{
			Code:    "unauthorized",
			Message: "Unauthorized",
		}})
		return "", false
	}
	return accountID, true
}
