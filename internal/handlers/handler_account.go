package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/SscSPs/credit_ledger/internal/dto"
	"github.com/SscSPs/credit_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

const accountCtxKey = "account"

// accountHandler handles HTTP requests for the caller's own account.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
	lockService    portssvc.GenerationLockSvc
}

func newAccountHandler(as portssvc.AccountSvcFacade, ls portssvc.GenerationLockSvc) *accountHandler {
	return &accountHandler{
		accountService: as,
		lockService:    ls,
	}
}

// ensureAccount provisions the caller's account on first sight so every /v1
// handler can assume it exists.
func ensureAccount(as portssvc.AccountSvcFacade) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := requireAccountID(c)
		if !ok {
			return
		}
		acc, err := as.EnsureAccount(c.Request.Context(), accountID)
		if err != nil {
			respondError(c, err, "Failed to load account")
			return
		}
		c.Set(accountCtxKey, acc)
		c.Next()
	}
}

func registerAccountRoutes(rg *gin.RouterGroup, as portssvc.AccountSvcFacade, ls portssvc.GenerationLockSvc) {
	h := newAccountHandler(as, ls)

	account := rg.Group("/account")
	{
		account.GET("", h.getAccount)
		account.GET("/verify", h.verifyLedger)
	}
}

// getAccount godoc
// @Summary Get the caller's account
// @Description Returns the balance, generation count and whether a paid job is in flight.
// @Tags account
// @Produce  json
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Failed to load account"
// @Security BearerAuth
// @Router /account [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var acc *domain.Account
	if v, ok := c.Get(accountCtxKey); ok {
		acc, _ = v.(*domain.Account)
	}
	if acc == nil {
		accountID, ok := requireAccountID(c)
		if !ok {
			return
		}
		var err error
		if acc, err = h.accountService.EnsureAccount(c.Request.Context(), accountID); err != nil {
			respondError(c, err, "Failed to load account")
			return
		}
	}

	inProgress, err := h.lockService.IsHeld(c.Request.Context(), acc.AccountID)
	if err != nil {
		respondError(c, err, "Failed to load account")
		return
	}

	logger.Debug("Account loaded", slog.Int64("balance", acc.Balance), slog.Bool("generation_in_progress", inProgress))
	c.JSON(http.StatusOK, dto.ToAccountResponse(*acc, inProgress))
}

// verifyLedger godoc
// @Summary Verify the caller's ledger
// @Description Replays every transaction and compares the sum against the stored balance.
// @Tags account
// @Produce  json
// @Success 200 {object} dto.LedgerVerificationResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to verify ledger"
// @Security BearerAuth
// @Router /account/verify [get]
func (h *accountHandler) verifyLedger(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	result, err := h.accountService.VerifyLedger(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "Failed to verify ledger")
		return
	}

	logger.Info("Ledger verified", slog.Bool("consistent", result.Consistent))
	c.JSON(http.StatusOK, dto.ToLedgerVerificationResponse(*result))
}
