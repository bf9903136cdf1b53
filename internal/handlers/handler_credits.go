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

// cheapestVideo is the job used to express pack sizes in videos.
var cheapestVideo = domain.JobSpec{Model: "sora-2", Size: "720x1280", Seconds: 4}

// creditsHandler handles HTTP requests for balances, history and purchases.
type creditsHandler struct {
	accountService portssvc.AccountSvcFacade
	pricingService portssvc.PricingSvc
}

func newCreditsHandler(as portssvc.AccountSvcFacade, ps portssvc.PricingSvc) *creditsHandler {
	return &creditsHandler{
		accountService: as,
		pricingService: ps,
	}
}

func registerCreditsRoutes(rg *gin.RouterGroup, as portssvc.AccountSvcFacade, ps portssvc.PricingSvc) {
	h := newCreditsHandler(as, ps)

	credits := rg.Group("/credits")
	{
		credits.GET("/balance", h.getBalance)
		credits.GET("/transactions", h.listTransactions)
		credits.GET("/packs", h.listPacks)
		credits.POST("/purchases", h.purchaseCredits)
	}
}

// getBalance godoc
// @Summary Get credit balance
// @Description Returns the caller's spendable credits and their dollar value.
// @Tags credits
// @Produce  json
// @Success 200 {object} dto.BalanceResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to get balance"
// @Security BearerAuth
// @Router /credits/balance [get]
func (h *creditsHandler) getBalance(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	balance, err := h.accountService.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "Failed to get balance")
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		CreditsBalance: balance,
		USDEquivalent:  h.pricingService.CreditsToUSD(balance),
	})
}

// listTransactions godoc
// @Summary List credit transactions
// @Description Returns the caller's ledger entries, newest first, using token-based pagination.
// @Tags credits
// @Produce  json
// @Param   limit query int false "Maximum number of transactions to return (default 50, max 100)"
// @Param   next_token query string false "Token from a previous page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Failed to list transactions"
// @Security BearerAuth
// @Router /credits/transactions [get]
func (h *creditsHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}
	if params.NextToken != nil && *params.NextToken == "" {
		params.NextToken = nil
	}

	txns, next, err := h.accountService.ListTransactions(c.Request.Context(), accountID, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}

	logger.Debug("Transactions listed", slog.Int("count", len(txns)), slog.Bool("has_next", next != nil))
	c.JSON(http.StatusOK, dto.ToListTransactionsResponse(txns, next))
}

// listPacks godoc
// @Summary List credit packs
// @Description Returns the purchasable credit packs.
// @Tags credits
// @Produce  json
// @Success 200 {array} dto.CreditPackResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /credits/packs [get]
func (h *creditsHandler) listPacks(c *gin.Context) {
	// A pricing error leaves estimated_videos at zero.
	perVideo, _ := h.pricingService.CostFor(cheapestVideo)

	packs := h.accountService.ListCreditPacks()
	out := make([]dto.CreditPackResponse, 0, len(packs))
	for i, pack := range packs {
		out = append(out, dto.ToCreditPackResponse(pack, perVideo, i == 0))
	}
	c.JSON(http.StatusOK, out)
}

// purchaseCredits godoc
// @Summary Book a credit purchase
// @Description Verifies a signed store transaction and credits the pack. Each store transaction is booked once.
// @Tags credits
// @Accept  json
// @Produce  json
// @Param   purchase body dto.PurchaseRequest true "Signed store transaction"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid transaction"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 409 {object} dto.ErrorResponse "Transaction already processed"
// @Failure 500 {object} dto.ErrorResponse "Failed to process purchase"
// @Security BearerAuth
// @Router /credits/purchases [post]
func (h *creditsHandler) purchaseCredits(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}

	txn, err := h.accountService.PurchaseCredits(c.Request.Context(), accountID, req.SignedTransaction)
	if err != nil {
		respondError(c, err, "Failed to process purchase")
		return
	}

	logger.Info("Credits purchased",
		slog.String("transaction_id", txn.TransactionID),
		slog.Int64("credits_added", txn.Amount),
		slog.Int64("new_balance", txn.BalanceAfter))
	c.JSON(http.StatusOK, dto.ToPurchaseResponse(*txn))
}
