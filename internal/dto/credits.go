package dto

import (
	"time"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceResponse is the current spendable balance.
type BalanceResponse struct {
	CreditsBalance int64  `json:"credits_balance"`
	USDEquivalent  string `json:"usd_equivalent"`
}

// TransactionResponse is one ledger entry as shown to the account owner.
type TransactionResponse struct {
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	BalanceAfter  int64     `json:"balance_after"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	JobID         *string   `json:"job_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListTransactionsParams defines the query parameters for listing transactions.
type ListTransactionsParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"next_token"`
}

// ListTransactionsResponse is a page of transactions, newest first.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"next_token,omitempty"`
}

// CreditPackResponse describes a purchasable pack.
type CreditPackResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Credits         int64           `json:"credits"`
	PriceUSD        decimal.Decimal `json:"price_usd"`
	Popular         bool            `json:"popular"`
	EstimatedVideos int64           `json:"estimated_videos"`
}

// PurchaseRequest carries the signed store transaction from the client.
type PurchaseRequest struct {
	SignedTransaction string `json:"signed_transaction" binding:"required"`
}

// PurchaseResponse confirms a booked purchase.
type PurchaseResponse struct {
	Success       bool   `json:"success"`
	CreditsAdded  int64  `json:"credits_added"`
	NewBalance    int64  `json:"new_balance"`
	TransactionID string `json:"transaction_id"`
}

func ToTransactionResponse(t domain.LedgerTransaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: t.TransactionID,
		Amount:        t.Amount,
		BalanceAfter:  t.BalanceAfter,
		Type:          string(t.Kind),
		Description:   t.Description,
		JobID:         t.JobID,
		CreatedAt:     t.CreatedAt,
	}
}

// ToListTransactionsResponse converts a page of entries; an empty page encodes as [].
func ToListTransactionsResponse(txns []domain.LedgerTransaction, nextToken *string) ListTransactionsResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, ToTransactionResponse(t))
	}
	return ListTransactionsResponse{Transactions: out, NextToken: nextToken}
}

// ToCreditPackResponse converts a pack. creditsPerVideo is the cost of the cheapest job.
func ToCreditPackResponse(pack domain.CreditPack, creditsPerVideo int64, popular bool) CreditPackResponse {
	var estimated int64
	if creditsPerVideo > 0 {
		estimated = pack.Credits / creditsPerVideo
	}
	return CreditPackResponse{
		ID:              pack.ProductID,
		Name:            pack.DisplayName,
		Credits:         pack.Credits,
		PriceUSD:        pack.PriceUSD,
		Popular:         popular,
		EstimatedVideos: estimated,
	}
}

func ToPurchaseResponse(t domain.LedgerTransaction) PurchaseResponse {
	return PurchaseResponse{
		Success:       true,
		CreditsAdded:  t.Amount,
		NewBalance:    t.BalanceAfter,
		TransactionID: t.TransactionID,
	}
}
