package mapping

import (
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	"github.com/SscSPs/credit_ledger/internal/models"
)

// ToDomainTransaction converts a credit_transactions row to a domain.LedgerTransaction
func ToDomainTransaction(m models.CreditTransaction) domain.LedgerTransaction {
	return domain.LedgerTransaction{
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		Amount:        m.Amount,
		BalanceAfter:  m.BalanceAfter,
		Kind:          domain.TransactionKind(m.Kind),
		Description:   m.Description,
		JobID:         FromNullString(m.JobID),
		ExternalRef:   FromNullString(m.ExternalRef),
		CreatedAt:     m.CreatedAt,
	}
}

// ToDomainTransactionSlice converts rows to domain transactions
func ToDomainTransactionSlice(ms []models.CreditTransaction) []domain.LedgerTransaction {
	if ms == nil {
		return []domain.LedgerTransaction{}
	}
	txns := make([]domain.LedgerTransaction, len(ms))
	for i, m := range ms {
		txns[i] = ToDomainTransaction(m)
	}
	return txns
}
