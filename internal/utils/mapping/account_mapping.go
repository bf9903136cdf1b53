package mapping

import (
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	"github.com/SscSPs/credit_ledger/internal/models"
)

// ToDomainAccount converts an accounts row to a domain.Account
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:        m.AccountID,
		Balance:          m.Balance,
		TotalGenerations: m.TotalGenerations,
		AuditFields: domain.AuditFields{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
	}
}
