package services

import (
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/SscSPs/credit_ledger/internal/utils"
)

// storeTransactionDecoder reads StoreKit signed transactions. The certificate
// chain is not checked here.
type storeTransactionDecoder struct{}

func NewStoreTransactionDecoder() portssvc.StoreTransactionDecoder {
	return storeTransactionDecoder{}
}

func (storeTransactionDecoder) Decode(signed string) (*domain.StoreTransaction, error) {
	claims, err := utils.DecodeStoreTransaction(signed)
	if err != nil {
		return nil, err
	}
	return &domain.StoreTransaction{
		TransactionID: claims.TransactionID,
		ProductID:     claims.ProductID,
		BundleID:      claims.BundleID,
	}, nil
}
