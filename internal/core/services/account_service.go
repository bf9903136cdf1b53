package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
)

const (
	welcomeDescription = "Welcome bonus"

	defaultTransactionLimit = 50
	maxTransactionLimit     = 100
)

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	ledgerRepo     portsrepo.LedgerRepositoryFacade
	pricing        portssvc.PricingSvc
	decoder        portssvc.StoreTransactionDecoder
	welcomeCredits int64
	bundleID       string
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithWelcomeCredits sets the credits granted to a new account.
func WithWelcomeCredits(credits int64) AccountServiceOption {
	return func(s *accountService) {
		s.welcomeCredits = credits
	}
}

// WithBundleID restricts purchases to transactions signed for this app bundle.
// An empty bundle ID accepts any.
func WithBundleID(bundleID string) AccountServiceOption {
	return func(s *accountService) {
		s.bundleID = bundleID
	}
}

// WithStoreTransactionDecoder replaces the signed transaction decoder.
func WithStoreTransactionDecoder(decoder portssvc.StoreTransactionDecoder) AccountServiceOption {
	return func(s *accountService) {
		s.decoder = decoder
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(ledgerRepo portsrepo.LedgerRepositoryFacade, pricing portssvc.PricingSvc, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		ledgerRepo:     ledgerRepo,
		pricing:        pricing,
		decoder:        NewStoreTransactionDecoder(),
		welcomeCredits: 100,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) EnsureAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", apperrors.ErrValidation)
	}
	acc, created, err := s.ledgerRepo.CreateAccount(ctx, accountID, s.welcomeCredits, welcomeDescription)
	if err != nil {
		s.LogError(ctx, err, "Failed to ensure account", slog.String("account_id", accountID))
		return nil, err
	}
	if created {
		s.LogInfo(ctx, "Account created",
			slog.String("account_id", accountID),
			slog.Int64("welcome_credits", s.welcomeCredits))
	}
	return acc, nil
}

func (s *accountService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	acc, err := s.ledgerRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

func (s *accountService) ListTransactions(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerTransaction, *string, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	txns, next, err := s.ledgerRepo.ListTransactions(ctx, accountID, limit, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("account_id", accountID))
		return nil, nil, err
	}
	return txns, next, nil
}

func (s *accountService) VerifyLedger(ctx context.Context, accountID string) (*domain.LedgerVerification, error) {
	acc, err := s.ledgerRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sum, err := s.ledgerRepo.SumTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	v := &domain.LedgerVerification{
		AccountID:      accountID,
		Balance:        acc.Balance,
		TransactionSum: sum,
		Consistent:     acc.Balance == sum,
	}
	if !v.Consistent {
		s.GetLogger(ctx).Error("Ledger replay mismatch",
			slog.String("account_id", accountID),
			slog.Int64("balance", acc.Balance),
			slog.Int64("transaction_sum", sum))
	}
	return v, nil
}

// PurchaseCredits books a store purchase once per store transaction id.
func (s *accountService) PurchaseCredits(ctx context.Context, accountID string, signedTransaction string) (*domain.LedgerTransaction, error) {
	st, err := s.decoder.Decode(signedTransaction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if s.bundleID != "" && st.BundleID != s.bundleID {
		return nil, fmt.Errorf("%w: invalid bundle ID", apperrors.ErrValidation)
	}
	pack, ok := s.pricing.FindPack(st.ProductID)
	if !ok {
		return nil, fmt.Errorf("%w: invalid product ID", apperrors.ErrValidation)
	}

	_, err = s.ledgerRepo.FindTransactionByExternalRef(ctx, st.TransactionID)
	if err == nil {
		return nil, fmt.Errorf("%w: transaction already processed", apperrors.ErrDuplicate)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	ref := st.TransactionID
	txn, err := s.ledgerRepo.Credit(ctx, domain.LedgerEntry{
		AccountID:   accountID,
		Amount:      pack.Credits,
		Kind:        domain.KindPurchase,
		Description: "Purchased " + pack.DisplayName,
		ExternalRef: &ref,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: transaction already processed", apperrors.ErrDuplicate)
		}
		s.LogError(ctx, err, "Failed to book purchase",
			slog.String("account_id", accountID),
			slog.String("store_transaction_id", ref))
		return nil, err
	}

	s.LogInfo(ctx, "Credits purchased",
		slog.String("account_id", accountID),
		slog.String("product_id", pack.ProductID),
		slog.Int64("credits", pack.Credits),
		slog.Int64("balance", txn.BalanceAfter))
	return txn, nil
}

func (s *accountService) ListCreditPacks() []domain.CreditPack {
	return s.pricing.Packs()
}
