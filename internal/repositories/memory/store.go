// Package memory is an in-process implementation of every repository port.
// It backs local runs without PGSQL_URL and the service level tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/credit_ledger/internal/utils/pagination"
	"github.com/google/uuid"
)

type notificationKey struct {
	providerJobID string
	kind          domain.NotificationKind
}

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	accounts      map[string]*domain.Account
	transactions  map[string][]domain.LedgerTransaction // by account, append order
	refundsByJob  map[string]domain.LedgerTransaction
	byExternalRef map[string]domain.LedgerTransaction

	locks map[string]domain.GenerationLock

	jobs           map[string]*domain.Job
	jobsByProvider map[string]string // provider job id -> job id

	notifications map[notificationKey]*domain.NotificationRecord
}

var (
	_ portsrepo.LedgerRepositoryFacade   = (*Store)(nil)
	_ portsrepo.GenerationLockRepository = (*Store)(nil)
	_ portsrepo.JobRepositoryFacade      = (*Store)(nil)
	_ portsrepo.NotificationRepository   = (*Store)(nil)
)

func New() *Store {
	return &Store{
		now:            func() time.Time { return time.Now().UTC() },
		accounts:       make(map[string]*domain.Account),
		transactions:   make(map[string][]domain.LedgerTransaction),
		refundsByJob:   make(map[string]domain.LedgerTransaction),
		byExternalRef:  make(map[string]domain.LedgerTransaction),
		locks:          make(map[string]domain.GenerationLock),
		jobs:           make(map[string]*domain.Job),
		jobsByProvider: make(map[string]string),
		notifications:  make(map[notificationKey]*domain.NotificationRecord),
	}
}

// Provider exposes the store through every repository port.
func (s *Store) Provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerRepo:       s,
		LockRepo:         s,
		JobRepo:          s,
		NotificationRepo: s,
	}
}

// Ledger

func (s *Store) CreateAccount(_ context.Context, accountID string, welcomeCredits int64, description string) (*domain.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acc, ok := s.accounts[accountID]; ok {
		cp := *acc
		return &cp, false, nil
	}
	now := s.now()
	acc := &domain.Account{
		AccountID:   accountID,
		Balance:     welcomeCredits,
		AuditFields: domain.AuditFields{CreatedAt: now, UpdatedAt: now},
	}
	s.accounts[accountID] = acc
	if welcomeCredits > 0 {
		s.appendLocked(domain.LedgerTransaction{
			TransactionID: uuid.NewString(),
			AccountID:     accountID,
			Amount:        welcomeCredits,
			BalanceAfter:  welcomeCredits,
			Kind:          domain.KindWelcome,
			Description:   description,
			CreatedAt:     now,
		})
	}
	cp := *acc
	return &cp, true, nil
}

func (s *Store) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	cp := *acc
	return &cp, nil
}

func (s *Store) Credit(_ context.Context, entry domain.LedgerEntry) (*domain.LedgerTransaction, error) {
	if entry.Amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive, got %d", apperrors.ErrValidation, entry.Amount)
	}
	if !entry.Kind.IsCredit() {
		return nil, fmt.Errorf("%w: %s is not a credit kind", apperrors.ErrValidation, entry.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[entry.AccountID]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, entry.AccountID)
	}
	if err := s.checkUniqueLocked(entry); err != nil {
		return nil, err
	}

	now := s.now()
	acc.Balance += entry.Amount
	acc.UpdatedAt = now
	txn := newTransaction(entry, entry.Amount, acc.Balance, now)
	s.appendLocked(txn)
	return &txn, nil
}

func (s *Store) Debit(_ context.Context, entry domain.LedgerEntry) (*domain.LedgerTransaction, error) {
	if entry.Amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive, got %d", apperrors.ErrValidation, entry.Amount)
	}
	entry.Kind = domain.KindDebit

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[entry.AccountID]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, entry.AccountID)
	}
	if acc.Balance < entry.Amount {
		return nil, fmt.Errorf("%w: account %s cannot pay %d", apperrors.ErrInsufficientFunds, entry.AccountID, entry.Amount)
	}

	now := s.now()
	acc.Balance -= entry.Amount
	acc.TotalGenerations++
	acc.UpdatedAt = now
	txn := newTransaction(entry, -entry.Amount, acc.Balance, now)
	s.appendLocked(txn)
	return &txn, nil
}

// checkUniqueLocked enforces the same uniqueness as the partial indexes in Postgres.
func (s *Store) checkUniqueLocked(entry domain.LedgerEntry) error {
	if entry.Kind == domain.KindRefund && entry.JobID != nil {
		if _, ok := s.refundsByJob[*entry.JobID]; ok {
			return fmt.Errorf("%w: refund transaction for job %s", apperrors.ErrDuplicate, *entry.JobID)
		}
	}
	if entry.ExternalRef != nil {
		if _, ok := s.byExternalRef[*entry.ExternalRef]; ok {
			return fmt.Errorf("%w: transaction for external reference %s", apperrors.ErrDuplicate, *entry.ExternalRef)
		}
	}
	return nil
}

func (s *Store) appendLocked(txn domain.LedgerTransaction) {
	s.transactions[txn.AccountID] = append(s.transactions[txn.AccountID], txn)
	if txn.Kind == domain.KindRefund && txn.JobID != nil {
		s.refundsByJob[*txn.JobID] = txn
	}
	if txn.ExternalRef != nil {
		s.byExternalRef[*txn.ExternalRef] = txn
	}
}

func newTransaction(entry domain.LedgerEntry, signedAmount, balanceAfter int64, at time.Time) domain.LedgerTransaction {
	return domain.LedgerTransaction{
		TransactionID: uuid.NewString(),
		AccountID:     entry.AccountID,
		Amount:        signedAmount,
		BalanceAfter:  balanceAfter,
		Kind:          entry.Kind,
		Description:   entry.Description,
		JobID:         copyString(entry.JobID),
		ExternalRef:   copyString(entry.ExternalRef),
		CreatedAt:     at,
	}
}

func (s *Store) FindRefundByJobID(_ context.Context, jobID string) (*domain.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.refundsByJob[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: refund for job %s", apperrors.ErrNotFound, jobID)
	}
	return &txn, nil
}

func (s *Store) FindTransactionByExternalRef(_ context.Context, externalRef string) (*domain.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.byExternalRef[externalRef]
	if !ok {
		return nil, fmt.Errorf("%w: transaction with external reference %s", apperrors.ErrNotFound, externalRef)
	}
	return &txn, nil
}

// ListTransactions uses the same (created_at, transaction_id) cursor as the Postgres store.
func (s *Store) ListTransactions(_ context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerTransaction, *string, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		hasCursor bool
		curAt     time.Time
		curID     string
	)
	if nextToken != nil && *nextToken != "" {
		at, id, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		hasCursor, curAt, curID = true, at, id
	}

	s.mu.RLock()
	all := append([]domain.LedgerTransaction(nil), s.transactions[accountID]...)
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return newer(all[i], all[j].CreatedAt, all[j].TransactionID) })

	page := make([]domain.LedgerTransaction, 0, limit+1)
	for _, txn := range all {
		if hasCursor && !older(txn, curAt, curID) {
			continue
		}
		page = append(page, txn)
		if len(page) > limit {
			break
		}
	}

	var next *string
	if len(page) > limit {
		last := page[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		next = &token
		page = page[:limit]
	}
	return page, next, nil
}

func newer(t domain.LedgerTransaction, at time.Time, id string) bool {
	if !t.CreatedAt.Equal(at) {
		return t.CreatedAt.After(at)
	}
	return t.TransactionID > id
}

func older(t domain.LedgerTransaction, at time.Time, id string) bool {
	if !t.CreatedAt.Equal(at) {
		return t.CreatedAt.Before(at)
	}
	return t.TransactionID < id
}

func (s *Store) SumTransactions(_ context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	for _, txn := range s.transactions[accountID] {
		sum += txn.Amount
	}
	return sum, nil
}

// Locks

func (s *Store) AcquireLock(_ context.Context, lock domain.GenerationLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.locks[lock.AccountID]; held {
		return fmt.Errorf("%w: account %s", apperrors.ErrAlreadyLocked, lock.AccountID)
	}
	s.locks[lock.AccountID] = lock
	return nil
}

func (s *Store) ReleaseLock(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, accountID)
	return nil
}

func (s *Store) FindLock(_ context.Context, accountID string) (*domain.GenerationLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lock, ok := s.locks[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: generation lock for account %s", apperrors.ErrNotFound, accountID)
	}
	return &lock, nil
}

// Jobs

func (s *Store) SaveJob(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.JobID]; exists {
		return fmt.Errorf("%w: job %s", apperrors.ErrDuplicate, job.JobID)
	}
	if _, exists := s.jobsByProvider[job.ProviderJobID]; exists {
		return fmt.Errorf("%w: provider job %s", apperrors.ErrDuplicate, job.ProviderJobID)
	}
	cp := job
	s.jobs[job.JobID] = &cp
	s.jobsByProvider[job.ProviderJobID] = job.JobID
	return nil
}

func (s *Store) FindJobByID(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", apperrors.ErrNotFound, jobID)
	}
	cp := *job
	return &cp, nil
}

func (s *Store) FindJobByProviderID(_ context.Context, providerJobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job := s.jobByProviderLocked(providerJobID)
	if job == nil {
		return nil, fmt.Errorf("%w: job for provider job %s", apperrors.ErrNotFound, providerJobID)
	}
	cp := *job
	return &cp, nil
}

func (s *Store) jobByProviderLocked(providerJobID string) *domain.Job {
	id, ok := s.jobsByProvider[providerJobID]
	if !ok {
		return nil
	}
	return s.jobs[id]
}

func (s *Store) ListJobsByAccount(_ context.Context, accountID string, limit, offset int) ([]domain.Job, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]domain.Job, 0)
	for _, job := range s.jobs {
		if job.AccountID == accountID {
			owned = append(owned, *job)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].JobID > owned[j].JobID
	})

	total := int64(len(owned))
	start := min(max(offset, 0), len(owned))
	end := len(owned)
	if limit > 0 {
		end = min(start+limit, len(owned))
	}
	return owned[start:end], total, nil
}

func (s *Store) CountJobsSince(_ context.Context, accountID string, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, job := range s.jobs {
		if job.AccountID == accountID && !job.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateJobProgress(_ context.Context, providerJobID string, status domain.JobStatus, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job := s.jobByProviderLocked(providerJobID); job != nil && !job.Status.IsTerminal() {
		job.Status = status
		job.Progress = progress
	}
	return nil
}

func (s *Store) MarkJobCompleted(_ context.Context, providerJobID string, assets domain.JobAssets, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.jobByProviderLocked(providerJobID)
	if job == nil || job.Status == domain.JobStatusFailed {
		return nil
	}
	job.Status = domain.JobStatusCompleted
	job.Progress = 100
	job.VideoURL = &assets.VideoURL
	job.ThumbnailURL = &assets.ThumbnailURL
	job.SpritesheetURL = &assets.SpritesheetURL
	expires := assets.ExpiresAt
	job.DownloadURLExpiresAt = &expires
	if job.CompletedAt == nil {
		at := completedAt
		job.CompletedAt = &at
	}
	return nil
}

func (s *Store) MarkJobFailed(_ context.Context, providerJobID string, errorMessage string, failedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.jobByProviderLocked(providerJobID)
	if job == nil || job.Status == domain.JobStatusCompleted {
		return nil
	}
	job.Status = domain.JobStatusFailed
	msg := errorMessage
	job.ErrorMessage = &msg
	if job.FailedAt == nil {
		at := failedAt
		job.FailedAt = &at
	}
	return nil
}

// Notifications

func (s *Store) FindNotification(_ context.Context, providerJobID string, kind domain.NotificationKind) (*domain.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.notifications[notificationKey{providerJobID, kind}]
	if !ok {
		return nil, fmt.Errorf("%w: notification %s for provider job %s", apperrors.ErrNotFound, kind, providerJobID)
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) RecordNotification(_ context.Context, record domain.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := notificationKey{record.ProviderJobID, record.Kind}
	if _, exists := s.notifications[key]; exists {
		return nil
	}
	cp := record
	cp.Processed = false
	cp.ProcessedAt = nil
	s.notifications[key] = &cp
	return nil
}

func (s *Store) MarkNotificationProcessed(_ context.Context, providerJobID string, kind domain.NotificationKind, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.notifications[notificationKey{providerJobID, kind}]; ok {
		at := processedAt
		rec.Processed = true
		rec.ProcessedAt = &at
	}
	return nil
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
