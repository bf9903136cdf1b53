package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates a missing or invalid credential.
var ErrUnauthorized = errors.New("unauthorized")

// Store level outcomes. These never leave the service layer unmapped.
var (
	// ErrInsufficientFunds is returned by a ledger debit when balance < amount. Nothing was mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyLocked is returned by a lock acquire when the account already holds a generation lock.
	ErrAlreadyLocked = errors.New("generation lock already held")
)

// Caller facing outcomes of a paid submission.
var (
	// ErrConcurrentGeneration means another paid job is in flight for the account.
	ErrConcurrentGeneration = errors.New("a generation is already in progress")

	// ErrInsufficientCredits means the account cannot pay for the job.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrProviderFailure wraps any failure of the external job provider.
	ErrProviderFailure = errors.New("external provider error")

	// ErrStoreFailure marks persistence failures. AppError values with a 5xx code match it.
	ErrStoreFailure = errors.New("store failure")

	// ErrRateLimitExceeded means the daily generation quota is used up.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// AppError carries an HTTP-ish status code alongside the underlying cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError builds an AppError. A nil err is allowed.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStoreFailure) and errors.Is(err, ErrValidation) match on the code.
func (e *AppError) Is(target error) bool {
	switch target {
	case ErrStoreFailure:
		return e.Code >= http.StatusInternalServerError
	case ErrValidation:
		return e.Code == http.StatusBadRequest
	}
	return false
}

// IsRetryable reports whether the caller may retry the same request later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentGeneration) || errors.Is(err, ErrRateLimitExceeded)
}
