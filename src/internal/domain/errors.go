package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrAccountNotActive        = errors.New("account is not active")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrCurrencyMismatch        = errors.New("currency mismatch")
	ErrDuplicateAccountNumber  = errors.New("account number already exists")
	ErrConcurrencyConflict     = errors.New("concurrent update conflict")
	ErrRecordNotFound          = errors.New("record not found")
	ErrInvalidAccount          = errors.New("invalid account")
	ErrInvalidCurrency         = errors.New("invalid currency")
	ErrInvalidStatus           = errors.New("invalid account status")
	ErrInvalidStatusTransition = errors.New("invalid account status transition")
)

// AccountNotActiveError reports a financial operation attempted outside the ACTIVE status.
type AccountNotActiveError struct {
	Status AccountStatus
}

func (e *AccountNotActiveError) Error() string {
	return fmt.Sprintf("account is %s and cannot process transactions", e.Status)
}

func (e *AccountNotActiveError) Unwrap() error {
	return ErrAccountNotActive
}

// InsufficientFundsError carries the balance that was available and the amount requested.
type InsufficientFundsError struct {
	Available Money
	Requested Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s", e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// ErrorKind returns a stable label for err, suitable for metrics and log fields.
func ErrorKind(err error) string {
	if err == nil {
		return "ok"
	}

	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrAccountNotActive):
		return "account_not_active"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, ErrDuplicateAccountNumber):
		return "duplicate_account_number"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAccount),
		errors.Is(err, ErrInvalidCurrency),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidStatusTransition):
		return "validation"
	default:
		return "internal"
	}
}

// IsRetryable reports whether the whole operation may be retried from a fresh read.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
