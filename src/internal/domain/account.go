package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxAccountNumberLength is the longest IBAN allowed by ISO 13616.
const MaxAccountNumberLength = 34

// now is the clock used for account timestamps. Storage keeps milliseconds,
// so values are truncated to keep round trips exact.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

type Account struct {
	ID            uuid.UUID
	AccountNumber string
	CustomerID    uuid.UUID
	Type          AccountType
	Balance       Money
	Currency      Currency
	Status        AccountStatus
	// Version increases on every persisted update and guards concurrent writers.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount opens an ACTIVE account with a zero balance.
func NewAccount(accountNumber string, customerID uuid.UUID, accountType AccountType, ccy Currency) (*Account, error) {
	var errs []error

	if err := ValidateAccountNumber(accountNumber); err != nil {
		errs = append(errs, err)
	}
	if customerID == uuid.Nil {
		errs = append(errs, fmt.Errorf("%w: customer id is required", ErrInvalidAccount))
	}
	if !accountType.Valid() {
		errs = append(errs, fmt.Errorf("%w: account type %q is not supported", ErrInvalidAccount, accountType))
	}
	if _, err := ParseCurrency(string(ccy)); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	created := now()
	return &Account{
		ID:            uuid.New(),
		AccountNumber: accountNumber,
		CustomerID:    customerID,
		Type:          accountType,
		Balance:       Zero(ccy),
		Currency:      ccy,
		Status:        AccountStatusActive,
		CreatedAt:     created,
		UpdatedAt:     created,
	}, nil
}

// ValidateAccountNumber checks the IBAN-like shape: 1..34 uppercase letters or digits.
func ValidateAccountNumber(accountNumber string) error {
	if strings.TrimSpace(accountNumber) == "" {
		return fmt.Errorf("%w: account number is required", ErrInvalidAccount)
	}
	if len(accountNumber) > MaxAccountNumberLength {
		return fmt.Errorf("%w: account number exceeds %d characters", ErrInvalidAccount, MaxAccountNumberLength)
	}
	for _, ch := range accountNumber {
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return fmt.Errorf("%w: account number must contain only uppercase letters and digits", ErrInvalidAccount)
		}
	}
	return nil
}

func (a *Account) Deposit(amount Money) error {
	if err := validatePositiveAmount(amount); err != nil {
		return err
	}
	if err := a.validateActive(); err != nil {
		return err
	}

	balance, err := a.Balance.Add(amount)
	if err != nil {
		return err
	}

	a.Balance = balance
	a.touch()
	return nil
}

func (a *Account) Withdraw(amount Money) error {
	if err := validatePositiveAmount(amount); err != nil {
		return err
	}
	if err := a.validateActive(); err != nil {
		return err
	}

	sufficient, err := a.Balance.GreaterThanOrEqual(amount)
	if err != nil {
		return err
	}
	if !sufficient {
		return &InsufficientFundsError{Available: a.Balance, Requested: amount}
	}

	balance, err := a.Balance.Sub(amount)
	if err != nil {
		return err
	}

	a.Balance = balance
	a.touch()
	return nil
}

// SetStatus moves the account to status without guarding the transition
// itself; see CanTransition for the policy callers apply.
func (a *Account) SetStatus(status AccountStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	a.Status = status
	a.touch()
	return nil
}

// Validate re-checks the stored-state invariants, e.g. for records read back from storage.
func (a *Account) Validate() error {
	if err := ValidateAccountNumber(a.AccountNumber); err != nil {
		return err
	}
	if a.Balance.IsMissing() || a.Balance.IsNegative() {
		return fmt.Errorf("%w: balance %s must be non-negative", ErrInvalidAccount, a.Balance)
	}
	if a.Balance.Currency() != a.Currency {
		return fmt.Errorf("%w: balance currency %s differs from account currency %s", ErrInvalidAccount, a.Balance.Currency(), a.Currency)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, a.Status)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: account type %q is not supported", ErrInvalidAccount, a.Type)
	}
	if a.UpdatedAt.Before(a.CreatedAt) {
		return fmt.Errorf("%w: updatedAt precedes createdAt", ErrInvalidAccount)
	}
	return nil
}

// Equal reports whether both accounts carry the same account number.
func (a *Account) Equal(other *Account) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.AccountNumber == other.AccountNumber
}

func (a *Account) String() string {
	return fmt.Sprintf("Account{accountNumber=%q, balance=%s, currency=%s, status=%s}",
		a.AccountNumber, a.Balance.StringFixed(), a.Currency, a.Status)
}

func (a *Account) validateActive() error {
	if !a.Status.AllowsTransactions() {
		return &AccountNotActiveError{Status: a.Status}
	}
	return nil
}

// touch refreshes UpdatedAt without letting it move backwards.
func (a *Account) touch() {
	t := now()
	if t.Before(a.UpdatedAt) {
		t = a.UpdatedAt
	}
	a.UpdatedAt = t
}

func validatePositiveAmount(amount Money) error {
	if amount.IsMissing() {
		return fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	return nil
}
