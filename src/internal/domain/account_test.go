package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

const testAccountNumber = "FR7630006000011234567890189"

// fixedClock makes now() return successive instants one millisecond apart.
func fixedClock(t *testing.T, start time.Time) {
	t.Helper()
	current := start
	original := now
	now = func() time.Time {
		current = current.Add(time.Millisecond)
		return current
	}
	t.Cleanup(func() { now = original })
}

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	account, err := NewAccount(testAccountNumber, uuid.New(), AccountTypeChecking, "EUR")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	return account
}

func eur(raw string) Money {
	return MustParseMoney(raw, "EUR")
}

func TestNewAccountDefaults(t *testing.T) {
	customerID := uuid.New()
	account, err := NewAccount(testAccountNumber, customerID, AccountTypeChecking, "EUR")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if account.ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}
	if account.CustomerID != customerID {
		t.Fatalf("expected customer id %s, got %s", customerID, account.CustomerID)
	}
	if !account.Balance.Equal(Zero("EUR")) || account.Balance.StringFixed() != "0.00" {
		t.Fatalf("expected balance 0.00 EUR, got %s", account.Balance)
	}
	if account.Status != AccountStatusActive {
		t.Fatalf("expected ACTIVE, got %s", account.Status)
	}
	if account.CreatedAt.IsZero() || !account.UpdatedAt.Equal(account.CreatedAt) {
		t.Fatalf("expected matching timestamps, got created=%s updated=%s", account.CreatedAt, account.UpdatedAt)
	}
	if err := account.Validate(); err != nil {
		t.Fatalf("expected valid account, got %v", err)
	}
}

func TestNewAccountValidation(t *testing.T) {
	tests := []struct {
		name          string
		accountNumber string
		customerID    uuid.UUID
		accountType   AccountType
		currency      Currency
		wantErr       error
	}{
		{"blank number", " ", uuid.New(), AccountTypeChecking, "EUR", ErrInvalidAccount},
		{"lowercase number", "fr76abc", uuid.New(), AccountTypeChecking, "EUR", ErrInvalidAccount},
		{"too long number", strings.Repeat("1", 35), uuid.New(), AccountTypeChecking, "EUR", ErrInvalidAccount},
		{"missing customer", testAccountNumber, uuid.Nil, AccountTypeChecking, "EUR", ErrInvalidAccount},
		{"unknown type", testAccountNumber, uuid.New(), AccountType("LOAN"), "EUR", ErrInvalidAccount},
		{"bad currency", testAccountNumber, uuid.New(), AccountTypeSavings, "eur", ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAccount(tt.accountNumber, tt.customerID, tt.accountType, tt.currency)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDeposit(t *testing.T) {
	account := newTestAccount(t)

	if err := account.Deposit(eur("100.50")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !account.Balance.Equal(eur("100.50")) {
		t.Fatalf("expected 100.50 EUR, got %s", account.Balance)
	}
}

func TestDepositKeepsDecimalPrecision(t *testing.T) {
	account := newTestAccount(t)

	for _, raw := range []string{"100.10", "200.20", "300.30"} {
		if err := account.Deposit(eur(raw)); err != nil {
			t.Fatalf("deposit %s: %v", raw, err)
		}
	}

	if got := account.Balance.StringFixed(); got != "600.60" {
		t.Fatalf("expected 600.60, got %s", got)
	}
}

func TestDepositRejectsBalanceBeyondStoragePrecision(t *testing.T) {
	account := newTestAccount(t)
	if err := account.Deposit(eur("99999999999999999999.00")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	updatedAt := account.UpdatedAt

	if err := account.Deposit(eur("1.00")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if !account.Balance.Equal(eur("99999999999999999999.00")) {
		t.Fatalf("expected balance unchanged, got %s", account.Balance)
	}
	if !account.UpdatedAt.Equal(updatedAt) {
		t.Fatal("expected updatedAt unchanged")
	}
}

func TestWithdraw(t *testing.T) {
	account := newTestAccount(t)
	if err := account.Deposit(eur("1000.00")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if err := account.Withdraw(eur("250.50")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !account.Balance.Equal(eur("749.50")) {
		t.Fatalf("expected 749.50 EUR, got %s", account.Balance)
	}

	err := account.Withdraw(eur("1500.00"))
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatal("expected error to match ErrInsufficientFunds")
	}
	if !insufficient.Available.Equal(eur("749.50")) || !insufficient.Requested.Equal(eur("1500.00")) {
		t.Fatalf("unexpected error context: %+v", insufficient)
	}
	if !account.Balance.Equal(eur("749.50")) {
		t.Fatalf("expected balance to stay 749.50 EUR, got %s", account.Balance)
	}
}

func TestWithdrawEntireBalance(t *testing.T) {
	account := newTestAccount(t)
	_ = account.Deposit(eur("10.00"))

	if err := account.Withdraw(eur("10.00")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !account.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", account.Balance)
	}
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	negative, _ := eur("1.00").Sub(eur("2.00"))
	amounts := map[string]Money{
		"missing":  {},
		"zero":     Zero("EUR"),
		"negative": negative,
	}

	for name, amount := range amounts {
		t.Run(name, func(t *testing.T) {
			account := newTestAccount(t)
			_ = account.Deposit(eur("50.00"))
			before := *account

			if err := account.Deposit(amount); !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("deposit: expected ErrInvalidAmount, got %v", err)
			}
			if err := account.Withdraw(amount); !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("withdraw: expected ErrInvalidAmount, got %v", err)
			}
			if *account != before {
				t.Fatalf("expected account unchanged, got %+v", account)
			}
		})
	}
}

func TestOperationsRequireActiveStatus(t *testing.T) {
	for _, status := range []AccountStatus{AccountStatusPending, AccountStatusFrozen, AccountStatusClosed} {
		t.Run(string(status), func(t *testing.T) {
			account := newTestAccount(t)
			_ = account.Deposit(eur("100.00"))
			if err := account.SetStatus(status); err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			before := *account

			err := account.Deposit(eur("100.00"))
			var notActive *AccountNotActiveError
			if !errors.As(err, &notActive) || notActive.Status != status {
				t.Fatalf("deposit: expected AccountNotActiveError(%s), got %v", status, err)
			}
			if !strings.Contains(err.Error(), string(status)) {
				t.Fatalf("expected message to reference %s, got %q", status, err.Error())
			}
			if err := account.Withdraw(eur("10.00")); !errors.Is(err, ErrAccountNotActive) {
				t.Fatalf("withdraw: expected ErrAccountNotActive, got %v", err)
			}
			if *account != before {
				t.Fatalf("expected account unchanged, got %+v", account)
			}
		})
	}
}

func TestFrozenAccountMessage(t *testing.T) {
	account := newTestAccount(t)
	_ = account.SetStatus(AccountStatusFrozen)

	err := account.Deposit(eur("100.00"))
	if err == nil || err.Error() != "account is FROZEN and cannot process transactions" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAmountIsCheckedBeforeStatus(t *testing.T) {
	account := newTestAccount(t)
	_ = account.SetStatus(AccountStatusClosed)

	if err := account.Deposit(Zero("EUR")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCurrencyMismatchLeavesAccountUnchanged(t *testing.T) {
	account := newTestAccount(t)
	_ = account.Deposit(eur("20.00"))
	before := *account

	usd := MustParseMoney("5.00", "USD")
	if err := account.Deposit(usd); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("deposit: expected ErrCurrencyMismatch, got %v", err)
	}
	if err := account.Withdraw(usd); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("withdraw: expected ErrCurrencyMismatch, got %v", err)
	}
	if *account != before {
		t.Fatalf("expected account unchanged, got %+v", account)
	}
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	for _, raw := range []string{"0.01", "1.99", "1000.00", "99999999999999.99"} {
		account := newTestAccount(t)
		_ = account.Deposit(eur("12.34"))
		original := account.Balance

		if err := account.Deposit(eur(raw)); err != nil {
			t.Fatalf("deposit %s: %v", raw, err)
		}
		if err := account.Withdraw(eur(raw)); err != nil {
			t.Fatalf("withdraw %s: %v", raw, err)
		}
		if !account.Balance.Equal(original) {
			t.Fatalf("round trip with %s: expected %s, got %s", raw, original, account.Balance)
		}
	}
}

func TestMutationsTouchUpdatedAt(t *testing.T) {
	fixedClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	account := newTestAccount(t)
	created := account.CreatedAt

	last := account.UpdatedAt
	steps := []func() error{
		func() error { return account.Deposit(eur("10.00")) },
		func() error { return account.Withdraw(eur("5.00")) },
		func() error { return account.SetStatus(AccountStatusFrozen) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if !account.UpdatedAt.After(last) {
			t.Fatalf("step %d: expected updatedAt to advance past %s, got %s", i, last, account.UpdatedAt)
		}
		last = account.UpdatedAt
	}

	if !account.CreatedAt.Equal(created) {
		t.Fatal("expected createdAt to stay fixed")
	}
}

func TestUpdatedAtNeverMovesBackwards(t *testing.T) {
	account := newTestAccount(t)
	future := account.UpdatedAt.Add(time.Hour)
	account.UpdatedAt = future

	if err := account.Deposit(eur("1.00")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if account.UpdatedAt.Before(future) {
		t.Fatalf("expected updatedAt >= %s, got %s", future, account.UpdatedAt)
	}
}

func TestFailedOperationsDoNotTouchUpdatedAt(t *testing.T) {
	fixedClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	account := newTestAccount(t)
	last := account.UpdatedAt

	_ = account.Withdraw(eur("1.00"))
	if !account.UpdatedAt.Equal(last) {
		t.Fatal("expected updatedAt unchanged after failed withdrawal")
	}
}

func TestSetStatusIsUnconditional(t *testing.T) {
	account := newTestAccount(t)
	_ = account.SetStatus(AccountStatusClosed)

	if err := account.SetStatus(AccountStatusActive); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if account.Status != AccountStatusActive {
		t.Fatalf("expected ACTIVE, got %s", account.Status)
	}
	if err := account.SetStatus(AccountStatus("ARCHIVED")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestAccountEquality(t *testing.T) {
	a := newTestAccount(t)
	b, err := NewAccount(testAccountNumber, uuid.New(), AccountTypeBusiness, "USD")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	c, err := NewAccount("GB29NWBK60161331926819", a.CustomerID, a.Type, a.Currency)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if !a.Equal(b) {
		t.Fatal("expected accounts with the same number to be equal")
	}
	if a.Equal(c) {
		t.Fatal("expected accounts with different numbers to differ")
	}
}

func TestValidateRejectsCorruptState(t *testing.T) {
	account := newTestAccount(t)
	account.Balance = MustParseMoney("1.00", "USD")
	if err := account.Validate(); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}

	account = newTestAccount(t)
	account.UpdatedAt = account.CreatedAt.Add(-time.Second)
	if err := account.Validate(); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
}
