package domain

import (
	"fmt"
	"strings"
)

type AccountStatus string

const (
	AccountStatusPending AccountStatus = "PENDING"
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusFrozen  AccountStatus = "FROZEN"
	AccountStatusClosed  AccountStatus = "CLOSED"
)

// AccountStatuses lists every status in lifecycle order.
var AccountStatuses = []AccountStatus{
	AccountStatusPending,
	AccountStatusActive,
	AccountStatusFrozen,
	AccountStatusClosed,
}

func ParseAccountStatus(raw string) (AccountStatus, error) {
	status := AccountStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusPending, AccountStatusActive, AccountStatusFrozen, AccountStatusClosed:
		return true
	default:
		return false
	}
}

// AllowsTransactions reports whether deposits and withdrawals may run in s.
func (s AccountStatus) AllowsTransactions() bool {
	return s == AccountStatusActive
}

func (s AccountStatus) IsTerminal() bool {
	return s == AccountStatusClosed
}

func (s AccountStatus) String() string {
	return string(s)
}

// CanTransition is the status policy enforced by callers of Account.SetStatus:
// a CLOSED account stays closed, every other move is allowed.
func CanTransition(from, to AccountStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.IsTerminal() {
		return from == to
	}
	return true
}

type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeBusiness AccountType = "BUSINESS"
)

func ParseAccountType(raw string) (AccountType, error) {
	accountType := AccountType(strings.ToUpper(strings.TrimSpace(raw)))
	if !accountType.Valid() {
		return "", fmt.Errorf("%w: account type %q must be one of CHECKING, SAVINGS, BUSINESS", ErrInvalidAccount, raw)
	}
	return accountType, nil
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeBusiness:
		return true
	default:
		return false
	}
}

func (t AccountType) String() string {
	return string(t)
}
