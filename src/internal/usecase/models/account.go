package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/google/uuid"
)

type OpenAccountRequest struct {
	CustomerID string `json:"customerId"`
	// AccountNumber is optional; a number is generated when it is empty.
	AccountNumber string `json:"accountNumber,omitempty"`
	AccountType   string `json:"accountType"`
	Currency      string `json:"currency"`
}

func (r OpenAccountRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.CustomerID) == "" {
		errs = append(errs, "customerId is required")
	} else if _, err := uuid.Parse(strings.TrimSpace(r.CustomerID)); err != nil {
		errs = append(errs, "customerId must be a UUID")
	}

	if accountNumber := strings.TrimSpace(r.AccountNumber); accountNumber != "" {
		if err := domain.ValidateAccountNumber(accountNumber); err != nil {
			errs = append(errs, "accountNumber must be 1-34 uppercase letters or digits")
		}
	}

	if strings.TrimSpace(r.AccountType) == "" {
		errs = append(errs, "accountType is required")
	} else if _, err := domain.ParseAccountType(r.AccountType); err != nil {
		errs = append(errs, "accountType must be one of CHECKING, SAVINGS, BUSINESS")
	}

	if strings.TrimSpace(r.Currency) == "" {
		errs = append(errs, "currency is required")
	} else if _, err := domain.ParseCurrency(strings.ToUpper(strings.TrimSpace(r.Currency))); err != nil {
		errs = append(errs, "currency must be an ISO 4217 code")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidAccount, strings.Join(errs, "; "))
	}

	return nil
}

// TransactionRequest moves Amount, given in the account currency, in or out of an account.
type TransactionRequest struct {
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount"`
}

func (r TransactionRequest) Validate() error {
	var errs []error

	if err := domain.ValidateAccountNumber(strings.TrimSpace(r.AccountNumber)); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(r.Amount) == "" {
		errs = append(errs, fmt.Errorf("%w: amount is required", domain.ErrInvalidAmount))
	}

	return errors.Join(errs...)
}

// AccountFilter narrows a customer's accounts. Empty fields match everything.
type AccountFilter struct {
	Status      string `json:"status,omitempty"`
	Currency    string `json:"currency,omitempty"`
	AccountType string `json:"accountType,omitempty"`
}

func (f AccountFilter) Parse() (domain.AccountStatus, domain.Currency, domain.AccountType, error) {
	var (
		status      domain.AccountStatus
		ccy         domain.Currency
		accountType domain.AccountType
		errs        []error
		err         error
	)

	if strings.TrimSpace(f.Status) != "" {
		if status, err = domain.ParseAccountStatus(f.Status); err != nil {
			errs = append(errs, err)
		}
	}
	if strings.TrimSpace(f.Currency) != "" {
		if ccy, err = domain.ParseCurrency(strings.ToUpper(strings.TrimSpace(f.Currency))); err != nil {
			errs = append(errs, err)
		}
	}
	if strings.TrimSpace(f.AccountType) != "" {
		if accountType, err = domain.ParseAccountType(f.AccountType); err != nil {
			errs = append(errs, err)
		}
	}

	return status, ccy, accountType, errors.Join(errs...)
}
