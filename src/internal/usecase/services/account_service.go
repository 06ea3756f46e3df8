package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/api-sage/account-ledger/src/internal/metrics"
	"github.com/api-sage/account-ledger/src/internal/usecase/models"
	"github.com/api-sage/account-ledger/src/internal/usecase/service_interfaces"
	"github.com/google/uuid"
)

const (
	defaultMaxConflictRetries = 5
	maxNumberAllocations      = 8
)

var _ service_interfaces.AccountService = (*AccountService)(nil)

var ErrAccountNumberExhausted = errors.New("could not allocate a unique account number")

type AccountService struct {
	accountRepo repo_interfaces.AccountRepository
	numbers     AccountNumberGenerator
	collector   metrics.Collector
	maxRetries  int
}

// NewAccountService wires the service. A nil collector records nothing and a
// negative maxRetries falls back to the default.
func NewAccountService(
	accountRepo repo_interfaces.AccountRepository,
	numbers AccountNumberGenerator,
	collector metrics.Collector,
	maxRetries int,
) *AccountService {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxConflictRetries
	}
	return &AccountService{
		accountRepo: accountRepo,
		numbers:     numbers,
		collector:   collector,
		maxRetries:  maxRetries,
	}
}

func (s *AccountService) OpenAccount(ctx context.Context, req models.OpenAccountRequest) (domain.Account, error) {
	logger.Info("account service open account request", logger.Fields{
		"customerId":    req.CustomerID,
		"accountNumber": req.AccountNumber,
		"accountType":   req.AccountType,
		"currency":      req.Currency,
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service open account validation failed", err, nil)
		return domain.Account{}, err
	}

	customerID := uuid.MustParse(strings.TrimSpace(req.CustomerID))
	accountType, _ := domain.ParseAccountType(req.AccountType)
	ccy := domain.Currency(strings.ToUpper(strings.TrimSpace(req.Currency)))

	if accountNumber := strings.TrimSpace(req.AccountNumber); accountNumber != "" {
		exists, err := s.accountRepo.ExistsByAccountNumber(ctx, accountNumber)
		if err != nil {
			logger.Error("account service open account existing number check failed", err, logger.Fields{
				"accountNumber": accountNumber,
			})
			return domain.Account{}, err
		}
		if exists {
			err := fmt.Errorf("open account %s: %w", accountNumber, domain.ErrDuplicateAccountNumber)
			logger.Error("account service open account duplicate number", err, logger.Fields{
				"accountNumber": accountNumber,
			})
			return domain.Account{}, err
		}
		return s.create(ctx, accountNumber, customerID, accountType, ccy)
	}

	if s.numbers == nil {
		return domain.Account{}, fmt.Errorf("%w: accountNumber is required", domain.ErrInvalidAccount)
	}
	for attempt := 1; attempt <= maxNumberAllocations; attempt++ {
		accountNumber, err := s.numbers.NextAccountNumber()
		if err != nil {
			logger.Error("account service generate account number failed", err, nil)
			return domain.Account{}, err
		}

		created, err := s.create(ctx, accountNumber, customerID, accountType, ccy)
		if errors.Is(err, domain.ErrDuplicateAccountNumber) {
			logger.Warn("account service generated account number already taken", logger.Fields{
				"accountNumber": accountNumber,
				"attempt":       attempt,
			})
			continue
		}
		return created, err
	}

	logger.Error("account service open account failed", ErrAccountNumberExhausted, logger.Fields{
		"customerId": customerID.String(),
	})
	return domain.Account{}, ErrAccountNumberExhausted
}

func (s *AccountService) create(ctx context.Context, accountNumber string, customerID uuid.UUID, accountType domain.AccountType, ccy domain.Currency) (domain.Account, error) {
	account, err := domain.NewAccount(accountNumber, customerID, accountType, ccy)
	if err != nil {
		logger.Error("account service build account failed", err, nil)
		return domain.Account{}, err
	}

	created, err := s.accountRepo.Create(ctx, *account)
	if err != nil {
		logger.Error("account service open account repository failed", err, logger.Fields{
			"accountNumber": accountNumber,
		})
		return domain.Account{}, err
	}

	logger.Info("account service open account success", logger.Fields{
		"accountId":     created.ID.String(),
		"accountNumber": created.AccountNumber,
		"customerId":    created.CustomerID.String(),
	})
	return created, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountNumber string) (domain.Account, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return domain.Account{}, err
	}

	account, err := s.accountRepo.FindByAccountNumber(ctx, accountNumber)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			logger.Error("account service get account failed", err, logger.Fields{
				"accountNumber": accountNumber,
			})
		}
		return domain.Account{}, err
	}
	return account, nil
}

func (s *AccountService) Deposit(ctx context.Context, req models.TransactionRequest) (domain.Account, error) {
	return s.transact(ctx, "deposit", req, (*domain.Account).Deposit)
}

func (s *AccountService) Withdraw(ctx context.Context, req models.TransactionRequest) (domain.Account, error) {
	return s.transact(ctx, "withdraw", req, (*domain.Account).Withdraw)
}

func (s *AccountService) transact(
	ctx context.Context,
	operation string,
	req models.TransactionRequest,
	apply func(*domain.Account, domain.Money) error,
) (account domain.Account, err error) {
	defer func() {
		s.collector.RecordBalanceMutation(operation, domain.ErrorKind(err))
	}()

	logger.Info("account service "+operation+" request", logger.Fields{
		"accountNumber": req.AccountNumber,
		"amount":        req.Amount,
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service "+operation+" validation failed", err, nil)
		return domain.Account{}, err
	}

	accountNumber := strings.TrimSpace(req.AccountNumber)
	account, err = s.mutate(ctx, operation, accountNumber, func(a *domain.Account) error {
		amount, err := domain.ParseMoney(req.Amount, a.Currency)
		if err != nil {
			return err
		}
		return apply(a, amount)
	})
	if err != nil {
		logger.Error("account service "+operation+" failed", err, logger.Fields{
			"accountNumber": accountNumber,
			"amount":        req.Amount,
			"kind":          domain.ErrorKind(err),
		})
		return domain.Account{}, err
	}

	logger.Info("account service "+operation+" success", logger.Fields{
		"accountNumber": account.AccountNumber,
		"balance":       account.Balance.String(),
		"version":       account.Version,
	})
	return account, nil
}

// ChangeStatus moves an account along the status lifecycle. CLOSED is final.
func (s *AccountService) ChangeStatus(ctx context.Context, accountNumber string, status domain.AccountStatus) (domain.Account, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return domain.Account{}, err
	}
	if !status.Valid() {
		return domain.Account{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	account, err := s.mutate(ctx, "change_status", accountNumber, func(a *domain.Account) error {
		if !domain.CanTransition(a.Status, status) {
			return fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatusTransition, a.Status, status)
		}
		return a.SetStatus(status)
	})
	if err != nil {
		logger.Error("account service change status failed", err, logger.Fields{
			"accountNumber": accountNumber,
			"status":        string(status),
		})
		return domain.Account{}, err
	}

	logger.Info("account service change status success", logger.Fields{
		"accountNumber": account.AccountNumber,
		"status":        string(account.Status),
	})
	return account, nil
}

// mutate runs a read-modify-write cycle, starting over from a fresh read
// when the write loses a version race.
func (s *AccountService) mutate(ctx context.Context, operation string, accountNumber string, change func(*domain.Account) error) (domain.Account, error) {
	for attempt := 0; ; attempt++ {
		account, err := s.accountRepo.FindByAccountNumber(ctx, accountNumber)
		if err != nil {
			return domain.Account{}, err
		}
		if err := change(&account); err != nil {
			return domain.Account{}, err
		}

		updated, err := s.accountRepo.Update(ctx, account)
		if err == nil {
			return updated, nil
		}
		if !domain.IsRetryable(err) || attempt >= s.maxRetries {
			return domain.Account{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Account{}, ctxErr
		}

		s.collector.RecordConflictRetry(operation)
		logger.Debug("account service retrying after conflict", logger.Fields{
			"operation":     operation,
			"accountNumber": accountNumber,
			"attempt":       attempt + 1,
		})
	}
}

// ListCustomerAccounts returns a customer's accounts, narrowed by filter.
func (s *AccountService) ListCustomerAccounts(ctx context.Context, customerID uuid.UUID, filter models.AccountFilter) ([]domain.Account, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidAccount)
	}
	status, ccy, accountType, err := filter.Parse()
	if err != nil {
		return nil, err
	}

	var accounts []domain.Account
	switch {
	case status != "":
		accounts, err = s.accountRepo.FindByCustomerIDAndStatus(ctx, customerID, status)
	case ccy != "":
		accounts, err = s.accountRepo.FindByCustomerIDAndCurrency(ctx, customerID, ccy)
	case accountType != "":
		accounts, err = s.accountRepo.FindByCustomerIDAndAccountType(ctx, customerID, accountType)
	default:
		accounts, err = s.accountRepo.FindByCustomerID(ctx, customerID)
	}
	if err != nil {
		logger.Error("account service list customer accounts failed", err, logger.Fields{
			"customerId": customerID.String(),
		})
		return nil, err
	}

	// The repository narrows by one field; apply the rest here.
	out := accounts[:0]
	for _, a := range accounts {
		if (ccy == "" || a.Currency == ccy) && (accountType == "" || a.Type == accountType) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *AccountService) AccountsWithBalanceAbove(ctx context.Context, threshold domain.Money) ([]domain.Account, error) {
	if threshold.IsMissing() {
		return nil, fmt.Errorf("%w: threshold is required", domain.ErrInvalidAmount)
	}
	return s.accountRepo.FindAccountsWithBalanceAbove(ctx, threshold)
}

// StatusSummary counts accounts per status, including statuses with none.
func (s *AccountService) StatusSummary(ctx context.Context) (map[domain.AccountStatus]int64, error) {
	summary := make(map[domain.AccountStatus]int64, len(domain.AccountStatuses))
	for _, status := range domain.AccountStatuses {
		count, err := s.accountRepo.CountByStatus(ctx, status)
		if err != nil {
			logger.Error("account service status summary failed", err, logger.Fields{
				"status": string(status),
			})
			return nil, err
		}
		summary[status] = count
	}
	return summary, nil
}
