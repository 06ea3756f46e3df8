// Package instrumented records call counts and latency for an AccountRepository.
package instrumented

import (
	"context"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/metrics"
	"github.com/google/uuid"
)

type AccountRepository struct {
	next      repo_interfaces.AccountRepository
	backend   string
	collector metrics.Collector
}

func NewAccountRepository(next repo_interfaces.AccountRepository, backend string, collector metrics.Collector) *AccountRepository {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &AccountRepository{next: next, backend: backend, collector: collector}
}

var _ repo_interfaces.AccountRepository = (*AccountRepository)(nil)

func observe[T any](r *AccountRepository, operation string, call func() (T, error)) (T, error) {
	start := time.Now()
	result, err := call()
	r.collector.RecordRepositoryCall(r.backend, operation, domain.ErrorKind(err), time.Since(start))
	return result, err
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	return observe(r, "create", func() (domain.Account, error) {
		return r.next.Create(ctx, account)
	})
}

func (r *AccountRepository) Update(ctx context.Context, account domain.Account) (domain.Account, error) {
	return observe(r, "update", func() (domain.Account, error) {
		return r.next.Update(ctx, account)
	})
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return observe(r, "get_by_id", func() (domain.Account, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *AccountRepository) FindByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	return observe(r, "find_by_account_number", func() (domain.Account, error) {
		return r.next.FindByAccountNumber(ctx, accountNumber)
	})
}

func (r *AccountRepository) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	return observe(r, "exists_by_account_number", func() (bool, error) {
		return r.next.ExistsByAccountNumber(ctx, accountNumber)
	})
}

func (r *AccountRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error) {
	return observe(r, "find_by_customer_id", func() ([]domain.Account, error) {
		return r.next.FindByCustomerID(ctx, customerID)
	})
}

func (r *AccountRepository) FindByStatus(ctx context.Context, status domain.AccountStatus) ([]domain.Account, error) {
	return observe(r, "find_by_status", func() ([]domain.Account, error) {
		return r.next.FindByStatus(ctx, status)
	})
}

func (r *AccountRepository) CountByStatus(ctx context.Context, status domain.AccountStatus) (int64, error) {
	return observe(r, "count_by_status", func() (int64, error) {
		return r.next.CountByStatus(ctx, status)
	})
}

func (r *AccountRepository) FindByCustomerIDAndStatus(ctx context.Context, customerID uuid.UUID, status domain.AccountStatus) ([]domain.Account, error) {
	return observe(r, "find_by_customer_id_and_status", func() ([]domain.Account, error) {
		return r.next.FindByCustomerIDAndStatus(ctx, customerID, status)
	})
}

func (r *AccountRepository) FindByCustomerIDAndCurrency(ctx context.Context, customerID uuid.UUID, currency domain.Currency) ([]domain.Account, error) {
	return observe(r, "find_by_customer_id_and_currency", func() ([]domain.Account, error) {
		return r.next.FindByCustomerIDAndCurrency(ctx, customerID, currency)
	})
}

func (r *AccountRepository) FindByCustomerIDAndAccountType(ctx context.Context, customerID uuid.UUID, accountType domain.AccountType) ([]domain.Account, error) {
	return observe(r, "find_by_customer_id_and_account_type", func() ([]domain.Account, error) {
		return r.next.FindByCustomerIDAndAccountType(ctx, customerID, accountType)
	})
}

func (r *AccountRepository) FindAccountsWithBalanceAbove(ctx context.Context, threshold domain.Money) ([]domain.Account, error) {
	return observe(r, "find_accounts_with_balance_above", func() ([]domain.Account, error) {
		return r.next.FindAccountsWithBalanceAbove(ctx, threshold)
	})
}
