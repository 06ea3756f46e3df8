package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/google/uuid"
)

// AccountRepository keeps accounts in process memory. It enforces the same
// uniqueness and version rules as the SQL stores.
type AccountRepository struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]domain.Account
	byNumber map[string]uuid.UUID
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:     make(map[uuid.UUID]domain.Account),
		byNumber: make(map[string]uuid.UUID),
	}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	if err := account.Validate(); err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[account.AccountNumber]; exists {
		return domain.Account{}, fmt.Errorf("create account %s: %w", account.AccountNumber, domain.ErrDuplicateAccountNumber)
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if _, exists := r.byID[account.ID]; exists {
		return domain.Account{}, fmt.Errorf("create account: id %s already exists", account.ID)
	}

	account.Version = 1
	r.byID[account.ID] = account
	r.byNumber[account.AccountNumber] = account.ID

	return account, nil
}

func (r *AccountRepository) Update(ctx context.Context, account domain.Account) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	if err := account.Validate(); err != nil {
		return domain.Account{}, fmt.Errorf("update account: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[account.ID]
	if !ok {
		return domain.Account{}, domain.ErrRecordNotFound
	}
	if stored.Version != account.Version {
		return domain.Account{}, fmt.Errorf("update account %s at version %d: %w", account.AccountNumber, account.Version, domain.ErrConcurrencyConflict)
	}
	if stored.Currency != account.Currency {
		return domain.Account{}, fmt.Errorf("update account %s: %w: currency is immutable", account.AccountNumber, domain.ErrInvalidAccount)
	}

	stored.Balance = account.Balance
	stored.Status = account.Status
	if account.UpdatedAt.After(stored.UpdatedAt) {
		stored.UpdatedAt = account.UpdatedAt
	}
	stored.Version++
	r.byID[stored.ID] = stored

	return stored, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrRecordNotFound
	}
	return account, nil
}

func (r *AccountRepository) FindByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[accountNumber]
	if !ok {
		return domain.Account{}, domain.ErrRecordNotFound
	}
	return r.byID[id], nil
}

func (r *AccountRepository) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byNumber[accountNumber]
	return ok, nil
}

func (r *AccountRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error) {
	return r.filter(ctx, func(a domain.Account) bool {
		return a.CustomerID == customerID
	})
}

func (r *AccountRepository) FindByStatus(ctx context.Context, status domain.AccountStatus) ([]domain.Account, error) {
	return r.filter(ctx, func(a domain.Account) bool {
		return a.Status == status
	})
}

func (r *AccountRepository) CountByStatus(ctx context.Context, status domain.AccountStatus) (int64, error) {
	accounts, err := r.FindByStatus(ctx, status)
	if err != nil {
		return 0, err
	}
	return int64(len(accounts)), nil
}

func (r *AccountRepository) FindByCustomerIDAndStatus(ctx context.Context, customerID uuid.UUID, status domain.AccountStatus) ([]domain.Account, error) {
	return r.filter(ctx, func(a domain.Account) bool {
		return a.CustomerID == customerID && a.Status == status
	})
}

func (r *AccountRepository) FindByCustomerIDAndCurrency(ctx context.Context, customerID uuid.UUID, currency domain.Currency) ([]domain.Account, error) {
	return r.filter(ctx, func(a domain.Account) bool {
		return a.CustomerID == customerID && a.Currency == currency
	})
}

func (r *AccountRepository) FindByCustomerIDAndAccountType(ctx context.Context, customerID uuid.UUID, accountType domain.AccountType) ([]domain.Account, error) {
	return r.filter(ctx, func(a domain.Account) bool {
		return a.CustomerID == customerID && a.Type == accountType
	})
}

func (r *AccountRepository) FindAccountsWithBalanceAbove(ctx context.Context, threshold domain.Money) ([]domain.Account, error) {
	if threshold.IsMissing() {
		return nil, fmt.Errorf("find accounts with balance above: %w: threshold is required", domain.ErrInvalidAmount)
	}

	return r.filter(ctx, func(a domain.Account) bool {
		if a.Currency != threshold.Currency() {
			return false
		}
		above, err := a.Balance.GreaterThanOrEqual(threshold)
		return err == nil && above
	})
}

func (r *AccountRepository) filter(ctx context.Context, keep func(domain.Account) bool) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]domain.Account, 0)
	for _, account := range r.byID {
		if keep(account) {
			out = append(out, account)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Account) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.AccountNumber, b.AccountNumber)
	})
	return out, nil
}
