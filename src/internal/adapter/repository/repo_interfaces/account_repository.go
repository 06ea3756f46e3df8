package repo_interfaces

import (
	"context"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/google/uuid"
)

// AccountRepository persists accounts and answers the read-side lookups.
//
// Implementations return domain.ErrRecordNotFound for missing single records,
// domain.ErrDuplicateAccountNumber when the unique account number constraint
// rejects an insert, and domain.ErrConcurrencyConflict when Update loses a
// version race or the backend reports lock contention.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	// Update stores balance, status and updatedAt when account.Version still
	// matches the stored version, and returns the account with the next version.
	Update(ctx context.Context, account domain.Account) (domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error)
	FindByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error)
	ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error)
	FindByStatus(ctx context.Context, status domain.AccountStatus) ([]domain.Account, error)
	CountByStatus(ctx context.Context, status domain.AccountStatus) (int64, error)
	FindByCustomerIDAndStatus(ctx context.Context, customerID uuid.UUID, status domain.AccountStatus) ([]domain.Account, error)
	FindByCustomerIDAndCurrency(ctx context.Context, customerID uuid.UUID, currency domain.Currency) ([]domain.Account, error)
	FindByCustomerIDAndAccountType(ctx context.Context, customerID uuid.UUID, accountType domain.AccountType) ([]domain.Account, error)
	// FindAccountsWithBalanceAbove returns accounts in threshold's currency whose
	// balance is greater than or equal to threshold.
	FindAccountsWithBalanceAbove(ctx context.Context, threshold domain.Money) ([]domain.Account, error)
}
