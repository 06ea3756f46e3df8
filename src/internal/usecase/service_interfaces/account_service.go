package service_interfaces

import (
	"context"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/usecase/models"
	"github.com/google/uuid"
)

type AccountService interface {
	OpenAccount(ctx context.Context, req models.OpenAccountRequest) (domain.Account, error)
	GetAccount(ctx context.Context, accountNumber string) (domain.Account, error)
	Deposit(ctx context.Context, req models.TransactionRequest) (domain.Account, error)
	Withdraw(ctx context.Context, req models.TransactionRequest) (domain.Account, error)
	ChangeStatus(ctx context.Context, accountNumber string, status domain.AccountStatus) (domain.Account, error)
	ListCustomerAccounts(ctx context.Context, customerID uuid.UUID, filter models.AccountFilter) ([]domain.Account, error)
	AccountsWithBalanceAbove(ctx context.Context, threshold domain.Money) ([]domain.Account, error)
	StatusSummary(ctx context.Context) (map[domain.AccountStatus]int64, error)
}
