package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, account_number, customer_id, account_type, balance, currency, status, version, created_at, updated_at`

// AccountRepository implements repo_interfaces.AccountRepository on database/sql.
type AccountRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewAccountRepository(db *sql.DB, dialect Dialect) *AccountRepository {
	return &AccountRepository{db: db, dialect: dialect}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("account repository create", logger.Fields{
		"backend":       r.dialect.Name(),
		"customerId":    account.CustomerID.String(),
		"accountNumber": account.AccountNumber,
		"currency":      account.Currency.String(),
	})

	if err := account.Validate(); err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.Version = 1

	const query = `
INSERT INTO accounts (
	id,
	account_number,
	customer_id,
	account_type,
	balance,
	currency,
	status,
	version,
	created_at,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(
		ctx,
		r.dialect.Rebind(query),
		account.ID.String(),
		account.AccountNumber,
		account.CustomerID.String(),
		string(account.Type),
		account.Balance.Amount().String(),
		string(account.Currency),
		string(account.Status),
		account.Version,
		r.dialect.TimeValue(account.CreatedAt),
		r.dialect.TimeValue(account.UpdatedAt),
	); err != nil {
		err = r.dialect.ClassifyError(err)
		logger.Error("account repository create failed", err, logger.Fields{
			"backend":       r.dialect.Name(),
			"accountNumber": account.AccountNumber,
		})
		return domain.Account{}, fmt.Errorf("create account %s: %w", account.AccountNumber, err)
	}

	logger.Info("account repository create success", logger.Fields{
		"accountId":     account.ID.String(),
		"accountNumber": account.AccountNumber,
	})

	return account, nil
}

func (r *AccountRepository) Update(ctx context.Context, account domain.Account) (domain.Account, error) {
	if err := account.Validate(); err != nil {
		return domain.Account{}, fmt.Errorf("update account: %w", err)
	}

	const query = `
UPDATE accounts
SET balance = ?,
    status = ?,
    updated_at = ?,
    version = version + 1
WHERE id = ?
  AND version = ?
  AND currency = ?`

	result, err := r.db.ExecContext(
		ctx,
		r.dialect.Rebind(query),
		account.Balance.Amount().String(),
		string(account.Status),
		r.dialect.TimeValue(account.UpdatedAt),
		account.ID.String(),
		account.Version,
		string(account.Currency),
	)
	if err != nil {
		err = r.dialect.ClassifyError(err)
		logger.Error("account repository update failed", err, logger.Fields{
			"backend":       r.dialect.Name(),
			"accountNumber": account.AccountNumber,
		})
		return domain.Account{}, fmt.Errorf("update account %s: %w", account.AccountNumber, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.Account{}, fmt.Errorf("update account rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, getErr := r.GetByID(ctx, account.ID); getErr != nil {
			return domain.Account{}, getErr
		}
		logger.Info("account repository update lost version race", logger.Fields{
			"accountNumber": account.AccountNumber,
			"version":       account.Version,
		})
		return domain.Account{}, fmt.Errorf("update account %s at version %d: %w", account.AccountNumber, account.Version, domain.ErrConcurrencyConflict)
	}

	account.Version++
	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id.String())
}

func (r *AccountRepository) FindByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = ?`, accountNumber)
}

func (r *AccountRepository) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1
	FROM accounts
	WHERE account_number = ?
)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), accountNumber).Scan(&exists); err != nil {
		err = r.dialect.ClassifyError(err)
		logger.Error("account repository exists by account number failed", err, logger.Fields{
			"accountNumber": accountNumber,
		})
		return false, fmt.Errorf("check account number: %w", err)
	}

	return exists, nil
}

func (r *AccountRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error) {
	return r.list(ctx, `customer_id = ?`, customerID.String())
}

func (r *AccountRepository) FindByStatus(ctx context.Context, status domain.AccountStatus) ([]domain.Account, error) {
	return r.list(ctx, `status = ?`, string(status))
}

func (r *AccountRepository) CountByStatus(ctx context.Context, status domain.AccountStatus) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT COUNT(1) FROM accounts WHERE status = ?`), string(status)).Scan(&count); err != nil {
		err = r.dialect.ClassifyError(err)
		logger.Error("account repository count by status failed", err, logger.Fields{
			"status": string(status),
		})
		return 0, fmt.Errorf("count accounts by status: %w", err)
	}

	return count, nil
}

func (r *AccountRepository) FindByCustomerIDAndStatus(ctx context.Context, customerID uuid.UUID, status domain.AccountStatus) ([]domain.Account, error) {
	return r.list(ctx, `customer_id = ? AND status = ?`, customerID.String(), string(status))
}

func (r *AccountRepository) FindByCustomerIDAndCurrency(ctx context.Context, customerID uuid.UUID, currency domain.Currency) ([]domain.Account, error) {
	return r.list(ctx, `customer_id = ? AND currency = ?`, customerID.String(), string(currency))
}

func (r *AccountRepository) FindByCustomerIDAndAccountType(ctx context.Context, customerID uuid.UUID, accountType domain.AccountType) ([]domain.Account, error) {
	return r.list(ctx, `customer_id = ? AND account_type = ?`, customerID.String(), string(accountType))
}

func (r *AccountRepository) FindAccountsWithBalanceAbove(ctx context.Context, threshold domain.Money) ([]domain.Account, error) {
	if threshold.IsMissing() {
		return nil, fmt.Errorf("find accounts with balance above: %w: threshold is required", domain.ErrInvalidAmount)
	}

	if r.dialect.NumericBalance() {
		return r.list(ctx, `currency = ? AND balance >= ?`, string(threshold.Currency()), threshold.Amount().String())
	}

	// Balances are stored as exact text here, so compare in Go.
	candidates, err := r.list(ctx, `currency = ?`, string(threshold.Currency()))
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, account := range candidates {
		above, err := account.Balance.GreaterThanOrEqual(threshold)
		if err != nil {
			return nil, err
		}
		if above {
			out = append(out, account)
		}
	}
	return out, nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg any) (domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Debug("account repository record not found", logger.Fields{
				"backend": r.dialect.Name(),
			})
			return domain.Account{}, domain.ErrRecordNotFound
		}
		err = r.dialect.ClassifyError(err)
		logger.Error("account repository get failed", err, logger.Fields{
			"backend": r.dialect.Name(),
		})
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) list(ctx context.Context, where string, args ...any) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where + ` ORDER BY created_at, account_number`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		err = r.dialect.ClassifyError(err)
		logger.Error("account repository list failed", err, logger.Fields{
			"backend": r.dialect.Name(),
			"filter":  strings.TrimSpace(where),
		})
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", r.dialect.ClassifyError(err))
	}

	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account     domain.Account
		accountType string
		balance     string
		currency    string
		status      string
		createdAt   timestamp
		updatedAt   timestamp
	)

	if err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.CustomerID,
		&accountType,
		&balance,
		&currency,
		&status,
		&account.Version,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Account{}, err
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(balance))
	if err != nil {
		return domain.Account{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}

	account.Currency = domain.Currency(strings.TrimSpace(currency))
	account.Balance, err = domain.NewMoney(amount, account.Currency)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %s balance: %w", account.AccountNumber, err)
	}
	account.Type = domain.AccountType(accountType)
	account.Status = domain.AccountStatus(status)
	account.CreatedAt = createdAt.t
	account.UpdatedAt = updatedAt.t

	return account, nil
}
