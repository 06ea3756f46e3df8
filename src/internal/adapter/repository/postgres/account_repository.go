package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/sqlstore"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Dialect is the PostgreSQL flavour of sqlstore.Dialect.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Rebind(query string) string { return sqlstore.RebindDollar(query) }

func (Dialect) TimeValue(t time.Time) driver.Value { return t.UTC() }

func (Dialect) NumericBalance() bool { return true }

func (Dialect) ClassifyError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case codeUniqueViolation:
		if strings.Contains(pqErr.Constraint, "account_number") {
			return fmt.Errorf("%w: %w", domain.ErrDuplicateAccountNumber, err)
		}
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %w", domain.ErrConcurrencyConflict, err)
	}
	return err
}

func NewAccountRepository(db *sql.DB) *sqlstore.AccountRepository {
	return sqlstore.NewAccountRepository(db, Dialect{})
}
