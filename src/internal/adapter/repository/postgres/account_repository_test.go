package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/postgres"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repotest"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/migrations"
	"github.com/lib/pq"
)

func TestClassifyError(t *testing.T) {
	dialect := postgres.Dialect{}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "duplicate account number",
			err:  &pq.Error{Code: "23505", Constraint: "accounts_account_number_key"},
			want: domain.ErrDuplicateAccountNumber,
		},
		{
			name: "serialization failure",
			err:  &pq.Error{Code: "40001"},
			want: domain.ErrConcurrencyConflict,
		},
		{
			name: "deadlock",
			err:  &pq.Error{Code: "40P01"},
			want: domain.ErrConcurrencyConflict,
		},
		{
			name: "lock not available",
			err:  &pq.Error{Code: "55P03"},
			want: domain.ErrConcurrencyConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := dialect.ClassifyError(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			var pqErr *pq.Error
			if !errors.As(got, &pqErr) {
				t.Fatal("expected driver error to stay in the chain")
			}
		})
	}
}

func TestClassifyErrorKeepsUnrelatedErrors(t *testing.T) {
	dialect := postgres.Dialect{}

	other := &pq.Error{Code: "23505", Constraint: "accounts_pkey"}
	if got := dialect.ClassifyError(other); got != error(other) {
		t.Fatalf("expected unrelated unique violation unchanged, got %v", got)
	}

	plain := errors.New("connection reset")
	if got := dialect.ClassifyError(plain); got != plain {
		t.Fatalf("expected plain error unchanged, got %v", got)
	}
}

func TestDialectEncoding(t *testing.T) {
	dialect := postgres.Dialect{}

	if got := dialect.Rebind(`SELECT 1 FROM accounts WHERE id = ? AND version = ?`); got != `SELECT 1 FROM accounts WHERE id = $1 AND version = $2` {
		t.Fatalf("unexpected rebind: %s", got)
	}

	local := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	value, ok := dialect.TimeValue(local).(time.Time)
	if !ok || value.Location() != time.UTC || !value.Equal(local) {
		t.Fatalf("expected UTC time equal to input, got %v", dialect.TimeValue(local))
	}
}

// TestAccountRepositoryContract runs against a real database when
// LEDGER_TEST_POSTGRES_DSN is set.
func TestAccountRepositoryContract(t *testing.T) {
	dsn := os.Getenv("LEDGER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LEDGER_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, dsn, postgres.DefaultPoolConfig())
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := postgres.RunMigrations(ctx, db, migrations.FS); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	repotest.RunAccountRepository(t, func(t *testing.T) repo_interfaces.AccountRepository {
		if _, err := db.ExecContext(ctx, `TRUNCATE accounts`); err != nil {
			t.Fatalf("truncate accounts: %v", err)
		}
		return postgres.NewAccountRepository(db)
	})
}
