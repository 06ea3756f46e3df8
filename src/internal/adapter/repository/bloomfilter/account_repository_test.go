package bloomfilter_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/bloomfilter"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repotest"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/google/uuid"
)

// countingRepo counts lookups that reach the wrapped store.
type countingRepo struct {
	repo_interfaces.AccountRepository
	finds  int
	exists int
}

func (c *countingRepo) FindByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	c.finds++
	return c.AccountRepository.FindByAccountNumber(ctx, accountNumber)
}

func (c *countingRepo) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	c.exists++
	return c.AccountRepository.ExistsByAccountNumber(ctx, accountNumber)
}

// blockingRepo holds FindByAccountNumber until release is closed, then
// fails if the context it was handed has ended.
type blockingRepo struct {
	repo_interfaces.AccountRepository
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingRepo) FindByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	return b.AccountRepository.FindByAccountNumber(ctx, accountNumber)
}

func TestAccountRepositoryContract(t *testing.T) {
	repotest.RunAccountRepository(t, func(t *testing.T) repo_interfaces.AccountRepository {
		return bloomfilter.NewAccountRepository(memory.NewAccountRepository(), 1000, 0.01)
	})
}

func TestUnknownNumbersSkipStorage(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{AccountRepository: memory.NewAccountRepository()}
	repo := bloomfilter.NewAccountRepository(inner, 1000, 0.001)

	if _, err := repo.Create(ctx, repotest.Account(t, "ACC001", uuid.New(), "EUR", "0", 0)); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if _, err := repo.FindByAccountNumber(ctx, "NEVERSEEN"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	exists, err := repo.ExistsByAccountNumber(ctx, "NEVERSEEN")
	if err != nil || exists {
		t.Fatalf("expected absent, got %v (err %v)", exists, err)
	}
	if inner.finds != 0 || inner.exists != 0 {
		t.Fatalf("expected no storage lookups, got finds=%d exists=%d", inner.finds, inner.exists)
	}

	if _, err := repo.FindByAccountNumber(ctx, "ACC001"); err != nil {
		t.Fatalf("expected ACC001 to be found, got %v", err)
	}
	if inner.finds != 1 {
		t.Fatalf("expected one storage lookup, got %d", inner.finds)
	}

	stats := repo.Stats()
	if stats.TotalQueries != 3 || stats.BloomRejected != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSeedLoadsExistingAccounts(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewAccountRepository()
	customer := uuid.New()

	for i, status := range domain.AccountStatuses {
		account := repotest.Account(t, "SEED"+status.String(), customer, "EUR", "0", time.Duration(i)*time.Second)
		account.Status = status
		if _, err := inner.Create(ctx, account); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	repo := bloomfilter.NewAccountRepository(inner, 1000, 0.01)
	if err := repo.Seed(ctx); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	for _, status := range domain.AccountStatuses {
		exists, err := repo.ExistsByAccountNumber(ctx, "SEED"+status.String())
		if err != nil || !exists {
			t.Fatalf("expected seeded %s account to exist, got %v (err %v)", status, exists, err)
		}
	}
}

func TestDuplicateCreateTeachesFilter(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewAccountRepository()
	if _, err := inner.Create(ctx, repotest.Account(t, "ACC001", uuid.New(), "EUR", "0", 0)); err != nil {
		t.Fatalf("create: %v", err)
	}

	repo := bloomfilter.NewAccountRepository(inner, 1000, 0.01)
	if _, err := repo.Create(ctx, repotest.Account(t, "ACC001", uuid.New(), "EUR", "0", 0)); !errors.Is(err, domain.ErrDuplicateAccountNumber) {
		t.Fatalf("expected ErrDuplicateAccountNumber, got %v", err)
	}

	exists, err := repo.ExistsByAccountNumber(ctx, "ACC001")
	if err != nil || !exists {
		t.Fatalf("expected ACC001 to exist after duplicate, got %v (err %v)", exists, err)
	}
}

func TestSharedLookupSurvivesCancelledCaller(t *testing.T) {
	inner := &blockingRepo{
		AccountRepository: memory.NewAccountRepository(),
		started:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	repo := bloomfilter.NewAccountRepository(inner, 1000, 0.01)
	if _, err := repo.Create(context.Background(), repotest.Account(t, "ACC001", uuid.New(), "EUR", "25.00", 0)); err != nil {
		t.Fatalf("create: %v", err)
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		account domain.Account
		err     error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)

	go func() {
		account, err := repo.FindByAccountNumber(firstCtx, "ACC001")
		first <- result{account, err}
	}()
	<-inner.started

	go func() {
		account, err := repo.FindByAccountNumber(context.Background(), "ACC001")
		second <- result{account, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if got := <-first; !errors.Is(got.err, context.Canceled) {
		t.Fatalf("expected first caller to see context.Canceled, got %v", got.err)
	}

	close(inner.release)
	got := <-second
	if got.err != nil {
		t.Fatalf("expected second caller to succeed, got %v", got.err)
	}
	if got.account.AccountNumber != "ACC001" {
		t.Fatalf("expected ACC001, got %q", got.account.AccountNumber)
	}
}
