package instrumented_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/instrumented"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repotest"
	"github.com/google/uuid"
)

type call struct {
	backend   string
	operation string
	outcome   string
}

type recordingCollector struct {
	mu    sync.Mutex
	calls []call
}

func (c *recordingCollector) RecordRepositoryCall(backend, operation, outcome string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call{backend: backend, operation: operation, outcome: outcome})
}

func (c *recordingCollector) RecordBalanceMutation(string, string) {}
func (c *recordingCollector) RecordConflictRetry(string)           {}

func TestAccountRepositoryContract(t *testing.T) {
	repotest.RunAccountRepository(t, func(t *testing.T) repo_interfaces.AccountRepository {
		return instrumented.NewAccountRepository(memory.NewAccountRepository(), "memory", nil)
	})
}

func TestRecordsOutcomePerCall(t *testing.T) {
	ctx := context.Background()
	collector := &recordingCollector{}
	repo := instrumented.NewAccountRepository(memory.NewAccountRepository(), "memory", collector)

	account := repotest.Account(t, "ACC001", uuid.New(), "EUR", "0", 0)
	if _, err := repo.Create(ctx, account); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	_, _ = repo.Create(ctx, account)
	_, _ = repo.FindByAccountNumber(ctx, "MISSING1")

	want := []call{
		{backend: "memory", operation: "create", outcome: "ok"},
		{backend: "memory", operation: "create", outcome: "duplicate_account_number"},
		{backend: "memory", operation: "find_by_account_number", outcome: "not_found"},
	}
	if len(collector.calls) != len(want) {
		t.Fatalf("expected %d calls, got %+v", len(want), collector.calls)
	}
	for i := range want {
		if collector.calls[i] != want[i] {
			t.Fatalf("call %d: expected %+v, got %+v", i, want[i], collector.calls[i])
		}
	}
}
