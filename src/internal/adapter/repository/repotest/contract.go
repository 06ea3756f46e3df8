// Package repotest holds the behaviour every AccountRepository backend must share.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/google/uuid"
)

// Factory returns an empty repository for a single subtest.
type Factory func(t *testing.T) repo_interfaces.AccountRepository

var baseTime = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// RunAccountRepository runs the shared contract against repositories built by newRepo.
func RunAccountRepository(t *testing.T, newRepo Factory) {
	t.Helper()

	tests := []struct {
		name string
		run  func(t *testing.T, repo repo_interfaces.AccountRepository)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"DuplicateAccountNumber", testDuplicateAccountNumber},
		{"NotFound", testNotFound},
		{"ExistsByAccountNumber", testExistsByAccountNumber},
		{"UpdateBumpsVersion", testUpdateBumpsVersion},
		{"UpdateRejectsStaleVersion", testUpdateRejectsStaleVersion},
		{"UpdateUnknownAccount", testUpdateUnknownAccount},
		{"FindByCustomer", testFindByCustomer},
		{"FindAndCountByStatus", testFindAndCountByStatus},
		{"BalanceAbove", testBalanceAbove},
		{"BalanceAboveRequiresThreshold", testBalanceAboveRequiresThreshold},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, newRepo(t))
		})
	}
}

// Account builds a valid ACTIVE account whose timestamps sit offset after a
// fixed base time, so list ordering is deterministic.
func Account(t *testing.T, number string, customerID uuid.UUID, ccy domain.Currency, balance string, offset time.Duration) domain.Account {
	t.Helper()

	money, err := domain.ParseMoney(balance, ccy)
	if err != nil {
		t.Fatalf("parse balance %q: %v", balance, err)
	}
	created := baseTime.Add(offset)
	return domain.Account{
		ID:            uuid.New(),
		AccountNumber: number,
		CustomerID:    customerID,
		Type:          domain.AccountTypeChecking,
		Balance:       money,
		Currency:      ccy,
		Status:        domain.AccountStatusActive,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func mustCreate(t *testing.T, repo repo_interfaces.AccountRepository, account domain.Account) domain.Account {
	t.Helper()

	created, err := repo.Create(context.Background(), account)
	if err != nil {
		t.Fatalf("create %s: %v", account.AccountNumber, err)
	}
	return created
}

func numbers(accounts []domain.Account) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.AccountNumber)
	}
	return out
}

func expectNumbers(t *testing.T, label string, accounts []domain.Account, want ...string) {
	t.Helper()

	got := numbers(accounts)
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", label, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %v, got %v", label, want, got)
		}
	}
}

func testCreateAndGet(t *testing.T, repo repo_interfaces.AccountRepository) {
	ctx := context.Background()
	account := Account(t, "DE89370400440532013000", uuid.New(), "EUR", "100.50", 0)
	account.Type = domain.AccountTypeSavings

	created := mustCreate(t, repo, account)
	if created.Version != 1 {
		t.Fatalf("expected version 1 after create, got %d", created.Version)
	}

	got, err := repo.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.AccountNumber != account.AccountNumber || got.CustomerID != account.CustomerID {
		t.Fatalf("identity not preserved: %+v", got)
	}
	if got.Type != domain.AccountTypeSavings || got.Status != domain.AccountStatusActive {
		t.Fatalf("expected SAVINGS/ACTIVE, got %s/%s", got.Type, got.Status)
	}
	if !got.Balance.Equal(account.Balance) || got.Currency != "EUR" {
		t.Fatalf("expected balance 100.50 EUR, got %s", got.Balance)
	}
	if !got.CreatedAt.Equal(account.CreatedAt) || !got.UpdatedAt.Equal(account.UpdatedAt) {
		t.Fatalf("timestamps not preserved: created %s updated %s", got.CreatedAt, got.UpdatedAt)
	}

	byNumber, err := repo.FindByAccountNumber(ctx, account.AccountNumber)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if byNumber.ID != account.ID {
		t.Fatalf("expected id %s, got %s", account.ID, byNumber.ID)
	}
}

func testDuplicateAccountNumber(t *testing.T, repo repo_interfaces.AccountRepository) {
	mustCreate(t, repo, Account(t, "ACC001", uuid.New(), "EUR", "0", 0))

	_, err := repo.Create(context.Background(), Account(t, "ACC001", uuid.New(), "USD", "0", time.Second))
	if !errors.Is(err, domain.ErrDuplicateAccountNumber) {
		t.Fatalf("expected ErrDuplicateAccountNumber, got %v", err)
	}

	count, err := repo.CountByStatus(context.Background(), domain.AccountStatusActive)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored account, got %d", count)
	}
}

func testNotFound(t *testing.T, repo repo_interfaces.AccountRepository) {
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound from GetByID, got %v", err)
	}
	if _, err := repo.FindByAccountNumber(ctx, "MISSING1"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound from FindByAccountNumber, got %v", err)
	}
}

func testExistsByAccountNumber(t *testing.T, repo repo_interfaces.AccountRepository) {
	ctx := context.Background()
	mustCreate(t, repo, Account(t, "ACC001", uuid.New(), "EUR", "0", 0))

	exists, err := repo.ExistsByAccountNumber(ctx, "ACC001")
	if err != nil || !exists {
		t.Fatalf("expected ACC001 to exist, got %v (err %v)", exists, err)
	}
	exists, err = repo.ExistsByAccountNumber(ctx, "ACC002")
	if err != nil || exists {
		t.Fatalf("expected ACC002 to be absent, got %v (err %v)", exists, err)
	}
}

func testUpdateBumpsVersion(t *testing.T, repo repo_interfaces.AccountRepository) {
	ctx := context.Background()
	account := mustCreate(t, repo, Account(t, "ACC001", uuid.New(), "EUR", "100", 0))

	account.Balance = domain.MustParseMoney("250.25", "EUR")
	account.Status = domain.AccountStatusFrozen
	account.UpdatedAt = account.UpdatedAt.Add(time.Minute)

	updated, err := repo.Update(ctx, account)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	got, err := repo.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("expected stored version 2, got %d", got.Version)
	}
	if !got.Balance.Equal(domain.MustParseMoney("250.25", "EUR")) {
		t.Fatalf("expected balance 250.25 EUR, got %s", got.Balance)
	}
	if got.Status != domain.AccountStatusFrozen {
		t.Fatalf("expected FROZEN, got %s", got.Status)
	}
	if !got.UpdatedAt.Equal(account.UpdatedAt) {
		t.Fatalf("expected updatedAt %s, got %s", account.UpdatedAt, got.UpdatedAt)
	}
}

func testUpdateRejectsStaleVersion(t *testing.T, repo repo_interfaces.AccountRepository) {
	ctx := context.Background()
	account := mustCreate(t, repo, Account(t, "ACC001", uuid.New(), "EUR", "100", 0))
	stale := account

	account.Balance = domain.MustParseMoney("90", "EUR")
	if _, err := repo.Update(ctx, account); err != nil {
		t.Fatalf("first update: %v", err)
	}

	stale.Balance = domain.MustParseMoney("10", "EUR")
	_, err := repo.Update(ctx, stale)
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}

	got, err := repo.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !got.Balance.Equal(domain.MustParseMoney("90", "EUR")) {
		t.Fatalf("stale write leaked: balance %s", got.Balance)
	}
}

func testUpdateUnknownAccount(t *testing.T, repo repo_interfaces.AccountRepository) {
	account := Account(t, "ACC001", uuid.New(), "EUR", "0", 0)
	account.Version = 1

	_, err := repo.Update(context.Background(), account)
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func testFindByCustomer(t *testing.T, repo repo_interfaces.AccountRepository) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	eurChecking := Account(t, "ALICE1", alice, "EUR", "10", 2*time.Second)
	usdSavings := Account(t, "ALICE2", alice, "USD", "20", time.Second)
	usdSavings.Type = domain.AccountTypeSavings
	frozen := Account(t, "ALICE3", alice, "EUR", "30", 3*time.Second)
	frozen.Status = domain.AccountStatusFrozen

	mustCreate(t, repo, eurChecking)
	mustCreate(t, repo, usdSavings)
	mustCreate(t, repo, frozen)
	mustCreate(t, repo, Account(t, "BOB1", bob, "EUR", "40", 0))

	all, err := repo.FindByCustomerID(ctx, alice)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	expectNumbers(t, "by customer", all, "ALICE2", "ALICE1", "ALICE3")

	active, err := repo.FindByCustomerIDAndStatus(ctx, alice, domain.AccountStatusActive)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	expectNumbers(t, "by customer and status", active, "ALICE2", "ALICE1")

	euro, err := repo.FindByCustomerIDAndCurrency(ctx, alice, "EUR")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	expectNumbers(t, "by customer and currency", euro, "ALICE1", "ALICE3")

	savings, err := repo.FindByCustomerIDAndAccountType(ctx, alice, domain.AccountTypeSavings)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	expectNumbers(t, "by customer and type", savings, "ALICE2")

	none, err := repo.FindByCustomerID(ctx, uuid.New())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no accounts for unknown customer, got %d", len(none))
	}
}

func testFindAndCountByStatus(t *testing.T, repo repo_interfaces.AccountRepository) {
	ctx := context.Background()
	customer := uuid.New()

	for i, status := range []domain.AccountStatus{
		domain.AccountStatusActive,
		domain.AccountStatusActive,
		domain.AccountStatusFrozen,
		domain.AccountStatusClosed,
	} {
		account := Account(t, "ACC00"+string(rune('1'+i)), customer, "EUR", "0", time.Duration(i)*time.Second)
		account.Status = status
		mustCreate(t, repo, account)
	}

	active, err := repo.FindByStatus(ctx, domain.AccountStatusActive)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	expectNumbers(t, "active", active, "ACC001", "ACC002")

	want := map[domain.AccountStatus]int64{
		domain.AccountStatusPending: 0,
		domain.AccountStatusActive:  2,
		domain.AccountStatusFrozen:  1,
		domain.AccountStatusClosed:  1,
	}
	for status, expected := range want {
		count, err := repo.CountByStatus(ctx, status)
		if err != nil {
			t.Fatalf("count %s: %v", status, err)
		}
		if count != expected {
			t.Fatalf("count %s: expected %d, got %d", status, expected, count)
		}
	}
}

func testBalanceAbove(t *testing.T, repo repo_interfaces.AccountRepository) {
	ctx := context.Background()
	customer := uuid.New()

	mustCreate(t, repo, Account(t, "EUR1000", customer, "EUR", "1000.00", 0))
	mustCreate(t, repo, Account(t, "EUR50000", customer, "EUR", "50000.00", time.Second))
	mustCreate(t, repo, Account(t, "EUR50", customer, "EUR", "50.00", 2*time.Second))
	mustCreate(t, repo, Account(t, "EUR10000", customer, "EUR", "10000", 3*time.Second))
	mustCreate(t, repo, Account(t, "USD90000", customer, "USD", "90000.00", 4*time.Second))

	above, err := repo.FindAccountsWithBalanceAbove(ctx, domain.MustParseMoney("10000.01", "EUR"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	expectNumbers(t, "strictly above", above, "EUR50000")

	atOrAbove, err := repo.FindAccountsWithBalanceAbove(ctx, domain.MustParseMoney("10000", "EUR"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	expectNumbers(t, "at or above", atOrAbove, "EUR50000", "EUR10000")

	// 9 sorts after 10000 as text; the comparison must stay numeric.
	nineThousand, err := repo.FindAccountsWithBalanceAbove(ctx, domain.MustParseMoney("9000", "EUR"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	expectNumbers(t, "numeric ordering", nineThousand, "EUR50000", "EUR10000")
}

func testBalanceAboveRequiresThreshold(t *testing.T, repo repo_interfaces.AccountRepository) {
	_, err := repo.FindAccountsWithBalanceAbove(context.Background(), domain.Money{})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
