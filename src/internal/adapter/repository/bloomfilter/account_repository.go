// Package bloomfilter puts a probabilistic account-number index in front of
// an AccountRepository so lookups of unknown numbers never reach storage.
//
// The filter only learns numbers created through it or loaded by Seed, so
// it must wrap the sole writer of the underlying store.
package bloomfilter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultExpectedAccounts  = 100000
	defaultFalsePositiveRate = 0.01
)

type AccountRepository struct {
	repo_interfaces.AccountRepository

	mu     sync.RWMutex
	filter *bloom.BloomFilter
	sf     singleflight.Group

	totalQueries   uint64
	bloomRejected  uint64
	falsePositives uint64
}

func NewAccountRepository(next repo_interfaces.AccountRepository, expectedAccounts uint, falsePositiveRate float64) *AccountRepository {
	if expectedAccounts == 0 {
		expectedAccounts = defaultExpectedAccounts
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = defaultFalsePositiveRate
	}

	return &AccountRepository{
		AccountRepository: next,
		filter:            bloom.NewWithEstimates(expectedAccounts, falsePositiveRate),
	}
}

// Seed loads every stored account number into the filter, one status at a time.
func (r *AccountRepository) Seed(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	counts := make([]int, len(domain.AccountStatuses))

	for i, status := range domain.AccountStatuses {
		g.Go(func() error {
			accounts, err := r.AccountRepository.FindByStatus(gctx, status)
			if err != nil {
				return fmt.Errorf("seed %s accounts: %w", status, err)
			}
			for _, account := range accounts {
				r.add(account.AccountNumber)
			}
			counts[i] = len(accounts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	logger.Info("account number filter seeded", logger.Fields{
		"accounts": total,
	})
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	created, err := r.AccountRepository.Create(ctx, account)
	switch {
	case err == nil:
		r.add(created.AccountNumber)
	case errors.Is(err, domain.ErrDuplicateAccountNumber):
		// Written by someone else; make sure we stop reporting it absent.
		r.add(account.AccountNumber)
	}
	return created, err
}

func (r *AccountRepository) FindByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	if !r.mayContain(accountNumber) {
		return domain.Account{}, domain.ErrRecordNotFound
	}

	// The shared load must outlive any single caller; each caller still
	// stops waiting when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.sf.DoChan("find:"+accountNumber, func() (any, error) {
		return r.AccountRepository.FindByAccountNumber(loadCtx, accountNumber)
	})

	select {
	case <-ctx.Done():
		return domain.Account{}, ctx.Err()
	case res := <-ch:
		if errors.Is(res.Err, domain.ErrRecordNotFound) {
			r.falsePositive()
		}
		if res.Err != nil {
			return domain.Account{}, res.Err
		}
		return res.Val.(domain.Account), nil
	}
}

func (r *AccountRepository) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !r.mayContain(accountNumber) {
		return false, nil
	}

	exists, err := r.AccountRepository.ExistsByAccountNumber(ctx, accountNumber)
	if err == nil && !exists {
		r.falsePositive()
	}
	return exists, err
}

func (r *AccountRepository) add(accountNumber string) {
	r.mu.Lock()
	r.filter.AddString(accountNumber)
	r.mu.Unlock()
}

func (r *AccountRepository) mayContain(accountNumber string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalQueries++
	if !r.filter.TestString(accountNumber) {
		r.bloomRejected++
		return false
	}
	return true
}

func (r *AccountRepository) falsePositive() {
	r.mu.Lock()
	r.falsePositives++
	r.mu.Unlock()
}

// Stats reports how often the filter spared a storage round trip.
func (r *AccountRepository) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rejectionRate := 0.0
	falsePositiveRate := 0.0
	if r.totalQueries > 0 {
		rejectionRate = float64(r.bloomRejected) / float64(r.totalQueries)
		if queried := r.totalQueries - r.bloomRejected; queried > 0 {
			falsePositiveRate = float64(r.falsePositives) / float64(queried)
		}
	}

	return Stats{
		TotalQueries:      r.totalQueries,
		BloomRejected:     r.bloomRejected,
		FalsePositives:    r.falsePositives,
		RejectionRate:     rejectionRate,
		FalsePositiveRate: falsePositiveRate,
		FilterCapacity:    r.filter.Cap(),
	}
}

type Stats struct {
	TotalQueries      uint64
	BloomRejected     uint64
	FalsePositives    uint64
	RejectionRate     float64
	FalsePositiveRate float64
	FilterCapacity    uint
}
