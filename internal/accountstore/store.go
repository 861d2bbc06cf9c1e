// Package accountstore owns the in-memory ledger and keeps it in step with its
// durable copy.
//
// Locking: every account has its own mutex; operations touching several
// accounts lock them in ascending id order. A short commit mutex orders
// commits and guards the pending ledger snapshot, and account fields are only
// assigned while holding it. Account mutexes are released before the ledger
// is written; a single persistence mutex serializes writes to the Repo.
//
// Lock order is persistence mutex, then account mutexes, then the commit
// mutex, then the map mutex. Operations never wait for the persistence mutex
// while holding an account mutex.
//
// A failed write rolls the whole ledger back to the last durable copy and
// fails every operation committed since, so memory never stays ahead of disk.
package accountstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// Repo provides the persistence backend needed by the store.
//
//go:generate mockgen -source store.go -destination store_mock.go -package accountstore
type Repo interface {
	LoadAll(ctx context.Context) (domain.LoadResult, error)
	SaveAll(ctx context.Context, accounts []domain.Account) error
}

// Mutation changes working copies of locked accounts. Returning an error
// discards every change.
type Mutation func(accounts map[int32]*domain.Account) error

var (
	errHistoryShrunk  = errors.New("account history cannot shrink")
	errAccountDropped = errors.New("locked account removed by mutation")
	errRolledBack     = errors.New("ledger rolled back after a failed write")
)

type record struct {
	mu   sync.Mutex
	acc  domain.Account
	gone atomic.Bool
}

// Store facilitates safe access to ledger accounts.
type Store struct {
	repo  Repo
	newID func() int32

	mu      sync.RWMutex
	records map[int32]*record

	// Guarded by commitMu.
	commitMu       sync.Mutex
	version        uint64
	pending        []domain.Account
	pendingVersion uint64

	// Guarded by persistMu.
	persistMu      sync.Mutex
	durable        []domain.Account
	durableVersion uint64
	failedUpTo     uint64
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the random account number source.
func WithIDGenerator(gen func() int32) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// New returns an empty store persisting through repo.
func New(repo Repo, opts ...Option) *Store {
	s := &Store{
		repo:    repo,
		newID:   randompkg.AccountID,
		records: make(map[int32]*record),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load replaces the in-memory ledger with the repo contents.
// It is meant to run once at startup, before any operation.
func (s *Store) Load(ctx context.Context) (domain.LoadResult, error) {
	res, err := s.repo.LoadAll(ctx)
	if err != nil {
		return res, err
	}

	records := make(map[int32]*record, len(res.Accounts))
	durable := make([]domain.Account, 0, len(res.Accounts))
	for _, a := range res.Accounts {
		a = a.Clone()
		records[a.ID] = &record{acc: a}
		durable = append(durable, a)
	}
	sortByID(durable)

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.pending = nil
	s.durable = durable
	s.durableVersion = s.version

	return res, nil
}

func (s *Store) lookup(id int32) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]

	return rec, ok
}

// Get returns a copy of the account with the given id.
func (s *Store) Get(ctx context.Context, id int32) (domain.Account, error) {
	rec, ok := s.lookup(id)
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.gone.Load() {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return rec.acc.Clone(), nil
}

// Create inserts a under a fresh account number and returns the stored copy
// once the ledger including it has been saved. The ID field of a is ignored.
func (s *Store) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	a = a.Clone()

	s.commitMu.Lock()
	a.ID = s.generateID()

	s.mu.Lock()
	s.records[a.ID] = &record{acc: a}
	s.mu.Unlock()

	version := s.stage()
	s.commitMu.Unlock()

	if err := s.flush(ctx, version); err != nil {
		return domain.Account{}, err
	}

	return a.Clone(), nil
}

// generateID resamples until it finds an unused account number.
// The caller must hold commitMu, which also guards insertions.
func (s *Store) generateID() int32 {
	for {
		id := s.newID()
		if _, taken := s.lookup(id); !taken {
			return id
		}
	}
}

// WithLock runs fn with exclusive access to the accounts in ids.
//
// The accounts are locked in ascending id order. fn receives deep copies; when
// it returns nil the copies are committed, the account locks are released and
// the ledger is saved. WithLock returns nil only once that save succeeded; any
// failure leaves the store as it was durably recorded.
func (s *Store) WithLock(ctx context.Context, ids []int32, fn Mutation) error {
	version, err := s.commit(ids, fn)
	if err != nil {
		return err
	}

	return s.flush(ctx, version)
}

func (s *Store) commit(ids []int32, fn Mutation) (uint64, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	recs := make([]*record, len(ids))
	for i, id := range ids {
		rec, ok := s.lookup(id)
		if !ok {
			return 0, domain.ErrAccountNotFound
		}
		recs[i] = rec
	}

	for _, rec := range recs {
		rec.mu.Lock()
	}
	defer func() {
		for i := len(recs) - 1; i >= 0; i-- {
			recs[i].mu.Unlock()
		}
	}()

	working := make(map[int32]*domain.Account, len(recs))
	for _, rec := range recs {
		if rec.gone.Load() {
			return 0, domain.ErrAccountNotFound
		}
		a := rec.acc.Clone()
		working[a.ID] = &a
	}

	if err := fn(working); err != nil {
		return 0, err
	}

	staged := make([]domain.Account, len(recs))
	for i, rec := range recs {
		a, ok := working[rec.acc.ID]
		if !ok || a == nil {
			return 0, fmt.Errorf("account %d: %w", rec.acc.ID, errAccountDropped)
		}
		a.ID = rec.acc.ID

		if a.Balance < 0 {
			return 0, domain.ErrInsufficientFunds
		}
		if len(a.History) < len(rec.acc.History) {
			return 0, fmt.Errorf("account %d: %w", a.ID, errHistoryShrunk)
		}

		staged[i] = *a
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// A rollback may have dropped a record created after it started.
	for _, rec := range recs {
		if rec.gone.Load() {
			return 0, domain.ErrAccountNotFound
		}
	}

	for i, rec := range recs {
		rec.acc = staged[i]
	}

	return s.stage(), nil
}

// stage records the committed ledger as the next one to write.
// The caller must hold commitMu.
func (s *Store) stage() uint64 {
	s.version++
	s.pending = s.ledger()
	s.pendingVersion = s.version

	return s.version
}

// ledger returns the committed accounts ordered by id. Histories are shared
// with the records; committed histories are never modified in place.
// The caller must hold commitMu.
func (s *Store) ledger() []domain.Account {
	s.mu.RLock()
	accounts := make([]domain.Account, 0, len(s.records))
	for _, rec := range s.records {
		accounts = append(accounts, rec.acc)
	}
	s.mu.RUnlock()

	sortByID(accounts)

	return accounts
}

// flush makes sure the ledger committed as version is durable. Writes are
// grouped: the newest pending ledger is written, covering every commit before
// it.
func (s *Store) flush(ctx context.Context, version uint64) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if version <= s.failedUpTo {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, errRolledBack)
	}
	if version <= s.durableVersion {
		return nil
	}

	s.commitMu.Lock()
	accounts, pendingVersion := s.pending, s.pendingVersion
	s.commitMu.Unlock()

	err := s.repo.SaveAll(ctx, accounts)
	if err == nil {
		s.durable = accounts
		s.durableVersion = pendingVersion

		return nil
	}

	s.rollback()

	if errors.Is(err, domain.ErrPersistence) {
		return err
	}

	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

// rollback restores the last durable ledger and fails every commit made after
// it. The caller must hold persistMu.
func (s *Store) rollback() {
	s.mu.RLock()
	ids := make([]int32, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	recs := make([]*record, len(ids))
	for i, id := range ids {
		recs[i] = s.records[id]
	}
	s.mu.RUnlock()

	for _, rec := range recs {
		rec.mu.Lock()
	}
	defer func() {
		for i := len(recs) - 1; i >= 0; i-- {
			recs[i].mu.Unlock()
		}
	}()

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	durable := make(map[int32]domain.Account, len(s.durable))
	for _, a := range s.durable {
		durable[a.ID] = a
	}

	s.mu.Lock()
	for id, rec := range s.records {
		a, ok := durable[id]
		if !ok {
			rec.gone.Store(true)
			delete(s.records, id)

			continue
		}
		rec.acc = a
	}
	s.mu.Unlock()

	s.failedUpTo = s.version
	s.pending = nil
}

// Snapshot returns copies of all committed accounts ordered by id.
func (s *Store) Snapshot() []domain.Account {
	s.commitMu.Lock()
	accounts := s.ledger()
	s.commitMu.Unlock()

	for i := range accounts {
		accounts[i] = accounts[i].Clone()
	}

	return accounts
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Total returns the sum of all committed balances.
func (s *Store) Total() int64 {
	var total int64
	for _, a := range s.Snapshot() {
		total += a.Balance
	}

	return total
}

func sortByID(accounts []domain.Account) {
	slices.SortFunc(accounts, func(a, b domain.Account) int {
		return int(a.ID) - int(b.ID)
	})
}
