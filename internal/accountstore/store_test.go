package accountstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// memRepo keeps the last saved ledger and can be told to fail.
type memRepo struct {
	mu    sync.Mutex
	saved []domain.Account
	saves int
	fail  error

	// beforeSave runs ahead of every save; a non-nil result fails it.
	beforeSave func() error
}

func (r *memRepo) LoadAll(context.Context) (domain.LoadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return domain.LoadResult{Accounts: r.saved}, nil
}

func (r *memRepo) SaveAll(_ context.Context, accounts []domain.Account) error {
	if r.beforeSave != nil {
		if err := r.beforeSave(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		return r.fail
	}

	r.saved = make([]domain.Account, len(accounts))
	for i, a := range accounts {
		r.saved[i] = a.Clone()
	}
	r.saves++

	return nil
}

func newAccount(owner string, balance int64) domain.Account {
	return domain.Account{
		Owner:   owner,
		Balance: balance,
		PIN:     "1234",
		Email:   owner + "@example.com",
		History: []string{domain.CreatedEntry(balance)},
	}
}

func TestCreatePersists(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	s := New(repo)

	a, err := s.Create(ctx, newAccount("alice", 100))
	require.NoError(t, err)
	require.True(t, domain.ValidAccountID(a.ID))

	require.Equal(t, 1, repo.saves)
	require.Len(t, repo.saved, 1)
	require.Equal(t, a, repo.saved[0])

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestCreateResamplesTakenID(t *testing.T) {
	ids := []int32{11111111, 11111111, 22222222}
	next := 0
	gen := func() int32 {
		id := ids[next]
		next++
		return id
	}

	s := New(&memRepo{}, WithIDGenerator(gen))

	a, err := s.Create(context.Background(), newAccount("alice", 1))
	require.NoError(t, err)
	require.Equal(t, int32(11111111), a.ID)

	b, err := s.Create(context.Background(), newAccount("bob", 1))
	require.NoError(t, err)
	require.Equal(t, int32(22222222), b.ID)
	require.Equal(t, 3, next)
}

func TestCreatePersistenceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)

	diskErr := errors.New("disk full")
	repo.EXPECT().SaveAll(gomock.Any(), gomock.Any()).Times(1).Return(diskErr)

	s := New(repo)

	_, err := s.Create(context.Background(), newAccount("alice", 100))
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.ErrorIs(t, err, diskErr)
	require.Zero(t, s.Len())
}

func TestWithLockFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	s := New(repo)

	a, err := s.Create(ctx, newAccount("alice", 100))
	require.NoError(t, err)

	before := s.Snapshot()

	testCases := []struct {
		name    string
		setup   func()
		fn      Mutation
		wantErr error
	}{
		{
			name: "MutationError",
			fn: func(accounts map[int32]*domain.Account) error {
				accounts[a.ID].Balance = 0
				return domain.ErrInsufficientFunds
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "NegativeBalance",
			fn: func(accounts map[int32]*domain.Account) error {
				accounts[a.ID].Balance = -1
				return nil
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "HistoryShrunk",
			fn: func(accounts map[int32]*domain.Account) error {
				accounts[a.ID].History = nil
				return nil
			},
			wantErr: errHistoryShrunk,
		},
		{
			name: "PersistenceFailure",
			setup: func() {
				repo.fail = errors.New("read-only file system")
			},
			fn: func(accounts map[int32]*domain.Account) error {
				accounts[a.ID].Balance += 50
				accounts[a.ID].History = append(accounts[a.ID].History, domain.DepositedEntry(50))
				return nil
			},
			wantErr: domain.ErrPersistence,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup()
			}

			err := s.WithLock(ctx, []int32{a.ID}, tc.fn)
			require.ErrorIs(t, err, tc.wantErr)

			if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
				t.Errorf("store changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWithLockUnknownAccount(t *testing.T) {
	s := New(&memRepo{})

	called := false
	err := s.WithLock(context.Background(), []int32{12345678}, func(map[int32]*domain.Account) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	require.False(t, called)
}

func TestWithLockPersists(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	s := New(repo)

	a, err := s.Create(ctx, newAccount("alice", 100))
	require.NoError(t, err)

	err = s.WithLock(ctx, []int32{a.ID}, func(accounts map[int32]*domain.Account) error {
		accounts[a.ID].Balance += 25
		accounts[a.ID].History = append(accounts[a.ID].History, domain.DepositedEntry(25))
		return nil
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(125), got.Balance)
	require.Equal(t, got, repo.saved[0])
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(&memRepo{})

	a, err := s.Create(ctx, newAccount("alice", 100))
	require.NoError(t, err)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	got.History[0] = "tampered"

	again, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CreatedEntry(100), again.History[0])
}

func TestLoad(t *testing.T) {
	repo := &memRepo{saved: []domain.Account{
		{ID: 12345678, Owner: "alice", Balance: 10, PIN: "1234", Email: "a@e", History: []string{"x"}},
	}}
	s := New(repo)

	res, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Accounts, 1)
	require.Equal(t, 1, s.Len())
	require.Equal(t, int64(10), s.Total())
}

func TestConcurrentOppositeTransfers(t *testing.T) {
	ctx := context.Background()
	s := New(&memRepo{})

	a, err := s.Create(ctx, newAccount("alice", 1000))
	require.NoError(t, err)
	b, err := s.Create(ctx, newAccount("bob", 1000))
	require.NoError(t, err)

	move := func(from, to int32) Mutation {
		return func(accounts map[int32]*domain.Account) error {
			if accounts[from].Balance < 1 {
				return domain.ErrInsufficientFunds
			}
			accounts[from].Balance--
			accounts[to].Balance++
			accounts[from].History = append(accounts[from].History, domain.TransferredEntry(1, to))
			accounts[to].History = append(accounts[to].History, domain.ReceivedEntry(1, from))
			return nil
		}
	}

	const n = 100

	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			if err := s.WithLock(ctx, []int32{a.ID, b.ID}, move(a.ID, b.ID)); err != nil {
				t.Errorf("a->b: %v", err)
			}
		}()

		go func() {
			defer wg.Done()
			if err := s.WithLock(ctx, []int32{b.ID, a.ID}, move(b.ID, a.ID)); err != nil {
				t.Errorf("b->a: %v", err)
			}
		}()
	}

	wg.Wait()

	require.Equal(t, int64(2000), s.Total())

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), got.Balance)
	require.Len(t, got.History, 1+2*n)
}

func TestConcurrentCreateUniqueIDs(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	s := New(repo)

	const n = 50

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int32]bool)
	)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			a, err := s.Create(ctx, newAccount("owner", 10))
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}

			mu.Lock()
			ids[a.ID] = true
			mu.Unlock()
		}()
	}

	wg.Wait()

	require.Len(t, ids, n)
	require.Equal(t, n, s.Len())
	require.Len(t, repo.saved, n)
}

func deposit(id int32, amount int64) Mutation {
	return func(accounts map[int32]*domain.Account) error {
		accounts[id].Balance += amount
		accounts[id].History = append(accounts[id].History, domain.DepositedEntry(amount))
		return nil
	}
}

func TestWithLockReleasesAccountDuringSave(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	s := New(repo)

	a, err := s.Create(ctx, newAccount("alice", 100))
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.beforeSave = func() error {
		close(entered)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- s.WithLock(ctx, []int32{a.ID}, deposit(a.ID, 25))
	}()

	<-entered

	// The account lock is free while the ledger is being written.
	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(125), got.Balance)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, got, repo.saved[0])
}

func TestFailedSaveRollsBackLaterCommits(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	s := New(repo)

	a, err := s.Create(ctx, newAccount("alice", 100))
	require.NoError(t, err)

	before := s.Snapshot()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	repo.beforeSave = func() error {
		once.Do(func() { close(entered) })
		<-release
		return errors.New("read-only file system")
	}

	first := make(chan error, 1)
	go func() {
		first <- s.WithLock(ctx, []int32{a.ID}, deposit(a.ID, 10))
	}()

	<-entered

	second := make(chan error, 1)
	go func() {
		second <- s.WithLock(ctx, []int32{a.ID}, deposit(a.ID, 20))
	}()

	// The second deposit commits on top of the first while its save is pending.
	require.Eventually(t, func() bool {
		got, err := s.Get(ctx, a.ID)
		return err == nil && got.Balance == 130
	}, 5*time.Second, 10*time.Millisecond)

	close(release)

	require.ErrorIs(t, <-first, domain.ErrPersistence)
	require.ErrorIs(t, <-second, domain.ErrPersistence)

	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("store changed (-want +got):\n%s", diff)
	}

	repo.beforeSave = nil

	require.NoError(t, s.WithLock(ctx, []int32{a.ID}, deposit(a.ID, 5)))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(105), got.Balance)
	require.Equal(t, []string{domain.CreatedEntry(100), domain.DepositedEntry(5)}, got.History)
}

func TestFailedSaveDropsNewAccount(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	s := New(repo)

	a, err := s.Create(ctx, newAccount("alice", 100))
	require.NoError(t, err)

	repo.fail = errors.New("disk full")

	_, err = s.Create(ctx, newAccount("bob", 50))
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.Equal(t, 1, s.Len())

	_, err = s.Get(ctx, a.ID)
	require.NoError(t, err)
}
