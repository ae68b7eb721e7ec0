package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"prism/internal/directory"
	"prism/internal/domain"
	"prism/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	mu        sync.Mutex
	accounts  map[string]directory.Identity
	existsErr error
	walletErr error
}

func newFakeDirectory(ids ...string) *fakeDirectory {
	d := &fakeDirectory{accounts: make(map[string]directory.Identity)}
	for _, id := range ids {
		d.accounts[id] = directory.Identity{DisplayName: "User " + id, Email: id + "@example.com"}
	}
	return d
}

func (d *fakeDirectory) AccountExists(_ context.Context, accountID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.existsErr != nil {
		return false, d.existsErr
	}
	_, ok := d.accounts[accountID]
	return ok, nil
}

func (d *fakeDirectory) GetAccountIdentity(_ context.Context, accountID string) (directory.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.accounts[accountID]
	if !ok {
		return directory.Identity{}, directory.ErrUnknownAccount
	}
	return id, nil
}

func (d *fakeDirectory) UpdateWalletAddress(_ context.Context, accountID, address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.walletErr != nil {
		return d.walletErr
	}
	id := d.accounts[accountID]
	id.WalletAddress = address
	d.accounts[accountID] = id
	return nil
}

// failingStore fails SaveLedger for one account, inside or outside transactions
type failingStore struct {
	repository.LedgerStore
	failFor string
}

func (f *failingStore) SaveLedger(ctx context.Context, l *domain.Ledger, appended ...domain.Transaction) error {
	if l.AccountID == f.failFor {
		return errors.New("write timed out")
	}
	return f.LedgerStore.SaveLedger(ctx, l, appended...)
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(tx repository.LedgerStore) error) error {
	return f.LedgerStore.WithinTx(ctx, func(tx repository.LedgerStore) error {
		return fn(&failingStore{LedgerStore: tx, failFor: f.failFor})
	})
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, accountID string) (*domain.Ledger, bool, error) {
	args := m.Called(ctx, accountID)
	l, _ := args.Get(0).(*domain.Ledger)
	return l, args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, l *domain.Ledger) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, accountIDs ...string) error {
	return m.Called(ctx, accountIDs).Error(0)
}

func quietLogger() *logrus.Logger {
	logger, _ := logtest.NewNullLogger()
	return logger
}

func newTestService(t *testing.T, store repository.LedgerStore, dir Directory) *Service {
	t.Helper()
	return NewService(store, dir, Options{Logger: quietLogger()})
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func seed(t *testing.T, svc *Service, accountID string, v int64) {
	t.Helper()
	_, err := svc.Credit(context.Background(), CreditRequest{AccountID: accountID, Amount: amount(v), Description: "seed"})
	require.NoError(t, err)
}

func assertInvariants(t *testing.T, svc *Service, accountIDs ...string) {
	t.Helper()
	for _, id := range accountIDs {
		l, err := svc.GetLedger(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, l.ComputedBalance().Equal(l.Balance), "balance of %s diverges from its log", id)
		assert.False(t, l.Balance.IsNegative(), "balance of %s is negative", id)
	}
}

func TestGetLedger_FreshAccount(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(t, store, newFakeDirectory("a"))

	l, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", l.AccountID)
	assert.True(t, l.Balance.IsZero())
	assert.Empty(t, l.Transactions)

	again, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(l.Balance))
	assert.Len(t, again.Transactions, len(l.Transactions))

	ids, err := store.ListAccountIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestGetLedger_UnknownAccount(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(t, store, newFakeDirectory())

	_, err := svc.GetLedger(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "ledger.GetLedger", le.Op)
	assert.Equal(t, "ghost", le.AccountID)

	ids, err := store.ListAccountIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids, "no ledger may be created for an unknown account")
}

func TestGetLedger_DirectoryFailure(t *testing.T) {
	dir := newFakeDirectory("a")
	dir.existsErr = errors.New("directory unavailable")
	svc := newTestService(t, repository.NewMemoryStore(), dir)

	_, err := svc.GetLedger(context.Background(), "a")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.False(t, IsClientError(err))
}

func TestCredit_Airdrop(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a"))

	res, err := svc.Credit(context.Background(), CreditRequest{AccountID: "a", Amount: amount(100), Description: "airdrop"})
	require.NoError(t, err)
	assert.True(t, res.Ledger.Balance.Equal(amount(100)))
	assert.Equal(t, domain.TransactionAirdrop, res.Transaction.Type)
	assert.True(t, res.Transaction.Amount.Equal(amount(100)))
	assert.Equal(t, "airdrop", res.Transaction.Description)

	l, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, l.Balance.Equal(amount(100)))
	require.Len(t, l.Transactions, 1)
	assert.Equal(t, domain.TransactionAirdrop, l.Transactions[0].Type)
}

func TestCredit_RecordsWalletAddress(t *testing.T) {
	dir := newFakeDirectory("a")
	svc := newTestService(t, repository.NewMemoryStore(), dir)
	addr := "0x1234567890abcdef1234567890abcdef12345678"

	res, err := svc.Credit(context.Background(), CreditRequest{AccountID: "a", Amount: amount(100), WalletAddress: addr})
	require.NoError(t, err)
	assert.Equal(t, addr, res.Ledger.WalletAddress)
	assert.Equal(t, addr, res.Transaction.ToAddress)

	id, err := dir.GetAccountIdentity(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, addr, id.WalletAddress)
}

func TestCredit_WalletAddressWriteFailureIsNotFatal(t *testing.T) {
	dir := newFakeDirectory("a")
	dir.walletErr = errors.New("profile locked")
	svc := newTestService(t, repository.NewMemoryStore(), dir)

	res, err := svc.Credit(context.Background(), CreditRequest{AccountID: "a", Amount: amount(5), WalletAddress: "0xabc"})
	require.NoError(t, err)
	assert.True(t, res.Ledger.Balance.Equal(amount(5)))
}

func TestCredit_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		req     CreditRequest
		wantErr error
	}{
		{"negative amount", CreditRequest{AccountID: "a", Amount: amount(-5)}, ErrInvalidAmount},
		{"zero amount", CreditRequest{AccountID: "a", Amount: decimal.Zero}, ErrInvalidAmount},
		{"too many decimals", CreditRequest{AccountID: "a", Amount: decimal.RequireFromString("0.000000001")}, ErrInvalidAmount},
		{"out of range", CreditRequest{AccountID: "a", Amount: decimal.New(1, 22)}, ErrInvalidAmount},
		{"debit kind", CreditRequest{AccountID: "a", Amount: amount(1), Kind: domain.TransactionPayment}, ErrInvalidKind},
		{"transfer kind", CreditRequest{AccountID: "a", Amount: amount(1), Kind: domain.TransactionTransferIn}, ErrInvalidKind},
		{"unknown account", CreditRequest{AccountID: "ghost", Amount: amount(1)}, ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			svc := newTestService(t, store, newFakeDirectory("a"))

			_, err := svc.Credit(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsClientError(err))

			ids, err := store.ListAccountIDs(context.Background())
			require.NoError(t, err)
			assert.Empty(t, ids)
		})
	}
}

func TestCredit_RewardKind(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a"))

	res, err := svc.Credit(context.Background(), CreditRequest{AccountID: "a", Amount: decimal.RequireFromString("2.5"), Kind: domain.TransactionReward})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionReward, res.Transaction.Type)
	assert.True(t, res.Ledger.Balance.Equal(decimal.RequireFromString("2.5")))
}

func TestCredit_ConcurrentNoLostUpdates(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a"))
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(context.Background(), CreditRequest{AccountID: "a", Amount: amount(1)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	l, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, l.Balance.Equal(amount(n)), "got balance %s", l.Balance)
	assert.Len(t, l.Transactions, n)
	assertInvariants(t, svc, "a")
}

func TestTransfer_Success(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a", "b"))
	seed(t, svc, "a", 1000)

	res, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "b", Amount: amount(250), Description: "x"})
	require.NoError(t, err)
	assert.True(t, res.SenderBalance.Equal(amount(750)))
	assert.True(t, res.RecipientBalance.Equal(amount(250)))
	assert.Equal(t, domain.TransactionTransferOut, res.Transaction.Type)
	assert.True(t, res.Transaction.Amount.Equal(amount(-250)))
	assert.Equal(t, "b@example.com", res.Transaction.Recipient)
	assert.Equal(t, "b", res.Transaction.Counterparty)
	assert.Equal(t, domain.TransactionTransferIn, res.RecipientTransaction.Type)
	assert.Equal(t, "a@example.com", res.RecipientTransaction.Sender)

	a, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	b, err := svc.GetLedger(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(amount(750)))
	assert.True(t, b.Balance.Equal(amount(250)))
	require.Len(t, a.Transactions, 2)
	require.Len(t, b.Transactions, 1)
	assert.Equal(t, domain.TransactionTransferOut, a.Transactions[1].Type)
	assert.True(t, a.Transactions[1].Amount.Equal(amount(-250)))
	assert.Equal(t, domain.TransactionTransferIn, b.Transactions[0].Type)
	assert.True(t, b.Transactions[0].Amount.Equal(amount(250)))
	assertInvariants(t, svc, "a", "b")
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a", "b"))
	seed(t, svc, "a", 100)
	seed(t, svc, "b", 7)

	_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "b", Amount: amount(150), Description: "x"})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	a, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	b, err := svc.GetLedger(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(amount(100)))
	assert.True(t, b.Balance.Equal(amount(7)))
	assert.Len(t, a.Transactions, 1)
	assert.Len(t, b.Transactions, 1)
}

func TestTransfer_UnknownRecipient(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a"))
	seed(t, svc, "a", 100)

	_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "nonexistent", Amount: amount(50), Description: "x"})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "nonexistent", le.AccountID)

	a, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(amount(100)))
}

func TestTransfer_UnknownSenderCheckedFirst(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory())

	_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "x", RecipientID: "y", Amount: amount(1)})
	var le *Error
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, "x", le.AccountID)
}

func TestTransfer_Rejections(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a", "b"))
	seed(t, svc, "a", 100)

	_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "b", Amount: amount(-5)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "b", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "a", Amount: amount(5)})
	assert.ErrorIs(t, err, ErrSameAccount)

	a, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(amount(100)))
	assert.Len(t, a.Transactions, 1)
}

func TestTransfer_SecondLegFailureRollsBackFirst(t *testing.T) {
	base := repository.NewMemoryStore()
	dir := newFakeDirectory("a", "b")
	healthy := newTestService(t, base, dir)
	seed(t, healthy, "a", 100)
	seed(t, healthy, "b", 1)

	svc := newTestService(t, &failingStore{LedgerStore: base, failFor: "b"}, dir)
	_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "b", Amount: amount(40)})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "write timed out")

	a, err := healthy.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	b, err := healthy.GetLedger(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(amount(100)), "sender leg must not survive")
	assert.Len(t, a.Transactions, 1)
	assert.True(t, b.Balance.Equal(amount(1)))
	assert.Len(t, b.Transactions, 1)
}

func TestTransfer_ConcurrentDrainNeverOverdraws(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a", "b"))
	seed(t, svc, "a", 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "b", Amount: amount(1)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientBalance):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 40, rejected)
	a, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	b, err := svc.GetLedger(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero())
	assert.True(t, b.Balance.Equal(amount(10)))
	assertInvariants(t, svc, "a", "b")
}

func TestTransfer_ConcurrentOppositeDirectionsConserveSupply(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a", "b", "c"))
	for _, id := range []string{"a", "b", "c"} {
		seed(t, svc, id, 100)
	}

	pairs := [][2]string{{"a", "b"}, {"b", "a"}, {"b", "c"}, {"c", "a"}, {"a", "c"}, {"c", "b"}}
	var wg sync.WaitGroup
	for i := 0; i < 120; i++ {
		p := pairs[i%len(pairs)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: p[0], RecipientID: p[1], Amount: amount(3)})
			if err != nil && !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	total := decimal.Zero
	for _, id := range []string{"a", "b", "c"} {
		l, err := svc.GetLedger(context.Background(), id)
		require.NoError(t, err)
		total = total.Add(l.Balance)
	}
	assert.True(t, total.Equal(amount(300)), "supply changed to %s", total)
	assertInvariants(t, svc, "a", "b", "c")
}

func TestDebit(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a"))
	seed(t, svc, "a", 10)

	res, err := svc.Debit(context.Background(), DebitRequest{AccountID: "a", Amount: amount(4), Description: "assistant usage"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionPayment, res.Transaction.Type)
	assert.True(t, res.Transaction.Amount.Equal(amount(-4)))
	assert.True(t, res.Ledger.Balance.Equal(amount(6)))

	_, err = svc.Debit(context.Background(), DebitRequest{AccountID: "a", Amount: amount(7)})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assertInvariants(t, svc, "a")
}

func TestHistory_Paginates(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a"))
	for i := 1; i <= 25; i++ {
		_, err := svc.Credit(context.Background(), CreditRequest{AccountID: "a", Amount: amount(1), Description: fmt.Sprintf("credit %d", i)})
		require.NoError(t, err)
	}

	page, err := svc.History(context.Background(), "a", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Transactions, 20)
	assert.Equal(t, "credit 25", page.Transactions[0].Description)

	page, err = svc.History(context.Background(), "a", 2, 20)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 5)
	assert.Equal(t, "credit 1", page.Transactions[4].Description)

	_, err = svc.History(context.Background(), "ghost", 1, 20)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestHistory_PageBeyondEnd(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory("a"))
	seed(t, svc, "a", 10)
	seed(t, svc, "a", 5)

	for _, p := range []int{2, 461168601842738792, math.MaxInt} {
		var page *HistoryPage
		var err error
		require.NotPanics(t, func() { page, err = svc.History(context.Background(), "a", p, 20) })
		require.NoError(t, err)
		assert.Equal(t, p, page.Page)
		assert.Equal(t, int64(2), page.Total)
		assert.Equal(t, 1, page.TotalPages)
		assert.Empty(t, page.Transactions, "page %d", p)
	}
}

func TestGetLedger_UsesCacheUnderLock(t *testing.T) {
	store := repository.NewMemoryStore()
	cache := new(MockCache)
	svc := NewService(store, newFakeDirectory("a"), Options{Cache: cache, Logger: quietLogger()})

	cache.On("Get", mock.Anything, "a").Return(nil, false, nil).Once()
	cache.On("Set", mock.Anything, mock.MatchedBy(func(l *domain.Ledger) bool { return l.AccountID == "a" })).Return(nil).Once()
	_, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)

	cached := domain.NewLedger("a", time.Now())
	cached.Balance = amount(42)
	cache.On("Get", mock.Anything, "a").Return(cached, true, nil).Once()
	l, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, l.Balance.Equal(amount(42)))

	cache.AssertExpectations(t)
}

func TestMutationsInvalidateCache(t *testing.T) {
	cache := new(MockCache)
	svc := NewService(repository.NewMemoryStore(), newFakeDirectory("a", "b"), Options{Cache: cache, Logger: quietLogger()})

	cache.On("Invalidate", mock.Anything, []string{"a"}).Return(nil).Once()
	seed(t, svc, "a", 10)

	cache.On("Invalidate", mock.Anything, []string{"a", "b"}).Return(errors.New("redis down")).Once()
	_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "b", Amount: amount(3)})
	require.NoError(t, err, "cache failures never fail a committed transfer")

	cache.AssertExpectations(t)
}

func TestOperationTimeoutWhileLocked(t *testing.T) {
	svc := NewService(repository.NewMemoryStore(), newFakeDirectory("a"), Options{
		Logger:    quietLogger(),
		OpTimeout: 20 * time.Millisecond,
	})
	unlock, err := svc.locks.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	_, err = svc.Credit(context.Background(), CreditRequest{AccountID: "a", Amount: amount(1)})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMetricsRecordOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	svc := NewService(repository.NewMemoryStore(), newFakeDirectory("a", "b"), Options{Logger: quietLogger(), Metrics: metrics})

	seed(t, svc, "a", 5)
	_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "b", Amount: amount(9)})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("credit", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("transfer", "rejected")))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.TokensMoved.WithLabelValues("airdrop")))
}

func TestTransferLogsStructuredFields(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	svc := NewService(repository.NewMemoryStore(), newFakeDirectory("a", "b"), Options{Logger: logger})
	seed(t, svc, "a", 5)

	_, err := svc.Transfer(context.Background(), TransferRequest{SenderID: "a", RecipientID: "b", Amount: amount(2)})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Transfer transaction", entry.Message)
	assert.Equal(t, "a", entry.Data["from_account_id"])
	assert.Equal(t, "b", entry.Data["to_account_id"])
	assert.Equal(t, "2", entry.Data["amount"])
}
