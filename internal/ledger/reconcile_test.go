package ledger

import (
	"context"
	"testing"
	"time"

	"prism/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corrupt overwrites the cached balance without touching the log
func corrupt(t *testing.T, store repository.LedgerStore, accountID string, v int64) {
	t.Helper()
	l, err := store.LoadLedger(context.Background(), accountID)
	require.NoError(t, err)
	l.Balance = amount(v)
	require.NoError(t, store.SaveLedger(context.Background(), l))
}

func TestReconcile(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(t, store, newFakeDirectory("a", "b"))
	seed(t, svc, "a", 30)

	r, err := svc.Reconcile(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, r.Consistent)
	assert.Equal(t, 1, r.Transactions)

	r, err = svc.Reconcile(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, r.Consistent, "an account without a ledger has nothing to diverge")

	corrupt(t, store, "a", 31)
	r, err = svc.Reconcile(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, r.Consistent)
	assert.True(t, r.StoredBalance.Equal(amount(31)))
	assert.True(t, r.ComputedBalance.Equal(amount(30)))

	_, err = svc.Reconcile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRepair(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(t, store, newFakeDirectory("a"))
	seed(t, svc, "a", 30)

	r, err := svc.Repair(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, r.Consistent)
	assert.False(t, r.Repaired)

	corrupt(t, store, "a", 5)
	r, err = svc.Repair(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, r.Repaired)

	l, err := svc.GetLedger(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, l.Balance.Equal(amount(30)))
	assert.Len(t, l.Transactions, 1, "repair never touches the log")
}

func TestSweeper(t *testing.T) {
	store := repository.NewMemoryStore()
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := NewService(store, newFakeDirectory("a", "b", "c"), Options{Logger: quietLogger(), Metrics: metrics})
	for _, id := range []string{"a", "b", "c"} {
		seed(t, svc, id, 10)
	}
	corrupt(t, store, "b", 99)

	reportOnly := NewSweeper(svc, 0, false)
	assert.Equal(t, 1, reportOnly.Sweep(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BalanceMismatches))
	assert.Equal(t, 1, reportOnly.Sweep(context.Background()), "report-only sweeps leave ledgers alone")

	repairing := NewSweeper(svc, 0, true)
	assert.Equal(t, 1, repairing.Sweep(context.Background()))
	assert.Equal(t, 0, repairing.Sweep(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.BalanceMismatches))

	reports, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for _, r := range reports {
		assert.True(t, r.Consistent, r.AccountID)
	}
}

func TestSweeperRunStopsWithContext(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore(), newFakeDirectory())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(svc, 5*time.Millisecond, false).Run(ctx)
		close(done)
	}()
	cancel()
	<-done
}
