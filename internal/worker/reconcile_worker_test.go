package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallet-service/config"
	"wallet-service/internal/domain"
	"wallet-service/internal/provider"
	"wallet-service/internal/repository/memstore"
	"wallet-service/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type scriptedProvider struct {
	mu    sync.Mutex
	paid  map[string]bool
	fail  map[string]bool
	calls []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Initialize(context.Context, provider.InitRequest) (*provider.InitResult, error) {
	return nil, errors.New("not used")
}

func (p *scriptedProvider) Verify(_ context.Context, ref string) (*provider.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, ref)
	if p.fail[ref] {
		return nil, &provider.Error{Provider: "scripted", Op: "verify", Temporary: true}
	}
	return &provider.Result{Paid: p.paid[ref], Reference: ref}, nil
}

func (p *scriptedProvider) Withdraw(context.Context, provider.WithdrawRequest) (bool, error) {
	return false, nil
}

func TestReconcileWorker(t *testing.T) {
	store := memstore.New()
	user := &domain.User{ID: "usr_1", Email: "a@example.com", IsActive: true}
	require.NoError(t, store.CreateUser(t.Context(), user))

	for _, ref := range []string{"paid", "unpaid", "broken"} {
		require.NoError(t, store.CreateTransaction(t.Context(), domain.NewDepositTransaction(ref, user.ID, 10, domain.RailCrypto)))
	}

	p := &scriptedProvider{
		paid: map[string]bool{"paid": true},
		fail: map[string]bool{"broken": true},
	}
	logger := zaptest.NewLogger(t)
	crypto := usecase.NewCryptoWalletPayment(p, usecase.Deps{Ledger: store, Wallets: store, Cards: store, Logger: logger})

	w := NewReconcileWorker(store, []RailVerifier{crypto}, config.ReconcileConfig{
		Interval:  time.Hour,
		MinAge:    time.Minute,
		BatchSize: 10,
	}, logger)

	t.Run("ok, young transactions are skipped", func(t *testing.T) {
		require.Zero(t, w.RunOnce(t.Context()))
		require.Empty(t, p.calls)
	})

	w.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	t.Run("ok, settles what the gateway confirms", func(t *testing.T) {
		require.Equal(t, 1, w.RunOnce(t.Context()))
		require.ElementsMatch(t, []string{"paid", "unpaid", "broken"}, p.calls)

		for ref, want := range map[string]domain.TransactionStatus{
			"paid":   domain.TransactionStatusSuccess,
			"unpaid": domain.TransactionStatusPending,
			"broken": domain.TransactionStatusPending,
		} {
			txn, err := store.GetTransaction(t.Context(), ref)
			require.NoError(t, err)
			require.Equal(t, want, txn.Status, ref)
		}

		wallet, err := store.GetByUserID(t.Context(), user.ID)
		require.NoError(t, err)
		require.True(t, wallet.Balance.Equal(decimal.NewFromInt(10)))
	})

	t.Run("ok, settled transactions are not revisited", func(t *testing.T) {
		p.calls = nil
		require.Zero(t, w.RunOnce(t.Context()))
		require.ElementsMatch(t, []string{"unpaid", "broken"}, p.calls)
	})
}

func TestReconcileWorkerStop(t *testing.T) {
	w := NewReconcileWorker(memstore.New(), nil, config.ReconcileConfig{Interval: time.Millisecond}, zaptest.NewLogger(t))

	done := make(chan struct{})
	go func() {
		w.Start(t.Context())
		close(done)
	}()

	w.Stop()
	w.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
