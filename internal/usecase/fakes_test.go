package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"wallet-service/internal/domain"
	"wallet-service/internal/provider"
	"wallet-service/internal/repository"
	"wallet-service/internal/repository/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeProvider is a scriptable FiatProvider. Nil funcs mean "not paid" or
// "declined".
type fakeProvider struct {
	mu sync.Mutex

	initRef  string
	initErr  error
	verify   func(ref string) (*provider.Result, error)
	charge   func(req provider.ChargeRequest) (*provider.Result, error)
	withdraw func(req provider.WithdrawRequest) (bool, error)

	inits     []provider.InitRequest
	withdraws []provider.WithdrawRequest
}

var _ provider.FiatProvider = (*fakeProvider)(nil)

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Initialize(_ context.Context, req provider.InitRequest) (*provider.InitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits = append(f.inits, req)
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &provider.InitResult{Reference: f.initRef, Payload: json.RawMessage(`{"authorization_url":"https://checkout.example/abc"}`)}, nil
}

func (f *fakeProvider) Verify(_ context.Context, ref string) (*provider.Result, error) {
	if f.verify == nil {
		return &provider.Result{Reference: ref, Status: "abandoned"}, nil
	}
	return f.verify(ref)
}

func (f *fakeProvider) Charge(_ context.Context, req provider.ChargeRequest) (*provider.Result, error) {
	if f.charge == nil {
		return &provider.Result{Reference: req.Reference, Status: "failed"}, nil
	}
	return f.charge(req)
}

func (f *fakeProvider) Withdraw(_ context.Context, req provider.WithdrawRequest) (bool, error) {
	f.mu.Lock()
	f.withdraws = append(f.withdraws, req)
	f.mu.Unlock()
	if f.withdraw == nil {
		return false, nil
	}
	return f.withdraw(req)
}

// ctxWallets fails like a database driver once ctx is done.
type ctxWallets struct {
	repository.WalletRepository
}

func (w ctxWallets) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.WalletRepository.GetByUserID(ctx, userID)
}

func (w ctxWallets) Fund(ctx context.Context, userID string, amount int64) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.WalletRepository.Fund(ctx, userID, amount)
}

func (w ctxWallets) DeductAvailable(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.WalletRepository.DeductAvailable(ctx, userID, amount)
}

// racingWallets runs onRead once, after the first GetByUserID has loaded
// its result and before it returns.
type racingWallets struct {
	repository.WalletRepository
	once   sync.Once
	onRead func()
}

func (w *racingWallets) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	wallet, err := w.WalletRepository.GetByUserID(ctx, userID)
	w.once.Do(w.onRead)
	return wallet, err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.TransactionEvent
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, e *domain.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []string
}

func (n *recordingNotifier) NotifyBalance(userID string, w *domain.Wallet, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, userID+"="+w.Balance.String())
}

type env struct {
	store     *memstore.Store
	deps      Deps
	publisher *recordingPublisher
	notifier  *recordingNotifier
	user      *domain.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	user := &domain.User{
		ID:            "usr_1",
		Email:         "ada@example.com",
		FirstName:     "Ada",
		LastName:      "Obi",
		CryptoAddress: "0x52908400098527886E0F7030069857D2E4169EE7",
		IsActive:      true,
	}
	require.NoError(t, store.CreateUser(t.Context(), user))

	pub := &recordingPublisher{}
	notifier := &recordingNotifier{}
	return &env{
		store: store,
		deps: Deps{
			Ledger:    store,
			Wallets:   store,
			Cards:     store,
			Publisher: pub,
			Notifier:  notifier,
			Logger:    zaptest.NewLogger(t),
		},
		publisher: pub,
		notifier:  notifier,
		user:      user,
	}
}

func (e *env) pending(t *testing.T, ref string, amount int64, rail domain.Rail) *domain.Transaction {
	t.Helper()
	txn := domain.NewDepositTransaction(ref, e.user.ID, amount, rail)
	require.NoError(t, e.store.CreateTransaction(t.Context(), txn))
	return txn
}

func (e *env) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	w, err := e.store.GetByUserID(t.Context(), e.user.ID)
	require.NoError(t, err)
	return w.Balance
}

func (e *env) status(t *testing.T, ref string) domain.TransactionStatus {
	t.Helper()
	txn, err := e.store.GetTransaction(t.Context(), ref)
	require.NoError(t, err)
	return txn.Status
}

func requireBalance(t *testing.T, e *env, want int64) {
	t.Helper()
	got := e.balance(t)
	require.Truef(t, got.Equal(decimal.NewFromInt(want)), "balance = %s, want %d", got, want)
}

func paidCardResult(ref, signature string) *provider.Result {
	return &provider.Result{
		Paid:      true,
		Reference: ref,
		Status:    "success",
		Channel:   "card",
		Authorization: &domain.CardAuthorization{
			AuthorizationCode: "AUTH_" + signature,
			Last4:             "4081",
			ExpMonth:          "12",
			ExpYear:           "2030",
			CardType:          "visa",
			Reusable:          true,
			Signature:         signature,
		},
	}
}
