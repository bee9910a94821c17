// Package repotest holds the behaviour every repository implementation must
// share. Implementations run it from their own tests.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wallet-service/internal/domain"
	"wallet-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Repos bundles one implementation under test.
type Repos struct {
	Ledger  repository.LedgerRepository
	Wallets repository.WalletRepository
	Cards   repository.CardRepository
	Users   repository.UserRepository
	// CreateUser seeds a user and its wallet.
	CreateUser func(ctx context.Context, u *domain.User) error
}

type SetupFunc func(t *testing.T) Repos

func TestRepositoryContract(t *testing.T, setup SetupFunc) {
	t.Run("Users", func(t *testing.T) {
		runUserTests(t, setup)
	})

	t.Run("Transactions", func(t *testing.T) {
		runTransactionTests(t, setup)
	})

	t.Run("Settle", func(t *testing.T) {
		runSettleTests(t, setup)
	})

	t.Run("MarkUnsettled", func(t *testing.T) {
		runMarkUnsettledTests(t, setup)
	})

	t.Run("Wallets", func(t *testing.T) {
		runWalletTests(t, setup)
	})

	t.Run("Cards", func(t *testing.T) {
		runCardTests(t, setup)
	})
}

func runUserTests(t *testing.T, setup SetupFunc) {
	t.Run("ok, wallet opened with user", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)

		got, err := repos.Users.GetByID(t.Context(), user.ID)
		require.NoError(t, err)
		require.Equal(t, user.Email, got.Email)

		requireBalance(t, repos, user.ID, "0")
	})

	t.Run("fail, unknown user", func(t *testing.T) {
		repos := setup(t)
		_, err := repos.Users.GetByID(t.Context(), "usr_missing")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func runTransactionTests(t *testing.T, setup SetupFunc) {
	t.Run("ok, create and get", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 1000, domain.RailFiat)

		got, err := repos.Ledger.GetTransaction(t.Context(), txn.Reference)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusPending, got.Status)
		require.Equal(t, domain.TransactionTypeDeposit, got.Type)
		require.Equal(t, domain.RailFiat, got.Rail)
		require.Equal(t, int64(1000), got.Amount)
		require.Nil(t, got.SettledAt)
	})

	t.Run("fail, duplicate reference", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 1, domain.RailFiat)

		dup := domain.NewDepositTransaction(txn.Reference, user.ID, 2, domain.RailFiat)
		require.Error(t, repos.Ledger.CreateTransaction(t.Context(), dup))
	})

	t.Run("ok, user scoped lookup", func(t *testing.T) {
		repos := setup(t)
		owner := newUser(t, repos)
		other := newUser(t, repos)
		txn := newPending(t, repos, owner.ID, 1, domain.RailCrypto)

		_, err := repos.Ledger.GetUserTransaction(t.Context(), owner.ID, txn.Reference)
		require.NoError(t, err)

		_, err = repos.Ledger.GetUserTransaction(t.Context(), other.ID, txn.Reference)
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("ok, list newest first with paging", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		var refs []string
		for i := range 3 {
			refs = append(refs, newPending(t, repos, user.ID, int64(i+1), domain.RailFiat).Reference)
			time.Sleep(2 * time.Millisecond)
		}

		all, err := repos.Ledger.ListUserTransactions(t.Context(), user.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, refs[2], all[0].Reference)
		require.Equal(t, refs[0], all[2].Reference)

		second, err := repos.Ledger.ListUserTransactions(t.Context(), user.ID, 1, 1)
		require.NoError(t, err)
		require.Len(t, second, 1)
		require.Equal(t, refs[1], second[0].Reference)
	})

	t.Run("ok, list pending by rail", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		crypto := newPending(t, repos, user.ID, 5, domain.RailCrypto)
		newPending(t, repos, user.ID, 5, domain.RailFiat)
		settled := newPending(t, repos, user.ID, 5, domain.RailCrypto)
		_, err := repos.Ledger.Settle(t.Context(), settled.Reference, nil)
		require.NoError(t, err)

		pending, err := repos.Ledger.ListPending(t.Context(), domain.RailCrypto, time.Now().Add(time.Second), 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, crypto.Reference, pending[0].Reference)

		pending, err = repos.Ledger.ListPending(t.Context(), domain.RailCrypto, time.Now().Add(-time.Hour), 10)
		require.NoError(t, err)
		require.Empty(t, pending)
	})

	t.Run("fail, unknown reference", func(t *testing.T) {
		repos := setup(t)
		_, err := repos.Ledger.GetTransaction(t.Context(), "TXN_missing")
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})
}

func runSettleTests(t *testing.T, setup SetupFunc) {
	t.Run("ok, credits once", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 1000, domain.RailFiat)

		res, err := repos.Ledger.Settle(t.Context(), txn.Reference, nil)
		require.NoError(t, err)
		require.True(t, res.Credited)
		require.Equal(t, domain.TransactionStatusSuccess, res.Transaction.Status)
		require.NotNil(t, res.Transaction.SettledAt)
		require.True(t, res.Wallet.Balance.Equal(decimal.NewFromInt(1000)))

		res, err = repos.Ledger.Settle(t.Context(), txn.Reference, nil)
		require.NoError(t, err)
		require.False(t, res.Credited)
		require.Nil(t, res.Wallet)

		requireBalance(t, repos, user.ID, "1000")
	})

	t.Run("ok, concurrent settlement credits once", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 250, domain.RailCrypto)

		const n = 16
		var (
			wg       sync.WaitGroup
			credited atomic.Int32
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := repos.Ledger.Settle(context.Background(), txn.Reference, nil)
				if err == nil && res.Credited {
					credited.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), credited.Load())
		requireBalance(t, repos, user.ID, "250")
	})

	t.Run("ok, settles a failed transaction", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 10, domain.RailFiat)
		_, _, err := repos.Ledger.MarkUnsettled(t.Context(), txn.Reference, domain.TransactionStatusFailed)
		require.NoError(t, err)

		res, err := repos.Ledger.Settle(t.Context(), txn.Reference, nil)
		require.NoError(t, err)
		require.True(t, res.Credited)
	})

	t.Run("ok, saves card once per signature", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)

		first := newPending(t, repos, user.ID, 10, domain.RailFiat)
		res, err := repos.Ledger.Settle(t.Context(), first.Reference, newCard(t, user.ID, "SIG_1"))
		require.NoError(t, err)
		require.True(t, res.CardSaved)

		second := newPending(t, repos, user.ID, 10, domain.RailFiat)
		res, err = repos.Ledger.Settle(t.Context(), second.Reference, newCard(t, user.ID, "SIG_1"))
		require.NoError(t, err)
		require.True(t, res.Credited)
		require.False(t, res.CardSaved)

		cards, err := repos.Cards.ListByUser(t.Context(), user.ID)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		requireBalance(t, repos, user.ID, "20")
	})

	t.Run("ok, no card written when already settled", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 10, domain.RailFiat)

		_, err := repos.Ledger.Settle(t.Context(), txn.Reference, nil)
		require.NoError(t, err)
		res, err := repos.Ledger.Settle(t.Context(), txn.Reference, newCard(t, user.ID, "SIG_late"))
		require.NoError(t, err)
		require.False(t, res.CardSaved)

		_, err = repos.Cards.GetBySignature(t.Context(), user.ID, "SIG_late")
		require.ErrorIs(t, err, domain.ErrCardNotFound)
	})

	t.Run("fail, unknown reference", func(t *testing.T) {
		repos := setup(t)
		_, err := repos.Ledger.Settle(t.Context(), "TXN_missing", nil)
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})
}

func runMarkUnsettledTests(t *testing.T, setup SetupFunc) {
	t.Run("ok, pending to failed and back", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 10, domain.RailFiat)

		got, changed, err := repos.Ledger.MarkUnsettled(t.Context(), txn.Reference, domain.TransactionStatusFailed)
		require.NoError(t, err)
		require.True(t, changed)
		require.Equal(t, domain.TransactionStatusFailed, got.Status)

		got, changed, err = repos.Ledger.MarkUnsettled(t.Context(), txn.Reference, domain.TransactionStatusPending)
		require.NoError(t, err)
		require.True(t, changed)
		require.Equal(t, domain.TransactionStatusPending, got.Status)
	})

	t.Run("ok, success is never downgraded", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 10, domain.RailFiat)
		_, err := repos.Ledger.Settle(t.Context(), txn.Reference, nil)
		require.NoError(t, err)

		for _, status := range []domain.TransactionStatus{domain.TransactionStatusFailed, domain.TransactionStatusPending} {
			got, changed, err := repos.Ledger.MarkUnsettled(t.Context(), txn.Reference, status)
			require.NoError(t, err)
			require.False(t, changed)
			require.Equal(t, domain.TransactionStatusSuccess, got.Status)
		}
		requireBalance(t, repos, user.ID, "10")
	})

	t.Run("fail, cannot mark success", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 10, domain.RailFiat)

		_, _, err := repos.Ledger.MarkUnsettled(t.Context(), txn.Reference, domain.TransactionStatusSuccess)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("fail, unknown status", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		txn := newPending(t, repos, user.ID, 10, domain.RailFiat)

		_, _, err := repos.Ledger.MarkUnsettled(t.Context(), txn.Reference, domain.TransactionStatus("REVERSED"))
		require.ErrorIs(t, err, domain.ErrInvalidTransition)

		got, err := repos.Ledger.GetTransaction(t.Context(), txn.Reference)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusPending, got.Status)
	})

	t.Run("fail, unknown reference", func(t *testing.T) {
		repos := setup(t)
		_, _, err := repos.Ledger.MarkUnsettled(t.Context(), "TXN_missing", domain.TransactionStatusFailed)
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})
}

func runWalletTests(t *testing.T, setup SetupFunc) {
	t.Run("ok, fund and deduct", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)

		w, err := repos.Wallets.Fund(t.Context(), user.ID, 100)
		require.NoError(t, err)
		require.True(t, w.Balance.Equal(decimal.NewFromInt(100)))

		w, err = repos.Wallets.DeductAvailable(t.Context(), user.ID, decimal.RequireFromString("40.25"))
		require.NoError(t, err)
		require.True(t, w.Balance.Equal(decimal.RequireFromString("59.75")))
	})

	t.Run("fail, deduct available beyond balance", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		_, err := repos.Wallets.Fund(t.Context(), user.ID, 10)
		require.NoError(t, err)

		_, err = repos.Wallets.DeductAvailable(t.Context(), user.ID, decimal.NewFromInt(11))
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
		requireBalance(t, repos, user.ID, "10")

		_, err = repos.Wallets.DeductAvailable(t.Context(), user.ID, decimal.NewFromInt(10))
		require.NoError(t, err)
		requireBalance(t, repos, user.ID, "0")
	})

	t.Run("fail, negative amounts", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)

		_, err := repos.Wallets.Fund(t.Context(), user.ID, -1)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
		_, err = repos.Wallets.DeductAvailable(t.Context(), user.ID, decimal.NewFromInt(-1))
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
		requireBalance(t, repos, user.ID, "0")
	})

	t.Run("fail, unknown wallet", func(t *testing.T) {
		repos := setup(t)
		_, err := repos.Wallets.GetByUserID(t.Context(), "usr_missing")
		require.ErrorIs(t, err, domain.ErrWalletNotFound)
	})
}

func runCardTests(t *testing.T, setup SetupFunc) {
	seed := func(t *testing.T, repos Repos, userID, signature string) *domain.Card {
		t.Helper()
		txn := newPending(t, repos, userID, 1, domain.RailFiat)
		card := newCard(t, userID, signature)
		res, err := repos.Ledger.Settle(t.Context(), txn.Reference, card)
		require.NoError(t, err)
		require.True(t, res.CardSaved)
		return card
	}

	t.Run("ok, get update delete", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		card := seed(t, repos, user.ID, "SIG_1")

		got, err := repos.Cards.GetByID(t.Context(), user.ID, card.ID)
		require.NoError(t, err)
		require.Equal(t, "4081", got.LastFour)
		require.Equal(t, "AUTH_SIG_1", got.AuthorizationCode)
		require.False(t, got.Keep)

		got, err = repos.Cards.UpdateKeep(t.Context(), user.ID, card.ID, true)
		require.NoError(t, err)
		require.True(t, got.Keep)
		require.Equal(t, "4081", got.LastFour)

		require.NoError(t, repos.Cards.Delete(t.Context(), user.ID, card.ID))
		_, err = repos.Cards.GetByID(t.Context(), user.ID, card.ID)
		require.ErrorIs(t, err, domain.ErrCardNotFound)
		require.ErrorIs(t, repos.Cards.Delete(t.Context(), user.ID, card.ID), domain.ErrCardNotFound)
	})

	t.Run("ok, signature reusable after delete", func(t *testing.T) {
		repos := setup(t)
		user := newUser(t, repos)
		card := seed(t, repos, user.ID, "SIG_1")
		require.NoError(t, repos.Cards.Delete(t.Context(), user.ID, card.ID))

		again := seed(t, repos, user.ID, "SIG_1")
		got, err := repos.Cards.GetBySignature(t.Context(), user.ID, "SIG_1")
		require.NoError(t, err)
		require.Equal(t, again.ID, got.ID)
	})

	t.Run("ok, cards are scoped to their owner", func(t *testing.T) {
		repos := setup(t)
		owner := newUser(t, repos)
		other := newUser(t, repos)
		card := seed(t, repos, owner.ID, "SIG_1")

		_, err := repos.Cards.GetByID(t.Context(), other.ID, card.ID)
		require.ErrorIs(t, err, domain.ErrCardNotFound)
		_, err = repos.Cards.GetBySignature(t.Context(), other.ID, "SIG_1")
		require.ErrorIs(t, err, domain.ErrCardNotFound)
		_, err = repos.Cards.UpdateKeep(t.Context(), other.ID, card.ID, true)
		require.ErrorIs(t, err, domain.ErrCardNotFound)

		// the same signature may belong to two users
		seed(t, repos, other.ID, "SIG_1")
	})
}

var userSeq atomic.Int64

func newUser(t *testing.T, repos Repos) *domain.User {
	t.Helper()
	n := userSeq.Add(1)
	u := &domain.User{
		ID:         fmt.Sprintf("usr_%s", uuid.NewString()),
		Email:      fmt.Sprintf("user%d-%s@example.com", n, uuid.NewString()[:8]),
		FirstName:  "Test",
		LastName:   "User",
		IsActive:   true,
		IsVerified: true,
	}
	require.NoError(t, repos.CreateUser(t.Context(), u))
	return u
}

func newPending(t *testing.T, repos Repos, userID string, amount int64, rail domain.Rail) *domain.Transaction {
	t.Helper()
	txn := domain.NewDepositTransaction("TXN_"+uuid.NewString(), userID, amount, rail)
	require.NoError(t, repos.Ledger.CreateTransaction(t.Context(), txn))
	return txn
}

func newCard(t *testing.T, userID, signature string) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(userID, domain.CardAuthorization{
		AuthorizationCode: "AUTH_" + signature,
		Last4:             "4081",
		ExpMonth:          "12",
		ExpYear:           "2030",
		CardType:          "visa",
		Reusable:          true,
		Signature:         signature,
	})
	require.NoError(t, err)
	return card
}

func requireBalance(t *testing.T, repos Repos, userID, want string) {
	t.Helper()
	w, err := repos.Wallets.GetByUserID(t.Context(), userID)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.RequireFromString(want)), "balance %s, want %s", w.Balance, want)
}
