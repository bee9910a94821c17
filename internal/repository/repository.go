// internal/repository/repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"wallet-service/internal/domain"

	"github.com/shopspring/decimal"
)

// SettleResult describes what a settlement attempt did.
type SettleResult struct {
	Transaction *domain.Transaction
	// Wallet is the balance after the credit. Nil when nothing was credited.
	Wallet    *domain.Wallet
	Credited  bool
	CardSaved bool
}

type LedgerRepository interface {
	CreateTransaction(ctx context.Context, txn *domain.Transaction) error
	GetTransaction(ctx context.Context, reference string) (*domain.Transaction, error)
	GetUserTransaction(ctx context.Context, userID, reference string) (*domain.Transaction, error)
	ListUserTransactions(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error)
	ListPending(ctx context.Context, rail domain.Rail, createdBefore time.Time, limit int) ([]*domain.Transaction, error)

	// Settle is the only path that credits a deposit. Within one atomic unit
	// it locks the transaction, returns without effect if it is already
	// SUCCESS, and otherwise credits the wallet, marks the transaction
	// SUCCESS and stores card (if any, deduplicated by user and signature).
	Settle(ctx context.Context, reference string, card *domain.Card) (*SettleResult, error)

	// MarkUnsettled moves a non-SUCCESS transaction to status. The returned
	// bool is false when the transaction was already SUCCESS. Moves the
	// state machine forbids fail with domain.ErrInvalidTransition.
	MarkUnsettled(ctx context.Context, reference string, status domain.TransactionStatus) (*domain.Transaction, bool, error)
}

type WalletRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	Fund(ctx context.Context, userID string, amount int64) (*domain.Wallet, error)
	// DeductAvailable deducts only when the balance covers amount.
	DeductAvailable(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Wallet, error)
}

type CardRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*domain.Card, error)
	GetByID(ctx context.Context, userID, id string) (*domain.Card, error)
	GetBySignature(ctx context.Context, userID, signature string) (*domain.Card, error)
	UpdateKeep(ctx context.Context, userID, id string, keep bool) (*domain.Card, error)
	Delete(ctx context.Context, userID, id string) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// UnsettledTransition decides whether MarkUnsettled moves txn to status.
// A settled transaction is left alone without error.
func UnsettledTransition(txn *domain.Transaction, status domain.TransactionStatus) (bool, error) {
	if status == domain.TransactionStatusSuccess {
		return false, fmt.Errorf("%w: MarkUnsettled cannot set %s", domain.ErrInvalidTransition, status)
	}
	if txn.IsSettled() {
		return false, nil
	}
	if !txn.CanTransitionTo(status) {
		return false, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, txn.Status, status)
	}
	return true, nil
}

// NormalizePage clamps limit and offset to sane values.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
