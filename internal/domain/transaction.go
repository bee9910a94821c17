// internal/domain/transaction.go
package domain

import (
	"fmt"
	"time"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "DEPOSIT"
)

// Rail identifies which gateway owns a transaction reference.
type Rail string

const (
	RailFiat   Rail = "fiat"
	RailCrypto Rail = "crypto"
)

func ParseRail(s string) (Rail, error) {
	switch Rail(s) {
	case RailFiat, RailCrypto:
		return Rail(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedRail, s)
}

// Transaction is a single deposit attempt, keyed by the gateway reference.
type Transaction struct {
	Reference string            `json:"reference"`
	UserID    string            `json:"user_id"`
	Amount    int64             `json:"amount"`
	Type      TransactionType   `json:"type"`
	Status    TransactionStatus `json:"status"`
	Rail      Rail              `json:"rail"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	SettledAt *time.Time        `json:"settled_at,omitempty"`
}

func NewDepositTransaction(reference, userID string, amount int64, rail Rail) *Transaction {
	now := time.Now()
	return &Transaction{
		Reference: reference,
		UserID:    userID,
		Amount:    amount,
		Type:      TransactionTypeDeposit,
		Status:    TransactionStatusPending,
		Rail:      rail,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (t *Transaction) IsSettled() bool {
	return t.Status == TransactionStatusSuccess
}

// CanTransitionTo reports whether the state machine allows moving to next.
// SUCCESS is absorbing.
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	if t.Status == TransactionStatusSuccess {
		return false
	}
	switch next {
	case TransactionStatusPending, TransactionStatusSuccess, TransactionStatusFailed:
		return true
	}
	return false
}
