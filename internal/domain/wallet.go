// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the spendable balance of a single user. The balance has no
// floor; Fund and Deduct are the only mutators.
type Wallet struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewWallet(userID string) *Wallet {
	now := time.Now()
	return &Wallet{
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Fund credits a non-negative integer amount.
func (w *Wallet) Fund(amount int64) error {
	v, err := ValidateIntegerAmount(amount)
	if err != nil {
		return err
	}
	w.Balance = w.Balance.Add(decimal.NewFromInt(v))
	w.UpdatedAt = time.Now()
	return nil
}

// Deduct debits a non-negative decimal amount.
func (w *Wallet) Deduct(amount decimal.Decimal) error {
	v, err := ValidateDecimalAmount(amount)
	if err != nil {
		return err
	}
	w.Balance = w.Balance.Sub(v)
	w.UpdatedAt = time.Now()
	return nil
}

func (w *Wallet) Covers(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// BalanceView is the response shape of the balance endpoint. The balance
// is written as a JSON number.
type BalanceView struct {
	Balance decimal.Decimal `json:"balance"`
}

func (v BalanceView) MarshalJSON() ([]byte, error) {
	return []byte(`{"balance":` + v.Balance.String() + `}`), nil
}
