// internal/domain/events.go
package domain

import "time"

const (
	EventDepositCompleted   = "deposit.completed"
	EventWithdrawalAccepted = "withdrawal.accepted"
	// the gateway may or may not have paid out; the amount stays reserved
	EventWithdrawalUnconfirmed = "withdrawal.unconfirmed"
)

// TransactionEvent is published after a wallet mutation commits.
type TransactionEvent struct {
	Event      string    `json:"event"`
	Reference  string    `json:"reference,omitempty"`
	UserID     string    `json:"user_id"`
	Rail       Rail      `json:"rail"`
	Amount     int64     `json:"amount"`
	Balance    string    `json:"balance"`
	OccurredAt time.Time `json:"occurred_at"`
}
