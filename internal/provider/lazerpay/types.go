// internal/provider/lazerpay/types.go
package lazerpay

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	SignatureHeader           = "X-Lazerpay-Signature"
	WebhookDepositTransaction = "DEPOSIT_TRANSACTION"

	statusSuccess   = "success"
	statusConfirmed = "confirmed"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type initializeRequest struct {
	Reference     string `json:"reference,omitempty"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Coin          string `json:"coin"`
	Currency      string `json:"currency"`
	Amount        int64  `json:"amount"`
}

type InitializationData struct {
	Reference string          `json:"reference"`
	Address   string          `json:"address"`
	Coin      string          `json:"coin"`
	Network   string          `json:"network"`
	Amount    decimal.Decimal `json:"amount"`
}

// VerificationData is the subset of the verify payload used to decide
// whether a deposit is paid in full on the expected network.
type VerificationData struct {
	Reference     string              `json:"reference"`
	Status        string              `json:"status"`
	Network       string              `json:"network"`
	Coin          string              `json:"coin"`
	ActualAmount  decimal.NullDecimal `json:"actualAmount"`
	AmountPaid    decimal.NullDecimal `json:"amountPaid"`
	CustomerEmail string              `json:"customerEmail"`
}

// Confirmed applies the three settlement checks: confirmed status, full
// amount received and the expected network.
func (v *VerificationData) Confirmed(network string) bool {
	return v.Status == statusConfirmed &&
		v.ActualAmount.Valid && v.AmountPaid.Valid &&
		v.ActualAmount.Decimal.Equal(v.AmountPaid.Decimal) &&
		v.Network == network
}

type transferRequest struct {
	Reference  string `json:"reference"`
	Amount     int64  `json:"amount"`
	Coin       string `json:"coin"`
	Recipient  string `json:"recipient"`
	Blockchain string `json:"blockchain"`
}

// WebhookEvent is the body of a Lazerpay webhook.
type WebhookEvent struct {
	WebhookType string `json:"webhookType"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	Network     string `json:"network"`
}

func (e *WebhookEvent) IsDeposit() bool {
	return e.WebhookType == WebhookDepositTransaction && e.Reference != ""
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
