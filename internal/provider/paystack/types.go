// internal/provider/paystack/types.go
package paystack

import (
	"encoding/json"
	"strconv"

	"wallet-service/internal/domain"
	"wallet-service/internal/provider"
)

const (
	SignatureHeader    = "X-Paystack-Signature"
	EventChargeSuccess = "charge.success"
	statusSuccess      = "success"
)

// envelope is the wrapper every Paystack response uses.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type InitializationData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type chargeAuthorizationRequest struct {
	Email             string `json:"email"`
	Amount            int64  `json:"amount"`
	AuthorizationCode string `json:"authorization_code"`
	Reference         string `json:"reference"`
}

// Authorization mirrors Paystack's card authorization object. exp_month and
// exp_year arrive as strings on most endpoints and as numbers on some.
type Authorization struct {
	AuthorizationCode string     `json:"authorization_code"`
	Bin               string     `json:"bin"`
	Last4             string     `json:"last4"`
	ExpMonth          flexString `json:"exp_month"`
	ExpYear           flexString `json:"exp_year"`
	Channel           string     `json:"channel"`
	CardType          string     `json:"card_type"`
	Bank              string     `json:"bank"`
	CountryCode       string     `json:"country_code"`
	Brand             string     `json:"brand"`
	Reusable          bool       `json:"reusable"`
	Signature         string     `json:"signature"`
}

// ChargeData is the transaction object returned by verify, charge and the
// charge.success webhook.
type ChargeData struct {
	Reference       string         `json:"reference"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	TransactionDate string         `json:"transaction_date"`
	Message         string         `json:"message"`
	Status          string         `json:"status"`
	Domain          string         `json:"domain"`
	GatewayResponse string         `json:"gateway_response"`
	Channel         string         `json:"channel"`
	Authorization   *Authorization `json:"authorization"`
}

func (c *ChargeData) toResult(raw json.RawMessage) *provider.Result {
	res := &provider.Result{
		Paid:            c.Status == statusSuccess,
		Reference:       c.Reference,
		Status:          c.Status,
		Channel:         c.Channel,
		GatewayResponse: c.GatewayResponse,
		Raw:             raw,
	}
	if a := c.Authorization; a != nil {
		res.Authorization = &domain.CardAuthorization{
			AuthorizationCode: a.AuthorizationCode,
			Bin:               a.Bin,
			Last4:             a.Last4,
			ExpMonth:          string(a.ExpMonth),
			ExpYear:           string(a.ExpYear),
			Channel:           a.Channel,
			CardType:          a.CardType,
			Bank:              a.Bank,
			CountryCode:       a.CountryCode,
			Brand:             a.Brand,
			Reusable:          a.Reusable,
			Signature:         a.Signature,
		}
	}
	return res
}

// WebhookEvent is the body of a Paystack webhook.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// IsChargeSuccess reports whether the event settles a payment.
func (e *WebhookEvent) IsChargeSuccess() (*provider.Result, bool) {
	if e.Event != EventChargeSuccess {
		return nil, false
	}
	var data ChargeData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, false
	}
	if data.Status != statusSuccess || data.Reference == "" {
		return nil, false
	}
	return data.toResult(e.Data), true
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = flexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexString(n.String())
	return nil
}
