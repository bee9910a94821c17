// internal/provider/provider.go
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wallet-service/internal/domain"
)

// PaymentProvider is implemented by every payment rail adapter.
type PaymentProvider interface {
	// Name returns the gateway name, used in logs and errors.
	Name() string

	// Initialize opens a checkout session for a deposit.
	Initialize(ctx context.Context, req InitRequest) (*InitResult, error)

	// Verify asks the gateway whether a reference has been paid.
	Verify(ctx context.Context, reference string) (*Result, error)

	// Withdraw starts an outbound transfer. false means the gateway declined.
	Withdraw(ctx context.Context, req WithdrawRequest) (bool, error)
}

// FiatProvider adds charging a stored card authorization.
type FiatProvider interface {
	PaymentProvider
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
}

type InitRequest struct {
	Reference    string
	Amount       int64
	Email        string
	CustomerName string
}

// InitResult carries the gateway's session payload untouched, for clients
// to complete the checkout.
type InitResult struct {
	Reference string
	Payload   json.RawMessage
}

type ChargeRequest struct {
	Reference         string
	Amount            int64
	Email             string
	AuthorizationCode string
}

type WithdrawRequest struct {
	Reference string
	Amount    int64
	Address   string
}

// Result is the normalized outcome of a verify or charge call.
type Result struct {
	Paid            bool
	Reference       string
	Status          string
	Channel         string
	GatewayResponse string
	Authorization   *domain.CardAuthorization
	Raw             json.RawMessage
}

// Error is returned for every gateway failure: transport errors, non-2xx
// responses, unsuccessful envelopes and undecodable bodies.
type Error struct {
	Provider   string
	Op         string
	StatusCode int
	Message    string
	Raw        []byte
	Temporary  bool
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRejection reports whether err is a gateway answer that definitely
// refused the request: a non-throttling 4xx or an unsuccessful 2xx envelope.
// Transport failures, 5xx, throttling and unreadable bodies leave the
// outcome unknown.
func IsRejection(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) || pe.Temporary || pe.Err != nil {
		return false
	}
	return (pe.StatusCode >= 400 && pe.StatusCode < 500) || (pe.StatusCode >= 200 && pe.StatusCode < 300)
}

// IsError reports whether err is, or wraps, a provider *Error.
func IsError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
