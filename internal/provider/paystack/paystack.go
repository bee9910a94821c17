// internal/provider/paystack/paystack.go
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"wallet-service/config"
	"wallet-service/internal/domain"
	"wallet-service/internal/provider"

	"go.uber.org/zap"
)

const name = "paystack"

// koboPerNaira converts wallet units to the gateway's minor unit.
const koboPerNaira = 100

type PaystackProvider struct {
	config     config.PaystackConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ provider.FiatProvider = (*PaystackProvider)(nil)

func NewPaystackProvider(cfg config.PaystackConfig, logger *zap.Logger) *PaystackProvider {
	return &PaystackProvider{
		config:     cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (p *PaystackProvider) Name() string {
	return name
}

// ============================================
// INITIALIZE
// ============================================

func (p *PaystackProvider) Initialize(ctx context.Context, req provider.InitRequest) (*provider.InitResult, error) {
	kobo, err := toKobo(req.Amount)
	if err != nil {
		return nil, err
	}

	raw, err := p.makeRequest(ctx, "initialize", http.MethodPost, "/transaction/initialize", initializeRequest{
		Email:       req.Email,
		Amount:      kobo,
		Reference:   req.Reference,
		CallbackURL: p.config.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	var data InitializationData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, p.decodeError("initialize", raw, err)
	}

	reference := data.Reference
	if reference == "" {
		reference = req.Reference
	}

	p.logger.Info("paystack transaction initialized",
		zap.String("reference", reference),
		zap.Int64("amount", req.Amount))

	return &provider.InitResult{Reference: reference, Payload: raw}, nil
}

// ============================================
// VERIFY
// ============================================

func (p *PaystackProvider) Verify(ctx context.Context, reference string) (*provider.Result, error) {
	raw, err := p.makeRequest(ctx, "verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var data ChargeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, p.decodeError("verify", raw, err)
	}
	if data.Reference == "" {
		data.Reference = reference
	}
	return data.toResult(raw), nil
}

// ============================================
// CHARGE AUTHORIZATION
// ============================================

func (p *PaystackProvider) Charge(ctx context.Context, req provider.ChargeRequest) (*provider.Result, error) {
	kobo, err := toKobo(req.Amount)
	if err != nil {
		return nil, err
	}

	raw, err := p.makeRequest(ctx, "charge", http.MethodPost, "/transaction/charge_authorization", chargeAuthorizationRequest{
		Email:             req.Email,
		Amount:            kobo,
		AuthorizationCode: req.AuthorizationCode,
		Reference:         req.Reference,
	})
	if err != nil {
		return nil, err
	}

	var data ChargeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, p.decodeError("charge", raw, err)
	}
	if data.Reference == "" {
		data.Reference = req.Reference
	}
	return data.toResult(raw), nil
}

// Withdraw is not offered on the card rail.
func (p *PaystackProvider) Withdraw(ctx context.Context, req provider.WithdrawRequest) (bool, error) {
	if _, err := domain.ValidateIntegerAmount(req.Amount); err != nil {
		return false, err
	}
	return false, nil
}

func toKobo(amount int64) (int64, error) {
	v, err := domain.ValidateIntegerAmount(amount)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt64/koboPerNaira {
		return 0, fmt.Errorf("%w: amount out of range", domain.ErrInvalidAmount)
	}
	return v * koboPerNaira, nil
}

// makeRequest performs the call and returns the envelope's data object.
func (p *PaystackProvider) makeRequest(ctx context.Context, op, method, path string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.SecretKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("paystack request failed",
			zap.String("op", op),
			zap.Error(err))
		return nil, &provider.Error{Provider: name, Op: op, Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.Error{Provider: name, Op: op, StatusCode: resp.StatusCode, Temporary: true, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(responseBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &provider.Error{
			Provider:   name,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Raw:        responseBody,
			Temporary:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}
	if decodeErr != nil {
		return nil, p.decodeError(op, responseBody, decodeErr)
	}
	if !env.Status {
		return nil, &provider.Error{
			Provider:   name,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Raw:        responseBody,
		}
	}
	return env.Data, nil
}

func (p *PaystackProvider) decodeError(op string, raw []byte, err error) error {
	return &provider.Error{
		Provider: name,
		Op:       op,
		Message:  "failed to parse response",
		Raw:      raw,
		Err:      err,
	}
}
