// internal/provider/lazerpay/lazerpay.go
package lazerpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"wallet-service/config"
	"wallet-service/internal/domain"
	"wallet-service/internal/provider"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const name = "lazerpay"

type LazerpayProvider struct {
	config     config.LazerpayConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ provider.PaymentProvider = (*LazerpayProvider)(nil)

func NewLazerpayProvider(cfg config.LazerpayConfig, logger *zap.Logger) *LazerpayProvider {
	return &LazerpayProvider{
		config:     cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (l *LazerpayProvider) Name() string {
	return name
}

func (l *LazerpayProvider) Initialize(ctx context.Context, req provider.InitRequest) (*provider.InitResult, error) {
	amount, err := domain.ValidateIntegerAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	raw, err := l.makeRequest(ctx, "initialize", http.MethodPost, "/transaction/initialize", initializeRequest{
		Reference:     req.Reference,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.Email,
		Coin:          l.config.Coin,
		Currency:      l.config.Currency,
		Amount:        amount,
	})
	if err != nil {
		return nil, err
	}

	var data InitializationData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, decodeError("initialize", raw, err)
	}

	reference := data.Reference
	if reference == "" {
		reference = req.Reference
	}

	l.logger.Info("lazerpay transaction initialized",
		zap.String("reference", reference),
		zap.String("coin", l.config.Coin),
		zap.Int64("amount", amount))

	return &provider.InitResult{Reference: reference, Payload: raw}, nil
}

// Verify reports paid only when the deposit is confirmed, paid in full and
// observed on the configured network.
func (l *LazerpayProvider) Verify(ctx context.Context, reference string) (*provider.Result, error) {
	raw, err := l.makeRequest(ctx, "verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var data VerificationData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, decodeError("verify", raw, err)
	}

	paid := data.Confirmed(l.config.Network)
	if data.Status == statusConfirmed && !paid {
		l.logger.Warn("lazerpay deposit confirmed but rejected",
			zap.String("reference", reference),
			zap.String("network", data.Network),
			zap.String("expected_network", l.config.Network),
			zap.String("actual_amount", data.ActualAmount.Decimal.String()),
			zap.String("amount_paid", data.AmountPaid.Decimal.String()))
	}

	return &provider.Result{
		Paid:      paid,
		Reference: reference,
		Status:    data.Status,
		Raw:       raw,
	}, nil
}

func (l *LazerpayProvider) Withdraw(ctx context.Context, req provider.WithdrawRequest) (bool, error) {
	if err := ValidateAddress(req.Address); err != nil {
		return false, err
	}
	amount, err := domain.ValidateIntegerAmount(req.Amount)
	if err != nil {
		return false, err
	}

	if _, err := l.makeRequest(ctx, "transfer", http.MethodPost, "/transfer", transferRequest{
		Reference:  req.Reference,
		Amount:     amount,
		Coin:       l.config.Coin,
		Recipient:  req.Address,
		Blockchain: l.config.Blockchain,
	}); err != nil {
		return false, err
	}

	l.logger.Info("lazerpay transfer accepted",
		zap.String("reference", req.Reference),
		zap.Int64("amount", amount))
	return true, nil
}

// ValidateAddress accepts 0x-prefixed, 42 character EVM hex addresses.
func ValidateAddress(address string) error {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 || !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	return nil
}

func (l *LazerpayProvider) makeRequest(ctx context.Context, op, method, path string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.config.PublicKey)
	req.Header.Set("Authorization", "Bearer "+l.config.SecretKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.logger.Warn("lazerpay request failed",
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
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
		return nil, decodeError(op, responseBody, decodeErr)
	}
	if env.Status != statusSuccess {
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

func decodeError(op string, raw []byte, err error) error {
	return &provider.Error{
		Provider: name,
		Op:       op,
		Message:  "failed to parse response",
		Raw:      raw,
		Err:      err,
	}
}
