// internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"

	"wallet-service/internal/domain"
	"wallet-service/internal/provider/lazerpay"
	"wallet-service/internal/provider/paystack"
	"wallet-service/internal/repository"
	"wallet-service/pkg/security"

	"go.uber.org/zap"
)

type WebhookConfig struct {
	PaystackSecret string
	PaystackIPs    []string
	LazerpaySecret string
}

// WebhookUsecase authenticates gateway callbacks and settles the deposits
// they report. Every error it returns other than the security sentinels is
// an internal failure the gateway should retry.
type WebhookUsecase struct {
	fiat      *FiatWalletPayment
	crypto    *CryptoWalletPayment
	ledger    repository.LedgerRepository
	cfg       WebhookConfig
	allowList *security.IPAllowList
	logger    *zap.Logger
}

func NewWebhookUsecase(
	fiat *FiatWalletPayment,
	crypto *CryptoWalletPayment,
	ledger repository.LedgerRepository,
	cfg WebhookConfig,
	logger *zap.Logger,
) *WebhookUsecase {
	return &WebhookUsecase{
		fiat:      fiat,
		crypto:    crypto,
		ledger:    ledger,
		cfg:       cfg,
		allowList: security.NewIPAllowList(cfg.PaystackIPs),
		logger:    logger,
	}
}

// HandleFiat processes a card gateway webhook. body must be the exact bytes
// received.
func (uc *WebhookUsecase) HandleFiat(ctx context.Context, clientIP string, body []byte, signature string) error {
	if !uc.allowList.Allowed(clientIP) {
		uc.logger.Warn("fiat webhook from unlisted address", zap.String("ip", clientIP))
		return security.ErrForbiddenOrigin
	}
	if err := security.VerifyHMACSHA512(uc.cfg.PaystackSecret, body, signature); err != nil {
		uc.logger.Warn("fiat webhook signature mismatch", zap.String("ip", clientIP))
		return err
	}

	evt, err := paystack.ParseWebhook(body)
	if err != nil {
		uc.logger.Error("malformed fiat webhook body", zap.Error(err))
		return nil
	}

	res, ok := evt.IsChargeSuccess()
	if !ok {
		uc.logger.Info("ignoring fiat webhook event", zap.String("event", evt.Event))
		return nil
	}

	txn, err := uc.lookup(ctx, domain.RailFiat, res.Reference)
	if err != nil || txn == nil {
		return err
	}

	_, err = uc.fiat.Success(ctx, txn, res)
	return err
}

// HandleCrypto processes a stablecoin gateway webhook. body must be the
// exact bytes received.
func (uc *WebhookUsecase) HandleCrypto(ctx context.Context, body []byte, signature string) error {
	if err := security.VerifyHMACSHA256(uc.cfg.LazerpaySecret, body, signature); err != nil {
		uc.logger.Warn("crypto webhook signature mismatch")
		return err
	}

	evt, err := lazerpay.ParseWebhook(body)
	if err != nil {
		uc.logger.Error("malformed crypto webhook body", zap.Error(err))
		return nil
	}

	if !evt.IsDeposit() {
		uc.logger.Info("ignoring crypto webhook event",
			zap.String("webhook_type", evt.WebhookType),
			zap.String("reference", evt.Reference))
		return nil
	}

	txn, err := uc.lookup(ctx, domain.RailCrypto, evt.Reference)
	if err != nil || txn == nil {
		return err
	}

	_, err = uc.crypto.Success(ctx, txn)
	return err
}

// lookup returns nil, nil for references this service does not know so the
// webhook can still be acknowledged.
func (uc *WebhookUsecase) lookup(ctx context.Context, rail domain.Rail, reference string) (*domain.Transaction, error) {
	txn, err := uc.ledger.GetTransaction(ctx, reference)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		uc.logger.Error("transaction not found for webhook",
			zap.String("rail", string(rail)),
			zap.String("reference", reference))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if txn.Rail != rail {
		uc.logger.Error("webhook reference belongs to another rail",
			zap.String("rail", string(rail)),
			zap.String("reference", reference),
			zap.String("transaction_rail", string(txn.Rail)))
		return nil, nil
	}
	return txn, nil
}
