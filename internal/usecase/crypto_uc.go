// internal/usecase/crypto_uc.go
package usecase

import (
	"context"

	"wallet-service/internal/domain"
	"wallet-service/internal/provider"
	"wallet-service/internal/provider/lazerpay"

	"go.uber.org/zap"
)

// CryptoWalletPayment funds wallets through the stablecoin gateway.
// Confirmation lags behind payment, so an unpaid verification leaves the
// transaction PENDING for a later retry.
type CryptoWalletPayment struct {
	settler
	provider provider.PaymentProvider
}

func NewCryptoWalletPayment(p provider.PaymentProvider, deps Deps) *CryptoWalletPayment {
	return &CryptoWalletPayment{
		settler:  newSettler(deps, domain.RailCrypto, domain.TransactionStatusPending),
		provider: p,
	}
}

func (uc *CryptoWalletPayment) Rail() domain.Rail {
	return domain.RailCrypto
}

func (uc *CryptoWalletPayment) Initialize(ctx context.Context, user *domain.User, amount int64) (*provider.InitResult, error) {
	return initialize(ctx, uc.settler, uc.provider, user, amount)
}

func (uc *CryptoWalletPayment) Verify(ctx context.Context, txn *domain.Transaction) (*SettlementResult, error) {
	res, err := uc.provider.Verify(ctx, txn.Reference)
	if err != nil {
		uc.Logger.Warn("crypto verification failed, transaction left unchanged",
			zap.String("reference", txn.Reference),
			zap.Error(err))
		return nil, err
	}
	if res.Paid {
		return uc.Success(ctx, txn)
	}
	return uc.Failed(ctx, txn)
}

func (uc *CryptoWalletPayment) Success(ctx context.Context, txn *domain.Transaction) (*SettlementResult, error) {
	return uc.success(ctx, txn, nil)
}

func (uc *CryptoWalletPayment) Failed(ctx context.Context, txn *domain.Transaction) (*SettlementResult, error) {
	return uc.failed(ctx, txn, "")
}

// Withdraw pays out to the user's registered address.
func (uc *CryptoWalletPayment) Withdraw(ctx context.Context, user *domain.User, amount int64) (*WithdrawResult, error) {
	if err := lazerpay.ValidateAddress(user.CryptoAddress); err != nil {
		return nil, err
	}
	return uc.withdraw(ctx, uc.provider, user, amount, user.CryptoAddress)
}
