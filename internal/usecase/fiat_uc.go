// internal/usecase/fiat_uc.go
package usecase

import (
	"context"
	"fmt"

	"wallet-service/internal/domain"
	"wallet-service/internal/provider"
	"wallet-service/pkg/utils"

	"go.uber.org/zap"
)

const referencePrefix = "TXN"

// FiatWalletPayment funds wallets through the card gateway. A payment the
// gateway reports as unpaid becomes FAILED.
type FiatWalletPayment struct {
	settler
	provider provider.FiatProvider
}

func NewFiatWalletPayment(p provider.FiatProvider, deps Deps) *FiatWalletPayment {
	return &FiatWalletPayment{
		settler:  newSettler(deps, domain.RailFiat, domain.TransactionStatusFailed),
		provider: p,
	}
}

func (uc *FiatWalletPayment) Rail() domain.Rail {
	return domain.RailFiat
}

func (uc *FiatWalletPayment) Initialize(ctx context.Context, user *domain.User, amount int64) (*provider.InitResult, error) {
	return initialize(ctx, uc.settler, uc.provider, user, amount)
}

func (uc *FiatWalletPayment) Verify(ctx context.Context, txn *domain.Transaction) (*SettlementResult, error) {
	res, err := uc.provider.Verify(ctx, txn.Reference)
	if err != nil {
		uc.Logger.Warn("fiat verification failed, transaction left unchanged",
			zap.String("reference", txn.Reference),
			zap.Error(err))
		return nil, err
	}
	if res.Paid {
		return uc.Success(ctx, txn, res)
	}
	return uc.Failed(ctx, txn, res)
}

// Charge debits a saved card for amount and settles the new transaction
// from the gateway's answer.
func (uc *FiatWalletPayment) Charge(ctx context.Context, user *domain.User, card *domain.Card, amount int64) (*SettlementResult, error) {
	amount, err := domain.ValidateIntegerAmount(amount)
	if err != nil {
		return nil, err
	}

	txn := domain.NewDepositTransaction(utils.GenerateReference(referencePrefix), user.ID, amount, domain.RailFiat)
	if err := uc.Ledger.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	res, err := uc.provider.Charge(ctx, provider.ChargeRequest{
		Reference:         txn.Reference,
		Amount:            amount,
		Email:             user.Email,
		AuthorizationCode: card.AuthorizationCode,
	})
	if err != nil {
		uc.Logger.Warn("card charge failed, transaction left pending",
			zap.String("reference", txn.Reference),
			zap.String("card_id", card.ID),
			zap.Error(err))
		return nil, err
	}
	if res.Paid {
		return uc.Success(ctx, txn, res)
	}
	return uc.Failed(ctx, txn, res)
}

// ChargeSignature charges the user's active card with the given signature.
func (uc *FiatWalletPayment) ChargeSignature(ctx context.Context, user *domain.User, signature string, amount int64) (*SettlementResult, error) {
	if _, err := domain.ValidateIntegerAmount(amount); err != nil {
		return nil, err
	}
	card, err := uc.Cards.GetBySignature(ctx, user.ID, signature)
	if err != nil {
		return nil, err
	}
	return uc.Charge(ctx, user, card, amount)
}

func (uc *FiatWalletPayment) Success(ctx context.Context, txn *domain.Transaction, res *provider.Result) (*SettlementResult, error) {
	var authz *domain.CardAuthorization
	channel := ""
	if res != nil {
		authz = res.Authorization
		channel = res.Channel
	}

	card, err := domain.CapturableCard(txn.UserID, channel, authz)
	if err != nil {
		uc.Logger.Warn("failed to capture card, settling without it",
			zap.String("reference", txn.Reference),
			zap.Error(err))
		card = nil
	}
	return uc.success(ctx, txn, card)
}

func (uc *FiatWalletPayment) Failed(ctx context.Context, txn *domain.Transaction, res *provider.Result) (*SettlementResult, error) {
	message := ""
	if res != nil {
		message = res.GatewayResponse
	}
	return uc.failed(ctx, txn, message)
}

func (uc *FiatWalletPayment) Withdraw(ctx context.Context, user *domain.User, amount int64) (*WithdrawResult, error) {
	return uc.withdraw(ctx, uc.provider, user, amount, "")
}

// initialize opens a gateway session and records the PENDING deposit under
// the reference the gateway will report back.
func initialize(ctx context.Context, s settler, p provider.PaymentProvider, user *domain.User, amount int64) (*provider.InitResult, error) {
	amount, err := domain.ValidateIntegerAmount(amount)
	if err != nil {
		return nil, err
	}

	reference := utils.GenerateReference(referencePrefix)
	res, err := p.Initialize(ctx, provider.InitRequest{
		Reference:    reference,
		Amount:       amount,
		Email:        user.Email,
		CustomerName: user.FullName(),
	})
	if err != nil {
		s.Logger.Warn("payment initialization failed",
			zap.String("rail", string(s.rail)),
			zap.String("user_id", user.ID),
			zap.Error(err))
		return nil, err
	}
	if res.Reference != "" {
		reference = res.Reference
	}

	txn := domain.NewDepositTransaction(reference, user.ID, amount, s.rail)
	if err := s.Ledger.CreateTransaction(ctx, txn); err != nil {
		s.Logger.Error("failed to record pending transaction",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.Logger.Info("payment initialized",
		zap.String("rail", string(s.rail)),
		zap.String("reference", reference),
		zap.String("user_id", user.ID),
		zap.Int64("amount", amount))
	res.Reference = reference
	return res, nil
}
