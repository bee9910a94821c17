// internal/usecase/withdraw.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-service/internal/domain"
	"wallet-service/internal/metrics"
	"wallet-service/internal/provider"
	"wallet-service/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// refundTimeout bounds the refund, which runs detached from the request.
const refundTimeout = 10 * time.Second

// WithdrawResult reports whether the gateway accepted a transfer.
type WithdrawResult struct {
	Status    bool   `json:"status"`
	Reference string `json:"reference,omitempty"`
}

// withdraw reserves the amount from the wallet and asks the gateway to pay
// it out. The reservation is refunded only when the gateway definitely
// refused the transfer. When the outcome is unknown the amount stays
// reserved under the withdrawal reference for reconciliation.
func (s settler) withdraw(ctx context.Context, p provider.PaymentProvider, user *domain.User, amount int64, address string) (*WithdrawResult, error) {
	amount, err := domain.ValidateIntegerAmount(amount)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", domain.ErrInvalidAmount)
	}

	if _, err := s.Wallets.DeductAvailable(ctx, user.ID, decimal.NewFromInt(amount)); err != nil {
		return nil, err
	}
	s.invalidateBalance(ctx, user.ID)

	reference := utils.GenerateReference("WDR")
	log := s.Logger.With(
		zap.String("reference", reference),
		zap.String("user_id", user.ID),
		zap.String("rail", string(s.rail)),
		zap.Int64("amount", amount))

	accepted, err := p.Withdraw(ctx, provider.WithdrawRequest{
		Reference: reference,
		Amount:    amount,
		Address:   address,
	})

	// the deduction is committed; nothing below may be cut short by the caller
	detached := context.WithoutCancel(ctx)

	switch {
	case err != nil && !isDefinitiveRefusal(err):
		metrics.Withdrawals.WithLabelValues(string(s.rail), "unconfirmed").Inc()
		log.Error("withdrawal outcome unknown, amount kept reserved", zap.Error(err))
		wallet, _ := s.Wallets.GetByUserID(detached, user.ID)
		s.afterWalletChange(detached, domain.EventWithdrawalUnconfirmed, reference, user.ID, amount, wallet)
		return nil, fmt.Errorf("withdrawal %s unconfirmed: %w", reference, err)

	case err != nil || !accepted:
		if refundErr := s.refund(detached, user.ID, amount); refundErr != nil {
			// the deduction stands; needs manual correction
			log.Error("failed to refund withdrawal", zap.Error(refundErr))
			return nil, fmt.Errorf("failed to refund withdrawal %s: %w", reference, refundErr)
		}
		if err != nil {
			metrics.Withdrawals.WithLabelValues(string(s.rail), "failed").Inc()
			log.Warn("withdrawal refused, wallet refunded", zap.Error(err))
			return nil, err
		}
		metrics.Withdrawals.WithLabelValues(string(s.rail), "declined").Inc()
		log.Info("withdrawal declined, wallet refunded")
		return &WithdrawResult{Status: false}, nil
	}

	wallet, err := s.Wallets.GetByUserID(detached, user.ID)
	if err != nil {
		log.Warn("failed to reload wallet after withdrawal", zap.Error(err))
	}
	metrics.Withdrawals.WithLabelValues(string(s.rail), "accepted").Inc()
	log.Info("withdrawal accepted")
	s.afterWalletChange(detached, domain.EventWithdrawalAccepted, reference, user.ID, amount, wallet)
	return &WithdrawResult{Status: true, Reference: reference}, nil
}

func (s settler) refund(ctx context.Context, userID string, amount int64) error {
	ctx, cancel := context.WithTimeout(ctx, refundTimeout)
	defer cancel()

	if _, err := s.Wallets.Fund(ctx, userID, amount); err != nil {
		return err
	}
	s.invalidateBalance(ctx, userID)
	return nil
}

// isDefinitiveRefusal reports whether the transfer certainly did not happen.
func isDefinitiveRefusal(err error) bool {
	return provider.IsRejection(err) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidAddress)
}
