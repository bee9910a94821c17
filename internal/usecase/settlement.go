// internal/usecase/settlement.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"wallet-service/internal/cache"
	"wallet-service/internal/domain"
	"wallet-service/internal/events"
	"wallet-service/internal/metrics"
	"wallet-service/internal/repository"

	"go.uber.org/zap"
)

const (
	MessagePaymentSuccessful = "Payment successful"
	MessagePaymentNotFound   = "We have not received your payment"
)

// SettlementResult is returned by every verify, charge and webhook
// settlement path.
type SettlementResult struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// BalanceNotifier pushes balance changes to connected clients.
type BalanceNotifier interface {
	NotifyBalance(userID string, wallet *domain.Wallet, reference string)
}

type noopNotifier struct{}

func (noopNotifier) NotifyBalance(string, *domain.Wallet, string) {}

// Deps groups the collaborators shared by the payment orchestrators.
// Balances, Publisher and Notifier are optional.
type Deps struct {
	Ledger    repository.LedgerRepository
	Wallets   repository.WalletRepository
	Cards     repository.CardRepository
	Balances  cache.BalanceCache
	Publisher events.Publisher
	Notifier  BalanceNotifier
	Logger    *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Balances == nil {
		d.Balances = cache.NoopBalanceCache{}
	}
	if d.Publisher == nil {
		d.Publisher = events.NoopPublisher{}
	}
	if d.Notifier == nil {
		d.Notifier = noopNotifier{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// settler owns the success and failure transitions shared by both rails.
type settler struct {
	Deps
	rail domain.Rail
	// unpaid is the status a failed verification leaves behind.
	unpaid domain.TransactionStatus
}

func newSettler(deps Deps, rail domain.Rail, unpaid domain.TransactionStatus) settler {
	return settler{Deps: deps.withDefaults(), rail: rail, unpaid: unpaid}
}

// success credits the wallet once per reference. Repeated or concurrent
// calls for a settled reference are no-ops that still report success.
func (s settler) success(ctx context.Context, txn *domain.Transaction, card *domain.Card) (*SettlementResult, error) {
	res, err := s.Ledger.Settle(ctx, txn.Reference, card)
	if err != nil {
		metrics.Settlements.WithLabelValues(string(s.rail), metrics.OutcomeError).Inc()
		s.Logger.Error("failed to settle transaction",
			zap.String("reference", txn.Reference),
			zap.String("rail", string(s.rail)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to settle transaction: %w", err)
	}

	if !res.Credited {
		metrics.Settlements.WithLabelValues(string(s.rail), metrics.OutcomeDuplicate).Inc()
		s.Logger.Info("transaction already settled",
			zap.String("reference", txn.Reference))
		return &SettlementResult{Status: true, Message: MessagePaymentSuccessful}, nil
	}

	metrics.Settlements.WithLabelValues(string(s.rail), metrics.OutcomeCredited).Inc()
	s.Logger.Info("transaction settled",
		zap.String("reference", txn.Reference),
		zap.String("user_id", res.Transaction.UserID),
		zap.String("rail", string(s.rail)),
		zap.Int64("amount", res.Transaction.Amount),
		zap.Bool("card_saved", res.CardSaved))

	s.afterWalletChange(ctx, domain.EventDepositCompleted, res.Transaction.Reference, res.Transaction.UserID, res.Transaction.Amount, res.Wallet)
	return &SettlementResult{Status: true, Message: MessagePaymentSuccessful}, nil
}

// failed moves an unsettled transaction to the rail's unpaid status.
// A transaction that is already SUCCESS keeps its status.
func (s settler) failed(ctx context.Context, txn *domain.Transaction, message string) (*SettlementResult, error) {
	updated, changed, err := s.Ledger.MarkUnsettled(ctx, txn.Reference, s.unpaid)
	if err != nil {
		s.Logger.Error("failed to mark transaction unsettled",
			zap.String("reference", txn.Reference),
			zap.Error(err))
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	metrics.Settlements.WithLabelValues(string(s.rail), metrics.OutcomeUnpaid).Inc()
	if changed {
		s.Logger.Info("transaction not paid",
			zap.String("reference", txn.Reference),
			zap.String("status", string(updated.Status)),
			zap.String("message", message))
	}

	if message == "" {
		message = MessagePaymentNotFound
	}
	return &SettlementResult{Status: false, Message: message}, nil
}

// afterWalletChange runs the post-commit side effects. None of them can undo or
// fail the wallet mutation that preceded it.
func (s settler) afterWalletChange(ctx context.Context, event, reference, userID string, amount int64, wallet *domain.Wallet) {
	s.invalidateBalance(ctx, userID)

	if wallet == nil {
		return
	}

	if err := s.Publisher.PublishTransactionEvent(ctx, &domain.TransactionEvent{
		Event:      event,
		Reference:  reference,
		UserID:     userID,
		Rail:       s.rail,
		Amount:     amount,
		Balance:    wallet.Balance.String(),
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		s.Logger.Warn("failed to publish transaction event",
			zap.String("event", event),
			zap.String("reference", reference),
			zap.Error(err))
	}

	s.Notifier.NotifyBalance(userID, wallet, reference)
}

func (s settler) invalidateBalance(ctx context.Context, userID string) {
	if err := s.Balances.Invalidate(ctx, userID); err != nil {
		s.Logger.Warn("failed to invalidate cached balance",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}
