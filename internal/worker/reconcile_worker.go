// internal/worker/reconcile_worker.go
package worker

import (
	"context"
	"sync"
	"time"

	"wallet-service/config"
	"wallet-service/internal/domain"
	"wallet-service/internal/metrics"
	"wallet-service/internal/repository"
	"wallet-service/internal/usecase"

	"go.uber.org/zap"
)

// RailVerifier is the slice of an orchestrator the worker needs.
type RailVerifier interface {
	Rail() domain.Rail
	Verify(ctx context.Context, txn *domain.Transaction) (*usecase.SettlementResult, error)
}

// ReconcileWorker re-verifies PENDING deposits whose confirmation the
// client never polled for and whose webhook never arrived.
type ReconcileWorker struct {
	ledger   repository.LedgerRepository
	rails    []RailVerifier
	cfg      config.ReconcileConfig
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewReconcileWorker(
	ledger repository.LedgerRepository,
	rails []RailVerifier,
	cfg config.ReconcileConfig,
	logger *zap.Logger,
) *ReconcileWorker {
	return &ReconcileWorker{
		ledger:   ledger,
		rails:    rails,
		cfg:      cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start blocks until Stop is called or ctx is done.
func (w *ReconcileWorker) Start(ctx context.Context) {
	w.logger.Info("Starting reconcile worker",
		zap.Duration("interval", w.cfg.Interval),
		zap.Duration("min_age", w.cfg.MinAge),
		zap.Int("batch_size", w.cfg.BatchSize))

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)

		case <-w.stopChan:
			w.logger.Info("Stopping reconcile worker")
			return

		case <-ctx.Done():
			w.logger.Info("Context cancelled, stopping reconcile worker")
			return
		}
	}
}

func (w *ReconcileWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// RunOnce makes one verification pass over every rail and returns how many
// transactions were settled.
func (w *ReconcileWorker) RunOnce(ctx context.Context) int {
	cutoff := w.now().Add(-w.cfg.MinAge)
	settled := 0

	for _, rail := range w.rails {
		pending, err := w.ledger.ListPending(ctx, rail.Rail(), cutoff, w.cfg.BatchSize)
		if err != nil {
			w.logger.Error("Failed to list pending transactions",
				zap.String("rail", string(rail.Rail())),
				zap.Error(err))
			continue
		}

		for _, txn := range pending {
			if ctx.Err() != nil {
				return settled
			}

			res, err := rail.Verify(ctx, txn)
			if err != nil {
				w.logger.Warn("Reconcile verification failed",
					zap.String("reference", txn.Reference),
					zap.String("rail", string(txn.Rail)),
					zap.Error(err))
				continue
			}
			if res.Status {
				settled++
				metrics.Reconciled.WithLabelValues(string(rail.Rail())).Inc()
			}
		}

		if len(pending) > 0 {
			w.logger.Info("Reconcile pass finished",
				zap.String("rail", string(rail.Rail())),
				zap.Int("checked", len(pending)),
				zap.Int("settled", settled))
		}
	}
	return settled
}
