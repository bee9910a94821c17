// internal/usecase/wallet_uc.go
package usecase

import (
	"context"

	"wallet-service/internal/cache"
	"wallet-service/internal/domain"
	"wallet-service/internal/repository"

	"go.uber.org/zap"
)

type WalletUsecase struct {
	wallets  repository.WalletRepository
	ledger   repository.LedgerRepository
	cards    repository.CardRepository
	balances cache.BalanceCache
	logger   *zap.Logger
}

func NewWalletUsecase(deps Deps) *WalletUsecase {
	deps = deps.withDefaults()
	return &WalletUsecase{
		wallets:  deps.Wallets,
		ledger:   deps.Ledger,
		cards:    deps.Cards,
		balances: deps.Balances,
		logger:   deps.Logger,
	}
}

// Balance serves from cache when possible. Cache errors fall through to
// the repository. A miss is filled from the repository and checked again
// afterwards so a concurrent settlement never leaves a stale entry behind.
func (uc *WalletUsecase) Balance(ctx context.Context, userID string) (*domain.BalanceView, error) {
	if bal, ok, err := uc.balances.Get(ctx, userID); err == nil && ok {
		return &domain.BalanceView{Balance: bal}, nil
	} else if err != nil {
		uc.logger.Warn("balance cache read failed", zap.String("user_id", userID), zap.Error(err))
	}

	wallet, err := uc.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := uc.balances.Set(ctx, userID, wallet.Balance); err != nil {
		uc.logger.Warn("balance cache write failed", zap.String("user_id", userID), zap.Error(err))
		return &domain.BalanceView{Balance: wallet.Balance}, nil
	}

	// A wallet change that committed after the read above may already have
	// invalidated the key, so re-read and drop the entry if it went stale.
	current, err := uc.wallets.GetByUserID(ctx, userID)
	if err == nil && current.Balance.Equal(wallet.Balance) {
		return &domain.BalanceView{Balance: wallet.Balance}, nil
	}
	if invErr := uc.balances.Invalidate(ctx, userID); invErr != nil {
		uc.logger.Warn("failed to invalidate cached balance", zap.String("user_id", userID), zap.Error(invErr))
	}
	if err != nil {
		return &domain.BalanceView{Balance: wallet.Balance}, nil
	}
	return &domain.BalanceView{Balance: current.Balance}, nil
}

func (uc *WalletUsecase) Wallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return uc.wallets.GetByUserID(ctx, userID)
}

func (uc *WalletUsecase) Transactions(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	return uc.ledger.ListUserTransactions(ctx, userID, limit, offset)
}

func (uc *WalletUsecase) Transaction(ctx context.Context, userID, reference string) (*domain.Transaction, error) {
	return uc.ledger.GetUserTransaction(ctx, userID, reference)
}

func (uc *WalletUsecase) Cards(ctx context.Context, userID string) ([]*domain.Card, error) {
	return uc.cards.ListByUser(ctx, userID)
}

func (uc *WalletUsecase) Card(ctx context.Context, userID, id string) (*domain.Card, error) {
	return uc.cards.GetByID(ctx, userID, id)
}

func (uc *WalletUsecase) SetCardKeep(ctx context.Context, userID, id string, keep bool) (*domain.Card, error) {
	return uc.cards.UpdateKeep(ctx, userID, id, keep)
}

func (uc *WalletUsecase) DeleteCard(ctx context.Context, userID, id string) error {
	if err := uc.cards.Delete(ctx, userID, id); err != nil {
		return err
	}
	uc.logger.Info("card removed", zap.String("user_id", userID), zap.String("card_id", id))
	return nil
}
