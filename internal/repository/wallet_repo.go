// internal/repository/wallet_repo.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"wallet-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const walletColumns = `user_id, balance::text, created_at, updated_at`

type walletRepo struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.db.QueryRow(ctx, query, userID))
}

func (r *walletRepo) Fund(ctx context.Context, userID string, amount int64) (*domain.Wallet, error) {
	var wallet *domain.Wallet
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		wallet, err = creditWallet(ctx, tx, userID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *walletRepo) DeductAvailable(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Wallet, error) {
	if _, err := domain.ValidateDecimalAmount(amount); err != nil {
		return nil, err
	}

	var wallet *domain.Wallet
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		current, err := scanWallet(tx.QueryRow(ctx,
			`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil {
			return err
		}
		if !current.Covers(amount) {
			return domain.ErrInsufficientFunds
		}

		wallet, err = scanWallet(tx.QueryRow(ctx, `
			UPDATE wallets
			SET balance = balance - $2::text::numeric, updated_at = NOW()
			WHERE user_id = $1
			RETURNING `+walletColumns,
			userID, amount.String(),
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// creditWallet adds amount to the wallet inside tx. The row lock taken by
// the UPDATE serialises concurrent credits to the same wallet.
func creditWallet(ctx context.Context, tx pgx.Tx, userID string, amount int64) (*domain.Wallet, error) {
	if _, err := domain.ValidateIntegerAmount(amount); err != nil {
		return nil, err
	}

	return scanWallet(tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+walletColumns,
		userID, amount,
	))
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		wallet  domain.Wallet
		balance string
	)
	if err := row.Scan(&wallet.UserID, &balance, &wallet.CreatedAt, &wallet.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}

	b, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet balance %q: %w", balance, err)
	}
	wallet.Balance = b
	return &wallet, nil
}
