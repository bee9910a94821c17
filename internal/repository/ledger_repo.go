// internal/repository/ledger_repo.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `reference, user_id, amount, type, status, rail, created_at, updated_at, settled_at`

type ledgerRepo struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (reference, user_id, amount, type, status, rail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		txn.Reference,
		txn.UserID,
		txn.Amount,
		txn.Type,
		txn.Status,
		txn.Rail,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s already exists: %w", txn.Reference, err)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepo) GetTransaction(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE reference = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, reference))
}

func (r *ledgerRepo) GetUserTransaction(ctx context.Context, userID, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE reference = $1 AND user_id = $2`
	return scanTransaction(r.db.QueryRow(ctx, query, reference, userID))
}

func (r *ledgerRepo) ListUserTransactions(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	limit, offset = NormalizePage(limit, offset)
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, reference DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryTransactions(ctx, query, userID, limit, offset)
}

func (r *ledgerRepo) ListPending(ctx context.Context, rail domain.Rail, createdBefore time.Time, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE status = 'PENDING' AND rail = $1 AND created_at <= $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	return r.queryTransactions(ctx, query, rail, createdBefore, limit)
}

func (r *ledgerRepo) Settle(ctx context.Context, reference string, card *domain.Card) (*SettleResult, error) {
	var result *SettleResult

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		txn, err := scanTransaction(tx.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM wallet_transactions WHERE reference = $1 FOR UPDATE`,
			reference,
		))
		if err != nil {
			return err
		}

		if txn.IsSettled() {
			result = &SettleResult{Transaction: txn}
			return nil
		}

		wallet, err := creditWallet(ctx, tx, txn.UserID, txn.Amount)
		if err != nil {
			return err
		}

		settled, err := scanTransaction(tx.QueryRow(ctx, `
			UPDATE wallet_transactions
			SET status = 'SUCCESS', settled_at = NOW(), updated_at = NOW()
			WHERE reference = $1
			RETURNING `+transactionColumns,
			reference,
		))
		if err != nil {
			return err
		}

		cardSaved := false
		if card != nil {
			card.UserID = txn.UserID
			if cardSaved, err = insertCard(ctx, tx, card); err != nil {
				return err
			}
		}

		result = &SettleResult{
			Transaction: settled,
			Wallet:      wallet,
			Credited:    true,
			CardSaved:   cardSaved,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to settle transaction %s: %w", reference, err)
	}
	return result, nil
}

func (r *ledgerRepo) MarkUnsettled(ctx context.Context, reference string, status domain.TransactionStatus) (*domain.Transaction, bool, error) {
	var (
		result  *domain.Transaction
		changed bool
	)

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		current, err := scanTransaction(tx.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM wallet_transactions WHERE reference = $1 FOR UPDATE`,
			reference,
		))
		if err != nil {
			return err
		}

		move, err := UnsettledTransition(current, status)
		if err != nil {
			return err
		}
		if !move {
			result = current
			return nil
		}

		result, err = scanTransaction(tx.QueryRow(ctx, `
			UPDATE wallet_transactions
			SET status = $2, updated_at = NOW()
			WHERE reference = $1
			RETURNING `+transactionColumns,
			reference, status,
		))
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

func (r *ledgerRepo) queryTransactions(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]*domain.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := row.Scan(
		&txn.Reference,
		&txn.UserID,
		&txn.Amount,
		&txn.Type,
		&txn.Status,
		&txn.Rail,
		&txn.CreatedAt,
		&txn.UpdatedAt,
		&txn.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &txn, nil
}
