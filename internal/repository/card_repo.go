// internal/repository/card_repo.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"wallet-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cardColumns = `id::text, user_id, signature, type, last_four, exp_month, exp_year,
	authorization_code, data, keep, is_active, created_at, updated_at`

type cardRepo struct {
	db *pgxpool.Pool
}

func NewCardRepository(db *pgxpool.Pool) CardRepository {
	return &cardRepo{db: db}
}

func (r *cardRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := make([]*domain.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (r *cardRepo) GetByID(ctx context.Context, userID, id string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id::text = $1 AND user_id = $2 AND is_active`
	return scanCard(r.db.QueryRow(ctx, query, id, userID))
}

func (r *cardRepo) GetBySignature(ctx context.Context, userID, signature string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE signature = $1 AND user_id = $2 AND is_active`
	return scanCard(r.db.QueryRow(ctx, query, signature, userID))
}

// UpdateKeep changes the only user-writable card field.
func (r *cardRepo) UpdateKeep(ctx context.Context, userID, id string, keep bool) (*domain.Card, error) {
	query := `
		UPDATE cards SET keep = $3, updated_at = NOW()
		WHERE id::text = $1 AND user_id = $2 AND is_active
		RETURNING ` + cardColumns
	return scanCard(r.db.QueryRow(ctx, query, id, userID, keep))
}

func (r *cardRepo) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE cards SET is_active = FALSE, updated_at = NOW()
		WHERE id::text = $1 AND user_id = $2 AND is_active`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCardNotFound
	}
	return nil
}

// insertCard stores card unless the user already holds an active card
// with the same signature. It reports whether a row was written.
func insertCard(ctx context.Context, tx pgx.Tx, card *domain.Card) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO cards (
			id, user_id, signature, type, last_four, exp_month, exp_year,
			authorization_code, data, keep, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		ON CONFLICT (user_id, signature) WHERE is_active DO NOTHING`,
		card.ID,
		card.UserID,
		card.Signature,
		card.Type,
		card.LastFour,
		card.ExpMonth,
		card.ExpYear,
		card.AuthorizationCode,
		[]byte(card.Data),
		card.Keep,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save card: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var (
		card domain.Card
		data []byte
	)
	err := row.Scan(
		&card.ID,
		&card.UserID,
		&card.Signature,
		&card.Type,
		&card.LastFour,
		&card.ExpMonth,
		&card.ExpYear,
		&card.AuthorizationCode,
		&data,
		&card.Keep,
		&card.IsActive,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	card.Data = data
	return &card, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
