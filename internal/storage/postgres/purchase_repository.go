package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lumi182/paygate/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

// PurchaseRepository persists the audit trail of verified purchases.
type PurchaseRepository struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepository(pool *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{pool: pool}
}

func (r *PurchaseRepository) CreatePurchase(ctx context.Context, p domain.Purchase) error {
	const stmt = `
INSERT INTO purchases (id, transaction_id, product, amount, currency, token_id, issued_at, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, stmt,
		p.ID, p.TransactionID, p.Product, p.Amount, p.Currency,
		p.TokenID, p.IssuedAt, p.ExpiresAt, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create purchase: duplicate token id %s: %w", p.TokenID, err)
		}
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

func (r *PurchaseRepository) MarkDelivered(ctx context.Context, tokenID string, at time.Time) error {
	const stmt = `UPDATE purchases SET delivered_at = $2 WHERE token_id = $1`

	tag, err := r.pool.Exec(ctx, stmt, tokenID, at)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

func (r *PurchaseRepository) GetByTokenID(ctx context.Context, tokenID string) (domain.Purchase, error) {
	const query = `
SELECT id, transaction_id, product, amount, currency, token_id, issued_at, expires_at, delivered_at, created_at
FROM purchases
WHERE token_id = $1`

	var p domain.Purchase
	err := r.pool.QueryRow(ctx, query, tokenID).Scan(
		&p.ID, &p.TransactionID, &p.Product, &p.Amount, &p.Currency,
		&p.TokenID, &p.IssuedAt, &p.ExpiresAt, &p.DeliveredAt, &p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Purchase{}, ErrPurchaseNotFound
		}
		return domain.Purchase{}, fmt.Errorf("get purchase: %w", err)
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
