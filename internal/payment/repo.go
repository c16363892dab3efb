package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no payment row matches the lookup.
var ErrNotFound = errors.New("payment not found")

// Payment is one intent opened against a gateway for an order.
type Payment struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	Provider    string          `json:"provider"`
	Status      string          `json:"status"`
	Amount      int64           `json:"amount"`
	Reference   string          `json:"reference,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Repo provides SQL access to payments.
type Repo struct {
	Pool *pgxpool.Pool
}

const paymentColumns = `id, order_id, provider, status, amount, reference, redirect_url, payload, expires_at, created_at`

// Create inserts a pending payment intent.
func (r *Repo) Create(ctx context.Context, p Payment) (Payment, error) {
	if r == nil || r.Pool == nil {
		return Payment{}, errors.New("payment repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO payments (order_id, provider, status, amount, reference, redirect_url, payload, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+paymentColumns,
		p.OrderID, p.Provider, p.Status, p.Amount, p.Reference, p.RedirectURL, p.Payload, toTimestamptz(p.ExpiresAt),
	)
	return scanPayment(row)
}

// GetLatestByOrder returns the most recent payment for an order.
func (r *Repo) GetLatestByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	if r == nil || r.Pool == nil {
		return Payment{}, errors.New("payment repo not configured")
	}
	row := r.Pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`,
		orderID,
	)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	return p, err
}

// UpdateStatus records a status transition inside the settlement
// transaction, keeping the provider's last payload for audit.
func (r *Repo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, payload []byte) error {
	if tx == nil {
		return errors.New("payment update requires a transaction")
	}
	_, err := tx.Exec(ctx,
		`UPDATE payments SET status = $2, payload = $3, updated_at = now() WHERE id = $1`,
		id, status, payload,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

func scanPayment(row pgx.Row) (Payment, error) {
	var (
		p         Payment
		reference pgtype.Text
		redirect  pgtype.Text
		expiresAt pgtype.Timestamptz
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.Status, &p.Amount,
		&reference, &redirect, &p.Payload, &expiresAt, &p.CreatedAt)
	if err != nil {
		return Payment{}, err
	}
	if reference.Valid {
		p.Reference = reference.String
	}
	if redirect.Valid {
		p.RedirectURL = redirect.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		p.ExpiresAt = &t
	}
	return p, nil
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
