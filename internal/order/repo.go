package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no order matches the lookup.
var ErrNotFound = errors.New("order not found")

// Repo provides SQL access to orders.
type Repo struct {
	Pool *pgxpool.Pool
}

const orderColumns = `id, number, email, customer_name, phone, shipping_address, bundles, items_count,
	subtotal, bundle_discount, rule_discount, coupon_discount, total, currency,
	coupon_id, coupon_code, status, payment_provider, payment_ref, created_at, paid_at`

// Create inserts the order inside the caller's checkout transaction.
func (r *Repo) Create(ctx context.Context, tx pgx.Tx, o Order) (Order, error) {
	if tx == nil {
		return Order{}, errors.New("order create requires a transaction")
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO orders (number, email, customer_name, phone, shipping_address, bundles, items_count,
			subtotal, bundle_discount, rule_discount, coupon_discount, total, currency,
			coupon_id, coupon_code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+orderColumns,
		o.Number, strings.ToLower(strings.TrimSpace(o.Email)), o.CustomerName, o.Phone,
		o.ShippingAddress, o.Bundles, o.ItemsCount,
		o.Subtotal, o.BundleDiscount, o.RuleDiscount, o.CouponDiscount, o.Total, o.Currency,
		toUUID(o.CouponID), o.CouponCode, string(o.Status),
	)
	return scanOrder(row)
}

// GetByNumberAndEmail is the guest lookup: both values must match.
func (r *Repo) GetByNumberAndEmail(ctx context.Context, number, email string) (Order, error) {
	if r == nil || r.Pool == nil {
		return Order{}, errors.New("order repo not configured")
	}
	row := r.Pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE number = $1 AND email = $2`,
		strings.TrimSpace(number), strings.ToLower(strings.TrimSpace(email)),
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// GetByNumber fetches an order by its public number, for webhook matching.
func (r *Repo) GetByNumber(ctx context.Context, number string) (Order, error) {
	if r == nil || r.Pool == nil {
		return Order{}, errors.New("order repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, strings.TrimSpace(number))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// GetByID fetches an order by id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Order, error) {
	if r == nil || r.Pool == nil {
		return Order{}, errors.New("order repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// List returns a page of orders for the studio, newest first, optionally
// filtered by status.
func (r *Repo) List(ctx context.Context, status Status, page, limit int) ([]Order, int64, error) {
	if r == nil || r.Pool == nil {
		return nil, 0, errors.New("order repo not configured")
	}
	where := ""
	args := []any{}
	if status != "" {
		args = append(args, string(status))
		where = "WHERE status = $1"
	}
	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT count(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// MarkPaid flips pending_payment to paid inside the settlement
// transaction, recording the provider and its payment reference. Returns
// false when the order was not pending, which makes webhook replays
// harmless.
func (r *Repo) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, provider, paymentRef string) (bool, error) {
	if tx == nil {
		return false, errors.New("mark paid requires a transaction")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, payment_provider = $3, payment_ref = $4, paid_at = now(), updated_at = now()
		WHERE id = $1 AND status = $5`,
		id, string(StatusPaid), provider, paymentRef, string(StatusPendingPayment),
	)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetStatus fetches only the status for transition checks.
func (r *Repo) GetStatus(ctx context.Context, id uuid.UUID) (Status, error) {
	if r == nil || r.Pool == nil {
		return "", errors.New("order repo not configured")
	}
	var s string
	err := r.Pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return Status(s), err
}

// UpdateStatus applies a transition conditioned on the expected current
// status so concurrent studio edits cannot race past each other.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	if r == nil || r.Pool == nil {
		return false, errors.New("order repo not configured")
	}
	tag, err := r.Pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		id, string(to), string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o        Order
		status   string
		coupon   pgtype.UUID
		code     pgtype.Text
		provider pgtype.Text
		ref      pgtype.Text
		phone    pgtype.Text
		paidAt   pgtype.Timestamptz
	)
	err := row.Scan(&o.ID, &o.Number, &o.Email, &o.CustomerName, &phone, &o.ShippingAddress,
		&o.Bundles, &o.ItemsCount, &o.Subtotal, &o.BundleDiscount, &o.RuleDiscount,
		&o.CouponDiscount, &o.Total, &o.Currency, &coupon, &code, &status,
		&provider, &ref, &o.CreatedAt, &paidAt)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	if phone.Valid {
		o.Phone = phone.String
	}
	if coupon.Valid {
		id := uuid.UUID(coupon.Bytes)
		o.CouponID = &id
	}
	if code.Valid {
		v := code.String
		o.CouponCode = &v
	}
	if provider.Valid {
		v := provider.String
		o.PaymentProvider = &v
	}
	if ref.Valid {
		v := ref.String
		o.PaymentRef = &v
	}
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	return o, nil
}

func toUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}
