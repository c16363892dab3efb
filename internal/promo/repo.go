package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framecraft/backend-store/internal/pricing"
)

// ErrCouponNotFound indicates no coupon matches the supplied code.
var ErrCouponNotFound = errors.New("coupon not found")

// ErrRuleNotFound indicates the pricing rule does not exist.
var ErrRuleNotFound = errors.New("pricing rule not found")

// Repo provides SQL access to pricing rules and coupons. Rules and
// coupons are admin-written, engine-read; the only pricing-path write is
// the conditional redemption increment.
type Repo struct {
	Pool *pgxpool.Pool
}

const ruleColumns = `id, name, kind, value, target_type, min_order_value, start_date, end_date, is_active, sort_order`

// ListActiveRules returns every enabled rule ordered by sort_order. Window
// and threshold checks stay in the engine so a quote carries a consistent
// notion of "now".
func (r *Repo) ListActiveRules(ctx context.Context) ([]pricing.Rule, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("promo repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+ruleColumns+` FROM pricing_rules WHERE is_active ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListRules returns all rules for the studio table, active or not.
func (r *Repo) ListRules(ctx context.Context) ([]pricing.Rule, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("promo repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+ruleColumns+` FROM pricing_rules ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// CreateRule inserts a rule and returns it with its generated id.
func (r *Repo) CreateRule(ctx context.Context, rule pricing.Rule) (pricing.Rule, error) {
	if r == nil || r.Pool == nil {
		return pricing.Rule{}, errors.New("promo repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO pricing_rules (name, kind, value, target_type, min_order_value, start_date, end_date, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+ruleColumns,
		rule.Name, string(rule.Kind), rule.Value, rule.TargetType, rule.MinOrderValue,
		toTimestamptz(rule.StartDate), toTimestamptz(rule.EndDate), rule.IsActive, rule.SortOrder,
	)
	return scanRule(row)
}

// UpdateRule replaces a rule's fields.
func (r *Repo) UpdateRule(ctx context.Context, rule pricing.Rule) (pricing.Rule, error) {
	if r == nil || r.Pool == nil {
		return pricing.Rule{}, errors.New("promo repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		UPDATE pricing_rules
		SET name = $2, kind = $3, value = $4, target_type = $5, min_order_value = $6,
		    start_date = $7, end_date = $8, is_active = $9, sort_order = $10, updated_at = now()
		WHERE id = $1
		RETURNING `+ruleColumns,
		rule.ID, rule.Name, string(rule.Kind), rule.Value, rule.TargetType, rule.MinOrderValue,
		toTimestamptz(rule.StartDate), toTimestamptz(rule.EndDate), rule.IsActive, rule.SortOrder,
	)
	updated, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return pricing.Rule{}, ErrRuleNotFound
	}
	return updated, err
}

// DeleteRule removes a rule by id.
func (r *Repo) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.Pool == nil {
		return errors.New("promo repo not configured")
	}
	tag, err := r.Pool.Exec(ctx, `DELETE FROM pricing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

const couponColumns = `id, code, kind, value, min_order_value, usage_limit, used_count, start_date, end_date, is_active`

// GetCouponByCode fetches a coupon by its exact code.
func (r *Repo) GetCouponByCode(ctx context.Context, code string) (pricing.Coupon, error) {
	if r == nil || r.Pool == nil {
		return pricing.Coupon{}, errors.New("promo repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, strings.TrimSpace(code))
	coupon, err := scanCoupon(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return pricing.Coupon{}, ErrCouponNotFound
	}
	return coupon, err
}

// ListCoupons returns all coupons for the studio table.
func (r *Repo) ListCoupons(ctx context.Context) ([]pricing.Coupon, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("promo repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()
	var coupons []pricing.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

// CreateCoupon inserts a coupon.
func (r *Repo) CreateCoupon(ctx context.Context, c pricing.Coupon) (pricing.Coupon, error) {
	if r == nil || r.Pool == nil {
		return pricing.Coupon{}, errors.New("promo repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO coupons (code, kind, value, min_order_value, usage_limit, used_count, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)
		RETURNING `+couponColumns,
		strings.TrimSpace(c.Code), string(c.Kind), c.Value, c.MinOrderValue,
		toInt4(c.UsageLimit), toTimestamptz(c.StartDate), toTimestamptz(c.EndDate), c.IsActive,
	)
	return scanCoupon(row)
}

// UpdateCoupon replaces a coupon's configuration. used_count is not
// admin-writable; redemption owns it.
func (r *Repo) UpdateCoupon(ctx context.Context, c pricing.Coupon) (pricing.Coupon, error) {
	if r == nil || r.Pool == nil {
		return pricing.Coupon{}, errors.New("promo repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		UPDATE coupons
		SET kind = $2, value = $3, min_order_value = $4, usage_limit = $5,
		    start_date = $6, end_date = $7, is_active = $8, updated_at = now()
		WHERE code = $1
		RETURNING `+couponColumns,
		strings.TrimSpace(c.Code), string(c.Kind), c.Value, c.MinOrderValue,
		toInt4(c.UsageLimit), toTimestamptz(c.StartDate), toTimestamptz(c.EndDate), c.IsActive,
	)
	updated, err := scanCoupon(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return pricing.Coupon{}, ErrCouponNotFound
	}
	return updated, err
}

// DeleteCoupon removes a coupon by code.
func (r *Repo) DeleteCoupon(ctx context.Context, code string) error {
	if r == nil || r.Pool == nil {
		return errors.New("promo repo not configured")
	}
	tag, err := r.Pool.Exec(ctx, `DELETE FROM coupons WHERE code = $1`, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// Redeem performs the conditional usage increment inside the caller's
// transaction. The guard and the increment share one statement so a
// limited coupon cannot oversell under concurrent settlements. Returns
// false when the limit was already exhausted.
func (r *Repo) Redeem(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errors.New("redeem requires a transaction")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`,
		couponID,
	)
	if err != nil {
		return false, fmt.Errorf("redeem coupon: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanRules(rows pgx.Rows) ([]pricing.Rule, error) {
	var rules []pricing.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func scanRule(row pgx.Row) (pricing.Rule, error) {
	var (
		rule       pricing.Rule
		kind       string
		start, end pgtype.Timestamptz
	)
	err := row.Scan(&rule.ID, &rule.Name, &kind, &rule.Value, &rule.TargetType,
		&rule.MinOrderValue, &start, &end, &rule.IsActive, &rule.SortOrder)
	if err != nil {
		return pricing.Rule{}, err
	}
	rule.Kind = pricing.RuleKind(kind)
	rule.StartDate = fromTimestamptz(start)
	rule.EndDate = fromTimestamptz(end)
	return rule, nil
}

func scanCoupon(row pgx.Row) (pricing.Coupon, error) {
	var (
		c          pricing.Coupon
		kind       string
		limit      pgtype.Int4
		start, end pgtype.Timestamptz
	)
	err := row.Scan(&c.ID, &c.Code, &kind, &c.Value, &c.MinOrderValue,
		&limit, &c.UsedCount, &start, &end, &c.IsActive)
	if err != nil {
		return pricing.Coupon{}, err
	}
	c.Kind = pricing.CouponKind(kind)
	if limit.Valid {
		v := limit.Int32
		c.UsageLimit = &v
	}
	c.StartDate = fromTimestamptz(start)
	c.EndDate = fromTimestamptz(end)
	return c, nil
}

func toInt4(v *int32) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *v, Valid: true}
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromTimestamptz(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
