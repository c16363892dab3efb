package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/framecraft/backend-store/internal/cart"
	"github.com/framecraft/backend-store/internal/events"
	"github.com/framecraft/backend-store/internal/obs"
	"github.com/framecraft/backend-store/internal/order"
	"github.com/framecraft/backend-store/internal/payment"
	"github.com/framecraft/backend-store/internal/pricing"
	"github.com/framecraft/backend-store/internal/promo"
)

// ErrEmptyCart rejects checkout and keeps quotes at zero for carts with
// no bundles.
var ErrEmptyCart = errors.New("cart is empty")

// Addr is the shipping address captured at checkout.
type Addr struct {
	ReceiverName string `json:"receiverName" validate:"required"`
	Phone        string `json:"phone"`
	Line1        string `json:"line1" validate:"required"`
	Line2        string `json:"line2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode" validate:"required"`
	Country      string `json:"country"`
}

// Input is the guest checkout payload.
type Input struct {
	CartID          string `json:"cartId" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Name            string `json:"name" validate:"required"`
	Phone           string `json:"phone"`
	Address         Addr   `json:"address"`
	CouponCode      string `json:"couponCode"`
	PaymentProvider string `json:"paymentProvider"`
}

// Quote is the server-side price calculation for a cart. A quote always
// succeeds for an existing cart; coupon problems surface as a zero
// discount plus a reason, never as a failed request.
type Quote struct {
	CartID         string                `json:"cartId"`
	ItemsCount     int                   `json:"itemsCount"`
	Subtotal       pricing.Money         `json:"subtotal"`
	BundleDiscount pricing.Money         `json:"bundleDiscount"`
	Total          pricing.Money         `json:"total"`
	AppliedDeals   []pricing.Deal        `json:"appliedDeals"`
	AppliedRules   []pricing.AppliedRule `json:"appliedRules"`
	RuleDiscount   pricing.Money         `json:"ruleDiscount"`
	Coupon         *pricing.Coupon       `json:"coupon,omitempty"`
	CouponDiscount pricing.Money         `json:"couponDiscount"`
	CouponApplied  bool                  `json:"couponApplied"`
	CouponReason   string                `json:"couponReason,omitempty"`
	FinalTotal     pricing.Money         `json:"finalTotal"`
}

// Output is the checkout response.
type Output struct {
	Order   order.Order      `json:"order"`
	Payment *payment.Payment `json:"payment,omitempty"`
}

// Service drives the pricing quote and the guest order creation.
type Service struct {
	Pool     *pgxpool.Pool
	Carts    *cart.Service
	Orders   *order.Repo
	Resolver *promo.Resolver
	Payments *payment.Service
	Events   *events.Bus
	Currency string
	Logger   *zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote computes the full server-side price breakdown for a cart.
func (s *Service) Quote(ctx context.Context, cartID, couponCode string) (Quote, error) {
	if s == nil || s.Carts == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	state, err := s.Carts.Get(ctx, cartID)
	if err != nil {
		return Quote{}, err
	}
	return s.quoteState(ctx, state, couponCode), nil
}

// quoteState prices an already-loaded cart. An empty cart short-circuits
// to zeros with nothing evaluated.
func (s *Service) quoteState(ctx context.Context, state cart.State, couponCode string) Quote {
	q := Quote{
		CartID:       state.ID,
		AppliedDeals: state.AppliedDeals(),
		AppliedRules: []pricing.AppliedRule{},
	}
	if len(state.Bundles) == 0 {
		s.countQuote("empty")
		return q
	}
	q.ItemsCount = state.ItemsCount()
	q.Subtotal = state.Subtotal()
	q.Total = state.Total()
	q.BundleDiscount = state.TotalDiscount()

	if s.Resolver != nil {
		applied, ruleDiscount := s.Resolver.ApplyRules(ctx, q.Total)
		if applied != nil {
			q.AppliedRules = applied
		}
		q.RuleDiscount = ruleDiscount

		if couponCode != "" {
			res := s.Resolver.ResolveCoupon(ctx, couponCode, q.Total)
			q.Coupon = res.Coupon
			q.CouponDiscount = res.Discount
			q.CouponReason = res.Reason
			q.CouponApplied = res.Discount > 0
		}
	}
	q.FinalTotal = pricing.FinalTotal(q.Total, q.RuleDiscount, q.CouponDiscount)

	switch {
	case couponCode == "":
		s.countQuote("none")
	case q.CouponApplied:
		s.countQuote("applied")
	default:
		s.countQuote("rejected")
	}
	return q
}

func (s *Service) countQuote(outcome string) {
	if obs.PricingQuoteTotal != nil {
		obs.PricingQuoteTotal.WithLabelValues(outcome).Inc()
	}
}

// Create prices the cart one final time server-side and persists the
// guest order with the composed total. The cart itself is left alone;
// the storefront clears it after a successful redirect.
func (s *Service) Create(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Pool == nil || s.Carts == nil || s.Orders == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	state, err := s.Carts.Get(ctx, in.CartID)
	if err != nil {
		s.countCheckout("cart_error")
		return Output{}, err
	}
	if len(state.Bundles) == 0 {
		s.countCheckout("empty_cart")
		return Output{}, ErrEmptyCart
	}
	quote := s.quoteState(ctx, state, in.CouponCode)

	bundles, err := json.Marshal(state.Bundles)
	if err != nil {
		return Output{}, fmt.Errorf("serialize bundles: %w", err)
	}
	address, err := json.Marshal(in.Address)
	if err != nil {
		return Output{}, fmt.Errorf("serialize address: %w", err)
	}

	o := order.Order{
		Number:          order.NewNumber(s.now()),
		Email:           in.Email,
		CustomerName:    in.Name,
		Phone:           in.Phone,
		ShippingAddress: address,
		Bundles:         bundles,
		ItemsCount:      quote.ItemsCount,
		Subtotal:        quote.Subtotal,
		BundleDiscount:  quote.BundleDiscount,
		RuleDiscount:    quote.RuleDiscount,
		CouponDiscount:  quote.CouponDiscount,
		Total:           quote.FinalTotal,
		Currency:        s.Currency,
		Status:          order.StatusPendingPayment,
	}
	if quote.CouponApplied && quote.Coupon != nil {
		o.CouponID = &quote.Coupon.ID
		code := quote.Coupon.Code
		o.CouponCode = &code
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := s.Orders.Create(ctx, tx, o)
	if err != nil {
		s.countCheckout("error")
		return Output{}, fmt.Errorf("create order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		s.countCheckout("error")
		return Output{}, err
	}
	s.countCheckout("success")

	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, created.ID, map[string]any{
			"orderNumber": created.Number,
			"email":       created.Email,
			"total":       created.Total,
		})
	}

	out := Output{Order: created}
	if s.Payments != nil {
		intent, err := s.Payments.CreateIntent(ctx, created, in.PaymentProvider)
		if err != nil {
			// The order stands; the shopper can retry payment from the
			// order page.
			if s.Logger != nil {
				s.Logger.Error().Err(err).Str("order", created.Number).Msg("payment intent failed")
			}
		} else {
			out.Payment = &intent
		}
	}
	return out, nil
}

func (s *Service) countCheckout(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}
