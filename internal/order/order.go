package order

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/framecraft/backend-store/internal/pricing"
)

// Status tracks an order through fulfilment.
type Status string

// Order statuses in rank order. canceled is terminal and reachable only
// from pending_payment.
const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusPacked         Status = "packed"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCanceled       Status = "canceled"
)

// Rank orders statuses for transition checks. Canceled ranks below
// everything so nothing can transition out of it.
func (s Status) Rank() int {
	switch s {
	case StatusPendingPayment:
		return 0
	case StatusPaid:
		return 1
	case StatusPacked:
		return 2
	case StatusShipped:
		return 3
	case StatusDelivered:
		return 4
	case StatusCanceled:
		return -1
	default:
		return -2
	}
}

// AdminTransitionAllowed reports whether the studio may move an order
// from current to target. Payment owns the pending→paid edge; the studio
// handles fulfilment and cancellation of unpaid orders.
func AdminTransitionAllowed(current, target Status) bool {
	if target == StatusCanceled {
		return current == StatusPendingPayment
	}
	switch target {
	case StatusPacked, StatusShipped, StatusDelivered:
		return current.Rank() >= StatusPaid.Rank() && target.Rank() == current.Rank()+1
	default:
		return false
	}
}

// Order is a guest purchase: contact details, the serialized bundle list
// the shopper checked out with, and the composed totals.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	Number          string          `json:"number"`
	Email           string          `json:"email"`
	CustomerName    string          `json:"customerName"`
	Phone           string          `json:"phone,omitempty"`
	ShippingAddress json.RawMessage `json:"shippingAddress,omitempty"`
	Bundles         json.RawMessage `json:"bundles"`
	ItemsCount      int             `json:"itemsCount"`
	Subtotal        pricing.Money   `json:"subtotal"`
	BundleDiscount  pricing.Money   `json:"bundleDiscount"`
	RuleDiscount    pricing.Money   `json:"ruleDiscount"`
	CouponDiscount  pricing.Money   `json:"couponDiscount"`
	Total           pricing.Money   `json:"total"`
	Currency        string          `json:"currency"`
	CouponID        *uuid.UUID      `json:"couponId,omitempty"`
	CouponCode      *string         `json:"couponCode,omitempty"`
	Status          Status          `json:"status"`
	PaymentProvider *string         `json:"paymentProvider,omitempty"`
	PaymentRef      *string         `json:"paymentRef,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
}

// NewNumber builds a human-quotable order number: date prefix plus a
// short random suffix. Uniqueness is enforced by the column constraint;
// collisions within a day are vanishingly rare at this volume.
func NewNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("PF-%s-%s", now.UTC().Format("20060102"), suffix)
}
