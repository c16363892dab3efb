package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/framecraft/backend-store/internal/obs"
	"github.com/framecraft/backend-store/internal/order"
)

// Service coordinates payment intents across the configured gateways.
type Service struct {
	Payments        *Repo
	Providers       map[string]Provider
	DefaultProvider string
	IntentTTL       time.Duration
	CallbackBaseURL string
	Currency        string
}

// CreateIntent opens (or reuses) a payment intent for a pending order.
// A still-valid pending intent is returned as is so a shopper refreshing
// the payment page does not stack gateway orders.
func (s *Service) CreateIntent(ctx context.Context, o order.Order, providerName string) (Payment, error) {
	if s == nil || s.Payments == nil || len(s.Providers) == 0 {
		return Payment{}, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.CreateIntent")
	defer span.End()

	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		name = s.DefaultProvider
	}
	provider, ok := s.Providers[name]
	if !ok {
		return Payment{}, fmt.Errorf("unknown payment provider %q", name)
	}
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("payment.provider", name),
			attribute.String("payment.intent.result", result),
			attribute.String("order.number", o.Number),
		)
		if obs.PaymentIntentTotal != nil {
			obs.PaymentIntentTotal.WithLabelValues(name, result).Inc()
		}
	}()

	if o.Status != order.StatusPendingPayment {
		return Payment{}, fmt.Errorf("order status %s does not allow new intents", o.Status)
	}

	existing, err := s.Payments.GetLatestByOrder(ctx, o.ID)
	if err == nil {
		if existing.Status == "PAID" {
			return Payment{}, errors.New("order already paid")
		}
		if existing.Status == "PENDING" && (existing.ExpiresAt == nil || existing.ExpiresAt.After(time.Now())) {
			result = "reused"
			return existing, nil
		}
	} else if !errors.Is(err, ErrNotFound) {
		return Payment{}, err
	}

	ttl := s.IntentTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	req := IntentRequest{
		OrderNumber:     o.Number,
		Amount:          o.Total,
		Currency:        s.Currency,
		CustomerEmail:   o.Email,
		CallbackBaseURL: s.CallbackBaseURL,
		ExpiresAtSec:    int(ttl.Seconds()),
	}
	resp, err := provider.CreateIntent(ctx, req)
	if err != nil {
		span.RecordError(err)
		return Payment{}, err
	}
	expiresAt := time.Now().Add(ttl)
	if resp.ExpiresAt > 0 {
		expiresAt = time.Unix(resp.ExpiresAt, 0)
	}
	payload, _ := json.Marshal(map[string]any{"request": req, "response": resp})
	created, err := s.Payments.Create(ctx, Payment{
		OrderID:     o.ID,
		Provider:    name,
		Status:      "PENDING",
		Amount:      o.Total,
		Reference:   resp.Reference,
		RedirectURL: resp.RedirectURL,
		Payload:     payload,
		ExpiresAt:   &expiresAt,
	})
	if err != nil {
		return Payment{}, err
	}
	result = "success"
	return created, nil
}
