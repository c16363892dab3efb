package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Razorpay implements the Provider interface for a Razorpay checkout
// integration. Amounts are paise end to end.
type Razorpay struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// Name implements Provider.
func (Razorpay) Name() string { return "razorpay" }

// CreateIntent issues a checkout-order style response without performing
// a network call. The real integration calls the orders API; the
// deterministic reference keeps the rest of the flow testable.
func (p Razorpay) CreateIntent(_ context.Context, req IntentRequest) (IntentResponse, error) {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return IntentResponse{}, errors.New("order number is required")
	}
	reference := fmt.Sprintf("order_%s", strings.ReplaceAll(req.OrderNumber, "-", ""))
	host := strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if host == "" {
		host = "https://api.razorpay.com"
	}
	expiresAt := time.Now().Add(time.Duration(req.ExpiresAtSec) * time.Second)
	return IntentResponse{
		Provider:    p.Name(),
		Reference:   reference,
		RedirectURL: fmt.Sprintf("%s/v1/checkout/embedded/%s", host, reference),
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// VerifyWebhook validates the webhook signature (hex HMAC-SHA256 of the
// raw body) and normalises the payload.
func (p Razorpay) VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error) {
	expected := p.computeSignature(body)
	provided := strings.TrimSpace(r.Header.Get("X-Razorpay-Signature"))
	if expected == "" || provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
		return WebhookVerifyResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}
	var payload struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID     string `json:"id"`
					Amount int64  `json:"amount"`
					Status string `json:"status"`
					Notes  struct {
						OrderNumber string `json:"order_number"`
					} `json:"notes"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}
	entity := payload.Payload.Payment.Entity
	if entity.Notes.OrderNumber == "" {
		return WebhookVerifyResult{Valid: false, Err: errors.New("missing order number")}, nil
	}
	return WebhookVerifyResult{
		Valid:           true,
		OrderNumber:     entity.Notes.OrderNumber,
		Amount:          entity.Amount,
		Status:          normaliseRazorpayStatus(payload.Event, entity.Status),
		Reference:       entity.ID,
		ProviderPayload: body,
	}, nil
}

func (p Razorpay) computeSignature(body []byte) string {
	secret := strings.TrimSpace(p.KeySecret)
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func normaliseRazorpayStatus(event, status string) string {
	switch strings.ToLower(strings.TrimSpace(event)) {
	case "payment.captured":
		return "PAID"
	case "payment.failed":
		return "FAILED"
	}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "captured":
		return "PAID"
	case "failed":
		return "FAILED"
	case "created", "authorized":
		return "PENDING"
	default:
		return "PENDING"
	}
}
