package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// Cashfree implements the Provider interface for a Cashfree payment-link
// integration. Cashfree reports decimal rupees on the wire; amounts are
// converted to paise at the boundary.
type Cashfree struct {
	AppID     string
	SecretKey string
	BaseURL   string
}

// Name implements Provider.
func (Cashfree) Name() string { return "cashfree" }

// CreateIntent builds a deterministic payment-link reference, mirroring
// the link the real API would return.
func (p Cashfree) CreateIntent(_ context.Context, req IntentRequest) (IntentResponse, error) {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return IntentResponse{}, errors.New("order number is required")
	}
	reference := fmt.Sprintf("cf_%s", strings.ReplaceAll(req.OrderNumber, "-", ""))
	host := strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if host == "" {
		host = "https://payments.cashfree.com"
	}
	expiresAt := time.Now().Add(time.Duration(req.ExpiresAtSec) * time.Second)
	return IntentResponse{
		Provider:    p.Name(),
		Reference:   reference,
		RedirectURL: fmt.Sprintf("%s/links/%s", host, reference),
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// VerifyWebhook validates the callback signature and normalises the payload.
func (p Cashfree) VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error) {
	expected := p.computeSignature(body)
	provided := strings.TrimSpace(r.Header.Get("x-webhook-signature"))
	if expected == "" || provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
		return WebhookVerifyResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}
	var payload struct {
		Type string `json:"type"`
		Data struct {
			Order struct {
				OrderID string `json:"order_id"`
			} `json:"order"`
			Payment struct {
				CfPaymentID   json.Number `json:"cf_payment_id"`
				PaymentAmount json.Number `json:"payment_amount"`
				PaymentStatus string      `json:"payment_status"`
			} `json:"payment"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}
	if payload.Data.Order.OrderID == "" {
		return WebhookVerifyResult{Valid: false, Err: errors.New("missing order id")}, nil
	}
	var amount int64
	if f, err := payload.Data.Payment.PaymentAmount.Float64(); err == nil {
		amount = int64(math.Round(f * 100))
	}
	return WebhookVerifyResult{
		Valid:           true,
		OrderNumber:     payload.Data.Order.OrderID,
		Amount:          amount,
		Status:          normaliseCashfreeStatus(payload.Data.Payment.PaymentStatus),
		Reference:       payload.Data.Payment.CfPaymentID.String(),
		ProviderPayload: body,
	}, nil
}

func (p Cashfree) computeSignature(body []byte) string {
	secret := strings.TrimSpace(p.SecretKey)
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func normaliseCashfreeStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS":
		return "PAID"
	case "FAILED", "USER_DROPPED", "CANCELLED":
		return "FAILED"
	case "EXPIRED":
		return "EXPIRED"
	default:
		return "PENDING"
	}
}
