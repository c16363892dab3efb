package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayVerifyWebhook(t *testing.T) {
	p := Razorpay{KeyID: "rzp_test_key", KeySecret: "whsec"}
	body := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_ABC123",
			"amount": 120000,
			"status": "captured",
			"notes": {"order_number": "PF-20250301-AB12CD34"}
		}}}
	}`)

	r := httptest.NewRequest("POST", "/webhooks/payment/razorpay", strings.NewReader(string(body)))
	r.Header.Set("X-Razorpay-Signature", sign("whsec", body))
	result, err := p.VerifyWebhook(r, body)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid result, got %v", result.Err)
	}
	if result.OrderNumber != "PF-20250301-AB12CD34" {
		t.Fatalf("order number = %q", result.OrderNumber)
	}
	if result.Amount != 120000 {
		t.Fatalf("amount = %d", result.Amount)
	}
	if result.Status != "PAID" {
		t.Fatalf("status = %q", result.Status)
	}
	if result.Reference != "pay_ABC123" {
		t.Fatalf("reference = %q", result.Reference)
	}
}

func TestRazorpayRejectsBadSignature(t *testing.T) {
	p := Razorpay{KeySecret: "whsec"}
	body := []byte(`{"event":"payment.captured"}`)
	r := httptest.NewRequest("POST", "/webhooks/payment/razorpay", strings.NewReader(string(body)))
	r.Header.Set("X-Razorpay-Signature", "deadbeef")
	result, err := p.VerifyWebhook(r, body)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Valid {
		t.Fatal("tampered signature must not verify")
	}
}

func TestRazorpayFailedEvent(t *testing.T) {
	p := Razorpay{KeySecret: "whsec"}
	body := []byte(`{
		"event": "payment.failed",
		"payload": {"payment": {"entity": {
			"id": "pay_DEF456",
			"amount": 50000,
			"status": "failed",
			"notes": {"order_number": "PF-20250301-XY99ZZ11"}
		}}}
	}`)
	r := httptest.NewRequest("POST", "/webhooks/payment/razorpay", strings.NewReader(string(body)))
	r.Header.Set("X-Razorpay-Signature", sign("whsec", body))
	result, _ := p.VerifyWebhook(r, body)
	if !result.Valid || result.Status != "FAILED" {
		t.Fatalf("want valid FAILED, got valid=%v status=%q", result.Valid, result.Status)
	}
}

func TestCashfreeVerifyWebhookConvertsRupees(t *testing.T) {
	p := Cashfree{AppID: "app", SecretKey: "cfsec"}
	body := []byte(`{
		"type": "PAYMENT_SUCCESS_WEBHOOK",
		"data": {
			"order": {"order_id": "PF-20250301-AB12CD34"},
			"payment": {"cf_payment_id": 991, "payment_amount": 1200.00, "payment_status": "SUCCESS"}
		}
	}`)
	r := httptest.NewRequest("POST", "/webhooks/payment/cashfree", strings.NewReader(string(body)))
	r.Header.Set("x-webhook-signature", sign("cfsec", body))
	result, err := p.VerifyWebhook(r, body)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid result, got %v", result.Err)
	}
	if result.Amount != 120000 {
		t.Fatalf("amount paise = %d, want 120000", result.Amount)
	}
	if result.Status != "PAID" {
		t.Fatalf("status = %q", result.Status)
	}
	if result.Reference != "991" {
		t.Fatalf("reference = %q", result.Reference)
	}
}

func TestCashfreeStatusMapping(t *testing.T) {
	cases := map[string]string{
		"SUCCESS":      "PAID",
		"FAILED":       "FAILED",
		"USER_DROPPED": "FAILED",
		"EXPIRED":      "EXPIRED",
		"PENDING":      "PENDING",
		"":             "PENDING",
	}
	for in, want := range cases {
		if got := normaliseCashfreeStatus(in); got != want {
			t.Fatalf("normaliseCashfreeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateIntentReferences(t *testing.T) {
	ctx := context.Background()
	rz, err := Razorpay{KeySecret: "s"}.CreateIntent(ctx, IntentRequest{OrderNumber: "PF-20250301-AB12CD34", ExpiresAtSec: 900})
	if err != nil {
		t.Fatalf("razorpay intent: %v", err)
	}
	if !strings.HasPrefix(rz.Reference, "order_") || strings.Contains(rz.Reference, "-") {
		t.Fatalf("unexpected razorpay reference: %s", rz.Reference)
	}
	cf, err := Cashfree{SecretKey: "s"}.CreateIntent(ctx, IntentRequest{OrderNumber: "PF-20250301-AB12CD34", ExpiresAtSec: 900})
	if err != nil {
		t.Fatalf("cashfree intent: %v", err)
	}
	if !strings.HasPrefix(cf.Reference, "cf_") {
		t.Fatalf("unexpected cashfree reference: %s", cf.Reference)
	}
	if _, err := (Razorpay{}).CreateIntent(ctx, IntentRequest{}); err == nil {
		t.Fatal("empty order number must error")
	}
}
