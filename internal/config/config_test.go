package config

import (
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/store",
		"REDIS_URL":    "redis://localhost:6379/0",
		"ADMIN_TOKEN":  "studio-secret",
		// Clear optional knobs so host environment cannot leak in.
		"PORT":               "",
		"APP_ENV":            "",
		"PAYMENT_PROVIDER":   "",
		"PAYMENT_INTENT_TTL": "",
		"CURRENCY_CODE":      "",
		"CART_TTL":           "",
		"WEBHOOK_REPLAY_TTL": "",
		"RATE_LIMIT_QUOTE":   "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("AppEnv = %q", cfg.AppEnv)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr())
	}
	if cfg.PaymentProvider != "razorpay" {
		t.Fatalf("PaymentProvider = %q", cfg.PaymentProvider)
	}
	if cfg.CurrencyCode != "INR" {
		t.Fatalf("CurrencyCode = %q", cfg.CurrencyCode)
	}
	if cfg.PaymentIntentTTL != 15*time.Minute {
		t.Fatalf("PaymentIntentTTL = %v", cfg.PaymentIntentTTL)
	}
	if cfg.CartTTL != 168*time.Hour {
		t.Fatalf("CartTTL = %v", cfg.CartTTL)
	}
	if cfg.RateLimitQuote != "60-M" {
		t.Fatalf("RateLimitQuote = %q", cfg.RateLimitQuote)
	}
}

func TestLoadRequiredValues(t *testing.T) {
	for _, missing := range []string{"DATABASE_URL", "REDIS_URL", "ADMIN_TOKEN"} {
		env := baseEnv()
		env[missing] = ""
		if _, err := LoadForTests(env); err == nil {
			t.Fatalf("expected error when %s is missing", missing)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "9999"
	env["PAYMENT_PROVIDER"] = "Cashfree"
	env["CURRENCY_CODE"] = "inr"
	env["WEBHOOK_REPLAY_TTL"] = "1h"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example, https://b.example"

	cfg, err := LoadForTests(env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr() != ":9999" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr())
	}
	if cfg.PaymentProvider != "cashfree" {
		t.Fatalf("PaymentProvider = %q", cfg.PaymentProvider)
	}
	if cfg.CurrencyCode != "INR" {
		t.Fatalf("CurrencyCode = %q", cfg.CurrencyCode)
	}
	if cfg.WebhookReplayTTL != time.Hour {
		t.Fatalf("WebhookReplayTTL = %v", cfg.WebhookReplayTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}
