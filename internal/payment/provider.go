package payment

import (
	"context"
	"net/http"
)

// IntentRequest captures the information required to open a payment
// intent with a gateway.
type IntentRequest struct {
	OrderNumber     string
	Amount          int64
	Currency        string
	CustomerEmail   string
	CallbackBaseURL string
	ExpiresAtSec    int
}

// IntentResponse is the minimal information a gateway returns when
// creating an intent.
type IntentResponse struct {
	Provider    string
	Reference   string
	RedirectURL string
	ExpiresAt   int64
}

// WebhookVerifyResult contains the normalised data extracted from a
// webhook notification after signature verification.
type WebhookVerifyResult struct {
	Valid           bool
	OrderNumber     string
	Amount          int64
	Status          string
	Reference       string
	ProviderPayload []byte
	Err             error
}

// Provider abstracts the operations required from an upstream payment
// gateway.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error)
	VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error)
}
