package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/framecraft/backend-store/internal/common"
	"github.com/framecraft/backend-store/internal/events"
	"github.com/framecraft/backend-store/internal/obs"
	"github.com/framecraft/backend-store/internal/order"
)

// TxBeginner opens the settlement transaction. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// OrderStore is the slice of the order repository the settlement path needs.
type OrderStore interface {
	GetByNumber(ctx context.Context, number string) (order.Order, error)
	MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, provider, paymentRef string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to order.Status) (bool, error)
}

// PaymentStore tracks intent rows during settlement.
type PaymentStore interface {
	GetLatestByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, payload []byte) error
}

// CouponRedeemer burns one coupon use inside the settlement transaction.
type CouponRedeemer interface {
	Redeem(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) (bool, error)
}

// Webhook handles payment gateway callbacks: signature verification,
// replay protection, settlement, and the one-shot coupon redemption.
type Webhook struct {
	DB        TxBeginner
	Orders    OrderStore
	Payments  PaymentStore
	Coupons   CouponRedeemer
	Providers map[string]Provider
	Replay    *redis.Client
	ReplayTTL time.Duration
	Events    *events.Bus
	Logger    *zerolog.Logger
}

// Handle processes POST /webhooks/payment/{provider}.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil || h.Orders == nil || h.Payments == nil || len(h.Providers) == 0 {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	outcome := "error"
	defer func() {
		if obs.PaymentWebhookTotal != nil {
			obs.PaymentWebhookTotal.WithLabelValues(providerKey, outcome).Inc()
		}
	}()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		outcome = "invalid_body"
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	result, err := provider.VerifyWebhook(r, body)
	if err != nil {
		outcome = "invalid"
		common.JSONError(w, http.StatusBadRequest, "WEBHOOK_INVALID", err.Error(), nil)
		return
	}
	if !result.Valid {
		outcome = "invalid_signature"
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("wh:%s:%s", providerKey, common.Sha256Hex(string(body)))
		fresh, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !fresh {
			outcome = "replay"
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}
	ctx := r.Context()
	ord, err := h.Orders.GetByNumber(ctx, result.OrderNumber)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			outcome = "order_not_found"
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "ORDER_FETCH_ERROR", err.Error(), nil)
		return
	}
	if result.Amount > 0 && result.Amount != ord.Total {
		outcome = "amount_mismatch"
		common.JSONError(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "provider amount mismatch", nil)
		return
	}
	pay, err := h.Payments.GetLatestByOrder(ctx, ord.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_FETCH_ERROR", err.Error(), nil)
		return
	}
	hasPayment := err == nil

	settled := false
	switch result.Status {
	case "PAID":
		tx, err := h.DB.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "TX_ERROR", err.Error(), nil)
			return
		}
		defer func() { _ = tx.Rollback(ctx) }()

		settled, err = h.Orders.MarkPaid(ctx, tx, ord.ID, providerKey, result.Reference)
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "ORDER_UPDATE_ERROR", err.Error(), nil)
			return
		}
		if settled && ord.CouponID != nil && h.Coupons != nil {
			redeemed, err := h.Coupons.Redeem(ctx, tx, *ord.CouponID)
			if err != nil {
				common.JSONError(w, http.StatusInternalServerError, "COUPON_REDEEM_ERROR", err.Error(), nil)
				return
			}
			redeemResult := "redeemed"
			if !redeemed {
				// The limit filled between quote and settlement. The
				// order keeps its quoted price; the counter just stops.
				redeemResult = "limit_exhausted"
				if h.Logger != nil {
					h.Logger.Warn().Str("order", ord.Number).Msg("coupon limit exhausted at settlement")
				}
			}
			if obs.CouponRedemptionTotal != nil {
				obs.CouponRedemptionTotal.WithLabelValues(redeemResult).Inc()
			}
		}
		if hasPayment {
			if err := h.Payments.UpdateStatus(ctx, tx, pay.ID, "PAID", result.ProviderPayload); err != nil {
				common.JSONError(w, http.StatusInternalServerError, "PAYMENT_UPDATE_ERROR", err.Error(), nil)
				return
			}
		}
		if err := tx.Commit(ctx); err != nil {
			common.JSONError(w, http.StatusInternalServerError, "TX_COMMIT_ERROR", err.Error(), nil)
			return
		}
	case "FAILED", "EXPIRED":
		if ord.Status == order.StatusPendingPayment {
			if _, err := h.Orders.UpdateStatus(ctx, ord.ID, order.StatusPendingPayment, order.StatusCanceled); err == nil {
				ord.Status = order.StatusCanceled
			}
		}
		if hasPayment {
			tx, err := h.DB.BeginTx(ctx, pgx.TxOptions{})
			if err == nil {
				if err := h.Payments.UpdateStatus(ctx, tx, pay.ID, result.Status, result.ProviderPayload); err == nil {
					_ = tx.Commit(ctx)
				} else {
					_ = tx.Rollback(ctx)
				}
			}
		}
	}

	if h.Events != nil {
		payload := map[string]any{
			"orderNumber": ord.Number,
			"email":       ord.Email,
			"total":       ord.Total,
			"status":      result.Status,
		}
		switch {
		case settled:
			_, _ = h.Events.Emit(ctx, events.TopicOrderPaid, ord.ID, payload)
		case result.Status == "FAILED" || result.Status == "EXPIRED":
			_, _ = h.Events.Emit(ctx, events.TopicPaymentFailed, ord.ID, payload)
			if ord.Status == order.StatusCanceled {
				_, _ = h.Events.Emit(ctx, events.TopicOrderCanceled, ord.ID, payload)
			}
		}
	}
	outcome = "ok"
	w.WriteHeader(http.StatusNoContent)
}
