package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/framecraft/backend-store/internal/common"
)

// EmailNotifier sends order lifecycle emails to the address carried in
// the event payload. Events without an email field are skipped silently:
// not every emitter knows the shopper.
type EmailNotifier struct {
	Sender common.EmailSender
	Logger *zerolog.Logger
}

type emailPayload struct {
	Email       string `json:"email"`
	OrderNumber string `json:"orderNumber"`
	Total       int64  `json:"total"`
}

// Notify implements Notifier.
func (n EmailNotifier) Notify(ctx context.Context, event Event) error {
	if n.Sender == nil {
		return nil
	}
	var p emailPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.Email == "" {
		return nil
	}
	var subject, body string
	switch event.Topic {
	case TopicOrderCreated:
		subject = fmt.Sprintf("Order %s received", p.OrderNumber)
		body = fmt.Sprintf("<p>Thanks for your order <strong>%s</strong>. We'll confirm once payment completes.</p>", p.OrderNumber)
	case TopicOrderPaid:
		subject = fmt.Sprintf("Order %s confirmed", p.OrderNumber)
		body = fmt.Sprintf("<p>Payment received for order <strong>%s</strong>. Your posters are heading to print.</p>", p.OrderNumber)
	default:
		return nil
	}
	if err := n.Sender.Send(p.Email, subject, body); err != nil {
		if n.Logger != nil {
			n.Logger.Error().Err(err).Str("topic", event.Topic).Msg("order email failed")
		}
		return err
	}
	return nil
}
