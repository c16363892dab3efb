package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/framecraft/backend-store/internal/common"
	"github.com/framecraft/backend-store/internal/events"
)

type stubStore struct {
	last events.Event
	err  error
}

func (s *stubStore) Insert(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	if s.err != nil {
		return events.Event{}, s.err
	}
	s.last = events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	return s.last, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	aggregate := uuid.New()
	event, err := bus.Emit(context.Background(), events.TopicOrderCreated, aggregate, map[string]any{"orderNumber": "PF-20250301-AB12CD34"})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, store.last.Topic)
	require.JSONEq(t, `{"orderNumber":"PF-20250301-AB12CD34"}`, string(store.last.Payload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "PF-20250301-AB12CD34", decoded["orderNumber"])
}

func TestEmitRejectsMissingAggregate(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicOrderPaid, uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitNotifierFailureKeepsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{err: errors.New("smtp down")}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	event, err := bus.Emit(context.Background(), events.TopicOrderPaid, uuid.New(), nil)
	require.Error(t, err)
	require.NotEqual(t, uuid.Nil, event.ID, "event persists even when a notifier fails")
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicOrderCreated, uuid.New(), []byte("{not json"))
	require.Error(t, err)
}

func TestEmailNotifierSendsOnPaid(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	notifier := events.EmailNotifier{Sender: outbox}

	payload, _ := json.Marshal(map[string]any{"email": "shopper@example.com", "orderNumber": "PF-20250301-AB12CD34", "total": 120_000})
	err := notifier.Notify(context.Background(), events.Event{Topic: events.TopicOrderPaid, Payload: payload})
	require.NoError(t, err)
	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "shopper@example.com", outbox.Outbox[0].To)
	require.Contains(t, outbox.Outbox[0].Subject, "PF-20250301-AB12CD34")

	// Payloads without an address are skipped, not errors.
	err = notifier.Notify(context.Background(), events.Event{Topic: events.TopicOrderPaid, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.Len(t, outbox.Outbox, 1)
}
