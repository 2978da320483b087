package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/sportshub-backend/pkg/config"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	cartID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.PaymentCompletedEvent{
		PaymentID:     uuid.New(),
		CartID:        cartID,
		TransactionID: "TXN-ABCDEF12",
		AmountCents:   3000,
	})

	event := models.OutboxEvent{
		EventType:     enums.EventPaymentCompleted,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "payments-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.PaymentCompletedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.CartID != cartID || payload.AmountCents != 3000 {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryRoutesByTopic(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := []struct {
		eventType enums.OutboxEventType
		aggregate enums.OutboxAggregateType
		payload   interface{}
		topic     string
	}{
		{enums.EventReservationStatusChanged, enums.AggregateReservation, payloads.ReservationStatusChangedEvent{ReservationID: uuid.New(), To: enums.ReservationStatusActive}, "reservations-topic"},
		{enums.EventNotificationRequested, enums.AggregatePayment, payloads.NotificationRequestedEvent{UserID: uuid.New(), Type: enums.NotificationTypePurchase}, "notification-topic"},
		{enums.EventPaymentRefunded, enums.AggregatePayment, payloads.PaymentRefundedEvent{PaymentID: uuid.New()}, "payments-topic"},
	}
	for _, tc := range cases {
		resolved, err := reg.Resolve(models.OutboxEvent{
			EventType:     tc.eventType,
			AggregateType: tc.aggregate,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, mustMarshal(t, tc.payload)),
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.eventType, err)
		}
		if resolved.Descriptor.Topic != tc.topic {
			t.Fatalf("%s: expected topic %s got %s", tc.eventType, tc.topic, resolved.Descriptor.Topic)
		}
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("order_shipped"),
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"reason":"none"}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventPaymentCreated,
		AggregateType: enums.AggregateCart,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"payment_id":"00000000-0000-0000-0000-000000000000"}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventPaymentCreated,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.Nil,
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveNullPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventPaymentCreated,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte("null")),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatal("expected missing topics to fail")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	cfg := config.PubSubConfig{
		PaymentsTopic:     "payments-topic",
		ReservationsTopic: "reservations-topic",
		NotificationTopic: "notification-topic",
	}
	reg, err := NewEventRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
