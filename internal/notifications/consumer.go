package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox/registry"
)

const checkoutNotificationConsumer = "checkout-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns notification_requested events into in-app notifications.
// It runs outside the checkout transaction; a failure here never undoes a payment.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds a checkout notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		decoders:     payloadDecoders(),
		logg:         logg,
	}, nil
}

func payloadDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventNotificationRequested, 1, func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.NotificationRequestedEvent
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) processResult {
	eventType := attrs["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Debug(logCtx, "skipping non-notification event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, checkoutNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(enums.EventNotificationRequested, envelope.Version, envelope.Data)
	if err != nil {
		// a malformed or unknown-version payload will not parse on redelivery either
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	payload := decoded.(payloads.NotificationRequestedEvent)
	logCtx = c.logg.WithUserID(logCtx, payload.UserID.String())
	logCtx = c.logg.WithPaymentID(logCtx, payload.PaymentID.String())

	if err := c.store(ctx, payload); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, checkoutNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	c.logg.Info(logCtx, "user notified")
	return processResult{ack: true}
}

func (c *Consumer) store(ctx context.Context, payload payloads.NotificationRequestedEvent) error {
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}
	kind := payload.Type
	if !kind.IsValid() {
		kind = enums.NotificationTypePurchase
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = "Order update"
	}
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		UserID:  payload.UserID,
		Type:    kind,
		Title:   title,
		Message: strings.TrimSpace(payload.Message),
	})
}
