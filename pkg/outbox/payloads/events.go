package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// PaymentCreatedEvent is emitted once a payment row exists for a cart.
type PaymentCreatedEvent struct {
	PaymentID       uuid.UUID           `json:"payment_id"`
	CartID          uuid.UUID           `json:"cart_id"`
	UserID          uuid.UUID           `json:"user_id"`
	TransactionID   string              `json:"transaction_id"`
	AmountCents     int64               `json:"amount_cents"`
	Method          enums.PaymentMethod `json:"method"`
	GatewayIntentID *string             `json:"gateway_intent_id,omitempty"`
}

// PaymentCompletedEvent is emitted after stock and reservations are committed.
type PaymentCompletedEvent struct {
	PaymentID      uuid.UUID   `json:"payment_id"`
	CartID         uuid.UUID   `json:"cart_id"`
	UserID         uuid.UUID   `json:"user_id"`
	TransactionID  string      `json:"transaction_id"`
	AmountCents    int64       `json:"amount_cents"`
	ReservationIDs []uuid.UUID `json:"reservation_ids,omitempty"`
	CompletedAt    time.Time   `json:"completed_at"`
}

// PaymentStatusChangedEvent covers gateway-driven transitions that do not commit stock.
type PaymentStatusChangedEvent struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	CartID    uuid.UUID           `json:"cart_id"`
	From      enums.PaymentStatus `json:"from"`
	To        enums.PaymentStatus `json:"to"`
	Reason    string              `json:"reason,omitempty"`
}

// PaymentRefundedEvent is emitted after stock and reservations are released.
type PaymentRefundedEvent struct {
	PaymentID       uuid.UUID   `json:"payment_id"`
	CartID          uuid.UUID   `json:"cart_id"`
	UserID          uuid.UUID   `json:"user_id"`
	AmountCents     int64       `json:"amount_cents"`
	Reason          string      `json:"reason,omitempty"`
	GatewayRefundID *string     `json:"gateway_refund_id,omitempty"`
	CancelledIDs    []uuid.UUID `json:"cancelled_reservation_ids,omitempty"`
}

// ReservationStatusChangedEvent tracks booking lifecycle transitions.
type ReservationStatusChangedEvent struct {
	ReservationID   uuid.UUID               `json:"reservation_id"`
	InventoryItemID uuid.UUID               `json:"inventory_item_id"`
	UserID          uuid.UUID               `json:"user_id"`
	From            enums.ReservationStatus `json:"from,omitempty"`
	To              enums.ReservationStatus `json:"to"`
}

// InventoryQuantityAdjustedEvent records admin stock changes.
type InventoryQuantityAdjustedEvent struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Previous        int       `json:"previous"`
	Quantity        int       `json:"quantity"`
}

// NotificationRequestedEvent asks the notification worker to notify a user.
type NotificationRequestedEvent struct {
	UserID    uuid.UUID              `json:"user_id"`
	PaymentID uuid.UUID              `json:"payment_id"`
	CartID    uuid.UUID              `json:"cart_id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
}
