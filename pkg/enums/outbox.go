package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateCart         OutboxAggregateType = "cart"
	AggregateReservation  OutboxAggregateType = "reservation"
	AggregateInventory    OutboxAggregateType = "inventory_item"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePayment,
	AggregateCart,
	AggregateReservation,
	AggregateInventory,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventPaymentCreated            OutboxEventType = "payment_created"
	EventPaymentCompleted          OutboxEventType = "payment_completed"
	EventPaymentStatusChanged      OutboxEventType = "payment_status_changed"
	EventPaymentRefunded           OutboxEventType = "payment_refunded"
	EventReservationStatusChanged  OutboxEventType = "reservation_status_changed"
	EventInventoryQuantityAdjusted OutboxEventType = "inventory_quantity_adjusted"
	EventNotificationRequested     OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPaymentCreated,
	EventPaymentCompleted,
	EventPaymentStatusChanged,
	EventPaymentRefunded,
	EventReservationStatusChanged,
	EventInventoryQuantityAdjusted,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
