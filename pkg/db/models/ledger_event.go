package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// LedgerEvent records an immutable money movement tied to a payment.
type LedgerEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID   uuid.UUID             `gorm:"column:payment_id;type:uuid;not null;index"`
	CartID      uuid.UUID             `gorm:"column:cart_id;type:uuid;not null"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Type        enums.LedgerEventType `gorm:"column:type;type:text;not null"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
