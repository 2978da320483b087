package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// Payment is one checkout attempt against a cart.
type Payment struct {
	Entity
	CartID          uuid.UUID           `gorm:"column:cart_id;type:uuid;not null;index" json:"cartId"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null" json:"userId"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Method          enums.PaymentMethod `gorm:"column:method;type:text;not null" json:"method"`
	Status          enums.PaymentStatus `gorm:"column:status;type:text;not null" json:"status"`
	TransactionID   string              `gorm:"column:transaction_id;type:text;not null;uniqueIndex" json:"transactionId"`
	GatewayIntentID *string             `gorm:"column:gateway_intent_id;type:text;index" json:"gatewayIntentId,omitempty"`
	GatewayChargeID *string             `gorm:"column:gateway_charge_id;type:text" json:"gatewayChargeId,omitempty"`
	GatewayRefundID *string             `gorm:"column:gateway_refund_id;type:text" json:"gatewayRefundId,omitempty"`
	PaymentDate     *time.Time          `gorm:"column:payment_date" json:"paymentDate,omitempty"`
	Notes           string              `gorm:"column:notes;type:text" json:"notes,omitempty"`
	AppliedCoupons  string              `gorm:"column:applied_coupons;type:text" json:"appliedCoupons,omitempty"`

	// ClientSecret is only populated on the create response; it is never stored.
	ClientSecret string `gorm:"-" json:"clientSecret,omitempty"`
}
