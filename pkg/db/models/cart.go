package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// Cart is a buyer's in-progress selection at one store.
type Cart struct {
	Entity
	UserID      uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	StoreID     uuid.UUID        `gorm:"column:store_id;type:uuid;not null" json:"storeId"`
	Status      enums.CartStatus `gorm:"column:status;type:text;not null" json:"status"`
	CouponID    *uuid.UUID       `gorm:"column:coupon_id;type:uuid" json:"couponId,omitempty"`
	TotalAmount decimal.Decimal  `gorm:"column:total_amount;type:numeric(12,2);not null" json:"totalAmount"`

	Coupon *Coupon    `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
	Lines  []CartLine `gorm:"foreignKey:CartID" json:"lines,omitempty"`
}

// CartLine is one inventory item in a cart. Rental lines carry a date range.
type CartLine struct {
	Entity
	CartID           uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index" json:"cartId"`
	InventoryItemID  uuid.UUID       `gorm:"column:inventory_item_id;type:uuid;not null" json:"inventoryItemId"`
	Quantity         int             `gorm:"column:quantity;not null" json:"quantity"`
	StartDate        *time.Time      `gorm:"column:start_date" json:"startDate,omitempty"`
	EstimatedEndDate *time.Time      `gorm:"column:estimated_end_date" json:"estimatedEndDate,omitempty"`
	EndDate          *time.Time      `gorm:"column:end_date" json:"endDate,omitempty"`
	Subtotal         decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`

	InventoryItem *InventoryItem `gorm:"foreignKey:InventoryItemID" json:"inventoryItem,omitempty"`
}

// RentalEnd returns the committed end date, falling back to the estimate.
func (l CartLine) RentalEnd() *time.Time {
	if l.EndDate != nil {
		return l.EndDate
	}
	return l.EstimatedEndDate
}
