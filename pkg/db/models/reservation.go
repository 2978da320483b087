package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// Reservation holds rental capacity for an inclusive day range.
type Reservation struct {
	Entity
	InventoryItemID uuid.UUID               `gorm:"column:inventory_item_id;type:uuid;not null;index" json:"inventoryItemId"`
	CartLineID      *uuid.UUID              `gorm:"column:cart_line_id;type:uuid;index" json:"cartLineId,omitempty"`
	UserID          uuid.UUID               `gorm:"column:user_id;type:uuid;not null" json:"userId"`
	StartDate       time.Time               `gorm:"column:start_date;not null" json:"startDate"`
	EndDate         time.Time               `gorm:"column:end_date;not null" json:"endDate"`
	Quantity        int                     `gorm:"column:quantity;not null" json:"quantity"`
	Status          enums.ReservationStatus `gorm:"column:status;type:text;not null" json:"status"`
	TotalPrice      decimal.Decimal         `gorm:"column:total_price;type:numeric(12,2);not null" json:"totalPrice"`
}
