package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// InventoryItem is a stocked unit of a product, either for sale or for rent.
// For RENTAL items Quantity is the fleet size and never moves on checkout.
type InventoryItem struct {
	Entity
	ProductID      uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index" json:"productId"`
	StoreID        uuid.UUID        `gorm:"column:store_id;type:uuid;not null;index" json:"storeId"`
	UnitType       enums.UnitType   `gorm:"column:unit_type;type:text;not null" json:"unitType"`
	Quantity       int              `gorm:"column:quantity;not null" json:"quantity"`
	Price          decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	PricePerDay    *decimal.Decimal `gorm:"column:price_per_day;type:numeric(12,2)" json:"pricePerDay,omitempty"`
	MinRentalDays  *int             `gorm:"column:min_rental_days" json:"minRentalDays,omitempty"`
	MaxRentalDays  *int             `gorm:"column:max_rental_days" json:"maxRentalDays,omitempty"`
	AvailableFrom  *time.Time       `gorm:"column:available_from" json:"availableFrom,omitempty"`
	AvailableUntil *time.Time       `gorm:"column:available_until" json:"availableUntil,omitempty"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// IsRental reports whether the item is loaned by date range.
func (i InventoryItem) IsRental() bool {
	return i.UnitType == enums.UnitTypeRental
}
