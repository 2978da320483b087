package models

import "github.com/google/uuid"

// Product is the catalog entry coupons attach to.
type Product struct {
	Entity
	StoreID uuid.UUID `gorm:"column:store_id;type:uuid;not null;index" json:"storeId"`
	Name    string    `gorm:"column:name;type:text;not null" json:"name"`
}
