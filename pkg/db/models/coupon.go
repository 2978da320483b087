package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon is a percentage discount usable on attached products or on a whole cart.
type Coupon struct {
	Entity
	Code            string          `gorm:"column:code;type:text;not null;uniqueIndex" json:"code"`
	Description     string          `gorm:"column:description;type:text" json:"description,omitempty"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null" json:"discountPercent"`
	ExpiryDate      time.Time       `gorm:"column:expiry_date;not null" json:"expiryDate"`
}

// IsUsable reports whether the coupon is active and not yet expired at now.
func (c Coupon) IsUsable(now time.Time) bool {
	return c.IsActive && c.ExpiryDate.After(now)
}

// ProductCoupon attaches a coupon to a product.
type ProductCoupon struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey" json:"productId"`
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;primaryKey" json:"couponId"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`

	Coupon *Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
}

func (ProductCoupon) TableName() string { return "product_coupons" }
