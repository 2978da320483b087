package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// Day builds a UTC calendar day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func SeedProduct(t testing.TB, db *gorm.DB, storeID uuid.UUID, name string) models.Product {
	t.Helper()
	p := models.Product{Entity: models.NewEntity(), StoreID: storeID, Name: name}
	mustCreate(t, db, &p)
	return p
}

func SeedSaleItem(t testing.TB, db *gorm.DB, product models.Product, qty int, price string) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		Entity:    models.NewEntity(),
		ProductID: product.ID,
		StoreID:   product.StoreID,
		UnitType:  enums.UnitTypeSale,
		Quantity:  qty,
		Price:     decimal.RequireFromString(price),
	}
	mustCreate(t, db, &item)
	return item
}

func SeedRentalItem(t testing.TB, db *gorm.DB, product models.Product, qty int, perDay string) models.InventoryItem {
	t.Helper()
	rate := decimal.RequireFromString(perDay)
	item := models.InventoryItem{
		Entity:      models.NewEntity(),
		ProductID:   product.ID,
		StoreID:     product.StoreID,
		UnitType:    enums.UnitTypeRental,
		Quantity:    qty,
		Price:       rate,
		PricePerDay: &rate,
	}
	mustCreate(t, db, &item)
	return item
}

func SeedCart(t testing.TB, db *gorm.DB, userID, storeID uuid.UUID) models.Cart {
	t.Helper()
	cart := models.Cart{
		Entity:      models.NewEntity(),
		UserID:      userID,
		StoreID:     storeID,
		Status:      enums.CartStatusActive,
		TotalAmount: decimal.Zero,
	}
	mustCreate(t, db, &cart)
	return cart
}

// SeedLine adds a line; start and end are only meaningful for rental items.
func SeedLine(t testing.TB, db *gorm.DB, cart models.Cart, item models.InventoryItem, qty int, start, end *time.Time) models.CartLine {
	t.Helper()
	line := models.CartLine{
		Entity:           models.NewEntity(),
		CartID:           cart.ID,
		InventoryItemID:  item.ID,
		Quantity:         qty,
		StartDate:        start,
		EstimatedEndDate: end,
		Subtotal:         decimal.Zero,
	}
	mustCreate(t, db, &line)
	return line
}

func SeedCoupon(t testing.TB, db *gorm.DB, code, pct string, expiry time.Time) models.Coupon {
	t.Helper()
	coupon := models.Coupon{
		Entity:          models.NewEntity(),
		Code:            code,
		DiscountPercent: decimal.RequireFromString(pct),
		ExpiryDate:      expiry,
	}
	mustCreate(t, db, &coupon)
	return coupon
}

func AttachCoupon(t testing.TB, db *gorm.DB, product models.Product, coupon models.Coupon) {
	t.Helper()
	mustCreate(t, db, &models.ProductCoupon{ProductID: product.ID, CouponID: coupon.ID})
}

func mustCreate(t testing.TB, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
