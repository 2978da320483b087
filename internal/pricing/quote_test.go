package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func coupon(code, pct string, expiry time.Time) models.Coupon {
	return models.Coupon{
		Entity:          models.NewEntity(),
		Code:            code,
		DiscountPercent: decimal.RequireFromString(pct),
		ExpiryDate:      expiry,
	}
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestSelectBestCoupon(t *testing.T) {
	later := now.AddDate(0, 1, 0)
	expired := coupon("OLD50", "50", now.Add(-time.Hour))
	inactive := coupon("OFF40", "40", later)
	inactive.IsActive = false
	first := coupon("FIRST20", "20", later)
	second := coupon("SECOND20", "20", later)
	small := coupon("SMALL5", "5", later)

	winner, discount := SelectBestCoupon(dec("100.00"), []models.Coupon{expired, inactive, small, first, second}, now)
	require.NotNil(t, winner)
	assert.Equal(t, "FIRST20", winner.Code)
	assert.Equal(t, "20", discount.String())

	winner, discount = SelectBestCoupon(dec("100.00"), []models.Coupon{expired, inactive}, now)
	assert.Nil(t, winner)
	assert.True(t, discount.IsZero())
}

func TestSelectBestCouponRoundsHalfUp(t *testing.T) {
	_, discount := SelectBestCoupon(dec("10.05"), []models.Coupon{coupon("C15", "15", now.AddDate(0, 0, 1))}, now)
	// 10.05 × 15% = 1.5075
	assert.Equal(t, "1.51", discount.StringFixed(2))
}

func TestLineBase(t *testing.T) {
	perDay := dec("15.00")
	sale := models.InventoryItem{UnitType: enums.UnitTypeSale, Price: dec("10.00")}
	rental := models.InventoryItem{UnitType: enums.UnitTypeRental, Price: dec("99.00"), PricePerDay: &perDay}
	fallback := models.InventoryItem{UnitType: enums.UnitTypeRental, Price: dec("8.00")}

	day := func(d int) *time.Time {
		v := time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	assert.Equal(t, "30", LineBase(models.CartLine{Quantity: 3}, sale).String())
	assert.Equal(t, "90", LineBase(models.CartLine{Quantity: 2, StartDate: day(5), EstimatedEndDate: day(8)}, rental).String())
	// EndDate wins over the estimate.
	assert.Equal(t, "150", LineBase(models.CartLine{Quantity: 2, StartDate: day(5), EstimatedEndDate: day(8), EndDate: day(10)}, rental).String())
	// Without dates the rental is priced as a single day.
	assert.Equal(t, "15", LineBase(models.CartLine{Quantity: 1}, rental).String())
	assert.Equal(t, "16", LineBase(models.CartLine{Quantity: 1, StartDate: day(5), EstimatedEndDate: day(7)}, fallback).String())
}

func TestBuildQuoteCartCouponUsesDiscountedSubtotal(t *testing.T) {
	later := now.AddDate(0, 1, 0)
	productA, productB := uuid.New(), uuid.New()
	itemA := models.InventoryItem{ProductID: productA, UnitType: enums.UnitTypeSale, Price: dec("50.00")}
	itemB := models.InventoryItem{ProductID: productB, UnitType: enums.UnitTypeSale, Price: dec("25.00")}
	lines := []models.CartLine{
		{Entity: models.NewEntity(), Quantity: 2, InventoryItem: &itemA},
		{Entity: models.NewEntity(), Quantity: 2, InventoryItem: &itemB},
	}
	coupons := map[uuid.UUID][]models.Coupon{productA: {coupon("LINE10", "10", later)}}
	cartCoupon := coupon("CART10", "10", later)

	q := BuildQuote(lines, coupons, &cartCoupon, now)
	assert.Equal(t, "90", q.Lines[0].Subtotal.String())
	assert.Equal(t, "50", q.Lines[1].Subtotal.String())
	assert.Equal(t, "140", q.Subtotal.String())
	assert.Equal(t, "14", q.CartDiscount.String())
	assert.Equal(t, "126", q.Total.String())
	assert.Equal(t, "LINE10:10.00, CART10:14.00", Summarize(q))
}

func TestBuildQuoteFullDiscountFloorsAtZero(t *testing.T) {
	later := now.AddDate(0, 1, 0)
	product := uuid.New()
	item := models.InventoryItem{ProductID: product, UnitType: enums.UnitTypeSale, Price: dec("20.00")}
	lines := []models.CartLine{{Entity: models.NewEntity(), Quantity: 1, InventoryItem: &item}}
	expiredCart := coupon("GONE", "50", now.Add(-time.Minute))

	q := BuildQuote(lines, map[uuid.UUID][]models.Coupon{product: {coupon("FREE", "100", later)}}, &expiredCart, now)
	assert.True(t, q.Total.IsZero())
	assert.Nil(t, q.CartCoupon)
	assert.Equal(t, "FREE:20.00", Summarize(q))
}
