package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	engine, err := NewEngine(EngineParams{
		Repository: NewRepository(db),
		TxRunner:   dbtest.TxRunner{DB: db},
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	return engine, db
}

func TestComputeCartTotalPersistsAndIsIdempotent(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	later := now.AddDate(0, 2, 0)

	ball := dbtest.SeedProduct(t, db, storeID, "Soccer Ball")
	tent := dbtest.SeedProduct(t, db, storeID, "Tent")
	ballItem := dbtest.SeedSaleItem(t, db, ball, 10, "10.00")
	tentItem := dbtest.SeedRentalItem(t, db, tent, 3, "12.50")
	dbtest.AttachCoupon(t, db, ball, dbtest.SeedCoupon(t, db, "BALL15", "15", later))
	cartCoupon := dbtest.SeedCoupon(t, db, "CART10", "10", later)

	cart := dbtest.SeedCart(t, db, uuid.New(), storeID)
	require.NoError(t, db.Model(&models.Cart{}).Where("id = ?", cart.ID).Update("coupon_id", cartCoupon.ID).Error)
	start := dbtest.Day(2025, time.June, 3)
	end := dbtest.Day(2025, time.June, 6)
	ballLine := dbtest.SeedLine(t, db, cart, ballItem, 3, nil, nil)
	tentLine := dbtest.SeedLine(t, db, cart, tentItem, 2, &start, &end)

	total, err := engine.ComputeCartTotal(ctx, cart.ID)
	require.NoError(t, err)
	// ball 30.00 - 4.50 = 25.50; tent 12.50 × 2 × 3 = 75.00; 100.50 - 10.05 = 90.45
	assert.Equal(t, "90.45", total.StringFixed(2))

	again, err := engine.ComputeCartTotal(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(again))

	var stored models.Cart
	require.NoError(t, db.First(&stored, "id = ?", cart.ID).Error)
	assert.Equal(t, "90.45", stored.TotalAmount.StringFixed(2))

	var lines []models.CartLine
	require.NoError(t, db.Where("cart_id = ?", cart.ID).Find(&lines).Error)
	subtotals := map[uuid.UUID]string{}
	for _, l := range lines {
		subtotals[l.ID] = l.Subtotal.StringFixed(2)
	}
	assert.Equal(t, "25.50", subtotals[ballLine.ID])
	assert.Equal(t, "75.00", subtotals[tentLine.ID])

	summary, err := engine.AppliedCouponsSummary(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, "BALL15:4.50, CART10:10.05", summary)
}

func TestComputeCartTotalIgnoresRemovedLines(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	ball := dbtest.SeedProduct(t, db, storeID, "Soccer Ball")
	item := dbtest.SeedSaleItem(t, db, ball, 10, "10.00")
	cart := dbtest.SeedCart(t, db, uuid.New(), storeID)
	dbtest.SeedLine(t, db, cart, item, 1, nil, nil)
	removed := dbtest.SeedLine(t, db, cart, item, 4, nil, nil)
	require.NoError(t, db.Model(&models.CartLine{}).Where("id = ?", removed.ID).Update("is_active", false).Error)

	total, err := engine.ComputeCartTotal(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", total.StringFixed(2))

	summary, err := engine.AppliedCouponsSummary(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestComputeCartTotalUnknownCart(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.ComputeCartTotal(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
