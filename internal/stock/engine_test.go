package stock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
)

var today = dbtest.Day(2025, time.June, 1)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	rentalEngine, err := rentals.NewEngine(rentals.NewRepository(db), rentals.WithClock(func() time.Time { return today }))
	require.NoError(t, err)
	engine, err := NewEngine(NewRepository(db), rentalEngine)
	require.NoError(t, err)
	return engine, db
}

func ptr(t time.Time) *time.Time { return &t }

func TestValidateCartSaleShortfall(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	ball := dbtest.SeedProduct(t, db, storeID, "Soccer Ball")
	item := dbtest.SeedSaleItem(t, db, ball, 2, "10.00")
	cart := dbtest.SeedCart(t, db, uuid.New(), storeID)
	dbtest.SeedLine(t, db, cart, item, 3, nil, nil)

	result, err := engine.ValidateCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, "Insufficient stock for 'Soccer Ball'. Available: 2, Requested: 3", result.Message)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, 2, result.Lines[0].Available)
	assert.Equal(t, 3, result.Lines[0].Requested)
}

func TestValidateCartMixedLinesJoinsFailures(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	ball := dbtest.SeedProduct(t, db, storeID, "Soccer Ball")
	tent := dbtest.SeedProduct(t, db, storeID, "Tent")
	kayak := dbtest.SeedProduct(t, db, storeID, "Kayak")
	ballItem := dbtest.SeedSaleItem(t, db, ball, 5, "10.00")
	tentItem := dbtest.SeedRentalItem(t, db, tent, 2, "12.00")
	kayakItem := dbtest.SeedRentalItem(t, db, kayak, 1, "40.00")

	held := models.Reservation{
		Entity:          models.NewEntity(),
		InventoryItemID: tentItem.ID,
		UserID:          uuid.New(),
		StartDate:       dbtest.Day(2025, time.June, 5),
		EndDate:         dbtest.Day(2025, time.June, 10),
		Quantity:        2,
		Status:          enums.ReservationStatusConfirmed,
		TotalPrice:      decimal.Zero,
	}
	require.NoError(t, db.Create(&held).Error)

	cart := dbtest.SeedCart(t, db, uuid.New(), storeID)
	dbtest.SeedLine(t, db, cart, ballItem, 5, nil, nil)
	dbtest.SeedLine(t, db, cart, tentItem, 1, ptr(dbtest.Day(2025, time.June, 8)), ptr(dbtest.Day(2025, time.June, 12)))
	dbtest.SeedLine(t, db, cart, kayakItem, 1, ptr(dbtest.Day(2025, time.June, 8)), ptr(dbtest.Day(2025, time.June, 8)))

	result, err := engine.ValidateCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Lines, 3)
	assert.Contains(t, result.Message, "Insufficient stock to rent 'Tent' for the selected dates. Available: 0, Requested: 1")
	assert.Contains(t, result.Message, "'Kayak': end date must be after start date")
	assert.Contains(t, result.Message, "; ")
	assert.NotContains(t, result.Message, "Soccer Ball")
}

func TestValidateCartAllValid(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	tent := dbtest.SeedProduct(t, db, storeID, "Tent")
	tentItem := dbtest.SeedRentalItem(t, db, tent, 2, "12.00")
	cart := dbtest.SeedCart(t, db, uuid.New(), storeID)
	dbtest.SeedLine(t, db, cart, tentItem, 2, ptr(dbtest.Day(2025, time.June, 2)), ptr(dbtest.Day(2025, time.June, 4)))

	result, err := engine.ValidateCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, 2, result.Lines[0].Available)
}

func TestValidateCartMissingDatesAndEmpty(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	storeID := uuid.New()

	empty := dbtest.SeedCart(t, db, uuid.New(), storeID)
	result, err := engine.ValidateCart(ctx, empty.ID)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, "cart is empty", result.Message)

	tent := dbtest.SeedProduct(t, db, storeID, "Tent")
	tentItem := dbtest.SeedRentalItem(t, db, tent, 2, "12.00")
	cart := dbtest.SeedCart(t, db, uuid.New(), storeID)
	dbtest.SeedLine(t, db, cart, tentItem, 1, nil, nil)
	result, err = engine.ValidateCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, "'Tent' requires start and end dates for rental", result.Message)

	_, err = engine.ValidateCart(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestValidateCartMissingInventoryIsHardError(t *testing.T) {
	engine, db := newTestEngine(t)
	cart := dbtest.SeedCart(t, db, uuid.New(), uuid.New())
	orphan := models.InventoryItem{Entity: models.NewEntity()}
	dbtest.SeedLine(t, db, cart, orphan, 1, nil, nil)

	_, err := engine.ValidateCart(context.Background(), cart.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestValidateLine(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	ball := dbtest.SeedProduct(t, db, uuid.New(), "Soccer Ball")
	item := dbtest.SeedSaleItem(t, db, ball, 4, "10.00")

	lr, err := engine.ValidateLine(ctx, LineInput{InventoryItemID: item.ID, Quantity: 4})
	require.NoError(t, err)
	assert.True(t, lr.IsValid)

	lr, err = engine.ValidateLine(ctx, LineInput{InventoryItemID: item.ID, Quantity: 5})
	require.NoError(t, err)
	assert.False(t, lr.IsValid)

	_, err = engine.ValidateLine(ctx, LineInput{InventoryItemID: item.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
