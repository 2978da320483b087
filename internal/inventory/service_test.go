package inventory

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
	"github.com/angelmondragon/sportshub-backend/pkg/outbox"
)

var today = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repository:        NewRepository(db),
		RentalsRepository: rentals.NewRepository(db),
		TxRunner:          dbtest.TxRunner{DB: db},
		Outbox:            outbox.NewService(outbox.NewRepository(db), nil),
		Now:               func() time.Time { return today.Add(9 * time.Hour) },
	})
	require.NoError(t, err)
	return svc, db
}

func seedProduct(t *testing.T, db *gorm.DB) models.Product {
	t.Helper()
	product := models.Product{Entity: models.NewEntity(), StoreID: uuid.New(), Name: "Kayak"}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func rentalInput(product models.Product, qty int) CreateItemInput {
	perDay := decimal.RequireFromString("25")
	minDays, maxDays := 1, 14
	return CreateItemInput{
		ProductID:     product.ID,
		StoreID:       product.StoreID,
		UnitType:      "RENTAL",
		Quantity:      qty,
		Price:         decimal.RequireFromString("30"),
		PricePerDay:   &perDay,
		MinRentalDays: &minDays,
		MaxRentalDays: &maxDays,
	}
}

func TestCreateValidatesRentalPricing(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, db)

	input := rentalInput(product, 2)
	input.PricePerDay = nil
	_, err := svc.Create(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input = rentalInput(product, 2)
	minDays, maxDays := 5, 2
	input.MinRentalDays, input.MaxRentalDays = &minDays, &maxDays
	_, err = svc.Create(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input = rentalInput(product, -1)
	_, err = svc.Create(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input = rentalInput(product, 2)
	input.UnitType = "LEASE"
	_, err = svc.Create(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input = rentalInput(product, 2)
	input.ProductID = uuid.New()
	_, err = svc.Create(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	item, err := svc.Create(ctx, rentalInput(product, 2))
	require.NoError(t, err)
	assert.True(t, item.IsRental())
	assert.True(t, item.IsActive)

	loaded, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Product)
	assert.Equal(t, "Kayak", loaded.Product.Name)
}

func TestAdjustQuantityRentalGuard(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, db)
	item, err := svc.Create(ctx, rentalInput(product, 5))
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }
	for _, r := range []models.Reservation{
		{InventoryItemID: item.ID, StartDate: day(3), EndDate: day(6), Quantity: 2, Status: enums.ReservationStatusConfirmed},
		{InventoryItemID: item.ID, StartDate: day(5), EndDate: day(9), Quantity: 1, Status: enums.ReservationStatusPending},
		// Ended before today, no longer holds capacity.
		{InventoryItemID: item.ID, StartDate: day(1).AddDate(0, 0, -10), EndDate: day(1).AddDate(0, 0, -5), Quantity: 4, Status: enums.ReservationStatusActive},
	} {
		r.Entity = models.NewEntity()
		r.UserID = uuid.New()
		require.NoError(t, db.Create(&r).Error)
	}

	_, err = svc.AdjustQuantity(ctx, item.ID, 2)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeBusinessRule, typed.Code())
	assert.Equal(t, map[string]any{"requested": 2, "peakReserved": 3}, typed.Details())

	updated, err := svc.AdjustQuantity(ctx, item.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)

	var stored models.InventoryItem
	require.NoError(t, db.First(&stored, "id = ?", item.ID).Error)
	assert.Equal(t, 3, stored.Quantity)

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventInventoryQuantityAdjusted).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestAdjustQuantitySaleAndErrors(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, db)
	item, err := svc.Create(ctx, CreateItemInput{
		ProductID: product.ID,
		StoreID:   product.StoreID,
		UnitType:  "SALE",
		Quantity:  4,
		Price:     decimal.RequireFromString("10"),
	})
	require.NoError(t, err)

	_, err = svc.AdjustQuantity(ctx, item.ID, -1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AdjustQuantity(ctx, uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	updated, err := svc.AdjustQuantity(ctx, item.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
}

func TestDeactivateIsSoft(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, db)
	item, err := svc.Create(ctx, rentalInput(product, 1))
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, item.ID))

	loaded, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsActive)

	assert.True(t, pkgerrors.IsCode(svc.Deactivate(ctx, uuid.New()), pkgerrors.CodeNotFound))
}
