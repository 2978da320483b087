package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db), nil, func() time.Time { return now })
	require.NoError(t, err)
	return svc, db
}

func TestCreateCoupon(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	coupon, err := svc.Create(ctx, CreateCouponInput{
		Code:            "  summer10 ",
		DiscountPercent: decimal.NewFromInt(10),
		ExpiryDate:      now.AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", coupon.Code)
	assert.True(t, coupon.IsActive)

	_, err = svc.Create(ctx, CreateCouponInput{Code: "Summer10", DiscountPercent: decimal.NewFromInt(5), ExpiryDate: now.AddDate(0, 1, 0)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	found, err := svc.GetByCode(ctx, "summer10")
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, found.ID)
}

func TestCreateCouponValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	future := now.AddDate(0, 0, 1)

	cases := map[string]CreateCouponInput{
		"blank code":   {Code: " ", DiscountPercent: decimal.NewFromInt(10), ExpiryDate: future},
		"zero percent": {Code: "ZERO", DiscountPercent: decimal.Zero, ExpiryDate: future},
		"over 100":     {Code: "HUGE", DiscountPercent: decimal.RequireFromString("100.01"), ExpiryDate: future},
		"already past": {Code: "PAST", DiscountPercent: decimal.NewFromInt(10), ExpiryDate: now.Add(-time.Second)},
		"expiring now": {Code: "NOW", DiscountPercent: decimal.NewFromInt(10), ExpiryDate: now},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}

	_, err := svc.Create(ctx, CreateCouponInput{Code: "ALL", DiscountPercent: decimal.NewFromInt(100), ExpiryDate: future})
	require.NoError(t, err)
}

func TestAttachAndDeactivate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, db, uuid.New(), "Helmet")
	coupon, err := svc.Create(ctx, CreateCouponInput{Code: "HELM5", DiscountPercent: decimal.NewFromInt(5), ExpiryDate: now.AddDate(0, 1, 0)})
	require.NoError(t, err)

	require.NoError(t, svc.AttachToProduct(ctx, coupon.ID, product.ID))
	require.NoError(t, svc.AttachToProduct(ctx, coupon.ID, product.ID))

	var links int64
	require.NoError(t, db.Model(&models.ProductCoupon{}).Where("coupon_id = ?", coupon.ID).Count(&links).Error)
	assert.Equal(t, int64(1), links)

	assert.True(t, pkgerrors.IsCode(svc.AttachToProduct(ctx, coupon.ID, uuid.New()), pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(svc.AttachToProduct(ctx, uuid.New(), product.ID), pkgerrors.CodeNotFound))

	require.NoError(t, svc.Deactivate(ctx, coupon.ID))
	stored, err := svc.GetByCode(ctx, "HELM5")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.True(t, pkgerrors.IsCode(svc.AttachToProduct(ctx, coupon.ID, product.ID), pkgerrors.CodeInvalidOperation))
}
