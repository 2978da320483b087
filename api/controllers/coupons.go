package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/api/responses"
	"github.com/angelmondragon/sportshub-backend/api/validators"
	"github.com/angelmondragon/sportshub-backend/internal/coupons"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type CouponService interface {
	Create(ctx context.Context, input coupons.CreateCouponInput) (*models.Coupon, error)
	AttachToProduct(ctx context.Context, couponID, productID uuid.UUID) error
	Deactivate(ctx context.Context, couponID uuid.UUID) error
}

type createCouponRequest struct {
	Code            string    `json:"code" validate:"required,max=64"`
	Description     string    `json:"description" validate:"max=500"`
	DiscountPercent string    `json:"discountPercent" validate:"required"`
	ExpiryDate      time.Time `json:"expiryDate" validate:"required"`
}

type attachCouponRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

// CreateCoupon registers a percentage coupon. Admin only.
func CreateCoupon(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pct, err := validators.ParseAmount(payload.DiscountPercent, "discountPercent")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Create(r.Context(), coupons.CreateCouponInput{
			Code:            payload.Code,
			Description:     payload.Description,
			DiscountPercent: pct,
			ExpiryDate:      payload.ExpiryDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

func AttachCouponToProduct(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		couponID, err := pathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload attachCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.AttachToProduct(r.Context(), couponID, payload.ProductID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"couponId":  couponID.String(),
			"productId": payload.ProductID.String(),
		})
	}
}

func DeactivateCoupon(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		couponID, err := pathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deactivated": true})
	}
}
