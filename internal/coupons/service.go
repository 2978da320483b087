// Package coupons administers percentage discount codes.
package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sportshub-backend/pkg/db"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

var maxPercent = decimal.NewFromInt(100)

type CreateCouponInput struct {
	Code            string
	Description     string
	DiscountPercent decimal.Decimal
	ExpiryDate      time.Time
}

type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger, now func() time.Time) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, logg: logg, now: now}, nil
}

// NormalizeCode is how codes are stored and looked up.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Service) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required").
			WithDetails(map[string]any{"field": "code"})
	}
	if !input.DiscountPercent.IsPositive() || input.DiscountPercent.GreaterThan(maxPercent) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be greater than 0 and at most 100").
			WithDetails(map[string]any{"field": "discountPercent"})
	}
	if !input.ExpiryDate.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry date must be in the future").
			WithDetails(map[string]any{"field": "expiryDate"})
	}

	exists, err := s.repo.CodeExists(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check coupon code")
	}
	if exists {
		return nil, duplicateCode(code)
	}

	coupon := &models.Coupon{
		Entity:          models.NewEntity(),
		Code:            code,
		Description:     strings.TrimSpace(input.Description),
		DiscountPercent: input.DiscountPercent.Round(2),
		ExpiryDate:      input.ExpiryDate.UTC(),
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateCode(code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "coupon_code", code), "coupon created")
	}
	return coupon, nil
}

// AttachToProduct makes the coupon eligible for lines of that product.
func (s *Service) AttachToProduct(ctx context.Context, couponID, productID uuid.UUID) error {
	coupon, err := s.get(ctx, couponID)
	if err != nil {
		return err
	}
	if !coupon.IsActive {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "coupon is inactive")
	}
	exists, err := s.repo.ProductExists(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.repo.Attach(ctx, &models.ProductCoupon{ProductID: productID, CouponID: couponID}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach coupon")
	}
	return nil
}

// Deactivate soft-deletes the coupon; carts holding it stop receiving the discount.
func (s *Service) Deactivate(ctx context.Context, couponID uuid.UUID) error {
	if _, err := s.get(ctx, couponID); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, couponID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate coupon")
	}
	return nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	return coupon, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	return coupon, nil
}

func duplicateCode(code string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists").
		WithDetails(map[string]any{"code": code})
}
