package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/api/responses"
	"github.com/angelmondragon/sportshub-backend/api/validators"
	"github.com/angelmondragon/sportshub-backend/internal/cart"
	"github.com/angelmondragon/sportshub-backend/internal/stock"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type CartService interface {
	GetOrCreateActive(ctx context.Context, userID, storeID uuid.UUID) (*models.Cart, error)
	Get(ctx context.Context, cartID, userID uuid.UUID) (*models.Cart, error)
	AddLine(ctx context.Context, input cart.AddLineInput) (*models.Cart, error)
	UpdateLine(ctx context.Context, input cart.UpdateLineInput) (*models.Cart, error)
	RemoveLine(ctx context.Context, cartID, lineID, userID uuid.UUID) (*models.Cart, error)
	ApplyCoupon(ctx context.Context, cartID, userID uuid.UUID, code string) (*models.Cart, error)
	RemoveCoupon(ctx context.Context, cartID, userID uuid.UUID) (*models.Cart, error)
}

type CartValidator interface {
	ValidateCart(ctx context.Context, cartID uuid.UUID) (stock.Result, error)
}

type CouponSummarizer interface {
	AppliedCouponsSummary(ctx context.Context, cartID uuid.UUID) (string, error)
}

type addLineRequest struct {
	InventoryItemID  uuid.UUID `json:"inventoryItemId" validate:"required"`
	Quantity         int       `json:"quantity" validate:"required,min=1"`
	StartDate        *string   `json:"startDate"`
	EstimatedEndDate *string   `json:"estimatedEndDate"`
}

type updateLineRequest struct {
	Quantity         *int    `json:"quantity" validate:"omitempty,min=1"`
	StartDate        *string `json:"startDate"`
	EstimatedEndDate *string `json:"estimatedEndDate"`
	EndDate          *string `json:"endDate"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// GetCart returns the caller's ACTIVE cart for ?store_id=, creating it on first use.
func GetCart(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := validators.ParseUUIDParam(r.URL.Query().Get("store_id"), "store_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.GetOrCreateActive(r.Context(), userID, storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func AddCartLine(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, cartID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := cart.AddLineInput{
			CartID:          cartID,
			UserID:          userID,
			InventoryItemID: payload.InventoryItemID,
			Quantity:        payload.Quantity,
		}
		if input.StartDate, err = validators.ParseOptionalDate(payload.StartDate, "startDate"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.EstimatedEndDate, err = validators.ParseOptionalDate(payload.EstimatedEndDate, "estimatedEndDate"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.AddLine(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func UpdateCartLine(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, cartID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := pathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := cart.UpdateLineInput{CartID: cartID, LineID: lineID, UserID: userID, Quantity: payload.Quantity}
		if input.StartDate, err = validators.ParseOptionalDate(payload.StartDate, "startDate"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.EstimatedEndDate, err = validators.ParseOptionalDate(payload.EstimatedEndDate, "estimatedEndDate"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.EndDate, err = validators.ParseOptionalDate(payload.EndDate, "endDate"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.UpdateLine(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func RemoveCartLine(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, cartID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := pathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.RemoveLine(r.Context(), cartID, lineID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func ApplyCartCoupon(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, cartID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.ApplyCoupon(r.Context(), cartID, userID, strings.TrimSpace(payload.Code))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func RemoveCartCoupon(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, cartID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.RemoveCoupon(r.Context(), cartID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// CartValidation reports per-line stock and availability without mutating anything.
func CartValidation(carts CartService, validator CartValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil || validator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart validation unavailable"))
			return
		}
		cartID, err := ownedCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := validator.ValidateCart(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CartCouponsSummary returns the human-readable audit of discounts applied to the cart.
func CartCouponsSummary(carts CartService, summarizer CouponSummarizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil || summarizer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing unavailable"))
			return
		}
		cartID, err := ownedCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := summarizer.AppliedCouponsSummary(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"cartId": cartID.String(), "summary": summary})
	}
}

func cartScope(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := requireUser(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	cartID, err := pathUUID(r, "cartId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, cartID, nil
}

func ownedCart(r *http.Request, carts CartService) (uuid.UUID, error) {
	userID, cartID, err := cartScope(r)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := carts.Get(r.Context(), cartID, userID); err != nil {
		return uuid.Nil, err
	}
	return cartID, nil
}
