package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/api/responses"
	"github.com/angelmondragon/sportshub-backend/api/validators"
	"github.com/angelmondragon/sportshub-backend/internal/inventory"
	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type InventoryService interface {
	Create(ctx context.Context, input inventory.CreateItemInput) (*models.InventoryItem, error)
	AdjustQuantity(ctx context.Context, id uuid.UUID, qty int) (*models.InventoryItem, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
}

type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, req rentals.AvailabilityRequest) (rentals.Availability, error)
}

type createInventoryRequest struct {
	ProductID      uuid.UUID `json:"productId" validate:"required"`
	StoreID        uuid.UUID `json:"storeId" validate:"required"`
	UnitType       string    `json:"unitType" validate:"required,oneof=SALE RENTAL"`
	Quantity       int       `json:"quantity" validate:"min=0"`
	Price          string    `json:"price"`
	PricePerDay    *string   `json:"pricePerDay"`
	MinRentalDays  *int      `json:"minRentalDays" validate:"omitempty,min=1"`
	MaxRentalDays  *int      `json:"maxRentalDays" validate:"omitempty,min=1"`
	AvailableFrom  *string   `json:"availableFrom"`
	AvailableUntil *string   `json:"availableUntil"`
}

func (req createInventoryRequest) toInput() (inventory.CreateItemInput, error) {
	input := inventory.CreateItemInput{
		ProductID:     req.ProductID,
		StoreID:       req.StoreID,
		UnitType:      req.UnitType,
		Quantity:      req.Quantity,
		MinRentalDays: req.MinRentalDays,
		MaxRentalDays: req.MaxRentalDays,
	}
	if req.Price != "" {
		price, err := validators.ParseAmount(req.Price, "price")
		if err != nil {
			return input, err
		}
		input.Price = price
	}
	var err error
	if input.PricePerDay, err = validators.ParseOptionalAmount(req.PricePerDay, "pricePerDay"); err != nil {
		return input, err
	}
	if input.AvailableFrom, err = validators.ParseOptionalDate(req.AvailableFrom, "availableFrom"); err != nil {
		return input, err
	}
	if input.AvailableUntil, err = validators.ParseOptionalDate(req.AvailableUntil, "availableUntil"); err != nil {
		return input, err
	}
	return input, nil
}

type adjustQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CreateInventoryItem stores a new SALE or RENTAL unit. Admin only.
func CreateInventoryItem(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		var payload createInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func GetInventoryItem(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// AdjustInventoryQuantity sets the absolute on-hand or fleet quantity. Admin only.
func AdjustInventoryQuantity(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload adjustQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.AdjustQuantity(r.Context(), id, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeactivateInventoryItem(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deactivated": true})
	}
}

// InventoryAvailability answers ?start=&end=&qty= for a rental item.
func InventoryAvailability(svc AvailabilityChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rental service unavailable"))
			return
		}
		id, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseQueryDate(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryDate(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		qty, err := validators.ParseQueryInt(r, "qty", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		availability, err := svc.CheckAvailability(r.Context(), rentals.AvailabilityRequest{
			InventoryItemID: id,
			StartDate:       start,
			EndDate:         end,
			Quantity:        qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, availability)
	}
}
