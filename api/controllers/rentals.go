package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/api/responses"
	"github.com/angelmondragon/sportshub-backend/api/validators"
	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type RentalService interface {
	CreateReservation(ctx context.Context, input rentals.CreateReservationInput) (*models.Reservation, error)
	Confirm(ctx context.Context, id uuid.UUID, actor rentals.Actor) (*models.Reservation, error)
	Activate(ctx context.Context, id uuid.UUID, actor rentals.Actor) (*models.Reservation, error)
	Complete(ctx context.Context, id uuid.UUID, actor rentals.Actor) (*models.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID, actor rentals.Actor) (*models.Reservation, error)
	Get(ctx context.Context, id uuid.UUID, actor rentals.Actor) (*models.Reservation, error)
	ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.Reservation, error)
}

type createReservationRequest struct {
	InventoryItemID uuid.UUID `json:"inventoryItemId" validate:"required"`
	StartDate       string    `json:"startDate" validate:"required"`
	EndDate         string    `json:"endDate" validate:"required"`
	Quantity        int       `json:"quantity" validate:"required,min=1"`
}

// CreateReservation books a PENDING reservation for the caller.
func CreateReservation(svc RentalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rental service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseDate(payload.StartDate, "startDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseDate(payload.EndDate, "endDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reservation, err := svc.CreateReservation(r.Context(), rentals.CreateReservationInput{
			InventoryItemID: payload.InventoryItemID,
			UserID:          userID,
			StartDate:       start,
			EndDate:         end,
			Quantity:        payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reservation)
	}
}

func GetReservation(svc RentalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rental service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reservation, err := svc.Get(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reservation)
	}
}

// TransitionReservation dispatches /rentals/{reservationId}/{action}.
func TransitionReservation(svc RentalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rental service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var step func(context.Context, uuid.UUID, rentals.Actor) (*models.Reservation, error)
		switch action := chi.URLParam(r, "action"); action {
		case "confirm":
			step = svc.Confirm
		case "activate":
			step = svc.Activate
		case "complete":
			step = svc.Complete
		case "cancel":
			step = svc.Cancel
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown reservation action").
				WithDetails(map[string]any{"action": action}))
			return
		}

		reservation, err := step(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reservation)
	}
}

// ListItemReservations shows the booking calendar of one rental item. Admin only.
func ListItemReservations(svc RentalService, logg *logger.Logger) http.HandlerFunc {
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
		rows, err := svc.ListForItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
