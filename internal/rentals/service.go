package rentals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/dates"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
	"github.com/angelmondragon/sportshub-backend/pkg/money"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Actor identifies who drives a booking transition.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// SystemActor is used by scheduled jobs.
var SystemActor = Actor{IsAdmin: true}

// CreateReservationInput describes a direct booking.
type CreateReservationInput struct {
	InventoryItemID uuid.UUID
	UserID          uuid.UUID
	StartDate       time.Time
	EndDate         time.Time
	Quantity        int
}

// Service manages the booking lifecycle PENDING → CONFIRMED → ACTIVE → COMPLETED, with CANCELLED from any open state.
type Service struct {
	repo   Repository
	engine *Engine
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
}

// ServiceParams wires the booking service.
type ServiceParams struct {
	Repository Repository
	Engine     *Engine
	TxRunner   txRunner
	Outbox     outbox.Emitter
	Logger     *logger.Logger
}

// NewService validates dependencies and returns a booking service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("rental repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("availability engine required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Service{
		repo:   params.Repository,
		engine: params.Engine,
		tx:     params.TxRunner,
		outbox: params.Outbox,
		logg:   params.Logger,
	}, nil
}

// CheckAvailability exposes the engine for read-only callers.
func (s *Service) CheckAvailability(ctx context.Context, req AvailabilityRequest) (Availability, error) {
	return s.engine.CheckAvailability(ctx, req)
}

// CreateReservation books capacity for a PENDING reservation under the item row lock.
func (s *Service) CreateReservation(ctx context.Context, input CreateReservationInput) (*models.Reservation, error) {
	if input.InventoryItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory item id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
			WithDetails(map[string]any{"field": "quantity"})
	}

	var created *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.LockItem(ctx, input.InventoryItemID)
		if err != nil {
			return notFoundOr(err, "inventory item not found", "lock inventory item")
		}

		availability, err := s.engine.WithTx(tx).CheckItem(ctx, item, AvailabilityRequest{
			InventoryItemID: item.ID,
			StartDate:       input.StartDate,
			EndDate:         input.EndDate,
			Quantity:        input.Quantity,
		})
		if err != nil {
			return err
		}
		if !availability.IsAvailable {
			return pkgerrors.New(pkgerrors.CodeRentalNotAvailable, availability.Reason).
				WithDetails(map[string]any{
					"requested": input.Quantity,
					"available": availability.AvailableQty,
				})
		}

		days := dates.DaysBetween(availability.StartDate, availability.EndDate)
		reservation := &models.Reservation{
			Entity:          models.NewEntity(),
			InventoryItemID: item.ID,
			UserID:          input.UserID,
			StartDate:       availability.StartDate,
			EndDate:         availability.EndDate,
			Quantity:        input.Quantity,
			Status:          enums.ReservationStatusPending,
			TotalPrice:      RentalPrice(item, days, input.Quantity),
		}
		if err := repo.Create(ctx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create reservation")
		}
		if err := s.emitStatus(ctx, tx, reservation, "", enums.ReservationStatusPending); err != nil {
			return err
		}
		created = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, created, "", created.Status)
	return created, nil
}

// Confirm moves PENDING → CONFIRMED after re-checking capacity without counting the reservation itself.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor Actor) (*models.Reservation, error) {
	return s.transition(ctx, id, actor, enums.ReservationStatusConfirmed, func(r *models.Reservation) error {
		if r.Status != enums.ReservationStatusPending {
			return invalidTransition("only PENDING reservations can be confirmed", r.Status)
		}
		return nil
	}, true)
}

// Activate moves CONFIRMED → ACTIVE.
func (s *Service) Activate(ctx context.Context, id uuid.UUID, actor Actor) (*models.Reservation, error) {
	return s.transition(ctx, id, actor, enums.ReservationStatusActive, func(r *models.Reservation) error {
		if r.Status != enums.ReservationStatusConfirmed {
			return invalidTransition("only CONFIRMED reservations can be activated", r.Status)
		}
		return nil
	}, false)
}

// Complete moves ACTIVE → COMPLETED.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor Actor) (*models.Reservation, error) {
	return s.transition(ctx, id, actor, enums.ReservationStatusCompleted, func(r *models.Reservation) error {
		if r.Status != enums.ReservationStatusActive {
			return invalidTransition("only ACTIVE reservations can be completed", r.Status)
		}
		return nil
	}, false)
}

// Cancel releases capacity. The row is soft-deleted, never removed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*models.Reservation, error) {
	return s.transition(ctx, id, actor, enums.ReservationStatusCancelled, func(r *models.Reservation) error {
		if r.Status.IsTerminal() {
			return invalidTransition("cannot cancel a completed or already cancelled reservation", r.Status)
		}
		return nil
	}, false)
}

// Get returns one reservation visible to actor.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Reservation, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "reservation not found", "load reservation")
	}
	if err := authorize(r, actor); err != nil {
		return nil, err
	}
	return r, nil
}

// ListForItem returns the item's active reservations ordered by start date.
func (s *Service) ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.Reservation, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory item id is required")
	}
	rows, err := s.repo.ListForItem(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reservations")
	}
	return rows, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, actor Actor, to enums.ReservationStatus, guard func(*models.Reservation) error, recheck bool) (*models.Reservation, error) {
	var (
		updated *models.Reservation
		from    enums.ReservationStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		r, err := repo.LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "reservation not found", "lock reservation")
		}
		if err := authorize(r, actor); err != nil {
			return err
		}
		if err := guard(r); err != nil {
			return err
		}

		if recheck {
			item, err := repo.LockItem(ctx, r.InventoryItemID)
			if err != nil {
				return notFoundOr(err, "inventory item not found", "lock inventory item")
			}
			exclude := r.ID
			availability, err := s.engine.WithTx(tx).CheckItem(ctx, item, AvailabilityRequest{
				InventoryItemID:      item.ID,
				StartDate:            r.StartDate,
				EndDate:              r.EndDate,
				Quantity:             r.Quantity,
				ExcludeReservationID: &exclude,
			})
			if err != nil {
				return err
			}
			if !availability.IsAvailable {
				return pkgerrors.New(pkgerrors.CodeRentalNotAvailable, "inventory is no longer available for these dates").
					WithDetails(map[string]any{
						"requested": r.Quantity,
						"available": availability.AvailableQty,
					})
			}
		}

		isActive := to != enums.ReservationStatusCancelled && r.IsActive
		if err := repo.UpdateStatus(ctx, r.ID, to, isActive); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update reservation status")
		}
		from = r.Status
		r.Status = to
		r.IsActive = isActive
		if err := s.emitStatus(ctx, tx, r, from, to); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, updated, from, to)
	return updated, nil
}

func (s *Service) emitStatus(ctx context.Context, tx *gorm.DB, r *models.Reservation, from, to enums.ReservationStatus) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReservationStatusChanged,
		AggregateType: enums.AggregateReservation,
		AggregateID:   r.ID,
		Actor:         &outbox.ActorRef{UserID: r.UserID},
		Data: payloads.ReservationStatusChangedEvent{
			ReservationID:   r.ID,
			InventoryItemID: r.InventoryItemID,
			UserID:          r.UserID,
			From:            from,
			To:              to,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit reservation event")
	}
	return nil
}

func (s *Service) logTransition(ctx context.Context, r *models.Reservation, from, to enums.ReservationStatus) {
	if s.logg == nil || r == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"reservation_id":    r.ID.String(),
		"inventory_item_id": r.InventoryItemID.String(),
		"from":              from,
		"to":                to,
	})
	s.logg.Info(logCtx, "reservation status changed")
}

// RentalPrice is pricePerDay (or price) × days × quantity, rounded to cents.
func RentalPrice(item *models.InventoryItem, days, quantity int) decimal.Decimal {
	rate := item.Price
	if item.PricePerDay != nil {
		rate = *item.PricePerDay
	}
	return money.Round(rate.Mul(decimal.NewFromInt(int64(days))).Mul(decimal.NewFromInt(int64(quantity))))
}

func authorize(r *models.Reservation, actor Actor) error {
	if actor.IsAdmin || r.UserID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another user")
}

func invalidTransition(msg string, current enums.ReservationStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidOperation, msg).
		WithDetails(map[string]any{"status": current})
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
