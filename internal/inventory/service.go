package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/internal/rentals"
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

// CreateItemInput describes a new stocked unit.
type CreateItemInput struct {
	ProductID      uuid.UUID
	StoreID        uuid.UUID
	UnitType       string
	Quantity       int
	Price          decimal.Decimal
	PricePerDay    *decimal.Decimal
	MinRentalDays  *int
	MaxRentalDays  *int
	AvailableFrom  *time.Time
	AvailableUntil *time.Time
}

// Service administers inventory records. Checkout never goes through it.
type Service struct {
	repo    Repository
	rentals rentals.Repository
	tx      txRunner
	outbox  outbox.Emitter
	logg    *logger.Logger
	now     func() time.Time
}

type ServiceParams struct {
	Repository        Repository
	RentalsRepository rentals.Repository
	TxRunner          txRunner
	Outbox            outbox.Emitter
	Logger            *logger.Logger
	Now               func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.RentalsRepository == nil {
		return nil, fmt.Errorf("rental repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    params.Repository,
		rentals: params.RentalsRepository,
		tx:      params.TxRunner,
		outbox:  params.Outbox,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// Create validates and stores a new inventory item.
func (s *Service) Create(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	item, err := buildItem(input)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ProductExists(ctx, item.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"productId": item.ProductID})
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create inventory item")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"inventory_item_id": item.ID.String(),
			"unit_type":         item.UnitType,
			"quantity":          item.Quantity,
		})
		s.logg.Info(logCtx, "inventory item created")
	}
	return item, nil
}

// AdjustQuantity sets the absolute stock level. Rental fleets cannot shrink below
// the busiest future day already booked.
func (s *Service) AdjustQuantity(ctx context.Context, id uuid.UUID, qty int) (*models.InventoryItem, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative").
			WithDetails(map[string]any{"field": "quantity"})
	}

	var (
		updated  *models.InventoryItem
		previous int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock inventory item")
		}

		if item.IsRental() {
			peak, err := s.futurePeak(ctx, tx, item.ID)
			if err != nil {
				return err
			}
			if qty < peak {
				return pkgerrors.New(pkgerrors.CodeBusinessRule,
					fmt.Sprintf("cannot reduce quantity below %d units already reserved", peak)).
					WithDetails(map[string]any{
						"requested":    qty,
						"peakReserved": peak,
					})
			}
		}

		if err := repo.SetQuantity(ctx, item.ID, qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update quantity")
		}
		previous = item.Quantity
		item.Quantity = qty

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryQuantityAdjusted,
			AggregateType: enums.AggregateInventory,
			AggregateID:   item.ID,
			Data: payloads.InventoryQuantityAdjustedEvent{
				InventoryItemID: item.ID,
				Previous:        previous,
				Quantity:        qty,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit inventory event")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"inventory_item_id": updated.ID.String(),
			"previous":          previous,
			"quantity":          qty,
		})
		s.logg.Info(logCtx, "inventory quantity adjusted")
	}
	return updated, nil
}

// Deactivate soft-deletes the item.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate inventory item")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory item")
	}
	return item, nil
}

// futurePeak spans today through the last day any open reservation still holds.
func (s *Service) futurePeak(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (int, error) {
	today := dates.Day(s.now())
	open, err := s.rentals.WithTx(tx).ListActiveFrom(ctx, itemID, today)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reservations")
	}
	if len(open) == 0 {
		return 0, nil
	}
	horizon := today
	for _, r := range open {
		if end := dates.Day(r.EndDate); end.After(horizon) {
			horizon = end
		}
	}
	return rentals.PeakReserved(open, today, horizon), nil
}

func buildItem(input CreateItemInput) (*models.InventoryItem, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	unitType, err := enums.ParseUnitType(input.UnitType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit type").
			WithDetails(map[string]any{"field": "unitType"})
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative").
			WithDetails(map[string]any{"field": "quantity"})
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative").
			WithDetails(map[string]any{"field": "price"})
	}

	item := &models.InventoryItem{
		Entity:    models.NewEntity(),
		ProductID: input.ProductID,
		StoreID:   input.StoreID,
		UnitType:  unitType,
		Quantity:  input.Quantity,
		Price:     money.Round(input.Price),
	}
	if unitType != enums.UnitTypeRental {
		return item, nil
	}

	if input.PricePerDay == nil || !input.PricePerDay.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental items require a positive price per day").
			WithDetails(map[string]any{"field": "pricePerDay"})
	}
	if input.MinRentalDays != nil && *input.MinRentalDays < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum rental days must be at least 1").
			WithDetails(map[string]any{"field": "minRentalDays"})
	}
	if input.MinRentalDays != nil && input.MaxRentalDays != nil && *input.MinRentalDays > *input.MaxRentalDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum rental days cannot exceed maximum").
			WithDetails(map[string]any{"field": "maxRentalDays"})
	}
	if input.AvailableFrom != nil && input.AvailableUntil != nil && input.AvailableUntil.Before(*input.AvailableFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available until must not precede available from").
			WithDetails(map[string]any{"field": "availableUntil"})
	}
	perDay := money.Round(*input.PricePerDay)
	item.PricePerDay = &perDay
	item.MinRentalDays = input.MinRentalDays
	item.MaxRentalDays = input.MaxRentalDays
	item.AvailableFrom = dates.DayPtr(input.AvailableFrom)
	item.AvailableUntil = dates.DayPtr(input.AvailableUntil)
	return item, nil
}
