package rentals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/dates"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
)

// AvailabilityRequest asks whether Quantity units are free on every day of [StartDate, EndDate].
type AvailabilityRequest struct {
	InventoryItemID      uuid.UUID
	StartDate            time.Time
	EndDate              time.Time
	Quantity             int
	ExcludeReservationID *uuid.UUID
}

// Availability is the outcome of a peak-day capacity check.
type Availability struct {
	InventoryItemID uuid.UUID `json:"inventoryItemId"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	RequestedQty    int       `json:"requestedQty"`
	AvailableQty    int       `json:"availableQty"`
	IsAvailable     bool      `json:"isAvailable"`
	Reason          string    `json:"reason"`
	PeakReserved    int       `json:"peakReserved"`
	TotalQty        int       `json:"totalQty"`
}

// Engine answers rental availability questions against persisted reservations.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an availability engine.
func NewEngine(repo Repository, opts ...EngineOption) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("rental repository required")
	}
	e := &Engine{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// WithTx rebinds the engine so reads observe the caller's transaction and locks.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	return &Engine{repo: e.repo.WithTx(tx), now: e.now}
}

// Today returns the engine's current calendar day.
func (e *Engine) Today() time.Time {
	return dates.Day(e.now())
}

// CheckAvailability loads the item and its overlapping reservations and evaluates the request.
func (e *Engine) CheckAvailability(ctx context.Context, req AvailabilityRequest) (Availability, error) {
	item, err := e.repo.FindItem(ctx, req.InventoryItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Availability{}, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
				WithDetails(map[string]any{"inventoryItemId": req.InventoryItemID})
		}
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory item")
	}
	return e.CheckItem(ctx, item, req)
}

// CheckItem evaluates the request against an item the caller already holds, typically row-locked.
func (e *Engine) CheckItem(ctx context.Context, item *models.InventoryItem, req AvailabilityRequest) (Availability, error) {
	req.StartDate = dates.Day(req.StartDate)
	req.EndDate = dates.Day(req.EndDate)
	if err := ValidatePeriod(item, req.StartDate, req.EndDate, e.Today()); err != nil {
		return Availability{}, err
	}
	reservations, err := e.repo.ListOverlapping(ctx, item.ID, req.StartDate, req.EndDate, req.ExcludeReservationID)
	if err != nil {
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reservations")
	}
	return Evaluate(item, reservations, req, e.Today())
}

// Evaluate validates the request and computes availability from the supplied reservations.
func Evaluate(item *models.InventoryItem, reservations []models.Reservation, req AvailabilityRequest, today time.Time) (Availability, error) {
	if item == nil {
		return Availability{}, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	start := dates.Day(req.StartDate)
	end := dates.Day(req.EndDate)
	if err := ValidatePeriod(item, start, end, today); err != nil {
		return Availability{}, err
	}
	if req.Quantity <= 0 {
		return Availability{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
			WithDetails(map[string]any{"field": "quantity"})
	}

	considered := reservations
	if req.ExcludeReservationID != nil {
		considered = make([]models.Reservation, 0, len(reservations))
		for _, r := range reservations {
			if r.ID != *req.ExcludeReservationID {
				considered = append(considered, r)
			}
		}
	}

	peak := PeakReserved(considered, start, end)
	available := item.Quantity - peak
	if available < 0 {
		available = 0
	}
	result := Availability{
		InventoryItemID: item.ID,
		StartDate:       start,
		EndDate:         end,
		RequestedQty:    req.Quantity,
		AvailableQty:    available,
		IsAvailable:     available >= req.Quantity,
		PeakReserved:    peak,
		TotalQty:        item.Quantity,
	}
	if result.IsAvailable {
		result.Reason = "available for rental"
	} else {
		result.Reason = fmt.Sprintf("only %d units are available for the requested dates", available)
	}
	return result, nil
}

// ValidatePeriod applies the rental period rules in order; the first failure wins.
func ValidatePeriod(item *models.InventoryItem, start, end, today time.Time) error {
	if !item.IsRental() {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "inventory item is not rentable").
			WithDetails(map[string]any{"inventoryItemId": item.ID, "unitType": item.UnitType})
	}
	start, end, today = dates.Day(start), dates.Day(end), dates.Day(today)
	if start.Before(today) {
		return periodError("start date cannot be before today", "startDate")
	}
	if !end.After(start) {
		return periodError("end date must be after start date", "endDate")
	}
	if item.AvailableFrom != nil && start.Before(dates.Day(*item.AvailableFrom)) {
		return periodError(fmt.Sprintf("item is only available from %s", dates.Format(*item.AvailableFrom)), "startDate")
	}
	if item.AvailableUntil != nil && end.After(dates.Day(*item.AvailableUntil)) {
		return periodError(fmt.Sprintf("item is only available until %s", dates.Format(*item.AvailableUntil)), "endDate")
	}
	days := dates.DaysBetween(start, end)
	if item.MinRentalDays != nil && days < *item.MinRentalDays {
		return periodError(fmt.Sprintf("minimum rental period is %d days", *item.MinRentalDays), "endDate")
	}
	if item.MaxRentalDays != nil && days > *item.MaxRentalDays {
		return periodError(fmt.Sprintf("maximum rental period is %d days", *item.MaxRentalDays), "endDate")
	}
	return nil
}

// PeakReserved returns the largest total quantity held on any single day of [start, end].
// Only active, capacity-holding reservations count.
func PeakReserved(reservations []models.Reservation, start, end time.Time) int {
	start, end = dates.Day(start), dates.Day(end)
	peak := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		reserved := 0
		for _, r := range reservations {
			if !r.IsActive || !r.Status.HoldsCapacity() {
				continue
			}
			if day.Before(dates.Day(r.StartDate)) || day.After(dates.Day(r.EndDate)) {
				continue
			}
			reserved += r.Quantity
		}
		if reserved > peak {
			peak = reserved
		}
	}
	return peak
}

func periodError(msg, field string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidRentalPeriod, msg).WithDetails(map[string]any{"field": field})
}
