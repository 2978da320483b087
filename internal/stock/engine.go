// Package stock decides whether every line of a cart can still be fulfilled.
// It never writes; checkout re-runs it under row locks before committing.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
)

const emptyCartMessage = "cart is empty"

// LineResult reports one line's verdict.
type LineResult struct {
	CartLineID      uuid.UUID      `json:"cartLineId,omitempty"`
	InventoryItemID uuid.UUID      `json:"inventoryItemId"`
	ProductName     string         `json:"productName"`
	UnitType        enums.UnitType `json:"unitType"`
	Requested       int            `json:"requestedQuantity"`
	Available       int            `json:"availableQuantity"`
	StartDate       *time.Time     `json:"startDate,omitempty"`
	EndDate         *time.Time     `json:"endDate,omitempty"`
	IsValid         bool           `json:"isValid"`
	Message         string         `json:"message"`
}

// Result aggregates a whole cart.
type Result struct {
	CartID  uuid.UUID    `json:"cartId"`
	IsValid bool         `json:"isValid"`
	Message string       `json:"message"`
	Lines   []LineResult `json:"lines"`
}

// LineInput is a single-line check outside any cart.
type LineInput struct {
	InventoryItemID uuid.UUID
	Quantity        int
	StartDate       *time.Time
	EndDate         *time.Time
}

type Engine struct {
	repo    Repository
	rentals *rentals.Engine
}

func NewEngine(repo Repository, rentalEngine *rentals.Engine) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if rentalEngine == nil {
		return nil, fmt.Errorf("rental availability engine required")
	}
	return &Engine{repo: repo, rentals: rentalEngine}, nil
}

// WithTx rebinds both the stock reads and the rental reads to tx.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	return &Engine{repo: e.repo.WithTx(tx), rentals: e.rentals.WithTx(tx)}
}

// ValidateCart checks every active line. Line failures are reported, not raised;
// only a missing cart or inventory row is an error.
func (e *Engine) ValidateCart(ctx context.Context, cartID uuid.UUID) (Result, error) {
	exists, err := e.repo.CartExists(ctx, cartID)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if !exists {
		return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found").
			WithDetails(map[string]any{"cartId": cartID})
	}

	lines, err := e.repo.ListActiveLines(ctx, cartID)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
	}
	result := Result{CartID: cartID, Lines: make([]LineResult, 0, len(lines))}
	if len(lines) == 0 {
		result.Message = emptyCartMessage
		return result, nil
	}

	var failures []string
	for _, line := range lines {
		lr, err := e.check(ctx, LineInput{
			InventoryItemID: line.InventoryItemID,
			Quantity:        line.Quantity,
			StartDate:       line.StartDate,
			EndDate:         line.RentalEnd(),
		})
		if err != nil {
			return Result{}, err
		}
		lr.CartLineID = line.ID
		result.Lines = append(result.Lines, lr)
		if !lr.IsValid {
			failures = append(failures, lr.Message)
		}
	}

	result.IsValid = len(failures) == 0
	if result.IsValid {
		result.Message = "all items are available"
	} else {
		result.Message = strings.Join(failures, "; ")
	}
	return result, nil
}

// ValidateLine checks one prospective line.
func (e *Engine) ValidateLine(ctx context.Context, input LineInput) (LineResult, error) {
	if input.Quantity <= 0 {
		return LineResult{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
			WithDetails(map[string]any{"field": "quantity"})
	}
	return e.check(ctx, input)
}

func (e *Engine) check(ctx context.Context, input LineInput) (LineResult, error) {
	item, err := e.repo.FindItem(ctx, input.InventoryItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LineResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
				WithDetails(map[string]any{"inventoryItemId": input.InventoryItemID})
		}
		return LineResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory item")
	}

	lr := LineResult{
		InventoryItemID: item.ID,
		ProductName:     productName(item),
		UnitType:        item.UnitType,
		Requested:       input.Quantity,
	}
	if !item.IsActive {
		lr.Message = fmt.Sprintf("'%s' is no longer offered", lr.ProductName)
		return lr, nil
	}
	switch item.UnitType {
	case enums.UnitTypeSale:
		return checkSale(item, lr), nil
	case enums.UnitTypeRental:
		return e.checkRental(ctx, item, input, lr)
	default:
		lr.Message = fmt.Sprintf("invalid unit type: %s", item.UnitType)
		return lr, nil
	}
}

func checkSale(item *models.InventoryItem, lr LineResult) LineResult {
	lr.Available = item.Quantity
	if item.Quantity >= lr.Requested {
		lr.IsValid = true
		lr.Message = "in stock"
		return lr
	}
	lr.Message = InsufficientStockMessage(lr.ProductName, item.Quantity, lr.Requested)
	return lr
}

func (e *Engine) checkRental(ctx context.Context, item *models.InventoryItem, input LineInput, lr LineResult) (LineResult, error) {
	lr.StartDate = input.StartDate
	lr.EndDate = input.EndDate
	if input.StartDate == nil || input.EndDate == nil {
		lr.Message = fmt.Sprintf("'%s' requires start and end dates for rental", lr.ProductName)
		return lr, nil
	}

	availability, err := e.rentals.CheckItem(ctx, item, rentals.AvailabilityRequest{
		InventoryItemID: item.ID,
		StartDate:       *input.StartDate,
		EndDate:         *input.EndDate,
		Quantity:        input.Quantity,
	})
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil || !foldable(typed.Code()) {
			return LineResult{}, err
		}
		lr.Message = fmt.Sprintf("'%s': %s", lr.ProductName, typed.Message())
		return lr, nil
	}

	lr.Available = availability.AvailableQty
	if availability.IsAvailable {
		lr.IsValid = true
		lr.Message = "available for the selected dates"
		return lr, nil
	}
	lr.Message = fmt.Sprintf("Insufficient stock to rent '%s' for the selected dates. Available: %d, Requested: %d",
		lr.ProductName, availability.AvailableQty, input.Quantity)
	return lr, nil
}

// InsufficientStockMessage is the wording shared by validation and checkout.
func InsufficientStockMessage(product string, available, requested int) string {
	return fmt.Sprintf("Insufficient stock for '%s'. Available: %d, Requested: %d", product, available, requested)
}

func foldable(code pkgerrors.Code) bool {
	switch code {
	case pkgerrors.CodeInvalidRentalPeriod, pkgerrors.CodeInvalidOperation, pkgerrors.CodeValidation:
		return true
	}
	return false
}

func productName(item *models.InventoryItem) string {
	if item.Product != nil && item.Product.Name != "" {
		return item.Product.Name
	}
	return "unknown product"
}
