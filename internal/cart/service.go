package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/internal/pricing"
	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/internal/stock"
	"github.com/angelmondragon/sportshub-backend/pkg/dates"
	"github.com/angelmondragon/sportshub-backend/pkg/db"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AddLineInput adds an inventory item to the caller's cart.
type AddLineInput struct {
	CartID           uuid.UUID
	UserID           uuid.UUID
	InventoryItemID  uuid.UUID
	Quantity         int
	StartDate        *time.Time
	EstimatedEndDate *time.Time
}

// UpdateLineInput changes only the fields that are set.
type UpdateLineInput struct {
	CartID           uuid.UUID
	LineID           uuid.UUID
	UserID           uuid.UUID
	Quantity         *int
	StartDate        *time.Time
	EstimatedEndDate *time.Time
	EndDate          *time.Time
}

// Service owns cart contents. Every mutation reprices the cart before committing.
type Service struct {
	repo    CartRepository
	tx      txRunner
	rentals *rentals.Engine
	pricing *pricing.Engine
	coupons couponFinder
	logg    *logger.Logger
	now     func() time.Time
}

type ServiceParams struct {
	Repository CartRepository
	TxRunner   txRunner
	Rentals    *rentals.Engine
	Pricing    *pricing.Engine
	Coupons    couponFinder
	Logger     *logger.Logger
	Now        func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Rentals == nil {
		return nil, fmt.Errorf("rental availability engine required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon finder required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    params.Repository,
		tx:      params.TxRunner,
		rentals: params.Rentals,
		pricing: params.Pricing,
		coupons: params.Coupons,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// GetOrCreateActive returns the user's open cart for the store, creating it on first use.
func (s *Service) GetOrCreateActive(ctx context.Context, userID, storeID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil || storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and store id are required")
	}
	existing, err := s.repo.FindActive(ctx, userID, storeID)
	if err == nil {
		return existing, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active cart")
	}

	cart := &models.Cart{
		Entity:      models.NewEntity(),
		UserID:      userID,
		StoreID:     storeID,
		Status:      enums.CartStatusActive,
		TotalAmount: decimal.Zero,
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		// Lost a race against a concurrent first request.
		if db.IsUniqueViolation(err, "") {
			existing, ferr := s.repo.FindActive(ctx, userID, storeID)
			if ferr == nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	if s.logg != nil {
		logCtx := s.logg.WithCartID(s.logg.WithUserID(ctx, userID.String()), cart.ID.String())
		s.logg.Info(logCtx, "cart opened")
	}
	return s.Get(ctx, cart.ID, userID)
}

// Get returns the cart with its active lines.
func (s *Service) Get(ctx context.Context, cartID, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, lookupError(err, "cart not found", "load cart")
	}
	if cart.UserID != userID {
		return nil, forbidden()
	}
	return cart, nil
}

func (s *Service) AddLine(ctx context.Context, input AddLineInput) (*models.Cart, error) {
	if input.Quantity <= 0 {
		return nil, quantityError()
	}
	err := s.mutate(ctx, input.CartID, input.UserID, func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error {
		item, err := repo.FindItem(ctx, input.InventoryItemID)
		if err != nil {
			return lookupError(err, "inventory item not found", "load inventory item")
		}
		line := &models.CartLine{
			Entity:          models.NewEntity(),
			CartID:          cart.ID,
			InventoryItemID: item.ID,
			Quantity:        input.Quantity,
			Subtotal:        decimal.Zero,
		}
		if item.IsRental() {
			line.StartDate = dates.DayPtr(input.StartDate)
			line.EstimatedEndDate = dates.DayPtr(input.EstimatedEndDate)
		}
		if err := s.checkLine(ctx, tx, cart, item, line); err != nil {
			return err
		}
		if err := repo.CreateLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, input.CartID, input.UserID)
}

func (s *Service) UpdateLine(ctx context.Context, input UpdateLineInput) (*models.Cart, error) {
	if input.Quantity != nil && *input.Quantity <= 0 {
		return nil, quantityError()
	}
	err := s.mutate(ctx, input.CartID, input.UserID, func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error {
		line, err := repo.FindLine(ctx, cart.ID, input.LineID)
		if err != nil {
			return lookupError(err, "cart line not found", "load cart line")
		}
		item, err := repo.FindItem(ctx, line.InventoryItemID)
		if err != nil {
			return lookupError(err, "inventory item not found", "load inventory item")
		}
		if input.Quantity != nil {
			line.Quantity = *input.Quantity
		}
		if item.IsRental() {
			if input.StartDate != nil {
				line.StartDate = dates.DayPtr(input.StartDate)
			}
			if input.EstimatedEndDate != nil {
				line.EstimatedEndDate = dates.DayPtr(input.EstimatedEndDate)
			}
			if input.EndDate != nil {
				line.EndDate = dates.DayPtr(input.EndDate)
			}
		}
		if err := s.checkLine(ctx, tx, cart, item, line); err != nil {
			return err
		}
		if err := repo.SaveLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, input.CartID, input.UserID)
}

// RemoveLine soft-deletes the line.
func (s *Service) RemoveLine(ctx context.Context, cartID, lineID, userID uuid.UUID) (*models.Cart, error) {
	err := s.mutate(ctx, cartID, userID, func(_ *gorm.DB, repo CartRepository, cart *models.Cart) error {
		if _, err := repo.FindLine(ctx, cart.ID, lineID); err != nil {
			return lookupError(err, "cart line not found", "load cart line")
		}
		if err := repo.DeactivateLine(ctx, lineID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, cartID, userID)
}

// ApplyCoupon sets the cart-level coupon, replacing any previous one.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, userID uuid.UUID, code string) (*models.Cart, error) {
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !coupon.IsUsable(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is inactive or expired").
			WithDetails(map[string]any{"field": "code", "code": coupon.Code})
	}
	err = s.mutate(ctx, cartID, userID, func(_ *gorm.DB, repo CartRepository, cart *models.Cart) error {
		if err := repo.SetCoupon(ctx, cart.ID, &coupon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply coupon")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, cartID, userID)
}

func (s *Service) RemoveCoupon(ctx context.Context, cartID, userID uuid.UUID) (*models.Cart, error) {
	err := s.mutate(ctx, cartID, userID, func(_ *gorm.DB, repo CartRepository, cart *models.Cart) error {
		if err := repo.SetCoupon(ctx, cart.ID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove coupon")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, cartID, userID)
}

// mutate locks an owned ACTIVE cart, applies fn and reprices in the same transaction.
func (s *Service) mutate(ctx context.Context, cartID, userID uuid.UUID, fn func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.LockByID(ctx, cartID)
		if err != nil {
			return lookupError(err, "cart not found", "lock cart")
		}
		if cart.UserID != userID {
			return forbidden()
		}
		if cart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "cart is no longer open").
				WithDetails(map[string]any{"status": cart.Status})
		}
		if err := fn(tx, repo, cart); err != nil {
			return err
		}
		_, err = s.pricing.Recompute(ctx, tx, cart.ID)
		return err
	})
}

func (s *Service) checkLine(ctx context.Context, tx *gorm.DB, cart *models.Cart, item *models.InventoryItem, line *models.CartLine) error {
	if !item.IsActive {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "inventory item is no longer offered")
	}
	if item.StoreID != cart.StoreID {
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory item belongs to a different store").
			WithDetails(map[string]any{"field": "inventoryItemId"})
	}
	name := ""
	if item.Product != nil {
		name = item.Product.Name
	}

	if !item.IsRental() {
		if item.Quantity < line.Quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, stock.InsufficientStockMessage(name, item.Quantity, line.Quantity)).
				WithDetails(map[string]any{
					"product":   name,
					"requested": line.Quantity,
					"available": item.Quantity,
				})
		}
		return nil
	}

	end := line.RentalEnd()
	if line.StartDate == nil || end == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rental lines require a start date and an estimated end date").
			WithDetails(map[string]any{"field": "rentalDates"})
	}
	availability, err := s.rentals.WithTx(tx).CheckItem(ctx, item, rentals.AvailabilityRequest{
		InventoryItemID: item.ID,
		StartDate:       *line.StartDate,
		EndDate:         *end,
		Quantity:        line.Quantity,
	})
	if err != nil {
		return err
	}
	if !availability.IsAvailable {
		return pkgerrors.New(pkgerrors.CodeRentalNotAvailable, availability.Reason).
			WithDetails(map[string]any{
				"product":   name,
				"requested": line.Quantity,
				"available": availability.AvailableQty,
			})
	}
	return nil
}

func lookupError(err error, notFound, op string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func forbidden() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")
}

func quantityError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
		WithDetails(map[string]any{"field": "quantity"})
}
