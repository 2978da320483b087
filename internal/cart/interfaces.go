package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindActive(ctx context.Context, userID, storeID uuid.UUID) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	SetCoupon(ctx context.Context, cartID uuid.UUID, couponID *uuid.UUID) error
	FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindLine(ctx context.Context, cartID, lineID uuid.UUID) (*models.CartLine, error)
	CreateLine(ctx context.Context, line *models.CartLine) error
	SaveLine(ctx context.Context, line *models.CartLine) error
	DeactivateLine(ctx context.Context, lineID uuid.UUID) error
}

type couponFinder interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
}
