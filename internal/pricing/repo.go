package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
)

// Repository loads the pricing inputs of a cart and stores the derived amounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	LockCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	FindCoupon(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error)
	ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	CouponsByProduct(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]models.Coupon, error)
	SaveLineSubtotal(ctx context.Context, lineID uuid.UUID, subtotal decimal.Decimal) error
	SaveCartTotal(ctx context.Context, cartID uuid.UUID, total decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).First(&cart, "id = ?", cartID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) LockCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&cart, "id = ?", cartID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindCoupon(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "id = ?", couponID).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ListLines returns active lines with their inventory, oldest first.
func (r *repository) ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Preload("InventoryItem").
		Where("cart_id = ? AND is_active = ?", cartID, true).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) CouponsByProduct(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]models.Coupon, error) {
	out := make(map[uuid.UUID][]models.Coupon, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var links []models.ProductCoupon
	err := r.db.WithContext(ctx).
		Preload("Coupon").
		Where("product_id IN ?", productIDs).
		Order("created_at ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		if link.Coupon == nil {
			continue
		}
		out[link.ProductID] = append(out[link.ProductID], *link.Coupon)
	}
	return out, nil
}

func (r *repository) SaveLineSubtotal(ctx context.Context, lineID uuid.UUID, subtotal decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{"subtotal": subtotal, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) SaveCartTotal(ctx context.Context, cartID uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"total_amount": total, "updated_at": time.Now().UTC()}).Error
}
