package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the cart repository to the provided database handle.
func NewRepository(conn *gorm.DB) CartRepository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActive(ctx context.Context, userID, storeID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.withLines(ctx).
		Where("user_id = ? AND store_id = ? AND status = ?", userID, storeID, enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.withLines(ctx).First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Omit("Lines", "Coupon").Create(cart).Error
}

func (r *repository) SetCoupon(ctx context.Context, cartID uuid.UUID, couponID *uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"coupon_id": couponID, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).Preload("Product").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindLine(ctx context.Context, cartID, lineID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ? AND is_active = ?", lineID, cartID, true).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) CreateLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Omit("InventoryItem").Create(line).Error
}

func (r *repository) SaveLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{
			"quantity":           line.Quantity,
			"start_date":         line.StartDate,
			"estimated_end_date": line.EstimatedEndDate,
			"end_date":           line.EndDate,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (r *repository) DeactivateLine(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Coupon").
		Preload("Lines", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("is_active = ?", true).Order("created_at ASC, id ASC")
		}).
		Preload("Lines.InventoryItem").
		Preload("Lines.InventoryItem.Product")
}
