package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
)

// Repository reads carts and the inventory their lines point at.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CartExists(ctx context.Context, cartID uuid.UUID) (bool, error)
	ListActiveLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
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

func (r *repository) CartExists(ctx context.Context, cartID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Cart{}).Where("id = ?", cartID).Count(&count).Error
	return count > 0, err
}

func (r *repository) ListActiveLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND is_active = ?", cartID, true).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).Preload("Product").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}
