package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// Repository persists payments and performs the stock mutations checkout commits.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	LockByIntentID(ctx context.Context, intentRef string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	ListByCart(ctx context.Context, cartID uuid.UUID, owner *uuid.UUID) ([]models.Payment, error)
	Save(ctx context.Context, payment *models.Payment) error

	LockCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	UpdateCartStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) error
	ListCartLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)

	LockItems(ctx context.Context, ids []uuid.UUID) ([]models.InventoryItem, error)
	DecrementStock(ctx context.Context, itemID uuid.UUID, qty int) (bool, error)
	IncrementStock(ctx context.Context, itemID uuid.UUID, qty int) error
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

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) LockByIntentID(ctx context.Context, intentRef string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.ForUpdate(r.db.WithContext(ctx)).
		First(&payment, "gateway_intent_id = ?", intentRef).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListByCart returns the cart's payments, restricted to owner when set.
func (r *repository) ListByCart(ctx context.Context, cartID uuid.UUID, owner *uuid.UUID) ([]models.Payment, error) {
	q := r.db.WithContext(ctx).Where("cart_id = ?", cartID)
	if owner != nil {
		q = q.Where("user_id = ?", *owner)
	}
	var rows []models.Payment
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) Save(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"status":            payment.Status,
			"payment_date":      payment.PaymentDate,
			"gateway_charge_id": payment.GatewayChargeID,
			"gateway_refund_id": payment.GatewayRefundID,
			"notes":             payment.Notes,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *repository) LockCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&cart, "id = ?", cartID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) UpdateCartStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) ListCartLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.WithContext(ctx).
		Preload("InventoryItem.Product").
		Where("cart_id = ? AND is_active = ?", cartID, true).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// LockItems takes row locks in ascending id order so concurrent checkouts cannot deadlock.
func (r *repository) LockItems(ctx context.Context, ids []uuid.UUID) ([]models.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	if err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DecrementStock is a conditional decrement; false means the row no longer had qty units.
func (r *repository) DecrementStock(ctx context.Context, itemID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND quantity >= ?", itemID, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementStock(ctx context.Context, itemID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": time.Now().UTC(),
		}).Error
}
