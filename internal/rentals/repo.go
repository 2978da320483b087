package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// Repository persists reservations and reads the rentable inventory they draw from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	LockItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListOverlapping(ctx context.Context, itemID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]models.Reservation, error)
	ListActiveFrom(ctx context.Context, itemID uuid.UUID, from time.Time) ([]models.Reservation, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReservationStatus, isActive bool) error
	ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.Reservation, error)
	ListByCartLines(ctx context.Context, lineIDs []uuid.UUID, statuses []enums.ReservationStatus) ([]models.Reservation, error)
	ListDueForActivation(ctx context.Context, today time.Time) ([]models.Reservation, error)
	ListDueForCompletion(ctx context.Context, today time.Time) ([]models.Reservation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided database handle.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).Preload("Product").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) LockItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListOverlapping returns capacity-holding reservations whose inclusive range touches [start, end].
func (r *repository) ListOverlapping(ctx context.Context, itemID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]models.Reservation, error) {
	query := r.db.WithContext(ctx).
		Where("inventory_item_id = ? AND is_active = ?", itemID, true).
		Where("status IN ?", enums.CapacityHoldingStatuses).
		Where("start_date <= ? AND end_date >= ?", end, start)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	var rows []models.Reservation
	if err := query.Order("start_date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveFrom returns capacity-holding reservations that have not ended before from.
func (r *repository) ListActiveFrom(ctx context.Context, itemID uuid.UUID, from time.Time) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("inventory_item_id = ? AND is_active = ?", itemID, true).
		Where("status IN ?", enums.CapacityHoldingStatuses).
		Where("end_date >= ?", from).
		Order("start_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var row models.Reservation
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var row models.Reservation
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReservationStatus, isActive bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"is_active":  isActive,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("inventory_item_id = ? AND is_active = ?", itemID, true).
		Order("start_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByCartLines(ctx context.Context, lineIDs []uuid.UUID, statuses []enums.ReservationStatus) ([]models.Reservation, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).Where("cart_line_id IN ?", lineIDs)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.Reservation
	err := query.Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) ListDueForActivation(ctx context.Context, today time.Time) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_active = ? AND start_date <= ?", enums.ReservationStatusConfirmed, true, today).
		Order("start_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListDueForCompletion(ctx context.Context, today time.Time) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_active = ? AND end_date < ?", enums.ReservationStatusActive, true, today).
		Order("end_date ASC").
		Find(&rows).Error
	return rows, err
}
