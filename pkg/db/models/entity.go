package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entity carries the identity and audit columns shared by every domain table.
type Entity struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	IsActive  bool      `gorm:"column:is_active;not null" json:"isActive"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// NewEntity returns an active entity with a fresh id.
func NewEntity() Entity {
	return Entity{ID: uuid.New(), IsActive: true}
}

// BeforeCreate assigns an id when the caller left it empty.
func (e *Entity) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
