package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

// Notification stores in-app notices for a user.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID              `gorm:"type:uuid;not null;index"`
	Type      enums.NotificationType `gorm:"type:text;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
