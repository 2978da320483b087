// Package dbtest opens throwaway in-memory databases carrying the full domain schema.
package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
)

// AllModels lists every table the service owns.
func AllModels() []any {
	return []any{
		&models.Product{},
		&models.InventoryItem{},
		&models.Reservation{},
		&models.Coupon{},
		&models.ProductCoupon{},
		&models.Cart{},
		&models.CartLine{},
		&models.Payment{},
		&models.LedgerEvent{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
		&models.Notification{},
	}
}

// Open returns an isolated sqlite database migrated with AllModels.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:dbtest_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(AllModels()...); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// TxRunner adapts a bare *gorm.DB to the WithTx surface services expect.
type TxRunner struct {
	DB *gorm.DB
}

// WithTx runs fn inside a transaction.
func (r TxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}
