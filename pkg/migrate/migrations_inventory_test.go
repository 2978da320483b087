package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/sportshub-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_inventory_items")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_items",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CHECK (quantity >= 0)",
		"CHECK (unit_type IN ('SALE', 'RENTAL'))",
		"DROP TABLE IF EXISTS inventory_items",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartMigrationAllowsOneActiveCartPerStore(t *testing.T) {
	content := readMigration(t, "create_carts")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_active_user_store",
		"WHERE status = 'ACTIVE' AND is_active",
		"CHECK (quantity > 0)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestReservationMigrationRejectsEmptyPeriod(t *testing.T) {
	content := readMigration(t, "create_reservations")
	if !strings.Contains(content, "CHECK (end_date > start_date)") {
		t.Error("reservations must reject end_date <= start_date")
	}
}
