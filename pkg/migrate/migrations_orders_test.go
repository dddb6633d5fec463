package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOrdersMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TYPE order_type AS ENUM",
		"CREATE TYPE order_status AS ENUM",
		"CREATE TYPE payment_status AS ENUM",
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_orders_pickup_token",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_orders_open_cart",
		"WHERE status = 'CART'",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProductsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_products.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"version INTEGER NOT NULL DEFAULT 1",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_products_sku_tenant",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSlotMigrationGuardsCapacity(t *testing.T) {
	content := readMigration(t, "*_create_pickup_time_slots_and_lanes.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS pickup_time_slots",
		"CONSTRAINT chk_slot_capacity CHECK (current_orders >= 0 AND current_orders <= capacity)",
		"CREATE TYPE lane_status AS ENUM",
		"CREATE TABLE IF NOT EXISTS staff_assignments",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
