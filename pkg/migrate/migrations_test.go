package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestMigrationsContainSchemas(t *testing.T) {
	cases := map[string][]string{
		"*_create_users_table.sql": {
			"CREATE TABLE IF NOT EXISTS users",
			"payment_method text CHECK",
			"shipping_address jsonb",
		},
		"*_create_products_table.sql": {
			"CREATE TABLE IF NOT EXISTS products",
			"stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0)",
		},
		"*_create_carts_table.sql": {
			"CREATE TABLE IF NOT EXISTS carts",
			"version bigint NOT NULL DEFAULT 0",
			"CONSTRAINT carts_single_owner",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_session_cart_id",
		},
		"*_create_orders_tables.sql": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CREATE TABLE IF NOT EXISTS order_items",
			"ON DELETE CASCADE",
			"CONSTRAINT orders_delivered_requires_paid",
		},
	}

	for pattern, checks := range cases {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob %s: %v", pattern, err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected one migration for %s, got %d", pattern, len(matches))
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.ValidateEmbedded(); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
}

func TestCreateSQLMigrationKeepsVersionsOrdered(t *testing.T) {
	dir := t.TempDir()
	first, err := migrate.CreateSQLMigration(dir, "add carts index")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := migrate.CreateSQLMigration(dir, "add orders index")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if filepath.Base(first)[:14] >= filepath.Base(second)[:14] {
		t.Fatalf("expected increasing versions, got %s then %s", first, second)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateDirRejectsDownBeforeUp(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x();\n")
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_swapped.sql"), body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected section order error")
	}
}
