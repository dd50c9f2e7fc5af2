// Package dbtest opens throwaway SQLite databases carrying the storefront
// schema for repository and service tests.
package dbtest

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'customer',
		shipping_address TEXT,
		payment_method TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		image TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE carts (
		id TEXT PRIMARY KEY,
		user_id TEXT UNIQUE,
		session_cart_id TEXT UNIQUE,
		items TEXT NOT NULL DEFAULT '[]',
		items_price NUMERIC NOT NULL DEFAULT 0,
		shipping_price NUMERIC NOT NULL DEFAULT 0,
		tax_price NUMERIC NOT NULL DEFAULT 0,
		total_price NUMERIC NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		shipping_address TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		items_price NUMERIC NOT NULL,
		shipping_price NUMERIC NOT NULL,
		tax_price NUMERIC NOT NULL,
		total_price NUMERIC NOT NULL,
		payment_result TEXT,
		is_paid BOOLEAN NOT NULL DEFAULT 0,
		paid_at DATETIME,
		is_delivered BOOLEAN NOT NULL DEFAULT 0,
		delivered_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		qty INTEGER NOT NULL CHECK (qty > 0),
		price NUMERIC NOT NULL,
		created_at DATETIME
	)`,
}

// Open returns a fresh in-memory database with the storefront tables. Each
// call gets its own database so tests do not share rows.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:storefront_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// a single connection serializes writers the way row locks would
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in a db.Client for code that needs the transaction runner.
func Client(t testing.TB) (*gorm.DB, *db.Client) {
	t.Helper()
	conn := Open(t)
	return conn, db.FromGorm(conn)
}
