// Package dbtest opens throwaway in-memory SQLite databases carrying the
// marketplace schema, for service and repository tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		seller_status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE items (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT,
		sale_type TEXT NOT NULL,
		status TEXT NOT NULL,
		currency TEXT NOT NULL,
		starting_price NUMERIC NOT NULL DEFAULT 0,
		buy_now_price NUMERIC,
		auction_end DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE bids (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		bidder_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE requests (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT,
		budget_max NUMERIC,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		chosen_offer_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE offers (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		description TEXT NOT NULL,
		price NUMERIC NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE deals (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		item_id TEXT,
		request_id TEXT,
		offer_id TEXT,
		total_price NUMERIC NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_deals_active_item ON deals (item_id) WHERE item_id IS NOT NULL AND status <> 'CANCELLED'`,
	`CREATE UNIQUE INDEX ux_deals_offer ON deals (offer_id) WHERE offer_id IS NOT NULL`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE wishlist_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		created_at DATETIME,
		CONSTRAINT ux_wishlist_items_user_item UNIQUE (user_id, item_id)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlqs (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// New returns a fresh database private to the calling test.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:jb_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// one connection keeps the shared-cache database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
