package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/jewelbid-backend/pkg/migrate"
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

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate dir: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateDir(""); err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(embedded) != len(onDisk) {
		t.Fatalf("embedded %d migrations, %d on disk", len(embedded), len(onDisk))
	}
}

func TestValidateFSRejectsMissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101000000_broken.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	if err := migrate.ValidateFS(fsys); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDealsMigrationGuardsDoubleSelling(t *testing.T) {
	content := readMigration(t, "create_requests_offers_deals")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS deals",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_deals_active_item ON deals (item_id) WHERE item_id IS NOT NULL AND status <> 'CANCELLED'",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_deals_offer ON deals (offer_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_offers_one_accepted ON offers (request_id) WHERE status = 'ACCEPTED'",
		"CHECK ((item_id IS NOT NULL) <> (offer_id IS NOT NULL))",
		"DROP TABLE IF EXISTS deals",
	})
}

func TestItemsMigrationIndexesAuctionClose(t *testing.T) {
	content := readMigration(t, "create_items_and_bids")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS items",
		"CREATE TABLE IF NOT EXISTS bids",
		"WHERE sale_type = 'AUCTION' AND status = 'PUBLISHED'",
		"CHECK (amount > 0)",
		"DROP TABLE IF EXISTS bids",
	})
}
