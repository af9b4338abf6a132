package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"pickup-address-matcher/pkg/config"
	"pickup-address-matcher/pkg/database"
)

// DBTest provides a real MySQL connection for integration tests. It uses
// DATABASE_URL_TEST if set, otherwise DATABASE_URL; tests are skipped when
// neither is present.
type DBTest struct {
	T   *testing.T
	DB  *database.DB
	SQL *sql.DB
}

func NewDBTest(t *testing.T) *DBTest {
	t.Helper()
	url := os.Getenv("DATABASE_URL_TEST")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("DATABASE_URL_TEST or DATABASE_URL not set; skipping integration tests")
	}

	cfg := config.Load()
	cfg.DatabaseURL = url
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := database.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	d := &DBTest{T: t, DB: db, SQL: db.Conn()}
	d.Truncate()
	t.Cleanup(d.Close)
	return d
}

func (d *DBTest) Close() {
	_ = d.DB.Close()
}

// Truncate empties the location tables. Aliases go first because of the
// foreign key.
func (d *DBTest) Truncate() {
	d.T.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, q := range []string{"DELETE FROM pickup_location_aliases", "DELETE FROM pickup_locations"} {
		if _, err := d.SQL.ExecContext(ctx, q); err != nil {
			d.T.Fatalf("truncate: %v", err)
		}
	}
}
