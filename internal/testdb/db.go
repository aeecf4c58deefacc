// Package testdb provides database helpers for integration tests. Tests that
// need a real Postgres instance connect through here so skip behavior and
// pool setup stay in one place.
package testdb

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx database/sql driver

	"github.com/phrazzld/taskstore/internal/redact"
)

// EnvDatabaseURL names the environment variable holding the test database
// connection string.
const EnvDatabaseURL = "TASKSTORE_TEST_DATABASE_URL"

// Connect opens a connection to the test database named by EnvDatabaseURL,
// registering cleanup on t. The test is skipped when the variable is unset,
// so integration tests stay opt-in.
func Connect(t *testing.T) *sql.DB {
	t.Helper()

	url := URL(t)

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("failed to open test database connection to %s: %v",
			redact.URL(url), err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database at %s: %s",
			redact.URL(url), redact.Error(err))
	}

	return db
}

// URL returns the test database connection string, skipping the test when
// none is configured.
func URL(t *testing.T) string {
	t.Helper()

	url := os.Getenv(EnvDatabaseURL)
	if url == "" {
		t.Skipf("%s not set; skipping database integration test", EnvDatabaseURL)
	}
	return url
}
