package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/phrazzld/taskstore/internal/redact"
)

// NewDB establishes a connection to the database and configures the
// connection pool. Returns the database connection if successful, or an
// error if the connection fails.
func NewDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		// Driver errors echo the DSN, which carries credentials
		return nil, fmt.Errorf("failed to open database connection to %s: %s",
			redact.URL(url), redact.Error(err))
	}

	// Reasonable pool defaults for a single-writer workload
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database at %s: %s",
			redact.URL(url), redact.Error(err))
	}

	return db, nil
}
