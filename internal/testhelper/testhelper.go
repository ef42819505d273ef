// Package testhelper provisions a PostgreSQL instance for integration
// tests: a disposable testcontainers instance when TESTCONTAINERS_POSTGRES
// is "1", or an externally supplied DATABASE_URL otherwise.
package testhelper

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultPostgresImage = "postgres:16-alpine"

// Database is a connection string plus the teardown that releases
// whatever backs it (a container, or nothing for an externally supplied
// database).
type Database struct {
	URL     string
	cleanup func()
}

// Close releases the database. Safe to call once per StartDatabase call.
func (d *Database) Close() {
	if d.cleanup != nil {
		d.cleanup()
	}
}

// StartDatabase returns a Database for t to run migrations and queries
// against. With TESTCONTAINERS_POSTGRES=1 it launches a disposable
// container; otherwise it requires DATABASE_URL to be set and uses that
// directly, letting CI point every integration test at one shared
// instance instead of a container per package.
func StartDatabase(t *testing.T) *Database {
	t.Helper()

	if os.Getenv("TESTCONTAINERS_POSTGRES") != "1" {
		url := os.Getenv("DATABASE_URL")
		if url == "" {
			t.Skip("DATABASE_URL not set and TESTCONTAINERS_POSTGRES!=1; skipping integration test")
		}
		return &Database{URL: url}
	}

	ctx := context.Background()

	image := os.Getenv("POSTGRES_TEST_IMAGE")
	if image == "" {
		image = defaultPostgresImage
	}

	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(30 * time.Second)

	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("objectstore_test"),
		postgres.WithUsername("objectstore"),
		postgres.WithPassword("objectstore"),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		t.Fatalf("get connection string: %v", err)
	}

	return &Database{
		URL: connStr,
		cleanup: func() {
			if err := ctr.Terminate(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "terminate postgres container: %v\n", err)
			}
		},
	}
}
