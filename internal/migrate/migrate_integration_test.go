//go:build integration

package migrate

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("fruitstand"),
		postgres.WithUsername("fruit"),
		postgres.WithPassword("fruit"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.PingContext(ctx))
	return db
}

func TestRunMigrationsPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := startPostgres(t)

	require.NoError(t, RunMigrations(db, DriverPostgres))
	// The sequence statement runs on every start.
	require.NoError(t, RunMigrations(db, DriverPostgres))

	version, dirty, err := GetMigrationVersion(db, DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM fruits").Scan(&count))
	assert.Equal(t, 7, count)

	// Seeded ids are explicit; new rows must not collide with them.
	var id int
	require.NoError(t, db.QueryRow(
		"INSERT INTO fruits (name, vote_count) VALUES ('Kiwi', 1) RETURNING id").Scan(&id))
	assert.Equal(t, 8, id)

	require.NoError(t, RollbackMigrations(db, DriverPostgres))
	var exists bool
	require.NoError(t, db.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'fruits')").Scan(&exists))
	assert.False(t, exists)
}
