package postgresql_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/dukex/flowcore/pkg/persistence/persistencetest"
	"github.com/dukex/flowcore/pkg/persistence/postgresql"
	"github.com/dukex/flowcore/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"event_records", "workflow_states", "workflow_definitions", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres tests need docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowcore_test"),
			postgres.WithUsername("flowcore"),
			postgres.WithPassword("flowcore"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = store.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return store, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	manager := sqlbase.NewMigrationManager(slog.New(slog.NewTextHandler(io.Discard, nil)), db, map[int]string{1: "", 2: ""})

	version, err := manager.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, manager.LatestVersion(), version)

	// running again is a no-op
	require.NoError(t, manager.RunMigrations(ctx))
}

func TestPostgresPersistence(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.Persistence {
		store, _, _ := setupTestDB(t)

		return store
	})
}
