package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/config"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/platform/sqlstore"
	"github.com/phrazzld/mission-control/internal/store"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// URLEnv names the variable that points tests at a PostgreSQL database.
const URLEnv = "MC_TEST_DATABASE_URL"

// Config returns the database settings Open uses for t.
func Config(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if url := os.Getenv(URLEnv); url != "" {
		return config.DatabaseConfig{Driver: "postgres", URL: url, MaxOpenConns: 4}
	}
	return config.DatabaseConfig{
		Driver:       "sqlite",
		URL:          filepath.Join(t.TempDir(), "mission-control.db"),
		MaxOpenConns: 4,
	}
}

// Open returns a migrated database that is closed when the test ends.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	log, _ := logger.NewCapture()
	db, err := sqlstore.Open(ctx, Config(t), log)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(ctx, db, log), "failed to migrate test database")
	return db
}

// WithTx runs fn inside a transaction that is always rolled back afterwards.
func WithTx(t *testing.T, db *sqlx.DB, fn func(t *testing.T, tx *sqlx.Tx)) {
	t.Helper()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// Identity inserts an identity with the given display name.
func Identity(t *testing.T, db store.DBTX, name string) *domain.Identity {
	t.Helper()
	identity, err := domain.NewIdentity(name, "🤖", "")
	require.NoError(t, err)
	require.NoError(t, sqlstore.NewIdentityStore(db, nil).Create(context.Background(), identity))
	return identity
}

// Thread inserts a thread with the given title.
func Thread(t *testing.T, db store.DBTX, title string) *domain.Thread {
	t.Helper()
	thread, err := domain.NewThread(title)
	require.NoError(t, err)
	require.NoError(t, sqlstore.NewThreadStore(db, nil).Create(context.Background(), thread))
	return thread
}
