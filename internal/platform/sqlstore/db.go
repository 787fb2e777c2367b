package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/config"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Dialect names a supported backend.
type Dialect string

// Supported dialects.
const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// sqlitePragmas are appended to SQLite DSNs that carry no query string.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() (string, error) {
	switch d {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", string(d))
	}
}

// DialectOf reports the dialect of an open database.
func DialectOf(db *sqlx.DB) Dialect {
	if db.DriverName() == "sqlite" {
		return DialectSQLite
	}
	return DialectPostgres
}

// SQLiteDSN adds the connection pragmas the stores rely on (foreign keys, busy
// timeout, WAL, sortable timestamps) to a bare SQLite path or file: URI.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		path = "file:" + path
	}
	return path + "?" + sqlitePragmas
}

// Open connects to the configured database, configures the pool and pings it.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialect := Dialect(cfg.Driver)
	driver, err := dialect.DriverName()
	if err != nil {
		return nil, err
	}

	dsn := cfg.URL
	if dialect == DialectSQLite {
		dsn = SQLiteDSN(cfg.URL)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if dialect == DialectSQLite && strings.Contains(dsn, ":memory:") {
		// Every connection to :memory: is a separate database.
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		slog.String("driver", driver),
		slog.Int("max_open_conns", maxOpen))
	return db, nil
}
