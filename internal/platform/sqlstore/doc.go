// Package sqlstore implements the internal/store interfaces on top of sqlx.
// The same queries run against PostgreSQL (through the pgx stdlib driver) and
// SQLite (through modernc.org/sqlite); placeholders are written as ? and
// rebound per driver. Schema changes are embedded goose migrations.
package sqlstore
