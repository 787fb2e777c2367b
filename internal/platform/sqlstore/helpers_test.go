package sqlstore_test

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/testdb"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return testdb.Open(t)
}

func mustIdentity(t *testing.T, db *sqlx.DB, name string) *domain.Identity {
	t.Helper()
	return testdb.Identity(t, db, name)
}

func mustThread(t *testing.T, db *sqlx.DB, title string) *domain.Thread {
	t.Helper()
	return testdb.Thread(t, db, title)
}
