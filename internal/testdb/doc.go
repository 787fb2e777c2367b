// Package testdb provides database fixtures for tests.
//
// Open returns a migrated database with cleanup registered on the test. By
// default it is a SQLite file in the test's temp directory, so tests need no
// external services. Setting MC_TEST_DATABASE_URL runs the same tests against
// PostgreSQL instead.
//
// # Basic Usage
//
//	func TestMyFeature(t *testing.T) {
//	    db := testdb.Open(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sqlx.Tx) {
//	        threads := sqlstore.NewThreadStore(tx, nil)
//	        // ...
//	    })
//	}
package testdb
