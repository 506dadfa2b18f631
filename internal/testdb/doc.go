//go:build integration

// Package testdb provides helpers for tests that need a real PostgreSQL database.
//
// Tests are skipped unless DATABASE_URL or SCRY_TEST_DB_URL is set. The schema
// is migrated once per connection with the embedded goose migrations, and the
// connection is closed when the test finishes.
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        // changes are rolled back afterwards
//	    })
//	}
package testdb
