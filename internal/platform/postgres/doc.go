// Package postgres provides the PostgreSQL implementation of store.ReviewStateStore
// and the embedded goose migrations that create its schema.
//
// Connections are opened through the pgx database/sql driver. Per-item updates
// run in a transaction that takes a transaction-scoped advisory lock on the
// (learner, item) pair, so concurrent first grades of a new item serialize
// just like updates of an existing row.
package postgres
