// Package ledger records pool allocations and their reported outcomes in a
// local SQLite database.
//
// The ledger is strictly write-only observability: the pool never reads it
// back, so allocation decisions stay purely in-memory. Write failures are
// surfaced to the caller, which logs and continues.
package ledger
