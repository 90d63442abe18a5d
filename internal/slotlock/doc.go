// Package slotlock provides cross-process slot leases backed by file locks.
//
// Each slot index maps to one lock file in a shared lease directory. A
// process that takes a slot holds the file lock for as long as it owns the
// index; other processes sharing the directory skip leased slots. Locks are
// advisory and released automatically by the OS when the process exits.
package slotlock
