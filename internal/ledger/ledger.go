package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"

	"github.com/giantswarm/sitepool/internal/fileutil"
)

// Reported outcomes for one allocation.
const (
	// OutcomeReturned records a slot returned to circulation after a
	// passing test run.
	OutcomeReturned = "returned"

	// OutcomeDiscarded records a slot dropped from circulation after a
	// failing test run while spare slots remained.
	OutcomeDiscarded = "discarded"

	// OutcomeReturnedLowFree records a slot returned despite a failing run
	// because the pool was near exhaustion and could not afford the drop.
	OutcomeReturnedLowFree = "returned_low_free"
)

// createTableSQL creates the allocations table. One row per acquisition;
// outcome columns stay NULL until the allocation is reported.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS allocations (
	lease_id    TEXT PRIMARY KEY,
	slot        INTEGER NOT NULL,
	site_name   TEXT NOT NULL,
	warm        INTEGER NOT NULL,
	reused      INTEGER NOT NULL,
	acquired_at TEXT NOT NULL,
	outcome     TEXT,
	reported_at TEXT
)`

// Entry describes one allocation at acquisition time.
type Entry struct {
	// LeaseID is the unique id of this acquisition.
	LeaseID string
	// Slot is the slot index the site was allocated from.
	Slot int
	// SiteName is the reusable site name for the slot.
	SiteName string
	// Warm records whether the site was served from the pending-next cache
	// (true) or provisioned synchronously on the cold path (false).
	Warm bool
	// Reused records whether the site already existed in the backend and
	// went through the recycle pipeline.
	Reused bool
}

// Ledger is an append-style allocation log backed by SQLite. It is safe for
// concurrent use by multiple goroutines.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if necessary) the ledger database at path and ensures
// the schema exists. The parent directory is created when missing.
//
// The DSN enables WAL mode, a generous busy timeout for concurrent writers
// from parallel test binaries sharing one ledger file, and relaxed
// synchronous mode, since the ledger is diagnostic data that does not need
// crash durability.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("prepare ledger directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}

	// Writes are short and serialized, one connection is enough.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create allocations table: %w", err)
	}

	return &Ledger{db: db}, nil
}

// RecordAcquire inserts one allocation row.
func (l *Ledger) RecordAcquire(ctx context.Context, e Entry) error {
	const insert = `
		INSERT INTO allocations (lease_id, slot, site_name, warm, reused, acquired_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := l.db.ExecContext(ctx, insert,
		e.LeaseID, e.Slot, e.SiteName, boolInt(e.Warm), boolInt(e.Reused), now())
	if err != nil {
		return fmt.Errorf("record acquire %s: %w", e.LeaseID, err)
	}
	return nil
}

// RecordOutcome marks the allocation with the given lease id as reported.
// Recording an outcome for an unknown lease id is an error: every reported
// site must have a matching acquire row.
func (l *Ledger) RecordOutcome(ctx context.Context, leaseID, outcome string) error {
	const update = `
		UPDATE allocations SET outcome = ?, reported_at = ? WHERE lease_id = ?`

	res, err := l.db.ExecContext(ctx, update, outcome, now(), leaseID)
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", leaseID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", leaseID, err)
	}
	if n == 0 {
		return fmt.Errorf("record outcome %s: no allocation row", leaseID)
	}
	return nil
}

// Close closes the underlying database. Safe to call multiple times.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// now returns the current UTC time in RFC 3339 format with nanoseconds,
// which sorts lexicographically.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// boolInt converts a bool to the 0/1 representation stored in SQLite.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
