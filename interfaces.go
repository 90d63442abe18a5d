package sitepool

import "context"

// Manager hands out test sites from a fixed pool of slots.
//
// Implementations are safe for concurrent use. The manager returned by
// NewManager is a process-wide singleton.
type Manager interface {
	// Initialize prepares the pool for use: the slot registry, the optional
	// machine-wide slot leases, and the optional allocation ledger. It must
	// be called before the first Acquire. Calling Initialize on a ready
	// manager is a no-op; a failed call may be retried.
	Initialize(ctx context.Context) error

	// Acquire returns a ready test site. The pool prefers the site prepared
	// in the background and provisions one synchronously only on a cold
	// cache. When every slot is taken, Acquire fails fast with
	// ErrNoFreeSlots rather than waiting for one to be returned.
	Acquire(ctx context.Context) (Site, error)

	// Report hands a site back after its test run and tells the pool whether
	// the run passed. Passing runs return the slot for reuse; failing runs
	// drop it, unless the pool is nearly exhausted. Reporting a site twice
	// panics. Report only accepts sites acquired from this pool.
	Report(site Site, passed bool) error

	// Shutdown stops the pool, waits briefly for outstanding reports and the
	// background preparation, and releases slot leases and the ledger.
	// Shutdown is idempotent.
	Shutdown() error
}

// Site is one acquired test site, owned by the caller from Acquire until
// Report.
type Site interface {
	// Info returns the site's backend details: its name and its public and
	// management URLs. Info fails with ErrSiteReported once the site has
	// been reported, because the slot may already belong to another caller.
	Info() (*SiteInfo, error)

	// ID returns the lease ID of this acquisition. Two acquisitions of the
	// same slot have different IDs.
	ID() string

	// Name returns the site name, for example "testsite-3".
	Name() string

	// Slot returns the pool slot index backing this site.
	Slot() int
}
