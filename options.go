package sitepool

import (
	"fmt"
	"time"
)

// ManagerOption customizes the manager built by NewManager. Options
// validate their arguments eagerly and panic on invalid input, so a typo in
// test setup fails at the construction site instead of surfacing as a
// confusing runtime error later.
type ManagerOption func(*managerConfig)

func requirePositive[T int | float64 | time.Duration](option string, value T) {
	if value <= 0 {
		panic(fmt.Sprintf("sitepool: %s must be positive, got %v", option, value))
	}
}

func requireNonEmpty(option, value string) {
	if value == "" {
		panic(fmt.Sprintf("sitepool: %s must not be empty", option))
	}
}

// WithPoolSize sets how many slots the pool manages. Panics if size is not
// positive.
func WithPoolSize(size int) ManagerOption {
	requirePositive("pool size", size)
	return func(c *managerConfig) {
		c.PoolSize = size
	}
}

// WithSlotPrefix sets the prefix from which site names are formed. Panics if
// prefix is empty.
func WithSlotPrefix(prefix string) ManagerOption {
	requireNonEmpty("slot prefix", prefix)
	return func(c *managerConfig) {
		c.SlotPrefix = prefix
	}
}

// WithAcquireTimeout bounds one Acquire call. Panics if d is not positive.
func WithAcquireTimeout(d time.Duration) ManagerOption {
	requirePositive("acquire timeout", d)
	return func(c *managerConfig) {
		c.AcquireTimeout = d
	}
}

// WithProvisionTimeout bounds provisioning one site. Panics if d is not
// positive.
func WithProvisionTimeout(d time.Duration) ManagerOption {
	requirePositive("provision timeout", d)
	return func(c *managerConfig) {
		c.ProvisionTimeout = d
	}
}

// WithCleanupTimeout bounds the recycle pipeline of one site. Panics if d is
// not positive.
func WithCleanupTimeout(d time.Duration) ManagerOption {
	requirePositive("cleanup timeout", d)
	return func(c *managerConfig) {
		c.CleanupTimeout = d
	}
}

// WithShutdownDrainTimeout sets how long Shutdown waits for in-flight work.
// Panics if d is not positive.
func WithShutdownDrainTimeout(d time.Duration) ManagerOption {
	requirePositive("shutdown drain timeout", d)
	return func(c *managerConfig) {
		c.ShutdownDrainTimeout = d
	}
}

// WithAdminAPI points the pool at the site-admin gateway and wires all
// backends to it. The token may be empty for gateways that do not
// authenticate. Panics if baseURL is empty; the URL itself is validated when
// the manager is built. Ignored when WithBackends is also given.
func WithAdminAPI(baseURL, token string) ManagerOption {
	requireNonEmpty("admin API base URL", baseURL)
	return func(c *managerConfig) {
		c.adminBaseURL = baseURL
		c.adminToken = token
	}
}

// WithAdminRateLimit tunes the client-side rate limiter in front of the
// admin API. Panics if rps or burst is not positive.
func WithAdminRateLimit(rps float64, burst int) ManagerOption {
	requirePositive("admin API rate limit", rps)
	requirePositive("admin API rate burst", burst)
	return func(c *managerConfig) {
		c.adminRPS = rps
		c.adminBurst = burst
	}
}

// WithBackends injects custom backends instead of the admin API client,
// which is how tests run the pool against fakes. Panics if any required
// backend is missing. Takes precedence over WithAdminAPI.
func WithBackends(b Backends) ManagerOption {
	if err := b.Validate(); err != nil {
		panic(fmt.Sprintf("sitepool: invalid backends: %v", err))
	}
	return func(c *managerConfig) {
		c.Backends = b
	}
}

// WithLeaseDir enables machine-wide slot leasing through lock files in dir.
// Multiple processes sharing the directory never hold the same slot at the
// same time. Panics if dir is empty; use no option at all to disable
// leasing.
func WithLeaseDir(dir string) ManagerOption {
	requireNonEmpty("lease directory", dir)
	return func(c *managerConfig) {
		c.LeaseDir = dir
	}
}

// WithLedgerPath enables the allocation ledger, a SQLite file recording
// every acquisition and its outcome. Panics if path is empty; use no option
// at all to disable the ledger.
func WithLedgerPath(path string) ManagerOption {
	requireNonEmpty("ledger path", path)
	return func(c *managerConfig) {
		c.LedgerPath = path
	}
}

// WithStaleHandleMarker sets the substring that identifies stale worker
// processes by their open file handles. Panics if marker is empty.
func WithStaleHandleMarker(marker string) ManagerOption {
	requireNonEmpty("stale handle marker", marker)
	return func(c *managerConfig) {
		c.StaleHandleMarker = marker
	}
}

// WithMarkerFileName sets the placeholder file reseeded into recycled sites.
// Panics if name is empty.
func WithMarkerFileName(name string) ManagerOption {
	requireNonEmpty("marker file name", name)
	return func(c *managerConfig) {
		c.MarkerFileName = name
	}
}
