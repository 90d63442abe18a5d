package sitepool

import "time"

// Defaults applied by NewManager when the matching option is not given.
const (
	// DefaultPoolSize is the number of slots the pool manages.
	DefaultPoolSize = 5

	// DefaultSlotPrefix is prepended to slot indexes to form site names.
	DefaultSlotPrefix = "testsite-"

	// DefaultAcquireTimeout bounds one Acquire call, including the wait for
	// an in-flight background preparation.
	DefaultAcquireTimeout = 2 * time.Minute

	// DefaultProvisionTimeout bounds provisioning one site. Creating a site
	// from scratch is the slowest operation the pool performs.
	DefaultProvisionTimeout = 90 * time.Second

	// DefaultCleanupTimeout bounds the recycle pipeline of one site.
	DefaultCleanupTimeout = 30 * time.Second

	// DefaultShutdownDrainTimeout is how long Shutdown waits for in-flight
	// work before releasing resources anyway.
	DefaultShutdownDrainTimeout = 30 * time.Second

	// DefaultStaleHandleMarker matches the file handles of worker processes
	// that survived an earlier test run. Any process holding a handle whose
	// path contains this substring is killed during recycling.
	DefaultStaleHandleMarker = "wwwroot"

	// DefaultMarkerFileName is the placeholder file reseeded into a recycled
	// site's web root.
	DefaultMarkerFileName = "hostingstart.html"

	// DefaultAdminRateLimit is the request rate (per second) allowed against
	// the admin API.
	DefaultAdminRateLimit = 10.0

	// DefaultAdminRateBurst is the admin API rate limiter's burst size.
	DefaultAdminRateBurst = 20
)
