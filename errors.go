package sitepool

import (
	"github.com/giantswarm/sitepool/internal/backend"
	"github.com/giantswarm/sitepool/internal/core"
	"github.com/giantswarm/sitepool/internal/sentinel"
)

// The pool's sentinel errors. All of them are plain values that survive
// wrapping, so callers match them with errors.Is.
const (
	// ErrNoFreeSlots is returned by Acquire when every slot is taken,
	// dropped, or leased by another process. The pool does not queue
	// callers; back off and retry, or report a held site first.
	ErrNoFreeSlots = core.ErrNoFreeSlots

	// ErrNotInitialized is returned when the manager is used before
	// Initialize has completed.
	ErrNotInitialized = core.ErrNotInitialized

	// ErrShuttingDown is returned once Shutdown has started.
	ErrShuttingDown = core.ErrShuttingDown

	// ErrSiteReported is returned by Site.Info after the site has been
	// reported back to the pool.
	ErrSiteReported = core.ErrSiteReported

	// ErrSiteNotFound is reported by Provisioner backends when no site
	// exists under a requested name.
	ErrSiteNotFound = backend.ErrSiteNotFound

	// ErrGatewayUnavailable marks failures caused by a site's management
	// gateway still starting up. Errors from Acquire may carry it after a
	// recycled site refused its marker file.
	ErrGatewayUnavailable = backend.ErrGatewayUnavailable

	// ErrForeignSite is returned by Report when the site was not acquired
	// from this pool.
	ErrForeignSite = sentinel.Error("sitepool: site was not acquired from this pool")
)
