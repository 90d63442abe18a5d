package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/giantswarm/sitepool/internal/backend"
)

// ManagerConfig carries every setting a Manager needs. The public package in
// the repository root assembles it from functional options and validates it
// before construction, so the zero value is never used directly.
type ManagerConfig struct {
	// Backends are the remote-site operations the pool runs against. All
	// required backends must be non-nil; see backend.Backends.Validate.
	Backends backend.Backends

	// PoolSize is the number of slot indexes, numbered 1 through PoolSize.
	PoolSize int

	// SlotPrefix is prepended to a slot index to form the site name, for
	// example "testsite-" yields testsite-1 through testsite-N.
	SlotPrefix string

	// AcquireTimeout bounds a single Acquire call, including any wait for an
	// in-flight background preparation.
	AcquireTimeout time.Duration

	// ProvisionTimeout bounds one site provisioning, covering lookup,
	// creation and the cleanup pipeline for a recycled site.
	ProvisionTimeout time.Duration

	// CleanupTimeout bounds the recycle pipeline on its own when it runs as
	// part of provisioning an existing site.
	CleanupTimeout time.Duration

	// ShutdownDrainTimeout is how long Shutdown waits for outstanding
	// Report calls and the in-flight background preparation to finish.
	ShutdownDrainTimeout time.Duration

	// StaleHandleMarker selects which processes the cleanup pipeline kills:
	// any process holding an open file handle whose path contains this
	// substring is considered a stale worker.
	StaleHandleMarker string

	// MarkerFileName is the placeholder file reseeded into a recycled
	// site's web root, relative to the web root.
	MarkerFileName string

	// LeaseDir is the directory for machine-wide slot lease files. Empty
	// disables leasing, in which case only this process's bookkeeping
	// guards slot ownership.
	LeaseDir string

	// LedgerPath is the SQLite file recording allocation history. Empty
	// disables the ledger.
	LedgerPath string
}

// Validate reports every violation at once so a misconfigured caller sees
// the full list instead of fixing one field per run.
func (c ManagerConfig) Validate() error {
	var errs []error

	if err := c.Backends.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("pool size must be greater than 0, got %d", c.PoolSize))
	}
	if c.SlotPrefix == "" {
		errs = append(errs, errors.New("slot prefix must not be empty"))
	}
	if c.AcquireTimeout <= 0 {
		errs = append(errs, fmt.Errorf("acquire timeout must be greater than 0, got %s", c.AcquireTimeout))
	}
	if c.ProvisionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("provision timeout must be greater than 0, got %s", c.ProvisionTimeout))
	}
	if c.CleanupTimeout <= 0 {
		errs = append(errs, fmt.Errorf("cleanup timeout must be greater than 0, got %s", c.CleanupTimeout))
	}
	if c.ShutdownDrainTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown drain timeout must be greater than 0, got %s", c.ShutdownDrainTimeout))
	}
	if c.StaleHandleMarker == "" {
		errs = append(errs, errors.New("stale handle marker must not be empty"))
	}
	if c.MarkerFileName == "" {
		errs = append(errs, errors.New("marker file name must not be empty"))
	}

	return errors.Join(errs...)
}

// SlotName forms the site name for a slot index.
func SlotName(prefix string, index int) string {
	return prefix + strconv.Itoa(index)
}
