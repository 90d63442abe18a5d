package core

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/giantswarm/sitepool/internal/backend"
	"github.com/giantswarm/sitepool/internal/sentinel"
)

// ErrSiteReported is returned by Site.Info after the site has been handed
// back via Manager.Report.
const ErrSiteReported = sentinel.Error("sitepool: site already reported")

// Site is one acquired test site. A Site is owned by exactly one caller from
// Acquire until Report; after Report every accessor fails and a second
// Report panics.
type Site struct {
	slot    int
	name    string
	leaseID string
	info    *backend.SiteInfo
	reused  bool

	reported atomic.Bool
}

// newSite wraps a provisioned backend site. Panics describe programmer
// errors in the provisioning path, not runtime conditions.
func newSite(slot int, info *backend.SiteInfo, reused bool) *Site {
	if slot < 1 {
		panic(fmt.Sprintf("sitepool: site slot must be positive, got %d", slot))
	}
	if info == nil {
		panic("sitepool: site info must not be nil")
	}
	if info.Name == "" {
		panic("sitepool: site name must not be empty")
	}

	return &Site{
		slot:    slot,
		name:    info.Name,
		leaseID: uuid.NewString(),
		info:    info,
		reused:  reused,
	}
}

// ID returns the lease ID, unique per acquisition even when the same slot is
// handed out repeatedly.
func (s *Site) ID() string {
	return s.leaseID
}

// Name returns the site name, for example "testsite-3".
func (s *Site) Name() string {
	return s.name
}

// Slot returns the slot index backing this site.
func (s *Site) Slot() int {
	return s.slot
}

// Info returns a copy of the backend site details. It fails with
// ErrSiteReported once the site has been reported, so a stale handle cannot
// observe a slot that may already belong to someone else.
func (s *Site) Info() (*backend.SiteInfo, error) {
	if s.reported.Load() {
		return nil, ErrSiteReported
	}
	info := *s.info
	return &info, nil
}

// markReported flips the site into its terminal state. Reports false when
// the site was already reported.
func (s *Site) markReported() bool {
	return s.reported.CompareAndSwap(false, true)
}
