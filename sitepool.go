package sitepool

import (
	"context"
	"fmt"
	"sync"

	"github.com/giantswarm/sitepool/internal/core"
)

// The manager is a process-wide singleton: test packages all over a binary
// call NewManager independently and must end up sharing one pool, or they
// would fight over the same remote sites.
var (
	singletonMu      sync.Mutex
	singletonManager Manager
	singletonCreated bool
)

// NewManager returns the process-wide pool manager, building it on the first
// call. Options are applied on the first call only; later calls return the
// existing manager and log a warning when they carry options, because those
// options have no effect.
//
// NewManager panics on invalid options, on a config rejected by validation,
// and when neither WithAdminAPI nor WithBackends was given.
//
//nolint:ireturn // the concrete manager stays private so nothing can bypass the interface
func NewManager(opts ...ManagerOption) Manager {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singletonCreated {
		if len(opts) > 0 {
			core.Log().Warn("NewManager called again with options; the existing manager is returned and the options are ignored")
		}
		return singletonManager
	}

	singletonManager = newManager(opts...)
	singletonCreated = true
	return singletonManager
}

//nolint:ireturn // see NewManager
func newManager(opts ...ManagerOption) Manager {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &managerWrapper{mgr: core.NewManagerWithConfig(cfg.toCoreConfig())}
}

// resetForTesting forgets the singleton so tests can build fresh managers
// with different options. The caller is responsible for shutting the old
// manager down first.
func resetForTesting() {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	singletonManager = nil
	singletonCreated = false
}

// managerWrapper adapts *core.Manager to the Manager interface. The field is
// named rather than embedded so callers cannot type-assert their way past
// the interface to methods this package does not mean to expose.
type managerWrapper struct {
	mgr *core.Manager
}

func (w *managerWrapper) Initialize(ctx context.Context) error {
	return w.mgr.Initialize(ctx)
}

func (w *managerWrapper) Acquire(ctx context.Context) (Site, error) {
	site, err := w.mgr.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &siteWrapper{site: site}, nil
}

func (w *managerWrapper) Report(site Site, passed bool) error {
	if site == nil {
		panic("sitepool: Report called with nil site")
	}
	sw, ok := site.(*siteWrapper)
	if !ok {
		return fmt.Errorf("%w: %T", ErrForeignSite, site)
	}
	return w.mgr.Report(sw.site, passed)
}

func (w *managerWrapper) Shutdown() error {
	return w.mgr.Shutdown()
}

// siteWrapper adapts *core.Site to the Site interface.
type siteWrapper struct {
	site *core.Site
}

func (s *siteWrapper) Info() (*SiteInfo, error) {
	return s.site.Info()
}

func (s *siteWrapper) ID() string {
	return s.site.ID()
}

func (s *siteWrapper) Name() string {
	return s.site.Name()
}

func (s *siteWrapper) Slot() int {
	return s.site.Slot()
}
