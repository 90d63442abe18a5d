package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giantswarm/sitepool/internal/ledger"
	"github.com/giantswarm/sitepool/internal/sentinel"
	"github.com/giantswarm/sitepool/internal/slotlock"
)

const (
	// ErrNotInitialized is returned by operations that need a pool when
	// Initialize has not completed yet.
	ErrNotInitialized = sentinel.Error("sitepool: manager is not initialized")

	// ErrShuttingDown is returned once Shutdown has started. The manager
	// never leaves this state.
	ErrShuttingDown = sentinel.Error("sitepool: manager is shutting down")
)

// ledgerWriteTimeout bounds best-effort ledger writes so a wedged database
// file cannot stall acquisitions.
const ledgerWriteTimeout = 5 * time.Second

// managerState tracks the manager lifecycle. Transitions move forward only,
// except that a failed Initialize falls back from initializing to created so
// the caller can retry.
type managerState uint32

const (
	stateCreated managerState = iota
	stateInitializing
	stateReady
	stateShuttingDown
)

// managerRuntime bundles everything Initialize builds, published atomically
// so Acquire and Report read it without locking.
type managerRuntime struct {
	registry *slotRegistry
	prov     *provisioner
	ledger   *ledger.Ledger // nil when the ledger is disabled
}

// Manager owns a fixed pool of test-site slots. One site is kept prepared in
// the background so that most Acquire calls return without touching the
// backend at all.
//
// All methods are safe for concurrent use.
type Manager struct {
	cfg ManagerConfig

	state  atomic.Uint32
	initMu sync.Mutex // serializes Initialize and Shutdown
	rt     atomic.Pointer[managerRuntime]

	next nextCell

	// inflight counts Report calls so Shutdown can drain them. The channel
	// is closed once the count reaches zero during shutdown.
	inflight         atomic.Int64
	inflightDone     chan struct{}
	inflightDoneOnce sync.Once
}

// NewManagerWithConfig builds a Manager from an already assembled config.
// It panics when the config is invalid: pools are constructed once during
// test setup, and a bad config there is a programmer error, the same
// contract as regexp.MustCompile.
func NewManagerWithConfig(cfg ManagerConfig) *Manager {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("sitepool: invalid manager config: %v", err))
	}
	return &Manager{
		cfg:          cfg,
		inflightDone: make(chan struct{}),
	}
}

func (m *Manager) loadState() managerState {
	return managerState(m.state.Load())
}

func (m *Manager) storeState(s managerState) {
	m.state.Store(uint32(s))
}

// Initialize builds the slot registry, the machine-wide slot leases, and the
// allocation ledger. Calling it on a ready manager is a no-op. A failed
// Initialize leaves the manager in its created state so a later call can
// retry from scratch.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	switch m.loadState() {
	case stateReady:
		return nil
	case stateShuttingDown:
		return ErrShuttingDown
	}

	m.storeState(stateInitializing)
	if err := m.doInitialize(ctx); err != nil {
		m.storeState(stateCreated)
		return err
	}
	m.storeState(stateReady)
	return nil
}

func (m *Manager) doInitialize(ctx context.Context) error {
	var locks *slotlock.Locker
	if m.cfg.LeaseDir != "" {
		var err error
		locks, err = slotlock.New(m.cfg.LeaseDir, log())
		if err != nil {
			return fmt.Errorf("initialize slot leases: %w", err)
		}
	}

	var led *ledger.Ledger
	if m.cfg.LedgerPath != "" {
		var err error
		led, err = ledger.Open(ctx, m.cfg.LedgerPath)
		if err != nil {
			if locks != nil {
				locks.Close()
			}
			return fmt.Errorf("open allocation ledger: %w", err)
		}
	}

	registry := newSlotRegistry(m.cfg.PoolSize, locks)
	m.rt.Store(&managerRuntime{
		registry: registry,
		prov:     newProvisioner(m.cfg, registry),
		ledger:   led,
	})

	log().Info("site pool initialized",
		"pool_size", m.cfg.PoolSize,
		"slot_prefix", m.cfg.SlotPrefix,
		"leases", m.cfg.LeaseDir != "",
		"ledger", m.cfg.LedgerPath != "")
	return nil
}

// Acquire returns a ready test site. It prefers the site prepared in the
// background, joins an in-flight preparation when one is running, and only
// provisions synchronously when the cache is cold. Every successful Acquire
// triggers preparation of the next site. When no slot is free, Acquire fails
// fast with ErrNoFreeSlots instead of queueing.
func (m *Manager) Acquire(ctx context.Context) (*Site, error) {
	switch m.loadState() {
	case stateCreated, stateInitializing:
		return nil, ErrNotInitialized
	case stateShuttingDown:
		return nil, ErrShuttingDown
	}
	rt := m.rt.Load()
	if rt == nil {
		return nil, ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()

	site, warm, err := m.acquireSite(ctx, rt)
	if err != nil {
		return nil, fmt.Errorf("acquire site: %w", err)
	}

	// A shutdown may have started while we were provisioning. The site must
	// not escape it.
	if m.loadState() == stateShuttingDown {
		rt.registry.giveBack(site.slot)
		return nil, ErrShuttingDown
	}

	m.schedulePrepare()
	m.recordAcquire(rt, site, warm)

	log().Debug("site acquired",
		"site", site.name, "slot", site.slot, "warm", warm, "lease_id", site.leaseID)
	return site, nil
}

// acquireSite resolves one site, reporting whether it came from the warm
// cache. Joining an in-flight preparation loops because another acquirer may
// grab the prepared site first.
func (m *Manager) acquireSite(ctx context.Context, rt *managerRuntime) (*Site, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		site, inFlight := m.next.poll()
		if site != nil {
			return site, true, nil
		}
		if inFlight == nil {
			break
		}
		select {
		case <-inFlight:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}

	site, err := rt.prov.provision(ctx)
	if err != nil {
		return nil, false, err
	}
	return site, false, nil
}

// schedulePrepare kicks off background preparation of the next site.
// Concurrent triggers coalesce: at most one preparation runs and at most one
// prepared site is cached.
func (m *Manager) schedulePrepare() {
	if m.loadState() != stateReady {
		return
	}
	rt := m.rt.Load()
	if rt == nil {
		return
	}
	if !m.next.beginPrepare() {
		return
	}
	go m.prepareNext(rt)
}

// prepareNext provisions one site for the cell. It runs on a background
// context: the preparation belongs to the pool, not to the caller whose
// Acquire happened to trigger it.
func (m *Manager) prepareNext(rt *managerRuntime) {
	site, err := rt.prov.provision(context.Background())
	switch {
	case errors.Is(err, ErrNoFreeSlots):
		log().Debug("background preparation skipped: no free slot")
		m.next.complete(nil)
	case err != nil:
		log().Warn("background preparation failed", "err", err)
		m.next.complete(nil)
	case m.loadState() == stateShuttingDown:
		// Shutdown won the race; the site was never handed out.
		rt.registry.giveBack(site.slot)
		m.next.complete(nil)
	default:
		log().Debug("next site prepared", "site", site.name, "slot", site.slot)
		m.next.complete(site)
	}
}

// Report hands a site back after its test run. A passing run returns the
// slot to the pool. A failing run drops the slot so leftover state cannot
// taint later runs, unless the pool is nearly exhausted, in which case the
// slot is returned anyway to keep tests running. Reporting the same site
// twice panics.
func (m *Manager) Report(site *Site, passed bool) error {
	if site == nil {
		panic("sitepool: Report called with nil site")
	}
	rt := m.rt.Load()
	if rt == nil {
		return ErrNotInitialized
	}
	if !site.markReported() {
		panic(fmt.Sprintf("sitepool: site %s reported twice", site.name))
	}

	// Reports count as in-flight work so Shutdown waits for them.
	m.inflight.Add(1)
	defer func() {
		if m.inflight.Add(-1) == 0 && m.loadState() == stateShuttingDown {
			m.inflightDoneOnce.Do(func() { close(m.inflightDone) })
		}
	}()

	returned := rt.registry.reclaim(site.slot, passed)

	var outcome string
	switch {
	case passed:
		outcome = ledger.OutcomeReturned
	case returned:
		outcome = ledger.OutcomeReturnedLowFree
		log().Warn("slot returned despite failed run to keep the pool alive",
			"site", site.name, "slot", site.slot)
	default:
		outcome = ledger.OutcomeDiscarded
		log().Warn("slot dropped after failed run", "site", site.name, "slot", site.slot)
	}
	m.recordOutcome(rt, site, outcome)

	log().Debug("site reported",
		"site", site.name, "slot", site.slot, "passed", passed, "returned", returned)
	return nil
}

// recordAcquire writes the allocation row for a handed-out site. Ledger
// writes are best effort: a failure is logged and never fails the
// acquisition.
func (m *Manager) recordAcquire(rt *managerRuntime, site *Site, warm bool) {
	if rt.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerWriteTimeout)
	defer cancel()

	err := rt.ledger.RecordAcquire(ctx, ledger.Entry{
		LeaseID:  site.leaseID,
		Slot:     site.slot,
		SiteName: site.name,
		Warm:     warm,
		Reused:   site.reused,
	})
	if err != nil {
		log().Warn("failed to record acquisition in ledger", "site", site.name, "err", err)
	}
}

// recordOutcome marks the site's allocation row with its reported outcome,
// best effort like recordAcquire.
func (m *Manager) recordOutcome(rt *managerRuntime, site *Site, outcome string) {
	if rt.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerWriteTimeout)
	defer cancel()

	if err := rt.ledger.RecordOutcome(ctx, site.leaseID, outcome); err != nil {
		log().Warn("failed to record outcome in ledger", "site", site.name, "err", err)
	}
}

// Shutdown stops the pool. New Acquire calls fail immediately, outstanding
// Report calls and a running background preparation get a bounded drain, and
// finally the slot leases and the ledger are released. Shutdown is
// idempotent.
func (m *Manager) Shutdown() error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.loadState() == stateShuttingDown {
		return nil
	}
	m.storeState(stateShuttingDown)

	rt := m.rt.Load()
	if rt == nil {
		// Never initialized, nothing to release.
		return nil
	}

	// One deadline covers both drains; ctx.Done stays closed once expired.
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ShutdownDrainTimeout)
	defer cancel()

	if m.inflight.Load() == 0 {
		m.inflightDoneOnce.Do(func() { close(m.inflightDone) })
	}
	select {
	case <-m.inflightDone:
	case <-ctx.Done():
		log().Warn("shutdown proceeding with unfinished reports",
			"inflight", m.inflight.Load())
	}

	if prep := m.next.inFlight(); prep != nil {
		select {
		case <-prep:
		case <-ctx.Done():
			log().Warn("shutdown proceeding with preparation still running")
		}
	}

	// A site left in the cell was never handed out; its slot goes back so
	// the lease is released with the rest.
	if site := m.next.take(); site != nil {
		rt.registry.giveBack(site.slot)
	}

	rt.registry.close()

	if rt.ledger != nil {
		if err := rt.ledger.Close(); err != nil {
			return fmt.Errorf("close allocation ledger: %w", err)
		}
	}

	log().Info("site pool shut down")
	return nil
}
