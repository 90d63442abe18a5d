package core

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/giantswarm/sitepool/internal/backend"
)

// fakeBackend is an in-memory stand-in for the admin API. The zero state
// behaves like a fresh subscription: no site exists and Create succeeds.
// Tests flip the error fields to force failures on individual operations.
type fakeBackend struct {
	mu sync.Mutex

	sites map[string]*backend.SiteInfo
	procs map[string][]backend.ProcessInfo

	findErr   error
	createErr error
	listErr   error
	killErr   error
	deleteErr error
	writeErr  error

	findCalls   int
	createCalls int
	killed      map[string][]int
	deleted     []string
	writes      map[string][]string

	// blockCreate, when set, makes Create wait until the channel is closed.
	blockCreate chan struct{}
	// createStarted, when set, receives the site name as Create begins.
	createStarted chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sites:  make(map[string]*backend.SiteInfo),
		procs:  make(map[string][]backend.ProcessInfo),
		killed: make(map[string][]int),
		writes: make(map[string][]string),
	}
}

// addSite registers an existing site, optionally with running processes.
func (f *fakeBackend) addSite(name string, procs ...backend.ProcessInfo) *backend.SiteInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := &backend.SiteInfo{
		Name:   name,
		URL:    "http://" + name + ".example.test",
		ScmURL: "http://" + name + ".scm.example.test",
	}
	f.sites[name] = info
	f.procs[name] = procs
	return info
}

// backends wires the fake into every required backend role.
func (f *fakeBackend) backends() backend.Backends {
	return backend.Backends{
		Provisioner:  f,
		Processes:    f,
		Repositories: f,
		Files:        f,
	}
}

func (f *fakeBackend) FindByName(_ context.Context, name string) (*backend.SiteInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	info, ok := f.sites[name]
	if !ok {
		return nil, backend.ErrSiteNotFound
	}
	cp := *info
	return &cp, nil
}

func (f *fakeBackend) Create(ctx context.Context, name string) (*backend.SiteInfo, error) {
	f.mu.Lock()
	started := f.createStarted
	block := f.blockCreate
	f.mu.Unlock()

	if started != nil {
		started <- name
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	info := &backend.SiteInfo{
		Name:   name,
		URL:    "http://" + name + ".example.test",
		ScmURL: "http://" + name + ".scm.example.test",
	}
	f.sites[name] = info
	cp := *info
	return &cp, nil
}

func (f *fakeBackend) ListProcesses(_ context.Context, site *backend.SiteInfo) ([]backend.ProcessInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.procs[site.Name]), nil
}

func (f *fakeBackend) KillProcess(_ context.Context, site *backend.SiteInfo, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.killErr != nil {
		return f.killErr
	}
	f.killed[site.Name] = append(f.killed[site.Name], pid)
	return nil
}

func (f *fakeBackend) DeleteRepository(_ context.Context, site *backend.SiteInfo, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, site.Name)
	return nil
}

func (f *fakeBackend) WriteFile(_ context.Context, site *backend.SiteInfo, path, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes[site.Name] = append(f.writes[site.Name], path)
	return nil
}

func (f *fakeBackend) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func (f *fakeBackend) killedPIDs(site string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.killed[site])
}

func (f *fakeBackend) deletedRepos() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deleted)
}

func (f *fakeBackend) writtenPaths(site string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.writes[site])
}

// uptimeFakeBackend adds the optional uptime probe on top of fakeBackend.
type uptimeFakeBackend struct {
	*fakeBackend
	uptime    time.Duration
	uptimeErr error
}

func (f *uptimeFakeBackend) Uptime(_ context.Context, _ *backend.SiteInfo) (time.Duration, error) {
	if f.uptimeErr != nil {
		return 0, f.uptimeErr
	}
	return f.uptime, nil
}

// testConfig returns a small fast config wired to the given backends.
func testConfig(b backend.Backends) ManagerConfig {
	return ManagerConfig{
		Backends:             b,
		PoolSize:             3,
		SlotPrefix:           "testsite-",
		AcquireTimeout:       5 * time.Second,
		ProvisionTimeout:     5 * time.Second,
		CleanupTimeout:       5 * time.Second,
		ShutdownDrainTimeout: 5 * time.Second,
		StaleHandleMarker:    "wwwroot",
		MarkerFileName:       "hostingstart.html",
	}
}

// newTestManager builds and initializes a Manager, shutting it down with the
// test.
func newTestManager(t *testing.T, cfg ManagerConfig) *Manager {
	t.Helper()
	m := NewManagerWithConfig(cfg)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	t.Cleanup(func() {
		//nolint:errcheck // shutdown errors are irrelevant during cleanup
		_ = m.Shutdown()
	})
	return m
}

// waitPrepSettled blocks until no background preparation is running.
func waitPrepSettled(t *testing.T, m *Manager) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for m.next.inFlight() != nil {
		select {
		case <-deadline:
			t.Fatal("background preparation did not settle")
		case <-time.After(2 * time.Millisecond):
		}
	}
}

// peekPrepared returns the cached site without consuming it.
func peekPrepared(m *Manager) *Site {
	m.next.mu.Lock()
	defer m.next.mu.Unlock()
	return m.next.site
}

// requirePanicContains runs fn and fails the test unless it panics with a
// message containing want.
func requirePanicContains(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, got no panic", want)
		}
		if msg := fmt.Sprint(r); !strings.Contains(msg, want) {
			t.Fatalf("panic %q does not contain %q", msg, want)
		}
	}()
	fn()
}
