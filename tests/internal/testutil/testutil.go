//go:build integration

// Package testutil provides shared helpers for integration test packages.
package testutil

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/giantswarm/sitepool"
)

const (
	// acquireRetryInterval is how long AcquireSite sleeps between attempts
	// when every slot in the shared pool is taken.
	acquireRetryInterval = 250 * time.Millisecond

	// acquireBudget bounds AcquireSite when the caller's context carries no
	// deadline of its own.
	acquireBudget = 5 * time.Minute
)

// siteClient fetches site content over plain HTTP. Freshly provisioned sites
// can take a moment before their worker answers, hence the generous timeout.
var siteClient = &http.Client{Timeout: 30 * time.Second}

// AdminURL returns the site-admin gateway base URL integration tests run
// against, from SITEPOOL_ADMIN_URL.
func AdminURL() string {
	return os.Getenv("SITEPOOL_ADMIN_URL")
}

// AdminToken returns the gateway bearer token from SITEPOOL_ADMIN_TOKEN.
// An empty token is valid for gateways that do not authenticate.
func AdminToken() string {
	return os.Getenv("SITEPOOL_ADMIN_TOKEN")
}

// TestParallel returns the effective -test.parallel value for the current test
// binary. This mirrors Go's own default: if the flag is unset or unparseable,
// it falls back to GOMAXPROCS.
func TestParallel() int {
	f := flag.Lookup("test.parallel")
	if f == nil {
		n := runtime.GOMAXPROCS(0)
		slog.Info("test.parallel flag not found, falling back to GOMAXPROCS", "parallel", n)

		return n
	}

	n, err := strconv.Atoi(f.Value.String())
	if err != nil || n < 1 {
		fallback := runtime.GOMAXPROCS(0)
		slog.Warn("test.parallel flag unparseable, falling back to GOMAXPROCS",
			"raw", f.Value.String(), "error", err, "parallel", fallback)

		return fallback
	}

	slog.Info("using test.parallel flag value", "parallel", n)

	return n
}

// TryAcquireSite acquires a site from mgr. The pool fails fast with
// ErrNoFreeSlots when every slot is taken; the integration packages share one
// bounded pool across many parallel tests, so this helper absorbs contention
// by retrying until the context expires, the same way a test runner consuming
// the pool would. When the context carries no deadline a default budget is
// applied. Unlike AcquireSite it returns errors instead of failing the test,
// so it is safe to call from goroutines that must not call t.Fatal.
//
//nolint:ireturn // Test helper returns Site matching the public API.
func TryAcquireSite(ctx context.Context, mgr sitepool.Manager) (sitepool.Site, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, acquireBudget)
		defer cancel()
	}

	for {
		site, err := mgr.Acquire(ctx)
		if err == nil {
			return site, nil
		}
		if !errors.Is(err, sitepool.ErrNoFreeSlots) {
			return nil, err
		}

		select {
		case <-time.After(acquireRetryInterval):
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for a free slot: %w", ctx.Err())
		}
	}
}

// AcquireSite acquires a site from mgr, retrying pool exhaustion like
// TryAcquireSite, and fails the test on error.
//
//nolint:ireturn // Test helper returns Site matching the public API.
func AcquireSite(ctx context.Context, t *testing.T, mgr sitepool.Manager) sitepool.Site {
	t.Helper()

	site, err := TryAcquireSite(ctx, mgr)
	if err != nil {
		t.Fatalf("Failed to acquire site: %v", err)
	}

	return site
}

// AcquireWithInfo acquires a site and resolves its backend details. Returns
// the site and its info. The caller is responsible for reporting the site.
//
//nolint:ireturn // Test helper returns Site matching the public API.
func AcquireWithInfo(ctx context.Context, t *testing.T, mgr sitepool.Manager) (sitepool.Site, *sitepool.SiteInfo) {
	t.Helper()

	site := AcquireSite(ctx, t, mgr)

	info, err := site.Info()
	if err != nil {
		if repErr := mgr.Report(site, true); repErr != nil {
			t.Logf("report error: %v", repErr)
		}
		t.Fatalf("Failed to get site info: %v", err)
	}

	return site, info
}

// AcquireWithGuardedReport acquires a site and info, then registers a deferred
// safety-net report that only fires if the caller has not already reported the
// site explicitly. The safety net reports the run as passed so a test that
// forgets to report cannot drop a slot from the shared pool. Calling the
// returned report function performs the explicit report and disarms the safety
// net; subsequent calls are no-ops. The test fails immediately if the explicit
// report returns an error.
//
//nolint:ireturn // Test helper returns Site matching the public API.
func AcquireWithGuardedReport(
	ctx context.Context,
	t *testing.T,
	mgr sitepool.Manager,
) (sitepool.Site, *sitepool.SiteInfo, func(passed bool)) {
	t.Helper()

	site, info := AcquireWithInfo(ctx, t, mgr)

	var reportOnce sync.Once
	doReport := func(passed bool) {
		if err := mgr.Report(site, passed); err != nil {
			t.Errorf("Report(%s, %t) failed: %v", site.Name(), passed, err)
		}
	}
	t.Cleanup(func() { reportOnce.Do(func() { doReport(true) }) })

	report := func(passed bool) {
		t.Helper()
		reportOnce.Do(func() { doReport(passed) })
	}

	return site, info, report
}

// ProbeSite fetches the site's public URL and fails the test unless the site
// answers 200 OK. It returns the response body, so callers can assert on the
// served content.
func ProbeSite(ctx context.Context, t *testing.T, info *sitepool.SiteInfo) string {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		t.Fatalf("build probe request for %s: %v", info.URL, err)
	}

	resp, err := siteClient.Do(req)
	if err != nil {
		t.Fatalf("probe %s: %v", info.URL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read probe response from %s: %v", info.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("probe %s: status %d, body %q", info.URL, resp.StatusCode, body)
	}

	return string(body)
}

// SetupTestLogging configures slog based on the SITEPOOL_LOG_LEVEL environment variable.
// This only affects test runs - the library itself inherits the application's logging config.
func SetupTestLogging() {
	levelStr := os.Getenv("SITEPOOL_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "INFO"
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	sitepool.SetLogger(slog.Default().With("component", "sitepool"))
}

// RequireAdminAPIOrExit checks that a site-admin gateway is configured and
// reachable, exiting the process (via os.Exit) if not. This is used in
// TestMain where *testing.T is not available.
func RequireAdminAPIOrExit() {
	url := AdminURL()
	if url == "" {
		fmt.Fprintln(os.Stderr, "SITEPOOL_ADMIN_URL not set")
		fmt.Fprintln(os.Stderr, "Point it at a site-admin gateway, e.g. SITEPOOL_ADMIN_URL=http://localhost:8080")
		os.Exit(1)
	}

	// Any HTTP answer proves the gateway is reachable; authentication and
	// routing are exercised by the tests themselves.
	probe := &http.Client{Timeout: 10 * time.Second}
	resp, err := probe.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "site-admin gateway %s not reachable: %v\n", url, err)
		os.Exit(1)
	}
	_ = resp.Body.Close()
}

// RunTestMain sets up signal handling for graceful shutdown, runs all tests,
// then performs cleanup (shutdown + temp dir removal). Returns the exit code.
func RunTestMain(m *testing.M, mgr sitepool.Manager, tmpDir string) int {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			signal.Stop(sigCh) // Restore default handler so a second signal force-kills
			fmt.Fprintf(os.Stderr, "\nReceived %s, shutting down...\n", sig)
			if err := mgr.Shutdown(); err != nil {
				fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
			}
			_ = os.RemoveAll(tmpDir)
			os.Exit(1)
		case <-done:
			return
		}
	}()

	code := m.Run()

	signal.Stop(sigCh)
	close(done)
	if err := mgr.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
	}
	_ = os.RemoveAll(tmpDir)

	return code
}

// SetupAndRun handles the standard TestMain boilerplate: flag parsing, logging
// setup, the gateway check, temp dir creation, manager construction,
// initialization, test execution, and cleanup. Sites are named name-1, name-2
// and so on, on the gateway, so every integration package must pass a distinct
// name to keep its slots apart from packages running in parallel. Options
// given by the caller are applied last and override the defaults this function
// sets. The created manager is assigned to *mgr so tests can reference it.
// This function calls os.Exit and never returns.
//
//nolint:gocritic // ptrToRefParam: pointer-to-interface needed to assign the created manager back to the caller's variable.
func SetupAndRun(m *testing.M, mgr *sitepool.Manager, name string, opts ...sitepool.ManagerOption) {
	flag.Parse()
	SetupTestLogging()
	RequireAdminAPIOrExit()

	tmpDir, err := os.MkdirTemp("", name+"-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	baseOpts := []sitepool.ManagerOption{
		sitepool.WithAdminAPI(AdminURL(), AdminToken()),
		sitepool.WithSlotPrefix(name + "-"),
		sitepool.WithLeaseDir(filepath.Join(tmpDir, "leases")),
		sitepool.WithLedgerPath(filepath.Join(tmpDir, "ledger.db")),
		sitepool.WithAcquireTimeout(5 * time.Minute),
		sitepool.WithPoolSize(TestParallel()),
	}
	baseOpts = append(baseOpts, opts...)

	created := sitepool.NewManager(baseOpts...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if initErr := created.Initialize(ctx); initErr != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "Initialize failed: %v\n", initErr)
		os.Exit(1)
	}

	cancel()

	*mgr = created

	os.Exit(RunTestMain(m, created, tmpDir))
}
