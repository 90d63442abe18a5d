// Package sitepool manages a fixed pool of remote test sites for integration
// test runs.
//
// Remote sites are expensive to create, so the pool reuses a fixed set of
// slots (numbered 1 through the pool size) and keeps one site prepared in the
// background. Most acquisitions return the prepared site immediately; the
// pool then provisions the next one while the test runs. Sites that hosted a
// failing run are dropped from circulation so leftover state cannot taint
// later runs.
//
// Typical usage:
//
//	manager := sitepool.NewManager(
//		sitepool.WithAdminAPI("https://admin.example.com", os.Getenv("ADMIN_TOKEN")),
//		sitepool.WithPoolSize(5),
//	)
//	if err := manager.Initialize(ctx); err != nil {
//		return err
//	}
//	defer manager.Shutdown()
//
//	site, err := manager.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	passed := runTests(site)
//	if err := manager.Report(site, passed); err != nil {
//		return err
//	}
//
// NewManager returns a process-wide singleton: every package in a test binary
// that asks for the manager shares the same pool. Multiple processes can
// share one pool of sites by pointing WithLeaseDir at a common directory;
// slot ownership is then coordinated through file locks.
//
// Construction panics on invalid configuration, the same contract as
// regexp.MustCompile: a bad pool setup is a programmer error that should
// fail the test binary immediately, not at the first acquisition.
package sitepool
