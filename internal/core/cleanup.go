package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/sitepool/internal/backend"
)

// killConcurrency bounds parallel kill requests while recycling one site.
const killConcurrency = 10

// markerContent is the placeholder page reseeded into a recycled site's web
// root. Serving it proves the site is empty and reachable before the next
// test run deploys anything.
const markerContent = `<!DOCTYPE html>
<html>
<head><title>Test site ready</title></head>
<body>This test site has been recycled and is waiting for its next run.</body>
</html>
`

// recycle scrubs a previously used site. Killing stale workers and wiping
// the repository are best effort: both fail harmlessly when there is nothing
// to clean. Reseeding the marker file is the step that proves the site
// actually serves requests, so its failure fails the recycle.
func (p *provisioner) recycle(ctx context.Context, info *backend.SiteInfo) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CleanupTimeout)
	defer cancel()

	p.killStaleWorkers(ctx, info)
	p.wipeRepository(ctx, info)

	if err := p.reseedMarker(ctx, info); err != nil {
		return fmt.Errorf("seed marker file %s: %w", p.cfg.MarkerFileName, err)
	}
	return nil
}

// killStaleWorkers terminates every process still holding a file handle
// under the site's content root. Leftover workers keep files locked and
// would make the repository wipe flaky.
func (p *provisioner) killStaleWorkers(ctx context.Context, info *backend.SiteInfo) {
	procs, err := p.backends.Processes.ListProcesses(ctx, info)
	if err != nil {
		log().Warn("listing processes failed, skipping stale worker cleanup",
			"site", info.Name, "err", err)
		return
	}

	stale := make([]backend.ProcessInfo, 0, len(procs))
	for _, proc := range procs {
		if p.holdsStaleHandle(proc) {
			stale = append(stale, proc)
		}
	}
	if len(stale) == 0 {
		return
	}
	log().Debug("killing stale workers", "site", info.Name, "count", len(stale))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(killConcurrency)
	for _, proc := range stale {
		g.Go(func() error {
			if err := p.backends.Processes.KillProcess(ctx, info, proc.ID); err != nil {
				log().Debug("failed to kill stale worker",
					"site", info.Name, "pid", proc.ID, "err", err)
			}
			return nil
		})
	}
	//nolint:errcheck // the workers log and swallow their own failures
	_ = g.Wait()
}

// holdsStaleHandle reports whether the process has any open handle under the
// configured content-root marker.
func (p *provisioner) holdsStaleHandle(proc backend.ProcessInfo) bool {
	for _, h := range proc.OpenHandles {
		if strings.Contains(h, p.cfg.StaleHandleMarker) {
			return true
		}
	}
	return false
}

// wipeRepository drops the site's repository and web root. Best effort: a
// fresh or already wiped site has nothing to delete.
func (p *provisioner) wipeRepository(ctx context.Context, info *backend.SiteInfo) {
	if err := p.backends.Repositories.DeleteRepository(ctx, info, true); err != nil {
		log().Warn("failed to wipe repository", "site", info.Name, "err", err)
	}
}

// reseedMarker writes the placeholder page into the web root. A gateway
// failure is decorated with the gateway's claimed uptime when available:
// "up for 2s" points at a site still booting, "up for 3h" at one that is
// genuinely broken. The original error stays in the chain either way.
func (p *provisioner) reseedMarker(ctx context.Context, info *backend.SiteInfo) error {
	err := p.backends.Files.WriteFile(ctx, info, p.cfg.MarkerFileName, markerContent)
	if err == nil || !errors.Is(err, backend.ErrGatewayUnavailable) {
		return err
	}

	reporter, ok := p.backends.Files.(backend.UptimeReporter)
	if !ok {
		return err
	}
	up, uerr := reporter.Uptime(ctx, info)
	if uerr != nil {
		log().Debug("uptime probe after gateway failure failed", "site", info.Name, "err", uerr)
		return err
	}
	return fmt.Errorf("gateway up for %s: %w", up, err)
}
