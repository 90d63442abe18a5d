package sitepool

import "github.com/giantswarm/sitepool/internal/backend"

// The backend contract is defined in an internal package so the core can
// depend on it without importing this one. The types below are aliases, not
// definitions: a Backends assembled by a caller is exactly the value the
// pool's internals consume, with no conversion layer in between.
type (
	// Backends bundles the remote-site operations the pool runs against.
	// Production use wires all four roles to the admin API client built by
	// WithAdminAPI; tests inject their own implementations through
	// WithBackends.
	Backends = backend.Backends

	// SiteInfo describes one provisioned site.
	SiteInfo = backend.SiteInfo

	// ProcessInfo describes one worker process running inside a site.
	ProcessInfo = backend.ProcessInfo

	// Provisioner looks up and creates sites by name.
	Provisioner = backend.Provisioner

	// ProcessInspector enumerates and terminates a site's worker processes.
	ProcessInspector = backend.ProcessInspector

	// RepositoryManager wipes a site's source repository.
	RepositoryManager = backend.RepositoryManager

	// FileWriter writes files into a site's web root.
	FileWriter = backend.FileWriter

	// UptimeReporter is an optional capability for enriching gateway
	// failures with the gateway's claimed uptime. The pool discovers it by
	// type assertion on the FileWriter.
	UptimeReporter = backend.UptimeReporter
)
