package backend

import (
	"context"
	"errors"
	"time"

	"github.com/giantswarm/sitepool/internal/sentinel"
)

// ErrSiteNotFound is returned by Provisioner.FindByName when no site exists
// under the requested name.
const ErrSiteNotFound = sentinel.Error("sitepool: site not found")

// ErrGatewayUnavailable is returned when a site's management gateway cannot
// serve the request because it is cold-starting or restarting. Callers match
// it with errors.Is to distinguish a warming gateway from a hard failure.
const ErrGatewayUnavailable = sentinel.Error("sitepool: site gateway unavailable")

// SiteInfo describes one provisioned site as reported by the backend.
//
// All fields are immutable after the backend returns the struct; the pool
// hands copies to its consumers.
type SiteInfo struct {
	// Name is the site's unique name within the backend.
	Name string
	// URL is the public address serving the site's content.
	URL string
	// ScmURL is the management address used for process, repository, and
	// file operations on the site.
	ScmURL string
}

// ProcessInfo describes one worker process running inside a site.
type ProcessInfo struct {
	ID   int
	Name string
	// OpenHandles lists the file paths the process currently holds open.
	OpenHandles []string
}

// Provisioner looks up and creates sites by name.
type Provisioner interface {
	// FindByName returns the site with the given name. Returns an error
	// matching ErrSiteNotFound when no such site exists.
	FindByName(ctx context.Context, name string) (*SiteInfo, error)

	// Create provisions a fresh site under the given name. Creation pays
	// the full provisioning cost of the backend and may take a long time;
	// callers bound it through ctx.
	Create(ctx context.Context, name string) (*SiteInfo, error)
}

// ProcessInspector enumerates and terminates a site's worker processes.
type ProcessInspector interface {
	// ListProcesses returns the worker processes currently running inside
	// the site, including the file handles each one holds open.
	ListProcesses(ctx context.Context, site *SiteInfo) ([]ProcessInfo, error)

	// KillProcess forcibly terminates the worker process with the given pid.
	KillProcess(ctx context.Context, site *SiteInfo, pid int) error
}

// RepositoryManager wipes a site's source repository.
type RepositoryManager interface {
	// DeleteRepository removes the site's repository working tree. When
	// deleteWebRoot is true the deployed web root is removed as well.
	DeleteRepository(ctx context.Context, site *SiteInfo, deleteWebRoot bool) error
}

// FileWriter writes files into a site's web root.
type FileWriter interface {
	// WriteFile replaces the file at path (relative to the site's web root)
	// with content, creating it if absent. A cold management gateway is
	// reported through an error matching ErrGatewayUnavailable.
	WriteFile(ctx context.Context, site *SiteInfo, path, content string) error
}

// UptimeReporter is an optional capability. Backends that can report how long
// a site's management gateway has been up implement it in addition to the
// required interfaces; the pool discovers it by type assertion on the
// FileWriter and uses it to enrich gateway-unavailable failures with a
// diagnostic uptime signal.
type UptimeReporter interface {
	Uptime(ctx context.Context, site *SiteInfo) (time.Duration, error)
}

// Backends bundles the collaborators the pool needs. All four fields are
// required; Validate reports every missing one.
type Backends struct {
	Provisioner  Provisioner
	Processes    ProcessInspector
	Repositories RepositoryManager
	Files        FileWriter
}

// Validate checks that every required collaborator is present. It uses
// errors.Join to report all missing fields at once.
func (b Backends) Validate() error {
	var errs []error

	if b.Provisioner == nil {
		errs = append(errs, errors.New("provisioner backend must not be nil"))
	}
	if b.Processes == nil {
		errs = append(errs, errors.New("process inspector backend must not be nil"))
	}
	if b.Repositories == nil {
		errs = append(errs, errors.New("repository manager backend must not be nil"))
	}
	if b.Files == nil {
		errs = append(errs, errors.New("file writer backend must not be nil"))
	}

	return errors.Join(errs...)
}
