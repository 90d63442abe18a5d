package backend_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/sitepool/internal/backend"
)

// completeBackends returns a Backends value with every field populated by a
// minimal no-op implementation.
func completeBackends() backend.Backends {
	stub := nopBackend{}
	return backend.Backends{
		Provisioner:  stub,
		Processes:    stub,
		Repositories: stub,
		Files:        stub,
	}
}

// nopBackend implements all four required backend interfaces with no-ops.
type nopBackend struct{}

func (nopBackend) FindByName(context.Context, string) (*backend.SiteInfo, error) {
	return nil, backend.ErrSiteNotFound
}

func (nopBackend) Create(_ context.Context, name string) (*backend.SiteInfo, error) {
	return &backend.SiteInfo{Name: name}, nil
}

func (nopBackend) ListProcesses(context.Context, *backend.SiteInfo) ([]backend.ProcessInfo, error) {
	return nil, nil
}

func (nopBackend) KillProcess(context.Context, *backend.SiteInfo, int) error { return nil }

func (nopBackend) DeleteRepository(context.Context, *backend.SiteInfo, bool) error { return nil }

func (nopBackend) WriteFile(context.Context, *backend.SiteInfo, string, string) error { return nil }

func TestBackendsValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate  func(*backend.Backends)
		wantErr []string
	}{
		"complete": {
			mutate: func(*backend.Backends) {},
		},
		"missing provisioner": {
			mutate:  func(b *backend.Backends) { b.Provisioner = nil },
			wantErr: []string{"provisioner backend must not be nil"},
		},
		"missing process inspector": {
			mutate:  func(b *backend.Backends) { b.Processes = nil },
			wantErr: []string{"process inspector backend must not be nil"},
		},
		"missing repository manager": {
			mutate:  func(b *backend.Backends) { b.Repositories = nil },
			wantErr: []string{"repository manager backend must not be nil"},
		},
		"missing file writer": {
			mutate:  func(b *backend.Backends) { b.Files = nil },
			wantErr: []string{"file writer backend must not be nil"},
		},
		"zero value reports every field": {
			mutate: func(b *backend.Backends) { *b = backend.Backends{} },
			wantErr: []string{
				"provisioner backend must not be nil",
				"process inspector backend must not be nil",
				"repository manager backend must not be nil",
				"file writer backend must not be nil",
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := completeBackends()
			tc.mutate(&b)

			err := b.Validate()
			if len(tc.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tc.wantErr)
			}
			for _, want := range tc.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q does not contain %q", err, want)
				}
			}
		})
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	if errors.Is(backend.ErrSiteNotFound, backend.ErrGatewayUnavailable) {
		t.Error("ErrSiteNotFound matches ErrGatewayUnavailable; sentinels must be distinct")
	}
	if errors.Is(backend.ErrGatewayUnavailable, backend.ErrSiteNotFound) {
		t.Error("ErrGatewayUnavailable matches ErrSiteNotFound; sentinels must be distinct")
	}
}

func TestSentinelErrorsMatchWrapped(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("write file hostingstart.html: %w", backend.ErrGatewayUnavailable)
	if !errors.Is(wrapped, backend.ErrGatewayUnavailable) {
		t.Error("wrapped gateway error does not match ErrGatewayUnavailable")
	}
}

// TestUptimeReporterDiscovery verifies the type-assertion pattern the pool
// uses to discover the optional uptime capability on a file writer.
func TestUptimeReporterDiscovery(t *testing.T) {
	t.Parallel()

	var plain backend.FileWriter = nopBackend{}
	if _, ok := plain.(backend.UptimeReporter); ok {
		t.Error("plain file writer unexpectedly implements UptimeReporter")
	}

	var reporting backend.FileWriter = uptimeBackend{}
	up, ok := reporting.(backend.UptimeReporter)
	if !ok {
		t.Fatal("uptime-capable file writer does not implement UptimeReporter")
	}
	d, err := up.Uptime(context.Background(), &backend.SiteInfo{Name: "testsite-1"})
	if err != nil {
		t.Fatalf("Uptime() error: %v", err)
	}
	if d != 42*time.Second {
		t.Errorf("Uptime() = %v, want 42s", d)
	}
}

// uptimeBackend is a file writer that also reports gateway uptime.
type uptimeBackend struct {
	nopBackend
}

func (uptimeBackend) Uptime(context.Context, *backend.SiteInfo) (time.Duration, error) {
	return 42 * time.Second, nil
}
