package sitepool_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/giantswarm/sitepool"
)

func TestSentinelsAreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := map[string]error{
		"ErrNoFreeSlots":        sitepool.ErrNoFreeSlots,
		"ErrNotInitialized":     sitepool.ErrNotInitialized,
		"ErrShuttingDown":       sitepool.ErrShuttingDown,
		"ErrSiteReported":       sitepool.ErrSiteReported,
		"ErrSiteNotFound":       sitepool.ErrSiteNotFound,
		"ErrGatewayUnavailable": sitepool.ErrGatewayUnavailable,
		"ErrForeignSite":        sitepool.ErrForeignSite,
	}

	for aName, a := range sentinels {
		for bName, b := range sentinels {
			want := aName == bName
			if got := errors.Is(a, b); got != want {
				t.Errorf("errors.Is(%s, %s) = %t, want %t", aName, bName, got, want)
			}
		}
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("acquire site: %w", sitepool.ErrNoFreeSlots)
	if !errors.Is(wrapped, sitepool.ErrNoFreeSlots) {
		t.Error("wrapped ErrNoFreeSlots no longer matches")
	}

	deeply := fmt.Errorf("run tests: %w", fmt.Errorf("setup: %w", sitepool.ErrGatewayUnavailable))
	if !errors.Is(deeply, sitepool.ErrGatewayUnavailable) {
		t.Error("deeply wrapped ErrGatewayUnavailable no longer matches")
	}
}

func TestSentinelMessagesCarryPackagePrefix(t *testing.T) {
	t.Parallel()

	for _, err := range []error{
		sitepool.ErrNoFreeSlots,
		sitepool.ErrNotInitialized,
		sitepool.ErrShuttingDown,
		sitepool.ErrSiteReported,
		sitepool.ErrSiteNotFound,
		sitepool.ErrGatewayUnavailable,
		sitepool.ErrForeignSite,
	} {
		if !strings.HasPrefix(err.Error(), "sitepool: ") {
			t.Errorf("sentinel %q does not carry the package prefix", err)
		}
	}
}
