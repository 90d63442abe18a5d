package sitepool_test

import (
	"slices"
	"testing"

	"github.com/giantswarm/sitepool"
)

func TestSlotNames(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		prefix string
		size   int
		want   []string
	}{
		"single slot": {
			prefix: "testsite-",
			size:   1,
			want:   []string{"testsite-1"},
		},
		"several slots in order": {
			prefix: "testsite-",
			size:   3,
			want:   []string{"testsite-1", "testsite-2", "testsite-3"},
		},
		"custom prefix": {
			prefix: "ci-env-",
			size:   2,
			want:   []string{"ci-env-1", "ci-env-2"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := sitepool.SlotNames(tc.prefix, tc.size); !slices.Equal(got, tc.want) {
				t.Errorf("SlotNames(%q, %d) = %v, want %v", tc.prefix, tc.size, got, tc.want)
			}
		})
	}
}

func TestSlotNamesPanicsOnBadInput(t *testing.T) {
	t.Parallel()

	requirePanicContains(t, "slot prefix must not be empty", func() {
		sitepool.SlotNames("", 3)
	})
	requirePanicContains(t, "pool size must be positive", func() {
		sitepool.SlotNames("testsite-", 0)
	})
}
