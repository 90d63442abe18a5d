package sitepool

import "github.com/giantswarm/sitepool/internal/core"

// SlotNames returns every site name a pool with the given prefix and size
// manages, in slot order. Out-of-band tooling uses it to find the sites a
// pool may have created, for example a nightly job deleting them outright.
// Panics if prefix is empty or poolSize is not positive.
func SlotNames(prefix string, poolSize int) []string {
	requireNonEmpty("slot prefix", prefix)
	requirePositive("pool size", poolSize)

	names := make([]string, 0, poolSize)
	for i := 1; i <= poolSize; i++ {
		names = append(names, core.SlotName(prefix, i))
	}
	return names
}
