package core

import (
	"fmt"
	"sync"

	"github.com/giantswarm/sitepool/internal/slotlock"
)

// slotRegistry tracks which slot indexes are free. Indexes run from 1 to the
// pool size and are handed out LIFO, so a freshly returned slot is reused
// before an untouched one and the low indexes see the most traffic.
//
// When a Locker is present, taking a slot also takes its machine-wide lease
// and slots leased by another process are skipped. A slot dropped after a
// failed run keeps its lease for the life of this process so no other
// process picks up the possibly broken site.
type slotRegistry struct {
	locks *slotlock.Locker // nil when leasing is disabled

	mu      sync.Mutex
	free    []int
	dropped int
}

// newSlotRegistry builds a registry over slots 1..size. Panics if size is
// not positive; the config is validated long before this point.
func newSlotRegistry(size int, locks *slotlock.Locker) *slotRegistry {
	if size <= 0 {
		panic(fmt.Sprintf("sitepool: slot registry size must be positive, got %d", size))
	}

	// Stored descending so the first pop from the slice end yields slot 1.
	free := make([]int, 0, size)
	for i := size; i >= 1; i-- {
		free = append(free, i)
	}

	return &slotRegistry{
		locks: locks,
		free:  free,
	}
}

// tryTake removes and returns a free slot, or ok=false when every slot is
// taken, dropped, or leased elsewhere. It never blocks.
func (r *slotRegistry) tryTake() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.free) - 1; i >= 0; i-- {
		idx := r.free[i]
		if !r.tryLease(idx) {
			continue
		}
		r.free = append(r.free[:i], r.free[i+1:]...)
		return idx, true
	}
	return 0, false
}

// tryLease takes the machine-wide lease for idx. Always true when leasing is
// disabled. Lease errors are logged and treated as "slot unavailable" so one
// bad lock file cannot wedge the registry.
func (r *slotRegistry) tryLease(idx int) bool {
	if r.locks == nil {
		return true
	}
	ok, err := r.locks.TryAcquire(idx)
	if err != nil {
		log().Warn("skipping slot with faulty lease", "slot", idx, "err", err)
		return false
	}
	return ok
}

// giveBack returns a slot whose site was never handed to a caller, for
// example after a failed provisioning or a shutdown race.
func (r *slotRegistry) giveBack(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.free = append(r.free, idx)
	if r.locks != nil {
		r.locks.Release(idx)
	}
}

// reclaim decides what happens to a slot after its site was reported. A slot
// that hosted a passing run goes back to the free list. A slot that hosted a
// failing run is dropped so leftover state cannot taint later runs, unless
// the registry is nearly empty, in which case it is returned anyway to keep
// the pool alive. Reports whether the slot was returned.
//
// The check and the list update happen under one lock so two concurrent
// failure reports cannot both observe "nearly empty" and over-return.
func (r *slotRegistry) reclaim(idx int, ok bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ok || len(r.free) <= 1 {
		r.free = append(r.free, idx)
		if r.locks != nil {
			r.locks.Release(idx)
		}
		return true
	}

	// Dropped for good. The lease is deliberately kept so other processes
	// sharing the lease directory skip this slot too.
	r.dropped++
	return false
}

// freeCount returns the number of slots currently available.
func (r *slotRegistry) freeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.free)
}

// close releases every lease, including the ones quarantining dropped slots.
// The registry must not be used afterwards.
func (r *slotRegistry) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	log().Debug("closing slot registry", "free", len(r.free), "dropped", r.dropped)
	if r.locks != nil {
		r.locks.Close()
	}
}
