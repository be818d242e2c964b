package memview

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// region is a byte range of host memory handed off to atomic access.
type region struct {
	lo, hi uintptr
	live   atomic.Bool
}

// leases tracks every region currently in atomic mode. Ranges are host
// addresses, so views built separately over the same memory see each
// other's hand-offs.
var leases = struct {
	mu      sync.Mutex
	count   atomic.Int32
	regions map[*region]struct{}
}{regions: make(map[*region]struct{})}

// acquire registers [lo, hi) for atomic access. It returns nil if the range
// overlaps a region already handed off.
func acquire(lo, hi uintptr) *region {
	leases.mu.Lock()
	defer leases.mu.Unlock()
	for r := range leases.regions {
		if lo < r.hi && r.lo < hi {
			return nil
		}
	}
	r := &region{lo: lo, hi: hi}
	r.live.Store(true)
	leases.regions[r] = struct{}{}
	leases.count.Add(1)
	return r
}

// release returns r to plain access. It reports false if r was not live.
func release(r *region) bool {
	leases.mu.Lock()
	defer leases.mu.Unlock()
	if !r.live.CompareAndSwap(true, false) {
		return false
	}
	if _, ok := leases.regions[r]; ok {
		delete(leases.regions, r)
		leases.count.Add(-1)
	}
	return true
}

// atomicOverlap reports whether any byte of [p, p+n) is in atomic mode.
func atomicOverlap(p unsafe.Pointer, n uintptr) bool {
	if leases.count.Load() == 0 || p == nil || n == 0 {
		return false
	}
	lo := uintptr(p)
	hi := lo + n
	leases.mu.Lock()
	defer leases.mu.Unlock()
	for r := range leases.regions {
		if lo < r.hi && r.lo < hi {
			return true
		}
	}
	return false
}
