// Package memview provides typed, bounds-checked views over a region of
// linear memory.
//
// A View[T] covers length consecutive elements of T starting at a byte offset
// that must be aligned to T's size. Reads and writes go straight to the
// memory's backing buffer; a view never owns or copies the memory:
//
//	v, err := memview.New[uint32](mem, 64, 4)
//	v.Set(0, 7)
//	sub := v.Subarray(1, 3) // elements 1 and 2
//
// Atomically hands the region over to an AtomicView[T]. Until Release is
// called, plain access to any of its bytes panics, whichever view it goes
// through: subarrays, views from separate New calls and views over other
// handles to the same memory all see the hand-off. Elements narrower than 32 bits are updated with compare-and-swap on
// the containing aligned 32-bit word; f32 and f64 elements are accessed as
// their u32 and u64 bit patterns.
//
// Growing a memory may move its buffer. Views taken before the growth must be
// discarded; using them afterwards reads stale storage.
//
// Views assume a little-endian host, matching the wasm memory byte order.
package memview
