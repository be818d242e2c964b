package memview

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// AtomicView gives sequentially consistent access to a region handed off by
// View.Atomically.
type AtomicView[T Element] struct {
	view   View[T]
	region *region
}

// Len returns the number of elements.
func (a AtomicView[T]) Len() uint32 {
	return a.view.length
}

func (a AtomicView[T]) addr(i uint32) unsafe.Pointer {
	p := unsafe.Pointer(a.view.at(i))
	if !a.region.live.Load() {
		panic("memview: atomic access after release")
	}
	return p
}

// Load atomically reads element i.
func (a AtomicView[T]) Load(i uint32) T {
	return fromBits[T](loadBits(a.addr(i), sizeOf[T]()))
}

// Store atomically writes element i.
func (a AtomicView[T]) Store(i uint32, x T) {
	storeBits(a.addr(i), sizeOf[T](), toBits(x))
}

// Swap atomically stores x at element i and returns the previous value.
func (a AtomicView[T]) Swap(i uint32, x T) T {
	return fromBits[T](swapBits(a.addr(i), sizeOf[T](), toBits(x)))
}

// CompareAndSwap stores new at element i if it currently holds old. Floats
// compare by bit pattern.
func (a AtomicView[T]) CompareAndSwap(i uint32, old, new T) bool {
	return casBits(a.addr(i), sizeOf[T](), toBits(old), toBits(new))
}

// Add atomically adds delta to element i and returns the new value.
func (a AtomicView[T]) Add(i uint32, delta T) T {
	p := a.addr(i)
	size := sizeOf[T]()
	for {
		oldBits := loadBits(p, size)
		sum := fromBits[T](oldBits) + delta
		if casBits(p, size, oldBits, toBits(sum)) {
			return sum
		}
	}
}

// Release hands the region back to plain access and returns the plain view.
func (a AtomicView[T]) Release() View[T] {
	if a.region == nil || !release(a.region) {
		panic("memview: region is not in atomic mode")
	}
	return a.view
}

func toBits[T Element](x T) uint64 {
	switch unsafe.Sizeof(x) {
	case 1:
		return uint64(*(*uint8)(unsafe.Pointer(&x)))
	case 2:
		return uint64(*(*uint16)(unsafe.Pointer(&x)))
	case 4:
		return uint64(*(*uint32)(unsafe.Pointer(&x)))
	default:
		return *(*uint64)(unsafe.Pointer(&x))
	}
}

func fromBits[T Element](b uint64) T {
	var x T
	switch unsafe.Sizeof(x) {
	case 1:
		*(*uint8)(unsafe.Pointer(&x)) = uint8(b)
	case 2:
		*(*uint16)(unsafe.Pointer(&x)) = uint16(b)
	case 4:
		*(*uint32)(unsafe.Pointer(&x)) = uint32(b)
	default:
		*(*uint64)(unsafe.Pointer(&x)) = b
	}
	return x
}

// subword locates a 1 or 2 byte element inside its aligned 32-bit word.
func subword(p unsafe.Pointer, size uint32) (word *uint32, shift, mask uint32) {
	off := uintptr(p) & 3
	word = (*uint32)(unsafe.Add(p, -int(off)))
	return word, uint32(off) * 8, uint32(1)<<(size*8) - 1
}

func loadBits(p unsafe.Pointer, size uint32) uint64 {
	switch size {
	case 1, 2:
		word, shift, mask := subword(p, size)
		return uint64((atomic.LoadUint32(word) >> shift) & mask)
	case 4:
		return uint64(atomic.LoadUint32((*uint32)(p)))
	case 8:
		return atomic.LoadUint64((*uint64)(p))
	}
	panic(fmt.Sprintf("memview: unsupported element size %d", size))
}

func storeBits(p unsafe.Pointer, size uint32, b uint64) {
	switch size {
	case 1, 2:
		swapBits(p, size, b)
	case 4:
		atomic.StoreUint32((*uint32)(p), uint32(b))
	case 8:
		atomic.StoreUint64((*uint64)(p), b)
	default:
		panic(fmt.Sprintf("memview: unsupported element size %d", size))
	}
}

func swapBits(p unsafe.Pointer, size uint32, b uint64) uint64 {
	switch size {
	case 1, 2:
		word, shift, mask := subword(p, size)
		for {
			w := atomic.LoadUint32(word)
			nw := w&^(mask<<shift) | (uint32(b)&mask)<<shift
			if atomic.CompareAndSwapUint32(word, w, nw) {
				return uint64((w >> shift) & mask)
			}
		}
	case 4:
		return uint64(atomic.SwapUint32((*uint32)(p), uint32(b)))
	case 8:
		return atomic.SwapUint64((*uint64)(p), b)
	}
	panic(fmt.Sprintf("memview: unsupported element size %d", size))
}

func casBits(p unsafe.Pointer, size uint32, old, new uint64) bool {
	switch size {
	case 1, 2:
		word, shift, mask := subword(p, size)
		for {
			w := atomic.LoadUint32(word)
			if (w>>shift)&mask != uint32(old)&mask {
				return false
			}
			nw := w&^(mask<<shift) | (uint32(new)&mask)<<shift
			if atomic.CompareAndSwapUint32(word, w, nw) {
				return true
			}
		}
	case 4:
		return atomic.CompareAndSwapUint32((*uint32)(p), uint32(old), uint32(new))
	case 8:
		return atomic.CompareAndSwapUint64((*uint64)(p), old, new)
	}
	panic(fmt.Sprintf("memview: unsupported element size %d", size))
}
