package memview

import (
	"fmt"
	"unsafe"

	wasmembed "github.com/wippyai/wasm-embed"
	"github.com/wippyai/wasm-embed/errors"
)

// Element is the set of types a view can hold.
type Element interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

var littleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// View is a typed window over linear memory.
type View[T Element] struct {
	mem    wasmembed.Memory
	base   unsafe.Pointer
	offset uint32
	length uint32
}

func sizeOf[T Element]() uint32 {
	var zero T
	return uint32(unsafe.Sizeof(zero))
}

// New creates a view of length elements of T starting at byte offset.
func New[T Element](mem wasmembed.Memory, offset, length uint32) (View[T], error) {
	if mem == nil {
		return View[T]{}, errors.NilPointer(errors.PhaseMemory, "memory")
	}
	if !littleEndian {
		return View[T]{}, errors.Unsupported(errors.PhaseMemory, "memory views require a little-endian host")
	}

	size := sizeOf[T]()
	if offset%size != 0 {
		return View[T]{}, errors.New(errors.PhaseMemory, errors.KindInvalidInput).
			Value(offset).
			Detail("offset %d is not aligned to element size %d", offset, size).
			Build()
	}

	byteLen := uint64(length) * uint64(size)
	memSize := uint64(mem.Size())
	if uint64(offset)+byteLen > memSize {
		return View[T]{}, errors.OutOfBounds(errors.PhaseMemory, []string{"view"}, uint64(offset)+byteLen, memSize)
	}

	buf, ok := mem.Read(offset, uint32(byteLen))
	if !ok {
		return View[T]{}, errors.OutOfBounds(errors.PhaseMemory, []string{"view"}, uint64(offset)+byteLen, memSize)
	}

	var base unsafe.Pointer
	if len(buf) > 0 {
		base = unsafe.Pointer(unsafe.SliceData(buf))
		if uintptr(base)%uintptr(size) != 0 {
			return View[T]{}, errors.InvalidInput(errors.PhaseMemory, "memory buffer is not aligned for element size")
		}
	}

	return View[T]{
		mem:    mem,
		base:   base,
		offset: offset,
		length: length,
	}, nil
}

// Len returns the number of elements.
func (v View[T]) Len() uint32 {
	return v.length
}

// Offset returns the byte offset of the first element in memory.
func (v View[T]) Offset() uint32 {
	return v.offset
}

// checkPlain panics if elements [start, end) overlap a region handed off to
// atomic access by any view.
func (v View[T]) checkPlain(start, end uint32) {
	if end <= start {
		return
	}
	size := uintptr(sizeOf[T]())
	if atomicOverlap(unsafe.Add(v.base, uintptr(start)*size), uintptr(end-start)*size) {
		panic("memview: plain access to a region handed off to atomic access")
	}
}

// HandedOff reports whether any element of the view is currently in atomic
// mode.
func (v View[T]) HandedOff() bool {
	return atomicOverlap(v.base, uintptr(v.length)*uintptr(sizeOf[T]()))
}

func (v View[T]) at(i uint32) *T {
	if i >= v.length {
		panic(fmt.Sprintf("memview: index %d out of range [0, %d)", i, v.length))
	}
	return (*T)(unsafe.Add(v.base, uintptr(i)*uintptr(sizeOf[T]())))
}

// Get returns element i.
func (v View[T]) Get(i uint32) T {
	p := v.at(i)
	v.checkPlain(i, i+1)
	return *p
}

// Set stores x at element i.
func (v View[T]) Set(i uint32, x T) {
	p := v.at(i)
	v.checkPlain(i, i+1)
	*p = x
}

// Subarray returns the view of elements [start, end). It panics unless
// start <= end < Len().
func (v View[T]) Subarray(start, end uint32) View[T] {
	if start > end || end >= v.length {
		panic(fmt.Sprintf("memview: subarray [%d, %d) out of range for length %d", start, end, v.length))
	}
	size := sizeOf[T]()
	return View[T]{
		mem:    v.mem,
		base:   unsafe.Add(v.base, uintptr(start)*uintptr(size)),
		offset: v.offset + start*size,
		length: end - start,
	}
}

func (v View[T]) slice() []T {
	if v.length == 0 {
		return nil
	}
	return unsafe.Slice((*T)(v.base), v.length)
}

// CopyFrom copies src into the view. src must have exactly Len() elements.
func (v View[T]) CopyFrom(src []T) error {
	v.checkPlain(0, v.length)
	if len(src) != int(v.length) {
		return errors.LengthMismatch(errors.PhaseMemory, int(v.length), len(src))
	}
	copy(v.slice(), src)
	return nil
}

// CopyTo copies the view into dst and returns the number of elements copied.
func (v View[T]) CopyTo(dst []T) int {
	v.checkPlain(0, v.length)
	return copy(dst, v.slice())
}

// Atomically hands the region to an atomic view. Until the atomic view is
// released, plain access through any view overlapping the region panics.
// It panics if part of the region is already handed off.
func (v View[T]) Atomically() AtomicView[T] {
	lo := uintptr(v.base)
	hi := lo + uintptr(v.length)*uintptr(sizeOf[T]())
	if size := sizeOf[T](); size < 4 && v.length > 0 {
		// Narrow elements are updated through their containing 32-bit word.
		wlo := v.offset &^ 3
		whi := (uint64(v.offset) + uint64(v.length)*uint64(size) + 3) &^ 3
		if _, ok := v.mem.Read(wlo, uint32(whi-uint64(wlo))); !ok {
			panic("memview: containing words of the region lie outside memory")
		}
		lo &^= 3
		hi = (hi + 3) &^ 3
	}
	if v.length == 0 {
		r := &region{}
		r.live.Store(true)
		return AtomicView[T]{view: v, region: r}
	}
	r := acquire(lo, hi)
	if r == nil {
		panic("memview: region already handed off to atomic access")
	}
	return AtomicView[T]{view: v, region: r}
}
