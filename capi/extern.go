package capi

import (
	"context"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/handle"
	"github.com/wippyai/wasm-embed/memview"
	"github.com/wippyai/wasm-embed/runtime"
)

// MemoryNew creates a memory of limits.Min pages. The caller releases it
// with MemoryDestroy.
func MemoryNew(limits Limits) (handle.Handle, Result) {
	rt, err := defaultRuntime()
	if err != nil {
		return 0, setLastError(err)
	}
	mem, err := rt.NewMemory(context.Background(), limits.toRuntime())
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.insert(kindMemory, mem), OK
}

// MemoryGrow adds delta pages.
func MemoryGrow(mem handle.Handle, delta uint32) Result {
	m, err := lookup[*runtime.Memory](mem, kindMemory)
	if err != nil {
		return setLastError(err)
	}
	if _, err := m.Grow(delta); err != nil {
		return setLastError(err)
	}
	return OK
}

// MemoryLength returns the size in pages, or 0 for a bad handle.
func MemoryLength(mem handle.Handle) uint32 {
	m, err := lookup[*runtime.Memory](mem, kindMemory)
	if err != nil {
		setLastError(err)
		return 0
	}
	return m.Length()
}

// MemoryDataLength returns the size in bytes, or 0 for a bad handle.
func MemoryDataLength(mem handle.Handle) uint64 {
	m, err := lookup[*runtime.Memory](mem, kindMemory)
	if err != nil {
		setLastError(err)
		return 0
	}
	return m.DataLength()
}

// MemoryData returns the memory's bytes. The slice is invalidated by Grow.
func MemoryData(mem handle.Handle) []byte {
	m, err := lookup[*runtime.Memory](mem, kindMemory)
	if err != nil {
		setLastError(err)
		return nil
	}
	return m.Data()
}

// MemoryWrite copies src into memory at offset.
func MemoryWrite(mem handle.Handle, offset uint32, src []byte) Result {
	v, res := byteView(mem, offset, len(src))
	if res != OK {
		return res
	}
	if err := v.CopyFrom(src); err != nil {
		return setLastError(err)
	}
	return OK
}

// MemoryRead copies len(dst) bytes at offset into dst.
func MemoryRead(mem handle.Handle, offset uint32, dst []byte) Result {
	v, res := byteView(mem, offset, len(dst))
	if res != OK {
		return res
	}
	v.CopyTo(dst)
	return OK
}

func byteView(mem handle.Handle, offset uint32, n int) (memview.View[uint8], Result) {
	m, err := lookup[*runtime.Memory](mem, kindMemory)
	if err != nil {
		return memview.View[uint8]{}, setLastError(err)
	}
	if uint64(n) > uint64(^uint32(0)) {
		return memview.View[uint8]{}, setLastError(errors.OutOfBounds(errors.PhaseMemory, []string{"view"}, uint64(n), m.DataLength()))
	}
	v, err := memview.New[uint8](m, offset, uint32(n))
	if err != nil {
		return memview.View[uint8]{}, setLastError(err)
	}
	if v.HandedOff() {
		return memview.View[uint8]{}, setLastError(errors.Unsupported(errors.PhaseMemory, "plain access to memory in atomic mode"))
	}
	return v, OK
}

func MemoryDestroy(mem handle.Handle) Result {
	v, err := handles.remove(mem, kindMemory)
	if err != nil {
		return setLastError(err)
	}
	if m, ok := v.(*runtime.Memory); ok {
		if err := m.Close(context.Background()); err != nil {
			return setLastError(err)
		}
	}
	return OK
}

// GlobalNew creates a global holding v.
func GlobalNew(v Value, mutable bool) (handle.Handle, Result) {
	if !v.Tag.Valid() {
		return 0, setLastError(errors.Unsupported(errors.PhaseHost, "global of type "+v.Tag.String()))
	}
	rt, err := defaultRuntime()
	if err != nil {
		return 0, setLastError(err)
	}
	g, err := rt.NewGlobal(context.Background(), v.Value(), mutable)
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.insert(kindGlobal, g), OK
}

func GlobalGet(global handle.Handle) (Value, Result) {
	g, err := lookup[*runtime.Global](global, kindGlobal)
	if err != nil {
		return Value{}, setLastError(err)
	}
	return fromValue(g.Get()), OK
}

// GlobalSet stores v. It fails for immutable globals and mismatched tags.
func GlobalSet(global handle.Handle, v Value) Result {
	g, err := lookup[*runtime.Global](global, kindGlobal)
	if err != nil {
		return setLastError(err)
	}
	if !v.Tag.Valid() {
		return setLastError(errors.Unsupported(errors.PhaseHost, "value of type "+v.Tag.String()))
	}
	if err := g.Set(v.Value()); err != nil {
		return setLastError(err)
	}
	return OK
}

func GlobalGetDescriptor(global handle.Handle) (GlobalDescriptor, Result) {
	g, err := lookup[*runtime.Global](global, kindGlobal)
	if err != nil {
		return GlobalDescriptor{}, setLastError(err)
	}
	return GlobalDescriptor{Kind: g.Type(), Mutable: g.Mutable()}, OK
}

func GlobalDestroy(global handle.Handle) Result {
	v, err := handles.remove(global, kindGlobal)
	if err != nil {
		return setLastError(err)
	}
	if g, ok := v.(*runtime.Global); ok {
		if err := g.Close(context.Background()); err != nil {
			return setLastError(err)
		}
	}
	return OK
}

// TableNew creates a funcref table of limits.Min elements.
func TableNew(limits Limits) (handle.Handle, Result) {
	rt, err := defaultRuntime()
	if err != nil {
		return 0, setLastError(err)
	}
	t, err := rt.NewTable(context.Background(), limits.toRuntime())
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.insert(kindTable, t), OK
}

func TableGrow(table handle.Handle, delta uint32) Result {
	t, err := lookup[*runtime.Table](table, kindTable)
	if err != nil {
		return setLastError(err)
	}
	if _, err := t.Grow(context.Background(), delta); err != nil {
		return setLastError(err)
	}
	return OK
}

// TableLength returns the number of elements, or 0 on failure.
func TableLength(table handle.Handle) uint32 {
	t, err := lookup[*runtime.Table](table, kindTable)
	if err != nil {
		setLastError(err)
		return 0
	}
	n, err := t.Size(context.Background())
	if err != nil {
		setLastError(err)
		return 0
	}
	return n
}

func TableDestroy(table handle.Handle) Result {
	v, err := handles.remove(table, kindTable)
	if err != nil {
		return setLastError(err)
	}
	if t, ok := v.(*runtime.Table); ok {
		if err := t.Close(context.Background()); err != nil {
			return setLastError(err)
		}
	}
	return OK
}
