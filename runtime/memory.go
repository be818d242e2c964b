package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/value"
)

// PageSize is the size of a memory page in bytes.
const PageSize = 65536

// Memory is a shared reference to a linear memory. Cloning never copies
// the memory's contents.
type Memory struct {
	mem    api.Memory
	owner  *owner
	source linker.Source
	limits Limits
}

func newOwnedMemory(mod api.Module, lim Limits) *Memory {
	return &Memory{
		mem:    mod.ExportedMemory(wasm.ProviderExport),
		owner:  newOwner(mod),
		source: providerSource(mod, wasm.ProviderExport),
		limits: lim,
	}
}

// Clone returns another reference to the same memory.
func (m *Memory) Clone() *Memory {
	c := *m
	c.owner = m.owner.retain()
	return &c
}

// Read returns a view of byteCount bytes at offset. The slice aliases the
// memory until the memory grows.
func (m *Memory) Read(offset, byteCount uint32) ([]byte, bool) {
	return m.mem.Read(offset, byteCount)
}

// Write copies data into the memory at offset.
func (m *Memory) Write(offset uint32, data []byte) bool {
	return m.mem.Write(offset, data)
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// Length returns the memory size in pages.
func (m *Memory) Length() uint32 {
	return m.mem.Size() / PageSize
}

// DataLength returns the memory size in bytes.
func (m *Memory) DataLength() uint64 {
	return uint64(m.mem.Size())
}

// Data returns the whole memory. The slice is invalidated by Grow.
func (m *Memory) Data() []byte {
	b, _ := m.mem.Read(0, m.mem.Size())
	return b
}

// Grow adds delta pages and returns the previous length in pages.
func (m *Memory) Grow(delta uint32) (uint32, error) {
	prev, ok := m.mem.Grow(delta)
	if !ok {
		return 0, errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
			Detail("cannot grow memory of %d pages by %d", m.Length(), delta).
			Build()
	}
	return prev, nil
}

// Limits returns the memory's declared limits.
func (m *Memory) Limits() Limits {
	return m.limits
}

// LinkEntry lets the memory satisfy a memory import.
func (m *Memory) LinkEntry() linker.Entry {
	lim := m.limits
	return linker.Entry{Kind: value.KindMemory, Memory: &lim, Source: m.source}
}

// Close releases this reference.
func (m *Memory) Close(ctx context.Context) error {
	return m.owner.release(ctx)
}
