package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/engine"
	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/value"
)

// Table is a shared reference to a table. Its elements are not exposed;
// only its size can be read and grown.
type Table struct {
	runtime *Runtime
	owner   *owner
	probe   *tableProbe
	source  linker.Source
	typ     TableType
}

// tableProbe is created on first use and shared by all clones.
type tableProbe struct {
	p  *engine.TableProbe
	mu sync.Mutex
}

func newOwnedTable(r *Runtime, mod api.Module, tt TableType) *Table {
	return &Table{
		runtime: r,
		owner:   newOwner(mod),
		probe:   &tableProbe{},
		source:  providerSource(mod, wasm.ProviderExport),
		typ:     tt,
	}
}

// Clone returns another reference to the same table.
func (t *Table) Clone() *Table {
	c := *t
	c.owner = t.owner.retain()
	return &c
}

// Type returns the table's declared type.
func (t *Table) Type() TableType {
	return t.typ
}

func (t *Table) attachProbe(ctx context.Context) (*engine.TableProbe, error) {
	t.probe.mu.Lock()
	defer t.probe.mu.Unlock()

	if t.probe.p == nil {
		p, err := t.runtime.engine.ProbeTable(ctx, t.source.Module, t.source.Name, t.typ.ElemType)
		if err != nil {
			return nil, err
		}
		t.probe.p = p
		t.owner.attach(p)
	}
	return t.probe.p, nil
}

// Size returns the number of elements.
func (t *Table) Size(ctx context.Context) (uint32, error) {
	p, err := t.attachProbe(ctx)
	if err != nil {
		return 0, err
	}
	return p.Size(ctx)
}

// Grow adds delta null elements and returns the previous size.
func (t *Table) Grow(ctx context.Context, delta uint32) (uint32, error) {
	p, err := t.attachProbe(ctx)
	if err != nil {
		return 0, err
	}
	prev, ok, err := p.Grow(ctx, delta)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New(errors.PhaseHost, errors.KindOutOfBounds).
			Detail("cannot grow table by %d elements", delta).
			Build()
	}
	return prev, nil
}

// LinkEntry lets the table satisfy a table import.
func (t *Table) LinkEntry() linker.Entry {
	tt := t.typ
	return linker.Entry{Kind: value.KindTable, Table: &tt, Source: t.source}
}

// Close releases this reference.
func (t *Table) Close(ctx context.Context) error {
	return t.owner.release(ctx)
}
