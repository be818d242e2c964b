package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/value"
)

// Global is a shared reference to a global variable.
type Global struct {
	g      api.Global
	owner  *owner
	source linker.Source
	typ    GlobalType
}

func newOwnedGlobal(mod api.Module, gt GlobalType) *Global {
	return &Global{
		g:      mod.ExportedGlobal(wasm.ProviderExport),
		owner:  newOwner(mod),
		source: providerSource(mod, wasm.ProviderExport),
		typ:    gt,
	}
}

// Clone returns another reference to the same global.
func (g *Global) Clone() *Global {
	c := *g
	c.owner = g.owner.retain()
	return &c
}

// Type returns the global's value type.
func (g *Global) Type() value.Type {
	return value.TypeFromEngine(g.typ.ValType)
}

// Mutable reports whether Set is allowed.
func (g *Global) Mutable() bool {
	return g.typ.Mutable
}

// Get returns the current value.
func (g *Global) Get() value.Value {
	return value.FromEngine(g.typ.ValType, g.g.Get())
}

// Set replaces the value of a mutable global.
func (g *Global) Set(v value.Value) error {
	mg, ok := g.g.(api.MutableGlobal)
	if !ok || !g.typ.Mutable {
		return errors.Unsupported(errors.PhaseHost, "set of immutable global")
	}
	if v.Type() != g.Type() {
		return errors.TypeMismatch(errors.PhaseMarshal, []string{"global"}, g.Type().String(), v.Type().String())
	}
	mg.Set(v.Bits())
	return nil
}

// LinkEntry lets the global satisfy a global import.
func (g *Global) LinkEntry() linker.Entry {
	gt := g.typ
	return linker.Entry{Kind: value.KindGlobal, Global: &gt, Source: g.source}
}

// Close releases this reference.
func (g *Global) Close(ctx context.Context) error {
	return g.owner.release(ctx)
}
