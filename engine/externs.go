package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
)

// NewMemory creates a host-owned memory. The returned module exports it as
// wasm.ProviderExport.
func (e *WazeroEngine) NewMemory(ctx context.Context, lim wasm.Limits) (api.Module, error) {
	return e.provide(ctx, prefixMemory, wasm.MemoryProvider(lim))
}

// NewTable creates a host-owned table filled with null references.
func (e *WazeroEngine) NewTable(ctx context.Context, tt wasm.TableType) (api.Module, error) {
	return e.provide(ctx, prefixTable, wasm.TableProvider(tt))
}

// NewGlobal creates a host-owned global holding bits.
func (e *WazeroEngine) NewGlobal(ctx context.Context, gt wasm.GlobalType, bits uint64) (api.Module, error) {
	return e.provide(ctx, prefixGlobal, wasm.GlobalProvider(gt, bits))
}

func (e *WazeroEngine) provide(ctx context.Context, prefix string, bin []byte) (api.Module, error) {
	name := e.nextName(prefix)
	mod, err := e.runtime.InstantiateWithConfig(ctx, bin, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInstantiate, errors.KindInstantiation, err, "create "+prefix)
	}
	Logger().Debug("extern created", zap.String("module", name))
	return mod, nil
}

// TableProbe reads and grows a table owned by another module.
type TableProbe struct {
	mod  api.Module
	size api.Function
	grow api.Function
}

// ProbeTable attaches a probe to the table exported as module.name.
func (e *WazeroEngine) ProbeTable(ctx context.Context, module, name string, elem api.ValueType) (*TableProbe, error) {
	bin := wasm.TableProbe(module, name, elem)
	mod, err := e.runtime.InstantiateWithConfig(ctx, bin, wazero.NewModuleConfig().WithName(e.nextName(prefixProbe)))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInstantiate, errors.KindInstantiation, err, "probe table "+module+"."+name)
	}
	return &TableProbe{
		mod:  mod,
		size: mod.ExportedFunction(wasm.ProbeSize),
		grow: mod.ExportedFunction(wasm.ProbeGrow),
	}, nil
}

// Size returns the current number of table elements.
func (p *TableProbe) Size(ctx context.Context) (uint32, error) {
	res, err := p.size.Call(ctx)
	if err != nil {
		return 0, errors.CallFailed(wasm.ProbeSize, err)
	}
	return api.DecodeU32(res[0]), nil
}

// Grow adds delta null elements and returns the previous size. ok is false
// when the table cannot grow by delta.
func (p *TableProbe) Grow(ctx context.Context, delta uint32) (previous uint32, ok bool, err error) {
	res, err := p.grow.Call(ctx, api.EncodeU32(delta))
	if err != nil {
		return 0, false, errors.CallFailed(wasm.ProbeGrow, err)
	}
	if int32(api.DecodeU32(res[0])) < 0 {
		return 0, false, nil
	}
	return api.DecodeU32(res[0]), true, nil
}

// Close releases the probe module.
func (p *TableProbe) Close(ctx context.Context) error {
	return p.mod.Close(ctx)
}
