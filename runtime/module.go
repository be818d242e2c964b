package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/engine"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/value"
)

const funcref = wasm.ValueTypeFuncref

type Module struct {
	runtime      *Runtime
	wazeroModule *engine.WazeroModule
}

// Instantiate creates an instance whose imports come from the runtime's
// registered host functions followed by imports.
func (m *Module) Instantiate(ctx context.Context, imports []Import) (*Instance, error) {
	table, err := m.runtime.Resolve(imports)
	if err != nil {
		return nil, err
	}
	return m.InstantiateTable(ctx, table)
}

// InstantiateTable creates an instance from an already resolved table.
func (m *Module) InstantiateTable(ctx context.Context, table *linker.ImportTable) (*Instance, error) {
	wi, err := m.wazeroModule.Instantiate(ctx, table)
	if err != nil {
		return nil, err
	}
	inst := &Instance{runtime: m.runtime, wazeroInstance: wi}
	registerInstance(inst)
	return inst, nil
}

// Close releases the compiled code. Instances already created keep running.
func (m *Module) Close(ctx context.Context) error {
	return m.wazeroModule.Close(ctx)
}

// ExportDescriptors lists the module's exports in declaration order.
// Exports of kinds without a boundary representation are skipped.
func (m *Module) ExportDescriptors() []ExportDescriptor {
	info := m.wazeroModule.Info()
	out := make([]ExportDescriptor, 0, len(info.Exports))
	for _, exp := range info.Exports {
		kind, ok := kindOf(exp.Kind)
		if !ok {
			continue
		}
		out = append(out, ExportDescriptor{
			Name:  exp.Name,
			Kind:  kind,
			index: exp.Index,
			info:  info,
		})
	}
	return out
}

// ImportDescriptors lists the module's imports grouped by kind: functions,
// then tables, then globals, then memories. Each group keeps declaration
// order.
func (m *Module) ImportDescriptors() []ImportDescriptor {
	info := m.wazeroModule.Info()
	out := make([]ImportDescriptor, 0, len(info.Imports))
	for _, want := range []wasm.ExternKind{wasm.ExternFunc, wasm.ExternTable, wasm.ExternGlobal, wasm.ExternMemory} {
		for i := range info.Imports {
			imp := &info.Imports[i]
			if imp.Kind != want {
				continue
			}
			kind, _ := kindOf(imp.Kind)
			out = append(out, ImportDescriptor{
				Module: imp.Module,
				Name:   imp.Name,
				Kind:   kind,
				imp:    imp,
				info:   info,
			})
		}
	}
	return out
}

// ExportDescriptor describes one export of a compiled module.
type ExportDescriptor struct {
	info  *wasm.Module
	Name  string
	index uint32
	Kind  value.Kind
}

// Signature returns the parameter and result types of a function export.
// ok is false for other kinds and for signatures using reference or vector
// types.
func (d ExportDescriptor) Signature() (params, results []value.Type, ok bool) {
	if d.Kind != value.KindFunction {
		return nil, nil, false
	}
	ft, ok := d.info.FuncType(d.index)
	if !ok {
		return nil, nil, false
	}
	return signature(ft)
}

// Limits returns the declared limits of a memory or table export.
func (d ExportDescriptor) Limits() (Limits, bool) {
	switch d.Kind {
	case value.KindMemory:
		return d.info.MemoryLimits(d.index)
	case value.KindTable:
		tt, ok := d.info.TableType(d.index)
		return tt.Limits, ok
	}
	return Limits{}, false
}

// GlobalType returns the declared type of a global export.
func (d ExportDescriptor) GlobalType() (GlobalType, bool) {
	if d.Kind != value.KindGlobal {
		return GlobalType{}, false
	}
	return d.info.GlobalType(d.index)
}

// ImportDescriptor describes one import of a compiled module.
type ImportDescriptor struct {
	imp    *wasm.Import
	info   *wasm.Module
	Module string
	Name   string
	Kind   value.Kind
}

// Signature returns the parameter and result types of a function import.
func (d ImportDescriptor) Signature() (params, results []value.Type, ok bool) {
	if d.Kind != value.KindFunction || int(d.imp.TypeIdx) >= len(d.info.Types) {
		return nil, nil, false
	}
	return signature(d.info.Types[d.imp.TypeIdx])
}

// EngineSignature returns the raw engine types of a function import,
// including types the boundary cannot represent.
func (d ImportDescriptor) EngineSignature() (params, results []api.ValueType, ok bool) {
	if d.Kind != value.KindFunction || int(d.imp.TypeIdx) >= len(d.info.Types) {
		return nil, nil, false
	}
	ft := d.info.Types[d.imp.TypeIdx]
	return ft.Params, ft.Results, true
}

// Limits returns the declared limits of a memory or table import.
func (d ImportDescriptor) Limits() (Limits, bool) {
	switch {
	case d.imp.Memory != nil:
		return *d.imp.Memory, true
	case d.imp.Table != nil:
		return d.imp.Table.Limits, true
	}
	return Limits{}, false
}

// GlobalType returns the declared type of a global import.
func (d ImportDescriptor) GlobalType() (GlobalType, bool) {
	if d.imp.Global == nil {
		return GlobalType{}, false
	}
	return *d.imp.Global, true
}

func signature(ft wasm.FuncType) (params, results []value.Type, ok bool) {
	if !value.Supported(ft.Params...) || !value.Supported(ft.Results...) {
		return nil, nil, false
	}
	return value.TypesFromEngine(ft.Params), value.TypesFromEngine(ft.Results), true
}

// callSignature converts ft for a call. A reference or vector type panics
// with *value.UnsupportedTypeError.
func callSignature(ft wasm.FuncType) (params, results []value.Type) {
	return value.TypesFromEngine(ft.Params), value.TypesFromEngine(ft.Results)
}

func kindOf(k wasm.ExternKind) (value.Kind, bool) {
	switch k {
	case wasm.ExternFunc:
		return value.KindFunction, true
	case wasm.ExternTable:
		return value.KindTable, true
	case wasm.ExternMemory:
		return value.KindMemory, true
	case wasm.ExternGlobal:
		return value.KindGlobal, true
	default:
		return 0, false
	}
}
