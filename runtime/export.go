package runtime

import (
	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/value"
)

// Export is one export of an instance. It is only valid while the
// instance is open.
type Export struct {
	inst  *Instance
	name  string
	index uint32
	kind  value.Kind
}

func (e *Export) Name() string     { return e.name }
func (e *Export) Kind() value.Kind { return e.kind }

func (e *Export) source() linker.Source {
	return linker.Source{Module: e.inst.wazeroInstance.Name(), Name: e.name}
}

// Function returns the export as a function. A signature using reference or
// vector types panics with *value.UnsupportedTypeError.
func (e *Export) Function() (*ExportedFunction, error) {
	if e.kind != value.KindFunction {
		return nil, errors.WrongExportKind(e.name, value.KindFunction.String(), e.kind.String())
	}
	ft, _ := e.inst.wazeroInstance.Info().FuncType(e.index)
	params, results := callSignature(ft)
	return &ExportedFunction{
		inst:    e.inst,
		fn:      e.inst.wazeroInstance.Module().ExportedFunction(e.name),
		name:    e.name,
		params:  params,
		results: results,
	}, nil
}

// Memory returns the export as a memory.
func (e *Export) Memory() (*Memory, error) {
	if e.kind != value.KindMemory {
		return nil, errors.WrongExportKind(e.name, value.KindMemory.String(), e.kind.String())
	}
	lim, _ := e.inst.wazeroInstance.Info().MemoryLimits(e.index)
	return &Memory{
		mem:    e.inst.wazeroInstance.Module().ExportedMemory(e.name),
		owner:  &owner{refs: 1},
		source: e.source(),
		limits: lim,
	}, nil
}

// Global returns the export as a global.
func (e *Export) Global() (*Global, error) {
	if e.kind != value.KindGlobal {
		return nil, errors.WrongExportKind(e.name, value.KindGlobal.String(), e.kind.String())
	}
	gt, _ := e.inst.wazeroInstance.Info().GlobalType(e.index)
	if !value.Supported(gt.ValType) {
		return nil, errors.Unsupported(errors.PhaseCall, "global "+e.name+" has a reference or vector type")
	}
	return &Global{
		g:      e.inst.wazeroInstance.Module().ExportedGlobal(e.name),
		owner:  &owner{refs: 1},
		source: e.source(),
		typ:    gt,
	}, nil
}

// Table returns the export as a table.
func (e *Export) Table() (*Table, error) {
	if e.kind != value.KindTable {
		return nil, errors.WrongExportKind(e.name, value.KindTable.String(), e.kind.String())
	}
	tt, _ := e.inst.wazeroInstance.Info().TableType(e.index)
	return &Table{
		runtime: e.inst.runtime,
		owner:   &owner{refs: 1},
		probe:   &tableProbe{},
		source:  e.source(),
		typ:     tt,
	}, nil
}
