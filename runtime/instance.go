package runtime

import (
	"context"
	"sync"

	"github.com/wippyai/wasm-embed/engine"
	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/value"
)

type Instance struct {
	data           any
	runtime        *Runtime
	wazeroInstance *engine.WazeroInstance
	mu             sync.RWMutex
}

// Call invokes the exported function name. An unknown name, a non-function
// export, mismatched arguments and guest traps are all reported as call
// errors. A signature using reference or vector types panics with
// *value.UnsupportedTypeError.
func (i *Instance) Call(ctx context.Context, name string, args ...value.Value) ([]value.Value, error) {
	info := i.wazeroInstance.Info()

	exp, ok := info.Export(name)
	if !ok {
		return nil, errors.CallFailed(name, errors.NotFound(errors.PhaseCall, "export", name))
	}
	if exp.Kind != wasm.ExternFunc {
		return nil, errors.CallFailed(name, errors.WrongExportKind(name, value.KindFunction.String(), exp.Kind.String()))
	}
	ft, ok := info.FuncType(exp.Index)
	if !ok {
		return nil, errors.CallFailed(name, errors.NotFound(errors.PhaseCall, "function type of", name))
	}
	params, results := callSignature(ft)
	if err := value.Check(params, args); err != nil {
		return nil, errors.CallFailed(name, err)
	}

	raw, err := i.wazeroInstance.Call(ctx, name, value.Encode(args)...)
	if err != nil {
		return nil, err
	}

	out := make([]value.Value, len(results))
	for n, t := range results {
		out[n] = value.FromBits(t, raw[n])
	}
	return out, nil
}

// SetContextData replaces the value host functions see through
// Context.Data.
func (i *Instance) SetContextData(data any) {
	i.mu.Lock()
	i.data = data
	i.mu.Unlock()
}

// ContextData returns the value set by SetContextData, or nil.
func (i *Instance) ContextData() any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.data
}

// Memory returns the instance's memory, or nil if it has none. The
// reference does not keep the instance alive. It can satisfy another
// instance's memory import when the instance exports or imports the memory.
func (i *Instance) Memory() *Memory {
	mem := i.wazeroInstance.Memory()
	if mem == nil {
		return nil
	}
	m := &Memory{mem: mem, owner: &owner{refs: 1}}
	info := i.wazeroInstance.Info()
	if lim, ok := info.MemoryLimits(0); ok {
		m.limits = lim
	}
	if src, ok := i.wazeroInstance.MemorySource(); ok {
		m.source = src
	}
	return m
}

// Exports lists the instance's exports in declaration order.
func (i *Instance) Exports() []*Export {
	info := i.wazeroInstance.Info()
	out := make([]*Export, 0, len(info.Exports))
	for _, exp := range info.Exports {
		kind, ok := kindOf(exp.Kind)
		if !ok {
			continue
		}
		out = append(out, &Export{inst: i, name: exp.Name, index: exp.Index, kind: kind})
	}
	return out
}

// Export returns the export called name.
func (i *Instance) Export(name string) (*Export, error) {
	exp, ok := i.wazeroInstance.Info().Export(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseCall, "export", name)
	}
	kind, ok := kindOf(exp.Kind)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseCall, "export kind "+exp.Kind.String())
	}
	return &Export{inst: i, name: exp.Name, index: exp.Index, kind: kind}, nil
}

// Close closes the instance and the namespace modules linked into it.
func (i *Instance) Close(ctx context.Context) error {
	unregisterInstance(i)
	return i.wazeroInstance.Close(ctx)
}
