package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/value"
)

// HostFunc implements a host function. It must return exactly the declared
// results; a returned error or a result mismatch traps the calling guest.
type HostFunc func(ctx *Context, args []value.Value) ([]value.Value, error)

// Function is a host function usable as a function import.
type Function struct {
	fn      HostFunc
	name    string
	params  []value.Type
	results []value.Type
}

// NewFunction creates a host function with the given signature.
func NewFunction(params, results []value.Type, fn HostFunc) (*Function, error) {
	if fn == nil {
		return nil, errors.NilPointer(errors.PhaseHost, "fn")
	}
	for _, t := range append(append([]value.Type(nil), params...), results...) {
		if !t.Valid() {
			return nil, errors.Unsupported(errors.PhaseHost, "value type "+t.String())
		}
	}
	return &Function{
		fn:      fn,
		params:  append([]value.Type(nil), params...),
		results: append([]value.Type(nil), results...),
	}, nil
}

// Named returns the function with a debug name shown in engine traces.
func (f *Function) Named(name string) *Function {
	c := *f
	c.name = name
	return &c
}

func (f *Function) ParamsArity() int { return len(f.params) }
func (f *Function) ReturnsArity() int { return len(f.results) }
func (f *Function) Params() []value.Type { return append([]value.Type(nil), f.params...) }
func (f *Function) Returns() []value.Type { return append([]value.Type(nil), f.results...) }

// LinkEntry lets the function satisfy a function import.
func (f *Function) LinkEntry() linker.Entry {
	return linker.Entry{
		Kind: value.KindFunction,
		Func: &linker.FuncDef{
			Name:        f.name,
			Handler:     f.trampoline,
			ParamTypes:  value.TypesToEngine(f.params),
			ResultTypes: value.TypesToEngine(f.results),
		},
	}
}

// trampoline adapts the engine calling convention. Arguments arrive on the
// stack and results are written back over them. Panicking traps the guest;
// the engine reports the panic value as the call error.
func (f *Function) trampoline(_ context.Context, caller api.Module, stack []uint64) {
	args := make([]value.Value, len(f.params))
	for i, t := range f.params {
		args[i] = value.FromBits(t, stack[i])
	}

	results, err := f.fn(contextFrom(caller), args)
	if err != nil {
		panic(errors.Wrap(errors.PhaseHost, errors.KindCall, err, "host function "+f.name))
	}
	if err := value.Check(f.results, results); err != nil {
		panic(errors.Wrap(errors.PhaseHost, errors.KindTypeMismatch, err, "host function "+f.name+" results"))
	}
	for i, r := range results {
		stack[i] = r.Bits()
	}
}

// ExportedFunction is a function exported by an instance.
type ExportedFunction struct {
	inst    *Instance
	fn      api.Function
	name    string
	params  []value.Type
	results []value.Type
}

func (f *ExportedFunction) Name() string { return f.name }
func (f *ExportedFunction) ParamsArity() int { return len(f.params) }
func (f *ExportedFunction) ReturnsArity() int { return len(f.results) }
func (f *ExportedFunction) Params() []value.Type { return append([]value.Type(nil), f.params...) }
func (f *ExportedFunction) Returns() []value.Type { return append([]value.Type(nil), f.results...) }

// Call invokes the function through its instance.
func (f *ExportedFunction) Call(ctx context.Context, args ...value.Value) ([]value.Value, error) {
	return f.inst.Call(ctx, f.name, args...)
}

// LinkEntry lets the exported function satisfy a function import of
// another instance. Calls go straight to the exporting instance.
func (f *ExportedFunction) LinkEntry() linker.Entry {
	fn := f.fn
	return linker.Entry{
		Kind: value.KindFunction,
		Func: &linker.FuncDef{
			Name: f.name,
			Handler: func(ctx context.Context, _ api.Module, stack []uint64) {
				if err := fn.CallWithStack(ctx, stack); err != nil {
					panic(err)
				}
			},
			ParamTypes:  value.TypesToEngine(f.params),
			ResultTypes: value.TypesToEngine(f.results),
		},
	}
}
