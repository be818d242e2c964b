package capi

import (
	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/handle"
	"github.com/wippyai/wasm-embed/runtime"
	"github.com/wippyai/wasm-embed/value"
)

// Callback implements an import function. ctx is valid for the duration
// of the call. results arrives tagged with the declared result types and
// zeroed; the callback fills in the bits. Returning ERROR traps the guest
// with the current last error message.
type Callback func(ctx handle.Handle, params []Value, results []Value) Result

// ImportFuncNew creates an import function with the given signature, or
// returns 0. The caller releases it with ImportFuncDestroy; instances
// already linked against it keep working.
func ImportFuncNew(cb Callback, params, returns []value.Type) handle.Handle {
	if cb == nil {
		setLastError(errors.NilPointer(errors.PhaseHost, "callback"))
		return 0
	}
	returns = append([]value.Type(nil), returns...)
	fn, err := runtime.NewFunction(params, returns, func(rc *runtime.Context, args []value.Value) ([]value.Value, error) {
		ctx := handles.insert(kindContext, rc)
		defer handles.remove(ctx, kindContext)

		in := make([]Value, len(args))
		for i, a := range args {
			in[i] = fromValue(a)
		}
		out := make([]Value, len(returns))
		for i, t := range returns {
			out[i] = Value{Tag: t}
		}

		if cb(ctx, in, out) != OK {
			msg, _ := LastError()
			return nil, errors.New(errors.PhaseHost, errors.KindCall).
				Detail("host callback failed: %s", msg).
				Build()
		}
		return toValues(out), nil
	})
	if err != nil {
		setLastError(err)
		return 0
	}
	return handles.insert(kindImportFunc, fn)
}

func ImportFuncDestroy(fn handle.Handle) Result {
	if _, err := handles.remove(fn, kindImportFunc); err != nil {
		return setLastError(err)
	}
	return OK
}

func ImportFuncParamsArity(fn handle.Handle) (uint32, Result) {
	f, err := lookup[*runtime.Function](fn, kindImportFunc)
	if err != nil {
		return 0, setLastError(err)
	}
	return uint32(f.ParamsArity()), OK
}

// ImportFuncParams writes the parameter types into params, which must hold
// ImportFuncParamsArity entries.
func ImportFuncParams(fn handle.Handle, params []value.Type) Result {
	f, err := lookup[*runtime.Function](fn, kindImportFunc)
	if err != nil {
		return setLastError(err)
	}
	value.CopyTypes(params, value.TypesToEngine(f.Params()))
	return OK
}

func ImportFuncReturnsArity(fn handle.Handle) (uint32, Result) {
	f, err := lookup[*runtime.Function](fn, kindImportFunc)
	if err != nil {
		return 0, setLastError(err)
	}
	return uint32(f.ReturnsArity()), OK
}

func ImportFuncReturns(fn handle.Handle, returns []value.Type) Result {
	f, err := lookup[*runtime.Function](fn, kindImportFunc)
	if err != nil {
		return setLastError(err)
	}
	value.CopyTypes(returns, value.TypesToEngine(f.Returns()))
	return OK
}
