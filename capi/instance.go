package capi

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/handle"
	"github.com/wippyai/wasm-embed/runtime"
	"github.com/wippyai/wasm-embed/value"
)

// InstanceCall calls the exported function name with params. name must be
// a NUL-terminated UTF-8 string; anything else panics. On success the
// first result, if any, is written to results[0].
func InstanceCall(inst handle.Handle, name []byte, params []Value, results []Value) Result {
	if inst == 0 {
		return setLastError(errors.NilPointer(errors.PhaseCall, "instance"))
	}
	if name == nil {
		return setLastError(errors.NilPointer(errors.PhaseCall, "name"))
	}
	if params == nil {
		return setLastError(errors.NilPointer(errors.PhaseCall, "params"))
	}
	in, err := lookup[*runtime.Instance](inst, kindInstance)
	if err != nil {
		return setLastError(err)
	}
	fn := callName(name)

	out, err := in.Call(context.Background(), fn, toValues(params)...)
	if err != nil {
		return setLastError(err)
	}
	writeFirst(out, results)
	return OK
}

func callName(name []byte) string {
	n := bytes.IndexByte(name, 0)
	if n < 0 {
		panic("capi: function name is not NUL-terminated")
	}
	if !utf8.Valid(name[:n]) {
		panic("capi: function name is not valid UTF-8")
	}
	return string(name[:n])
}

func writeFirst(out []value.Value, results []Value) {
	if len(out) > 0 && len(results) > 0 {
		results[0] = fromValue(out[0])
	}
}

// InstanceDestroy closes an instance. Collections and contexts read from
// it become stale.
func InstanceDestroy(inst handle.Handle) Result {
	v, err := handles.remove(inst, kindInstance)
	if err != nil {
		return setLastError(err)
	}
	if in, ok := v.(*runtime.Instance); ok {
		if err := in.Close(context.Background()); err != nil {
			return setLastError(err)
		}
	}
	return OK
}

// InstanceContextDataSet sets the value host functions read through
// InstanceContextDataGet.
func InstanceContextDataSet(inst handle.Handle, data any) Result {
	in, err := lookup[*runtime.Instance](inst, kindInstance)
	if err != nil {
		return setLastError(err)
	}
	in.SetContextData(data)
	return OK
}

// InstanceContextDataGet returns the context data of the instance running
// the host call ctx.
func InstanceContextDataGet(ctx handle.Handle) any {
	c, err := lookup[*runtime.Context](ctx, kindContext)
	if err != nil {
		setLastError(err)
		return nil
	}
	return c.Data()
}

// InstanceContextMemory returns a borrowed handle to memory idx of the
// instance running the host call ctx. Only index 0 exists.
func InstanceContextMemory(ctx handle.Handle, idx uint32) handle.Handle {
	c, err := lookup[*runtime.Context](ctx, kindContext)
	if err != nil {
		setLastError(err)
		return 0
	}
	mem, err := c.Memory(idx)
	if err != nil {
		setLastError(err)
		return 0
	}
	return handles.borrow(ctx, kindMemory, mem)
}

// InstanceExports lists an instance's exports. The collection is released
// with ExportsDestroy and becomes stale when the instance is destroyed.
func InstanceExports(inst handle.Handle) (handle.Handle, Result) {
	in, err := lookup[*runtime.Instance](inst, kindInstance)
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.borrow(inst, kindExports, in.Exports()), OK
}

func ExportsDestroy(exports handle.Handle) Result {
	if _, err := handles.remove(exports, kindExports); err != nil {
		return setLastError(err)
	}
	return OK
}

func ExportsLen(exports handle.Handle) int {
	es, err := lookup[[]*runtime.Export](exports, kindExports)
	if err != nil {
		setLastError(err)
		return -1
	}
	return len(es)
}

// ExportsGet returns a borrowed handle to export idx. idx must be below
// ExportsLen.
func ExportsGet(exports handle.Handle, idx int) handle.Handle {
	es, err := lookup[[]*runtime.Export](exports, kindExports)
	if err != nil {
		setLastError(err)
		return 0
	}
	return handles.borrow(exports, kindExport, es[idx])
}

func ExportKind(export handle.Handle) (value.Kind, Result) {
	e, err := lookup[*runtime.Export](export, kindExport)
	if err != nil {
		return 0, setLastError(err)
	}
	return e.Kind(), OK
}

func ExportName(export handle.Handle) ByteArray {
	e, err := lookup[*runtime.Export](export, kindExport)
	if err != nil {
		setLastError(err)
		return nil
	}
	return ByteArray(e.Name())
}

// ExportToFunc returns a borrowed function handle for a function export,
// or 0 for any other kind.
func ExportToFunc(export handle.Handle) handle.Handle {
	e, err := lookup[*runtime.Export](export, kindExport)
	if err != nil {
		setLastError(err)
		return 0
	}
	fn, err := e.Function()
	if err != nil {
		setLastError(err)
		return 0
	}
	return handles.borrow(export, kindExportFunc, fn)
}

// ExportToMemory returns a borrowed memory handle for a memory export.
func ExportToMemory(export handle.Handle) (handle.Handle, Result) {
	e, err := lookup[*runtime.Export](export, kindExport)
	if err != nil {
		return 0, setLastError(err)
	}
	mem, err := e.Memory()
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.borrow(export, kindMemory, mem), OK
}

func ExportFuncParamsArity(fn handle.Handle) (uint32, Result) {
	f, err := lookup[*runtime.ExportedFunction](fn, kindExportFunc)
	if err != nil {
		return 0, setLastError(err)
	}
	return uint32(f.ParamsArity()), OK
}

// ExportFuncParams writes the parameter types into params, which must hold
// ExportFuncParamsArity entries.
func ExportFuncParams(fn handle.Handle, params []value.Type) Result {
	f, err := lookup[*runtime.ExportedFunction](fn, kindExportFunc)
	if err != nil {
		return setLastError(err)
	}
	value.CopyTypes(params, value.TypesToEngine(f.Params()))
	return OK
}

func ExportFuncReturnsArity(fn handle.Handle) (uint32, Result) {
	f, err := lookup[*runtime.ExportedFunction](fn, kindExportFunc)
	if err != nil {
		return 0, setLastError(err)
	}
	return uint32(f.ReturnsArity()), OK
}

func ExportFuncReturns(fn handle.Handle, returns []value.Type) Result {
	f, err := lookup[*runtime.ExportedFunction](fn, kindExportFunc)
	if err != nil {
		return setLastError(err)
	}
	value.CopyTypes(returns, value.TypesToEngine(f.Returns()))
	return OK
}

// ExportFuncCall calls an exported function through its instance. Like
// InstanceCall, only the first result is written.
func ExportFuncCall(fn handle.Handle, params []Value, results []Value) Result {
	if fn == 0 {
		return setLastError(errors.NilPointer(errors.PhaseCall, "func"))
	}
	if params == nil {
		return setLastError(errors.NilPointer(errors.PhaseCall, "params"))
	}
	f, err := lookup[*runtime.ExportedFunction](fn, kindExportFunc)
	if err != nil {
		return setLastError(err)
	}
	out, err := f.Call(context.Background(), toValues(params)...)
	if err != nil {
		return setLastError(err)
	}
	writeFirst(out, results)
	return OK
}
