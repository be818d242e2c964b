// Package capi is a flat, handle-based API over the runtime package, shaped
// for callers on the other side of a foreign function boundary.
//
// Every object crossing the boundary is an opaque handle.Handle. Functions
// that can fail return a Result; on ERROR the reason is kept in a single
// process-wide slot that LastErrorLength and LastErrorMessage read:
//
//	mod, res := capi.Compile(wasmBytes)
//	if res != capi.OK {
//	    buf := make([]byte, capi.LastErrorLength())
//	    capi.LastErrorMessage(buf)
//	}
//	defer capi.ModuleDestroy(mod)
//
// Handles are destroyed explicitly. Destroying a handle twice, or using it
// after destruction, reports a stale_handle error instead of touching freed
// state. Handles obtained from a collection (an export, a descriptor) or
// from a host call context are borrowed: they become stale when their
// parent is destroyed and never need their own destroy call.
//
// All handles live in one registry backed by a runtime created on first
// use. Init replaces that runtime's configuration; Shutdown destroys every
// handle and the runtime.
package capi
