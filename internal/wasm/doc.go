// Package wasm provides the WebAssembly binary plumbing the engine layer needs
// but wazero does not expose.
//
// # Metadata
//
// Decode reads the type, import, function, table, memory, global and export
// sections of a core module in declaration order:
//
//	info, err := wasm.Decode(bin)
//	for _, imp := range info.Imports { ... }
//
// # Synthetic modules
//
// Builder assembles small modules from scratch. The linker uses it for bridge
// modules that re-export host objects under a namespace, for provider modules
// that own a host-created memory, table or global, and tests use it for
// fixtures:
//
//	b := wasm.NewBuilder()
//	add := b.AddFunc(wasm.FuncType{Params: i32i32, Results: i32}, nil, body)
//	b.Export("add", wasm.ExternFunc, add)
//	bin := b.Build()
//
// # Rewriting
//
// RewriteImportModules renames import module names in place so one compiled
// guest can be linked against per-instantiation bridge modules.
package wasm
