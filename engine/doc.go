// Package engine binds modules to the wazero runtime.
//
// The runtime package uses the engine as a black box: compile bytes into a
// module, read the module's import and export metadata, instantiate it
// against an import table, and call its exports with raw engine values.
//
// # Architecture
//
//	WazeroEngine   - owns one wazero runtime and names the modules it creates
//	WazeroModule   - compiled code plus the metadata decoded by internal/wasm
//	WazeroInstance - an instantiated module and the namespace modules it links
//	TableProbe     - reads and grows a table owned by another module
//
// # Instantiation Flow
//
//  1. WazeroEngine.LoadModule() compiles the binary and decodes its metadata
//  2. WazeroModule.Instantiate() checks the import table against the imports
//  3. the linker materializes each imported namespace as engine modules named
//     "<namespace>#<n>"
//  4. the guest's import module names are rewritten to those names and the
//     rewritten binary is instantiated as "instance#<n>"
//
// Closing an instance closes its namespace modules as well.
//
// # Host Externs
//
// Memories, tables and globals created by the host live in small provider
// modules ("memory#<n>", "table#<n>", "global#<n>") that export the object as
// "extern". Sharing one with a guest never copies it: the namespace module
// imports it from its provider and re-exports it under the import name.
package engine
