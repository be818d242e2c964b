// Package linker turns host-supplied import records into an import table and
// materializes that table inside a wazero runtime.
//
// # Import Resolution
//
// Resolve walks a list of import records once. Each record names a module
// namespace, an import name and an extern (function, memory, global or table).
// Both names must be valid UTF-8. Records are grouped by namespace in
// first-seen order; a repeated namespace/name pair is handled according to
// the Policy:
//
//   - PolicyOverwrite: the later record replaces the earlier one (default)
//   - PolicyKeepFirst: the later record is ignored
//   - PolicyReject: resolution fails with a duplicate_import error
//
// # Materialization
//
// wazero resolves imports against instantiated modules by name, so each
// namespace a guest imports from is instantiated per guest instantiation:
// host functions in a host module, and memories, globals and tables re-exported
// from the engine modules that own them through a code-less bridge module.
// The guest's import module names are then rewritten to the unique names of
// those modules. Link returns the set of modules so the caller can close them
// together with the guest instance.
//
// # Thread Safety
//
// ImportTable is not safe for concurrent mutation. Link may be called
// concurrently on a table that is no longer modified.
package linker
