package engine

import (
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/linker"
)

// WazeroEngine compiles and instantiates modules on a wazero runtime
type WazeroEngine struct {
	runtime wazero.Runtime
	seq     atomic.Uint64
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// EnableThreads enables the WebAssembly threads proposal (experimental).
	// This allows atomic operations and shared memory within WASM modules.
	EnableThreads bool

	// CloseOnContextDone makes a running call stop when its context is
	// cancelled or its deadline passes. Calls then fail with a call error.
	CloseOnContextDone bool
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.EnableThreads {
			runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &WazeroEngine{runtime: runtime}, nil
}

// Runtime returns the underlying wazero runtime
func (e *WazeroEngine) Runtime() wazero.Runtime {
	return e.runtime
}

// Close releases the runtime and every module instantiated in it
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// LoadModule compiles wasmBytes and decodes its import and export metadata.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Compile(err)
	}

	info, err := wasm.Decode(wasmBytes)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.ParseFailed("module", err)
	}

	Logger().Debug("module compiled",
		zap.Int("bytes", len(wasmBytes)),
		zap.Int("imports", len(info.Imports)),
		zap.Int("exports", len(info.Exports)))

	return &WazeroModule{
		engine:   e,
		compiled: compiled,
		info:     info,
		bin:      append([]byte(nil), wasmBytes...),
	}, nil
}

// Validate reports whether wasmBytes is a module the engine accepts.
func (e *WazeroEngine) Validate(ctx context.Context, wasmBytes []byte) error {
	m, err := e.LoadModule(ctx, wasmBytes)
	if err != nil {
		return err
	}
	return m.Close(ctx)
}

// WazeroModule is a compiled module together with its decoded metadata
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
	info     *wasm.Module
	bin      []byte
}

// Info returns the module's declared types, imports and exports.
func (m *WazeroModule) Info() *wasm.Module {
	return m.info
}

// Close releases the compiled code. Instances already created keep running.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate creates an instance whose imports are satisfied from imports.
// A nil table instantiates a module without imports. Every failure is
// reported as an instantiation error wrapping the underlying cause, and
// leaves no modules behind.
func (m *WazeroModule) Instantiate(ctx context.Context, imports *linker.ImportTable) (*WazeroInstance, error) {
	if imports == nil {
		imports = linker.NewImportTable(linker.PolicyOverwrite)
	}
	if err := imports.Check(m.info); err != nil {
		return nil, errors.Instantiation(err)
	}

	rt := m.engine.runtime
	suffix := m.engine.nextSuffix()

	linked, err := imports.Link(ctx, rt, m.info, suffix)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	compiled := m.compiled
	if linked.Len() > 0 {
		bin, err := wasm.RewriteImportModules(m.bin, linked.Rename)
		if err != nil {
			_ = linked.Close(ctx)
			return nil, errors.Instantiation(err)
		}
		compiled, err = rt.CompileModule(ctx, bin)
		if err != nil {
			_ = linked.Close(ctx)
			return nil, errors.Instantiation(err)
		}
		defer compiled.Close(ctx)
	}

	name := moduleName(prefixInstance, suffix)
	mod, err := rt.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	if err != nil {
		_ = linked.Close(ctx)
		return nil, errors.Instantiation(err)
	}

	Logger().Debug("module instantiated",
		zap.String("instance", name),
		zap.Int("namespaces", linked.Len()))

	return &WazeroInstance{
		module:    mod,
		linked:    linked,
		info:      m.info,
		memOrigin: importedMemory(m.info, imports),
	}, nil
}

// importedMemory returns where the module's imported memory comes from, if
// it imports one.
func importedMemory(info *wasm.Module, imports *linker.ImportTable) linker.Source {
	for _, imp := range info.Imports {
		if imp.Kind != wasm.ExternMemory {
			continue
		}
		if ns, ok := imports.Lookup(imp.Module); ok {
			if e, ok := ns.Get(imp.Name); ok {
				return e.Source
			}
		}
	}
	return linker.Source{}
}

// WazeroInstance is an instantiated module and the namespace modules it links
type WazeroInstance struct {
	module    api.Module
	linked    *linker.Linked
	info      *wasm.Module
	memOrigin linker.Source
}

// Module returns the engine module of the instance.
func (i *WazeroInstance) Module() api.Module {
	return i.module
}

// Name returns the engine module name of the instance.
func (i *WazeroInstance) Name() string {
	return i.module.Name()
}

// Info returns the metadata of the module the instance was created from.
func (i *WazeroInstance) Info() *wasm.Module {
	return i.info
}

// MemorySource returns the engine module export other instances import the
// instance's memory from: the instance's own export, or else the origin of
// its imported memory. ok is false for a memory that is neither.
func (i *WazeroInstance) MemorySource() (src linker.Source, ok bool) {
	for _, exp := range i.info.Exports {
		if exp.Kind == wasm.ExternMemory && exp.Index == 0 {
			return linker.Source{Module: i.Name(), Name: exp.Name}, true
		}
	}
	return i.memOrigin, i.memOrigin.Module != ""
}

// Memory returns the instance's memory, or nil if it has none.
func (i *WazeroInstance) Memory() api.Memory {
	return i.module.Memory()
}

// Call invokes the exported function name with raw engine values.
func (i *WazeroInstance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.CallFailed(name, errors.NotFound(errors.PhaseCall, "function export", name))
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.CallFailed(name, err)
	}
	return results, nil
}

// Close closes the instance and then its namespace modules.
func (i *WazeroInstance) Close(ctx context.Context) error {
	err := i.module.Close(ctx)
	if lerr := i.linked.Close(ctx); err == nil {
		err = lerr
	}
	return err
}
