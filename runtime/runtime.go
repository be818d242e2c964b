package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-embed/engine"
	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/value"
)

// Type aliases for import records and extern descriptors.
type (
	Import     = linker.Import
	Limits     = linker.Limits
	TableType  = linker.TableType
	GlobalType = linker.GlobalType
)

// Config holds configuration for runtime creation.
type Config struct {
	// Logger, when set, becomes the logger of the runtime, engine and
	// linker packages.
	Logger *zap.Logger

	// MemoryLimitPages caps every memory in pages (64KB each). 0 means 4GB.
	MemoryLimitPages uint32

	// CollisionPolicy decides what happens when two import records share a
	// module and name. The zero value keeps the last record.
	CollisionPolicy linker.Policy

	// EnableThreads enables the threads proposal (shared memories, atomics).
	EnableThreads bool

	// CloseOnContextDone lets callers bound calls with a context deadline.
	CloseOnContextDone bool
}

type Runtime struct {
	engine *engine.WazeroEngine
	hosts  *HostRegistry
	policy linker.Policy
}

func New(ctx context.Context) (*Runtime, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a runtime. A nil cfg uses the defaults.
func NewWithConfig(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Logger != nil {
		SetLogger(cfg.Logger)
		engine.SetLogger(cfg.Logger)
		linker.SetLogger(cfg.Logger)
	}

	eng, err := engine.NewWazeroEngineWithConfig(ctx, &engine.Config{
		MemoryLimitPages:   cfg.MemoryLimitPages,
		EnableThreads:      cfg.EnableThreads,
		CloseOnContextDone: cfg.CloseOnContextDone,
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInstantiate, errors.KindInstantiation, err, "create engine")
	}

	return &Runtime{
		engine: eng,
		hosts:  NewHostRegistry(),
		policy: cfg.CollisionPolicy,
	}, nil
}

// Close releases all runtime resources, including every instance and
// extern created by the runtime.
func (r *Runtime) Close(ctx context.Context) error {
	unregisterRuntime(r)
	return r.engine.Close(ctx)
}

// Policy returns the collision policy applied to import records.
func (r *Runtime) Policy() linker.Policy {
	return r.policy
}

// RegisterHost registers all exported methods of h as host functions.
// They are offered to every module this runtime instantiates, before the
// explicit import records.
func (r *Runtime) RegisterHost(h Host) error {
	return r.hosts.RegisterHost(h)
}

func (r *Runtime) RegisterFunc(namespace, name string, fn any) error {
	return r.hosts.RegisterFunc(namespace, name, fn)
}

func (r *Runtime) Hosts() *HostRegistry {
	return r.hosts
}

// Compile compiles a binary module.
func (r *Runtime) Compile(ctx context.Context, wasm []byte) (*Module, error) {
	if wasm == nil {
		return nil, errors.NilPointer(errors.PhaseCompile, "wasm")
	}
	wm, err := r.engine.LoadModule(ctx, wasm)
	if err != nil {
		return nil, err
	}
	return &Module{runtime: r, wazeroModule: wm}, nil
}

// Validate reports whether wasm is a module this runtime accepts.
func (r *Runtime) Validate(ctx context.Context, wasm []byte) error {
	if wasm == nil {
		return errors.NilPointer(errors.PhaseCompile, "wasm")
	}
	return r.engine.Validate(ctx, wasm)
}

// Instantiate compiles wasm and instantiates it against imports. The
// compiled module is released once the instance exists.
func (r *Runtime) Instantiate(ctx context.Context, wasm []byte, imports []Import) (*Instance, error) {
	mod, err := r.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}
	defer mod.Close(ctx)
	return mod.Instantiate(ctx, imports)
}

// Resolve groups import records into an import table using the runtime's
// collision policy. Functions registered on the runtime come first.
func (r *Runtime) Resolve(imports []Import) (*linker.ImportTable, error) {
	if hosted := r.hosts.Imports(); len(hosted) > 0 {
		imports = append(hosted, imports...)
	}
	return linker.Resolve(imports, r.policy)
}

// NewMemory creates a host-owned memory.
func (r *Runtime) NewMemory(ctx context.Context, lim Limits) (*Memory, error) {
	if err := checkLimits(lim); err != nil {
		return nil, err
	}
	mod, err := r.engine.NewMemory(ctx, lim)
	if err != nil {
		return nil, err
	}
	return newOwnedMemory(mod, lim), nil
}

// NewTable creates a host-owned funcref table.
func (r *Runtime) NewTable(ctx context.Context, lim Limits) (*Table, error) {
	if err := checkLimits(lim); err != nil {
		return nil, err
	}
	tt := TableType{Limits: lim, ElemType: funcref}
	mod, err := r.engine.NewTable(ctx, tt)
	if err != nil {
		return nil, err
	}
	return newOwnedTable(r, mod, tt), nil
}

// NewGlobal creates a host-owned global holding v.
func (r *Runtime) NewGlobal(ctx context.Context, v value.Value, mutable bool) (*Global, error) {
	if !v.Type().Valid() {
		return nil, errors.Unsupported(errors.PhaseHost, "global of type "+v.Type().String())
	}
	gt := GlobalType{ValType: v.Type().Engine(), Mutable: mutable}
	mod, err := r.engine.NewGlobal(ctx, gt, v.Bits())
	if err != nil {
		return nil, err
	}
	return newOwnedGlobal(mod, gt), nil
}

func checkLimits(lim Limits) error {
	if lim.Max != nil && *lim.Max < lim.Min {
		return errors.InvalidInput(errors.PhaseHost, "limits: maximum is below minimum")
	}
	return nil
}
