package linker

import (
	"context"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/value"
)

// Linked is the set of engine modules materialized for one guest instantiation.
type Linked struct {
	renames map[string]string
	modules []closer
}

type closer interface {
	Close(ctx context.Context) error
}

// Rename returns the materialized module name for a namespace.
func (l *Linked) Rename(namespace string) (string, bool) {
	name, ok := l.renames[namespace]
	return name, ok
}

// Len returns the number of materialized namespaces.
func (l *Linked) Len() int {
	return len(l.renames)
}

// Close closes the materialized modules in reverse creation order.
func (l *Linked) Close(ctx context.Context) error {
	var first error
	for i := len(l.modules) - 1; i >= 0; i-- {
		if err := l.modules[i].Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	l.modules = nil
	return first
}

// Link instantiates the namespaces info imports from inside rt. suffix makes
// the module names unique to this instantiation. On failure every module
// created so far is closed.
func (t *ImportTable) Link(ctx context.Context, rt wazero.Runtime, info *wasm.Module, suffix string) (*Linked, error) {
	used := make(map[string]bool)
	for _, imp := range info.Imports {
		used[imp.Module] = true
	}

	l := &Linked{renames: make(map[string]string)}
	for _, ns := range t.namespaces {
		if !used[ns.name] {
			Logger().Debug("namespace not imported by module, skipping", zapNamespace(ns.name))
			continue
		}
		name := ns.name + "#" + suffix
		if err := ns.materialize(ctx, rt, name, l); err != nil {
			_ = l.Close(ctx)
			return nil, err
		}
		l.renames[ns.name] = name
	}
	return l, nil
}

func (ns *Namespace) materialize(ctx context.Context, rt wazero.Runtime, name string, l *Linked) error {
	var funcs, others []string
	for _, n := range ns.order {
		if ns.entries[n].Kind == value.KindFunction {
			funcs = append(funcs, n)
		} else {
			others = append(others, n)
		}
	}

	hostName := name
	if len(others) > 0 {
		hostName = name + "$host"
	}

	if len(funcs) > 0 {
		hb := rt.NewHostModuleBuilder(hostName)
		for _, n := range funcs {
			f := ns.entries[n].Func
			hb.NewFunctionBuilder().
				WithGoModuleFunction(f.Handler, f.ParamTypes, f.ResultTypes).
				WithName(n).
				Export(n)
		}
		mod, err := hb.Instantiate(ctx)
		if err != nil {
			return errors.Wrap(errors.PhaseLinking, errors.KindInstantiation, err, "instantiate host functions for "+ns.name)
		}
		l.modules = append(l.modules, mod)
	}

	if len(others) == 0 {
		Logger().Debug("namespace materialized",
			zapNamespace(ns.name), zap.String("module", name), zapCount("functions", len(funcs)))
		return nil
	}

	br := wasm.NewBridge()
	for _, n := range funcs {
		f := ns.entries[n].Func
		br.Func(n, hostName, n, wasm.FuncType{Params: f.ParamTypes, Results: f.ResultTypes})
	}
	for _, n := range others {
		e := ns.entries[n]
		switch e.Kind {
		case value.KindMemory:
			if br.Memories() > 0 {
				return errors.Unsupported(errors.PhaseLinking,
					"namespace "+ns.name+" provides more than one memory")
			}
			br.Memory(n, e.Source.Module, e.Source.Name, *e.Memory)
		case value.KindTable:
			br.Table(n, e.Source.Module, e.Source.Name, *e.Table)
		case value.KindGlobal:
			br.Global(n, e.Source.Module, e.Source.Name, *e.Global)
		}
	}

	compiled, err := rt.CompileModule(ctx, br.Build())
	if err != nil {
		return errors.Wrap(errors.PhaseLinking, errors.KindInstantiation, err, "compile bridge for "+ns.name)
	}
	defer compiled.Close(ctx)

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	if err != nil {
		return errors.Wrap(errors.PhaseLinking, errors.KindInstantiation, err, "instantiate bridge for "+ns.name)
	}
	l.modules = append(l.modules, mod)

	Logger().Debug("namespace materialized",
		zapNamespace(ns.name), zap.String("module", name),
		zapCount("functions", len(funcs)), zapCount("bridged", len(others)))
	return nil
}
