package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/runtime"
	"github.com/wippyai/wasm-embed/value"
)

// hostDecl is one -host flag: an import name bound to a WIT-style signature.
type hostDecl struct {
	sig       *value.Signature
	namespace string
	name      string
}

type hostDecls []hostDecl

func (h *hostDecls) String() string {
	parts := make([]string, len(*h))
	for i, d := range *h {
		parts[i] = d.namespace + "." + d.name + "=" + d.sig.String()
	}
	return strings.Join(parts, " ")
}

// Set parses ns.name=func(a: s32) -> s32.
func (h *hostDecls) Set(s string) error {
	target, sigText, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("host stub %q: want ns.name=func(...)", s)
	}
	ns, name, ok := strings.Cut(strings.TrimSpace(target), ".")
	if !ok || ns == "" || name == "" {
		return fmt.Errorf("host stub %q: import must be ns.name", s)
	}
	sig, err := value.ParseSignature(sigText)
	if err != nil {
		return err
	}
	*h = append(*h, hostDecl{namespace: ns, name: name, sig: sig})
	return nil
}

// stubFunction logs its arguments and returns zeros.
func stubFunction(label string, params, results []value.Type, log *zap.Logger) (*runtime.Function, error) {
	return runtime.NewFunction(params, results, func(_ *runtime.Context, args []value.Value) ([]value.Value, error) {
		log.Info("host stub called", zap.String("import", label), zap.String("args", formatValues(args)))
		out := make([]value.Value, len(results))
		for i, t := range results {
			out[i] = value.FromBits(t, 0)
		}
		return out, nil
	})
}

// buildImports creates the -host stubs and, when auto is set, a stub for
// every other import the module declares.
func buildImports(ctx context.Context, rt *runtime.Runtime, mod *runtime.Module, decls hostDecls, auto bool, log *zap.Logger) ([]runtime.Import, error) {
	var imports []runtime.Import
	declared := make(map[string]bool, len(decls))

	for _, d := range decls {
		label := d.namespace + "." + d.name
		fn, err := stubFunction(label, d.sig.Params, d.sig.Results, log)
		if err != nil {
			return nil, fmt.Errorf("host stub %s: %w", label, err)
		}
		imports = append(imports, runtime.Import{Module: []byte(d.namespace), Name: []byte(d.name), Extern: fn})
		declared[label] = true
	}
	if !auto {
		return imports, nil
	}

	for _, d := range mod.ImportDescriptors() {
		label := d.Module + "." + d.Name
		if declared[label] {
			continue
		}
		ext, err := autoStub(ctx, rt, d, log)
		if err != nil {
			return nil, fmt.Errorf("stub %s: %w", label, err)
		}
		log.Debug("import stubbed", zap.String("import", label), zap.Stringer("kind", d.Kind))
		imports = append(imports, runtime.Import{Module: []byte(d.Module), Name: []byte(d.Name), Extern: ext})
	}
	return imports, nil
}

func autoStub(ctx context.Context, rt *runtime.Runtime, d runtime.ImportDescriptor, log *zap.Logger) (linker.Extern, error) {
	switch d.Kind {
	case value.KindFunction:
		params, results, ok := d.Signature()
		if !ok {
			return nil, fmt.Errorf("signature uses reference or vector types")
		}
		return stubFunction(d.Module+"."+d.Name, params, results, log)
	case value.KindMemory:
		lim, _ := d.Limits()
		return rt.NewMemory(ctx, lim)
	case value.KindTable:
		lim, _ := d.Limits()
		return rt.NewTable(ctx, lim)
	case value.KindGlobal:
		gt, _ := d.GlobalType()
		if !value.Supported(gt.ValType) {
			return nil, fmt.Errorf("global has a reference or vector type")
		}
		return rt.NewGlobal(ctx, value.FromBits(value.TypeFromEngine(gt.ValType), 0), gt.Mutable)
	default:
		return nil, fmt.Errorf("unsupported import kind %s", d.Kind)
	}
}
