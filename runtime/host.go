package runtime

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/value"
)

// Host is the interface for struct-based host modules.
// All exported methods (except Namespace) are registered as host functions.
type Host interface {
	// Namespace returns the import module name (e.g., "env").
	Namespace() string
}

// ExplicitRegistrar allows hosts to provide exact import names
// when automatic PascalCase-to-snake_case conversion doesn't apply.
type ExplicitRegistrar interface {
	Register() map[string]any
}

// HostRegistry collects typed Go functions to be offered as imports.
//
// A registered function takes numeric parameters (int32, uint32, int64,
// uint64, float32, float64), optionally preceded by a *Context, and returns
// numeric results, optionally followed by an error.
type HostRegistry struct {
	funcs map[string]map[string]*Function
	mu    sync.RWMutex
}

func NewHostRegistry() *HostRegistry {
	return &HostRegistry{
		funcs: make(map[string]map[string]*Function),
	}
}

func (r *HostRegistry) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}

	if er, ok := h.(ExplicitRegistrar); ok {
		for name, fn := range er.Register() {
			if err := r.RegisterFunc(ns, name, fn); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()

	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		if err := r.RegisterFunc(ns, toSnakeCase(method.Name), rv.Method(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// RegisterFunc registers fn as namespace.name. fn is either a *Function or
// a typed Go function.
func (r *HostRegistry) RegisterFunc(namespace, name string, fn any) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}

	f, ok := fn.(*Function)
	if !ok {
		var err error
		if f, err = reflectFunction(fn); err != nil {
			return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
				Path(namespace, name).
				Cause(err).
				Detail("unsupported host function").
				Build()
		}
	}
	f = f.Named(namespace + "." + name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.funcs[namespace] == nil {
		r.funcs[namespace] = make(map[string]*Function)
	}
	r.funcs[namespace][name] = f
	Logger().Debug("host function registered", zapNamespace(namespace), zapName(name))
	return nil
}

// Imports returns the registered functions as import records, sorted by
// namespace and name.
func (r *HostRegistry) Imports() []Import {
	r.mu.RLock()
	defer r.mu.RUnlock()

	namespaces := make([]string, 0, len(r.funcs))
	for ns := range r.funcs {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var out []Import
	for _, ns := range namespaces {
		names := make([]string, 0, len(r.funcs[ns]))
		for name := range r.funcs[ns] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, Import{Module: []byte(ns), Name: []byte(name), Extern: r.funcs[ns][name]})
		}
	}
	return out
}

var (
	contextPtrType = reflect.TypeOf((*Context)(nil))
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

func goValueType(t reflect.Type) (value.Type, bool) {
	switch t.Kind() {
	case reflect.Int32, reflect.Uint32:
		return value.TypeI32, true
	case reflect.Int64, reflect.Uint64:
		return value.TypeI64, true
	case reflect.Float32:
		return value.TypeF32, true
	case reflect.Float64:
		return value.TypeF64, true
	default:
		return 0, false
	}
}

func reflectFunction(fn any) (*Function, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.InvalidInput(errors.PhaseHost, "handler must be a function")
	}
	ft := rv.Type()

	first := 0
	withContext := ft.NumIn() > 0 && ft.In(0) == contextPtrType
	if withContext {
		first = 1
	}

	var params []value.Type
	for i := first; i < ft.NumIn(); i++ {
		t, ok := goValueType(ft.In(i))
		if !ok {
			return nil, errors.Unsupported(errors.PhaseHost, "parameter type "+ft.In(i).String())
		}
		params = append(params, t)
	}

	numOut := ft.NumOut()
	withError := numOut > 0 && ft.Out(numOut-1) == errorType
	if withError {
		numOut--
	}
	var results []value.Type
	for i := 0; i < numOut; i++ {
		t, ok := goValueType(ft.Out(i))
		if !ok {
			return nil, errors.Unsupported(errors.PhaseHost, "result type "+ft.Out(i).String())
		}
		results = append(results, t)
	}

	in := make([]reflect.Type, ft.NumIn())
	for i := range in {
		in[i] = ft.In(i)
	}

	return NewFunction(params, results, func(ctx *Context, args []value.Value) ([]value.Value, error) {
		callArgs := make([]reflect.Value, 0, len(in))
		if withContext {
			callArgs = append(callArgs, reflect.ValueOf(ctx))
		}
		for i, a := range args {
			callArgs = append(callArgs, toGo(a, in[first+i]))
		}

		out := rv.Call(callArgs)
		if withError {
			if err, _ := out[numOut].Interface().(error); err != nil {
				return nil, err
			}
		}
		res := make([]value.Value, numOut)
		for i := 0; i < numOut; i++ {
			res[i] = fromGo(out[i], results[i])
		}
		return res, nil
	})
}

func toGo(v value.Value, t reflect.Type) reflect.Value {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int32:
		out.SetInt(int64(v.I32()))
	case reflect.Uint32:
		out.SetUint(uint64(uint32(v.I32())))
	case reflect.Int64:
		out.SetInt(v.I64())
	case reflect.Uint64:
		out.SetUint(uint64(v.I64()))
	case reflect.Float32:
		out.SetFloat(float64(v.F32()))
	case reflect.Float64:
		out.SetFloat(v.F64())
	}
	return out
}

func fromGo(rv reflect.Value, t value.Type) value.Value {
	switch rv.Kind() {
	case reflect.Int32, reflect.Int64:
		return value.FromBits(t, uint64(rv.Int()))
	case reflect.Uint32, reflect.Uint64:
		return value.FromBits(t, rv.Uint())
	case reflect.Float32:
		return value.F32(float32(rv.Float()))
	default:
		return value.F64(rv.Float())
	}
}

// toSnakeCase converts PascalCase to snake_case.
// Handles acronyms: GetHTTPStatus -> get_http_status
func toSnakeCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// Last uppercase before lowercase starts next word, not part of acronym
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			if i > 0 {
				result.WriteByte('_')
			}

			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
