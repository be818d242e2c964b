package runtime

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/memview"
	"github.com/wippyai/wasm-embed/value"
)

var (
	i32  = []api.ValueType{api.ValueTypeI32}
	i32s = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
)

func newRuntime(t *testing.T, cfg *Config) *Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("create runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close(ctx) })
	return rt
}

func instantiate(t *testing.T, rt *Runtime, bin []byte, imports []Import) *Instance {
	t.Helper()
	ctx := context.Background()
	mod, err := rt.Compile(ctx, bin)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer mod.Close(ctx)

	inst, err := mod.Instantiate(ctx, imports)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	t.Cleanup(func() { inst.Close(ctx) })
	return inst
}

func imp(module, name string, ext linker.Extern) Import {
	return Import{Module: []byte(module), Name: []byte(name), Extern: ext}
}

// addModule exports add(i32, i32) -> i32 and a one page memory.
func addModule() []byte {
	b := wasm.NewBuilder()
	add := b.AddFunc(wasm.FuncType{Params: i32s, Results: i32}, nil,
		new(wasm.Code).LocalGet(0).LocalGet(1).I32Add().End())
	mem := b.AddMemory(wasm.Limits{Min: 1})
	b.Export("add", wasm.ExternFunc, add)
	b.Export("memory", wasm.ExternMemory, mem)
	return b.Build()
}

// callerModule imports env.<name>() -> i32 and exports run() returning it.
func callerModule(name string) []byte {
	b := wasm.NewBuilder()
	fn := b.ImportFunc("env", name, wasm.FuncType{Results: i32})
	run := b.AddFunc(wasm.FuncType{Results: i32}, nil, new(wasm.Code).Call(fn).End())
	b.Export("run", wasm.ExternFunc, run)
	return b.Build()
}

func constFunc(t *testing.T, n int32) *Function {
	t.Helper()
	f, err := NewFunction(nil, []value.Type{value.TypeI32},
		func(*Context, []value.Value) ([]value.Value, error) {
			return []value.Value{value.I32(n)}, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestInstance_CallAdd(t *testing.T) {
	rt := newRuntime(t, nil)
	inst := instantiate(t, rt, addModule(), nil)

	got, err := inst.Call(context.Background(), "add", value.I32(2), value.I32(3))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if diff := cmp.Diff([]value.Value{value.I32(5)}, got, cmp.AllowUnexported(value.Value{})); diff != "" {
		t.Errorf("add(2, 3) mismatch (-want +got):\n%s", diff)
	}
}

func TestInstance_CallErrors(t *testing.T) {
	rt := newRuntime(t, nil)
	inst := instantiate(t, rt, addModule(), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		fn    string
		cause errors.Kind
		args  []value.Value
	}{
		{"unknown export", "missing", errors.KindNotFound, nil},
		{"memory export", "memory", errors.KindWrongExportKind, nil},
		{"too few arguments", "add", errors.KindTypeMismatch, []value.Value{value.I32(1)}},
		{"wrong argument type", "add", errors.KindTypeMismatch, []value.Value{value.I32(1), value.F64(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inst.Call(ctx, tt.fn, tt.args...)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindCall {
				t.Fatalf("expected call error, got %v", err)
			}
			if !errors.HasKind(err, tt.cause) {
				t.Errorf("expected %s cause, got %v", tt.cause, err)
			}
		})
	}
}

func TestInstance_ContextDataVisibleInHostFunction(t *testing.T) {
	rt := newRuntime(t, nil)

	var seen any
	get, err := NewFunction(nil, []value.Type{value.TypeI32},
		func(ctx *Context, _ []value.Value) ([]value.Value, error) {
			seen = ctx.Data()
			return []value.Value{value.I32(ctx.Data().(int32))}, nil
		})
	if err != nil {
		t.Fatal(err)
	}

	inst := instantiate(t, rt, callerModule("get"), []Import{imp("env", "get", get)})
	inst.SetContextData(int32(42))

	got, err := inst.Call(context.Background(), "run")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if seen != int32(42) || got[0].I32() != 42 {
		t.Errorf("host saw %v, run returned %v; want 42", seen, got[0])
	}
	if inst.ContextData() != int32(42) {
		t.Errorf("ContextData() = %v", inst.ContextData())
	}
}

func TestHostFunction_Traps(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()

	failing, _ := NewFunction(nil, []value.Type{value.TypeI32},
		func(*Context, []value.Value) ([]value.Value, error) {
			return nil, stderrors.New("host failure")
		})
	wrongType, _ := NewFunction(nil, []value.Type{value.TypeI32},
		func(*Context, []value.Value) ([]value.Value, error) {
			return []value.Value{value.I64(1)}, nil
		})

	for name, f := range map[string]*Function{"error": failing, "result mismatch": wrongType} {
		t.Run(name, func(t *testing.T) {
			inst := instantiate(t, rt, callerModule("f"), []Import{imp("env", "f", f)})
			_, err := inst.Call(ctx, "run")
			if !errors.HasKind(err, errors.KindCall) {
				t.Errorf("expected call error, got %v", err)
			}
		})
	}
}

func TestNewFunction_Validation(t *testing.T) {
	if _, err := NewFunction(nil, nil, nil); !errors.HasKind(err, errors.KindNilPointer) {
		t.Errorf("nil fn: got %v", err)
	}
	noop := func(*Context, []value.Value) ([]value.Value, error) { return nil, nil }
	if _, err := NewFunction([]value.Type{value.Type(9)}, nil, noop); !errors.HasKind(err, errors.KindUnsupported) {
		t.Errorf("invalid type: got %v", err)
	}

	f, err := NewFunction([]value.Type{value.TypeI32, value.TypeF64}, []value.Type{value.TypeI64}, noop)
	if err != nil {
		t.Fatal(err)
	}
	if f.ParamsArity() != 2 || f.ReturnsArity() != 1 {
		t.Errorf("arity = %d/%d, want 2/1", f.ParamsArity(), f.ReturnsArity())
	}
	if diff := cmp.Diff([]value.Type{value.TypeI32, value.TypeF64}, f.Params()); diff != "" {
		t.Errorf("Params mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryView_OnePage(t *testing.T) {
	rt := newRuntime(t, nil)
	inst := instantiate(t, rt, addModule(), nil)

	mem := inst.Memory()
	if mem == nil {
		t.Fatal("instance has no memory")
	}
	if mem.Length() != 1 || mem.DataLength() != PageSize {
		t.Fatalf("memory is %d pages / %d bytes", mem.Length(), mem.DataLength())
	}

	view, err := memview.New[uint8](mem, 0, PageSize)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if err := view.CopyFrom(make([]uint8, PageSize)); err != nil {
		t.Errorf("full page copy: %v", err)
	}
	if err := view.CopyFrom(make([]uint8, 100)); !errors.HasKind(err, errors.KindOutOfBounds) {
		t.Errorf("short copy: expected out_of_bounds, got %v", err)
	}
	if _, err := memview.New[uint8](mem, 1, PageSize); err == nil {
		t.Error("view past the end of memory should fail")
	}
}

func TestMemory_SharedWithGuest(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()

	mem, err := rt.NewMemory(ctx, Limits{Min: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close(ctx)
	mem.Write(16, []byte{7, 0, 0, 0})

	// load() = i32.load(16)
	b := wasm.NewBuilder()
	b.ImportMemory("env", "memory", wasm.Limits{Min: 1})
	load := b.AddFunc(wasm.FuncType{Results: i32}, nil, new(wasm.Code).I32Const(16).I32Load(0).End())
	b.Export("load", wasm.ExternFunc, load)

	inst := instantiate(t, rt, b.Build(), []Import{imp("env", "memory", mem)})
	got, err := inst.Call(ctx, "load")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].I32() != 7 {
		t.Errorf("load() = %v, want 7", got[0])
	}

	prev, err := mem.Grow(1)
	if err != nil || prev != 1 {
		t.Errorf("Grow(1) = %d, %v", prev, err)
	}
	if inst.Memory().Length() != 2 {
		t.Errorf("guest sees %d pages, want 2", inst.Memory().Length())
	}
}

func TestInstanceMemory_ReshareImported(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()

	mem, err := rt.NewMemory(ctx, Limits{Min: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close(ctx)
	mem.Write(16, []byte{7, 0, 0, 0})

	// Imports the memory without exporting it.
	loader := func() []byte {
		b := wasm.NewBuilder()
		b.ImportMemory("env", "memory", wasm.Limits{Min: 1})
		load := b.AddFunc(wasm.FuncType{Results: i32}, nil, new(wasm.Code).I32Const(16).I32Load(0).End())
		b.Export("load", wasm.ExternFunc, load)
		return b.Build()
	}
	first := instantiate(t, rt, loader(), []Import{imp("env", "memory", mem)})
	second := instantiate(t, rt, loader(), []Import{imp("env", "memory", first.Memory())})

	got, err := second.Call(ctx, "load")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].I32() != 7 {
		t.Errorf("load() through re-shared memory = %v, want 7", got[0])
	}

	// A local memory that is not exported cannot be shared.
	b := wasm.NewBuilder()
	b.AddMemory(wasm.Limits{Min: 1})
	private := instantiate(t, rt, b.Build(), nil)
	_, err = rt.Instantiate(ctx, loader(), []Import{imp("env", "memory", private.Memory())})
	if !errors.HasKind(err, errors.KindUnsupported) {
		t.Errorf("sharing an unexported memory: got %v, want unsupported", err)
	}
}

func TestMemory_GrowPastMax(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()

	max := uint32(2)
	mem, err := rt.NewMemory(ctx, Limits{Min: 1, Max: &max})
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close(ctx)

	if _, err := mem.Grow(5); !errors.HasKind(err, errors.KindOutOfBounds) {
		t.Errorf("expected out_of_bounds, got %v", err)
	}
	if _, err := rt.NewMemory(ctx, Limits{Min: 3, Max: &max}); !errors.HasKind(err, errors.KindInvalidInput) {
		t.Errorf("min above max: got %v", err)
	}
}

func TestGlobal_SharedWithGuest(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()

	g, err := rt.NewGlobal(ctx, value.I32(10), true)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close(ctx)

	// get() = global.get 0
	b := wasm.NewBuilder()
	gi := b.ImportGlobal("env", "counter", wasm.GlobalType{ValType: api.ValueTypeI32, Mutable: true})
	get := b.AddFunc(wasm.FuncType{Results: i32}, nil, new(wasm.Code).GlobalGet(gi).End())
	b.Export("get", wasm.ExternFunc, get)

	inst := instantiate(t, rt, b.Build(), []Import{imp("env", "counter", g)})

	if err := g.Set(value.I32(33)); err != nil {
		t.Fatal(err)
	}
	got, err := inst.Call(ctx, "get")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].I32() != 33 {
		t.Errorf("get() = %v, want 33", got[0])
	}

	if err := g.Set(value.F32(1)); !errors.HasKind(err, errors.KindTypeMismatch) {
		t.Errorf("wrong type: got %v", err)
	}

	frozen, err := rt.NewGlobal(ctx, value.F64(1.5), false)
	if err != nil {
		t.Fatal(err)
	}
	defer frozen.Close(ctx)
	if frozen.Get().F64() != 1.5 || frozen.Type() != value.TypeF64 {
		t.Errorf("Get() = %v", frozen.Get())
	}
	if err := frozen.Set(value.F64(2)); !errors.HasKind(err, errors.KindUnsupported) {
		t.Errorf("immutable set: got %v", err)
	}
}

func TestTable_SizeGrowClone(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()

	max := uint32(8)
	tbl, err := rt.NewTable(ctx, Limits{Min: 2, Max: &max})
	if err != nil {
		t.Fatal(err)
	}

	clone := tbl.Clone()
	if err := tbl.Close(ctx); err != nil {
		t.Fatal(err)
	}

	size, err := clone.Size(ctx)
	if err != nil || size != 2 {
		t.Fatalf("Size() = %d, %v; want 2", size, err)
	}
	if prev, err := clone.Grow(ctx, 3); err != nil || prev != 2 {
		t.Errorf("Grow(3) = %d, %v", prev, err)
	}
	if _, err := clone.Grow(ctx, 10); !errors.HasKind(err, errors.KindOutOfBounds) {
		t.Errorf("grow past max: got %v", err)
	}
	if err := clone.Close(ctx); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestCollisionPolicy(t *testing.T) {
	tests := []struct {
		policy linker.Policy
		want   int32
	}{
		{linker.PolicyOverwrite, 2},
		{linker.PolicyKeepFirst, 1},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			rt := newRuntime(t, &Config{CollisionPolicy: tt.policy})
			inst := instantiate(t, rt, callerModule("f"), []Import{
				imp("env", "f", constFunc(t, 1)),
				imp("env", "f", constFunc(t, 2)),
			})
			got, err := inst.Call(context.Background(), "run")
			if err != nil {
				t.Fatal(err)
			}
			if got[0].I32() != tt.want {
				t.Errorf("run() = %v, want %d", got[0], tt.want)
			}
		})
	}

	rt := newRuntime(t, &Config{CollisionPolicy: linker.PolicyReject})
	mod, err := rt.Compile(context.Background(), callerModule("f"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = mod.Instantiate(context.Background(), []Import{
		imp("env", "f", constFunc(t, 1)),
		imp("env", "f", constFunc(t, 2)),
	})
	if !errors.HasKind(err, errors.KindDuplicateImport) {
		t.Errorf("reject policy: got %v", err)
	}
}

func TestInstantiate_InvalidUTF8Import(t *testing.T) {
	rt := newRuntime(t, nil)
	_, err := rt.Instantiate(context.Background(), callerModule("f"), []Import{
		{Module: []byte{0xff, 0xfe}, Name: []byte("f"), Extern: constFunc(t, 1)},
	})
	if !errors.HasKind(err, errors.KindInvalidUTF8) {
		t.Errorf("expected invalid_utf8, got %v", err)
	}
}

func TestInstantiate_MissingImport(t *testing.T) {
	rt := newRuntime(t, nil)
	_, err := rt.Instantiate(context.Background(), callerModule("f"), nil)
	if !errors.HasKind(err, errors.KindInstantiation) {
		t.Errorf("expected instantiation error, got %v", err)
	}
}

func TestExportedFunction_LinksIntoAnotherInstance(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()
	lib := instantiate(t, rt, addModule(), nil)

	exp, err := lib.Export("add")
	if err != nil {
		t.Fatal(err)
	}
	add, err := exp.Function()
	if err != nil {
		t.Fatal(err)
	}
	if add.ParamsArity() != 2 || add.ReturnsArity() != 1 {
		t.Errorf("arity = %d/%d", add.ParamsArity(), add.ReturnsArity())
	}

	// run() = add(20, 22)
	b := wasm.NewBuilder()
	fn := b.ImportFunc("lib", "add", wasm.FuncType{Params: i32s, Results: i32})
	run := b.AddFunc(wasm.FuncType{Results: i32}, nil,
		new(wasm.Code).I32Const(20).I32Const(22).Call(fn).End())
	b.Export("run", wasm.ExternFunc, run)

	app := instantiate(t, rt, b.Build(), []Import{imp("lib", "add", add)})
	got, err := app.Call(ctx, "run")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].I32() != 42 {
		t.Errorf("run() = %v, want 42", got[0])
	}

	if _, err := exp.Memory(); !errors.HasKind(err, errors.KindWrongExportKind) {
		t.Errorf("Memory() on function export: got %v", err)
	}
}

func TestContext_ResolvesCallingInstanceAcrossLinks(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()

	var seen any
	peek, err := NewFunction(nil, []value.Type{value.TypeI32},
		func(c *Context, _ []value.Value) ([]value.Value, error) {
			seen = c.Data()
			mem, err := c.Memory(0)
			if err != nil {
				return nil, err
			}
			mem.Write(0, []byte{0xab})
			return []value.Value{value.I32(c.Data().(int32))}, nil
		})
	if err != nil {
		t.Fatal(err)
	}

	// lib: run() calls its own env.peek; it owns a memory.
	lb := wasm.NewBuilder()
	pk := lb.ImportFunc("env", "peek", wasm.FuncType{Results: i32})
	lrun := lb.AddFunc(wasm.FuncType{Results: i32}, nil, new(wasm.Code).Call(pk).End())
	lmem := lb.AddMemory(wasm.Limits{Min: 1})
	lb.Export("run", wasm.ExternFunc, lrun)
	lb.Export("memory", wasm.ExternMemory, lmem)
	lib := instantiate(t, rt, lb.Build(), []Import{imp("env", "peek", peek)})
	lib.SetContextData(int32(2))

	exp, err := lib.Export("run")
	if err != nil {
		t.Fatal(err)
	}
	run, err := exp.Function()
	if err != nil {
		t.Fatal(err)
	}

	// app: go() calls lib.run; it owns a separate memory.
	ab := wasm.NewBuilder()
	fn := ab.ImportFunc("lib", "run", wasm.FuncType{Results: i32})
	gofn := ab.AddFunc(wasm.FuncType{Results: i32}, nil, new(wasm.Code).Call(fn).End())
	amem := ab.AddMemory(wasm.Limits{Min: 1})
	ab.Export("go", wasm.ExternFunc, gofn)
	ab.Export("memory", wasm.ExternMemory, amem)
	app := instantiate(t, rt, ab.Build(), []Import{imp("lib", "run", run)})
	app.SetContextData(int32(1))

	got, err := app.Call(ctx, "go")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if seen != int32(2) || got[0].I32() != 2 {
		t.Errorf("peek saw context data %v and returned %v; want lib's 2", seen, got[0])
	}
	if b, _ := lib.Memory().Read(0, 1); b[0] != 0xab {
		t.Errorf("lib memory[0] = %#x, want 0xab", b[0])
	}
	if b, _ := app.Memory().Read(0, 1); b[0] != 0 {
		t.Errorf("app memory[0] = %#x, want untouched", b[0])
	}
}

func TestInstance_Exports(t *testing.T) {
	rt := newRuntime(t, nil)
	inst := instantiate(t, rt, addModule(), nil)

	type entry struct {
		Name string
		Kind value.Kind
	}
	var got []entry
	for _, e := range inst.Exports() {
		got = append(got, entry{e.Name(), e.Kind()})
	}
	want := []entry{{"add", value.KindFunction}, {"memory", value.KindMemory}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Exports mismatch (-want +got):\n%s", diff)
	}

	exp, err := inst.Export("memory")
	if err != nil {
		t.Fatal(err)
	}
	mem, err := exp.Memory()
	if err != nil {
		t.Fatal(err)
	}
	if mem.Size() != PageSize {
		t.Errorf("Size() = %d", mem.Size())
	}
	if _, err := exp.Function(); !errors.HasKind(err, errors.KindWrongExportKind) {
		t.Errorf("Function() on memory export: got %v", err)
	}
	if _, err := inst.Export("nope"); !errors.HasKind(err, errors.KindNotFound) {
		t.Errorf("unknown export: got %v", err)
	}
}
