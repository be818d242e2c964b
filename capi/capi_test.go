package capi

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/handle"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/memview"
	"github.com/wippyai/wasm-embed/runtime"
	"github.com/wippyai/wasm-embed/value"
)

var (
	i32  = []api.ValueType{api.ValueTypeI32}
	i32s = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
)

func reset(t *testing.T) {
	t.Helper()
	ClearLastError()
	t.Cleanup(func() {
		Shutdown()
		ClearLastError()
	})
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

// hostModule imports env.double(i32) -> i32 and exports run(i32) -> i32
// calling it, plus a memory holding "hi" at offset 0.
func hostModule() []byte {
	b := wasm.NewBuilder()
	double := b.ImportFunc("env", "double", wasm.FuncType{Params: i32, Results: i32})
	run := b.AddFunc(wasm.FuncType{Params: i32, Results: i32}, nil,
		new(wasm.Code).LocalGet(0).Call(double).End())
	mem := b.AddMemory(wasm.Limits{Min: 1})
	b.AddData(0, []byte("hi"))
	b.Export("run", wasm.ExternFunc, run)
	b.Export("memory", wasm.ExternMemory, mem)
	return b.Build()
}

func cname(s string) []byte {
	return append([]byte(s), 0)
}

func mustOK(t *testing.T, res Result, what string) {
	t.Helper()
	if res != OK {
		msg, _ := LastError()
		t.Fatalf("%s: %v: %s", what, res, msg)
	}
}

func wantError(t *testing.T, res Result, substr string) {
	t.Helper()
	if res != ERROR {
		t.Fatalf("result = %v, want error", res)
	}
	msg, ok := LastError()
	if !ok || !strings.Contains(msg, substr) {
		t.Fatalf("last error = %q, want it to contain %q", msg, substr)
	}
}

func instance(t *testing.T, bin []byte, imports []Import) handle.Handle {
	t.Helper()
	inst, res := Instantiate(bin, imports)
	mustOK(t, res, "instantiate")
	return inst
}

func TestLastError_Channel(t *testing.T) {
	reset(t)

	if n := LastErrorLength(); n != 0 {
		t.Errorf("LastErrorLength() = %d with no error, want 0", n)
	}
	if n := LastErrorMessage(make([]byte, 64)); n != -1 {
		t.Errorf("LastErrorMessage() = %d with no error, want -1", n)
	}

	_, res := Compile([]byte("not wasm"))
	if res != ERROR {
		t.Fatalf("Compile(garbage) = %v, want error", res)
	}
	msg, _ := LastError()
	size := LastErrorLength()
	if size != len(msg)+1 {
		t.Fatalf("LastErrorLength() = %d, want %d", size, len(msg)+1)
	}

	if n := LastErrorMessage(make([]byte, size-1)); n != -1 {
		t.Errorf("LastErrorMessage(short) = %d, want -1", n)
	}
	buf := make([]byte, size)
	if n := LastErrorMessage(buf); n != size {
		t.Errorf("LastErrorMessage() = %d, want %d", n, size)
	}
	if buf[size-1] != 0 || string(buf[:size-1]) != msg {
		t.Errorf("buffer = %q, want %q plus NUL", buf, msg)
	}

	// The next failure overwrites the slot.
	InstanceDestroy(handle.Handle(12345))
	if next, _ := LastError(); next == msg {
		t.Error("last error was not overwritten")
	}
}

func TestInstanceCall_Add(t *testing.T) {
	reset(t)
	inst := instance(t, addModule(), nil)

	results := []Value{{}, I64(-1)}
	mustOK(t, InstanceCall(inst, cname("add"), []Value{I32(2), I32(3)}, results), "call")

	want := []Value{I32(5), I64(-1)}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if got := results[0].Value().I32(); got != 5 {
		t.Errorf("add(2, 3) = %d, want 5", got)
	}
}

func TestInstanceCall_Errors(t *testing.T) {
	reset(t)
	inst := instance(t, addModule(), nil)
	mod, res := Compile(addModule())
	mustOK(t, res, "compile")

	tests := []struct {
		name   string
		inst   handle.Handle
		fn     []byte
		params []Value
		want   string
	}{
		{"nil instance", 0, cname("add"), []Value{}, "nil_pointer"},
		{"nil name", inst, nil, []Value{}, "nil_pointer"},
		{"nil params", inst, cname("add"), nil, "nil_pointer"},
		{"unknown export", inst, cname("missing"), []Value{}, "not_found"},
		{"memory export", inst, cname("memory"), []Value{}, "wrong_export_kind"},
		{"wrong arity", inst, cname("add"), []Value{I32(1)}, "call"},
		{"module handle", mod, cname("add"), []Value{}, "wrong_handle_kind"},
		{"stale handle", handle.Handle(1<<40 | 7), cname("add"), []Value{}, "stale_handle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantError(t, InstanceCall(tt.inst, tt.fn, tt.params, []Value{{}}), tt.want)
		})
	}
}

func TestInstanceCall_MalformedNamePanics(t *testing.T) {
	reset(t)
	inst := instance(t, addModule(), nil)

	for name, fn := range map[string][]byte{
		"missing NUL":  []byte("add"),
		"invalid utf8": {0xff, 0xfe, 0},
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			InstanceCall(inst, fn, []Value{I32(1), I32(2)}, []Value{{}})
		})
	}
}

func TestInstanceDestroy_Stale(t *testing.T) {
	reset(t)
	inst := instance(t, addModule(), nil)
	exports, res := InstanceExports(inst)
	mustOK(t, res, "exports")

	mustOK(t, InstanceDestroy(inst), "destroy")
	wantError(t, InstanceDestroy(inst), "stale_handle")
	wantError(t, InstanceCall(inst, cname("add"), []Value{I32(1), I32(2)}, nil), "stale_handle")

	if n := ExportsLen(exports); n != -1 {
		t.Errorf("ExportsLen after instance destroy = %d, want -1", n)
	}
	mustOK(t, InstanceDestroy(0), "destroy zero handle")
}

func TestExports_Collection(t *testing.T) {
	reset(t)
	inst := instance(t, addModule(), nil)

	exports, res := InstanceExports(inst)
	mustOK(t, res, "exports")
	if n := ExportsLen(exports); n != 2 {
		t.Fatalf("ExportsLen() = %d, want 2", n)
	}

	type entry struct {
		Name string
		Kind value.Kind
	}
	var got []entry
	for i := 0; i < ExportsLen(exports); i++ {
		e := ExportsGet(exports, i)
		kind, res := ExportKind(e)
		mustOK(t, res, "kind")
		got = append(got, entry{ExportName(e).String(), kind})
	}
	want := []entry{{"add", value.KindFunction}, {"memory", value.KindMemory}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("exports mismatch (-want +got):\n%s", diff)
	}

	add := ExportsGet(exports, 0)
	fn := ExportToFunc(add)
	if fn == 0 {
		msg, _ := LastError()
		t.Fatalf("ExportToFunc: %s", msg)
	}
	arity, res := ExportFuncParamsArity(fn)
	mustOK(t, res, "params arity")
	params := make([]value.Type, arity)
	mustOK(t, ExportFuncParams(fn, params), "params")
	if diff := cmp.Diff([]value.Type{value.TypeI32, value.TypeI32}, params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if n, _ := ExportFuncReturnsArity(fn); n != 1 {
		t.Errorf("returns arity = %d, want 1", n)
	}

	results := []Value{{}}
	mustOK(t, ExportFuncCall(fn, []Value{I32(40), I32(2)}, results), "call")
	if results[0] != I32(42) {
		t.Errorf("add(40, 2) = %+v", results[0])
	}

	_, res = ExportToMemory(add)
	wantError(t, res, "wrong_export_kind")

	mem, res := ExportToMemory(ExportsGet(exports, 1))
	mustOK(t, res, "to memory")
	if n := MemoryLength(mem); n != 1 {
		t.Errorf("MemoryLength() = %d, want 1", n)
	}

	mustOK(t, ExportsDestroy(exports), "destroy exports")
	for _, h := range []handle.Handle{add, fn, mem} {
		if handles.reg.Valid(h) {
			t.Errorf("borrowed handle %x survived its collection", h)
		}
	}
}

func TestDescriptors(t *testing.T) {
	reset(t)

	b := wasm.NewBuilder()
	b.ImportMemory("env", "memory", wasm.Limits{Min: 1})
	b.ImportFunc("host", "log", wasm.FuncType{Params: i32})
	b.ImportTable("env", "table", wasm.TableType{ElemType: wasm.ValueTypeFuncref, Limits: wasm.Limits{Min: 1}})
	run := b.AddFunc(wasm.FuncType{}, nil, new(wasm.Code).End())
	b.Export("run", wasm.ExternFunc, run)
	b.Export("memory", wasm.ExternMemory, 0)

	mod, res := Compile(b.Build())
	mustOK(t, res, "compile")

	type desc struct {
		Module string
		Name   string
		Kind   value.Kind
	}

	imports, res := ImportDescriptors(mod)
	mustOK(t, res, "import descriptors")
	var got []desc
	for i := 0; i < ImportDescriptorsLen(imports); i++ {
		d := ImportDescriptorsGet(imports, i)
		kind, _ := ImportDescriptorKind(d)
		got = append(got, desc{ImportDescriptorModuleName(d).String(), ImportDescriptorName(d).String(), kind})
	}
	want := []desc{
		{"host", "log", value.KindFunction},
		{"env", "table", value.KindTable},
		{"env", "memory", value.KindMemory},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("import descriptors mismatch (-want +got):\n%s", diff)
	}

	exports, res := ExportDescriptors(mod)
	mustOK(t, res, "export descriptors")
	got = nil
	for i := 0; i < ExportDescriptorsLen(exports); i++ {
		d := ExportDescriptorsGet(exports, i)
		kind, _ := ExportDescriptorKind(d)
		got = append(got, desc{Name: ExportDescriptorName(d).String(), Kind: kind})
	}
	want = []desc{{Name: "run", Kind: value.KindFunction}, {Name: "memory", Kind: value.KindMemory}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("export descriptors mismatch (-want +got):\n%s", diff)
	}

	first := ExportDescriptorsGet(exports, 0)
	mustOK(t, ExportDescriptorsDestroy(exports), "destroy")
	if ExportDescriptorName(first) != nil {
		t.Error("descriptor should be stale after its collection is destroyed")
	}
	mustOK(t, ImportDescriptorsDestroy(imports), "destroy")
	mustOK(t, ModuleDestroy(mod), "destroy module")
}

func TestImportFunc_ContextDataAndMemory(t *testing.T) {
	reset(t)

	var (
		seenCtx  handle.Handle
		seenMem  handle.Handle
		seenByte byte
	)
	double := ImportFuncNew(func(ctx handle.Handle, params, results []Value) Result {
		seenCtx = ctx
		seenMem = InstanceContextMemory(ctx, 0)
		if data := MemoryData(seenMem); len(data) > 0 {
			seenByte = data[0]
		}
		offset, _ := InstanceContextDataGet(ctx).(int32)
		results[0] = I32(params[0].Value().I32()*2 + offset)
		return OK
	}, []value.Type{value.TypeI32}, []value.Type{value.TypeI32})
	if double == 0 {
		msg, _ := LastError()
		t.Fatalf("ImportFuncNew: %s", msg)
	}

	if n, _ := ImportFuncParamsArity(double); n != 1 {
		t.Errorf("params arity = %d", n)
	}
	returns := make([]value.Type, 1)
	mustOK(t, ImportFuncReturns(double, returns), "returns")
	if returns[0] != value.TypeI32 {
		t.Errorf("returns = %v", returns)
	}

	inst := instance(t, hostModule(), []Import{
		{ModuleName: ByteArray("env"), ImportName: ByteArray("double"), Tag: value.KindFunction, Value: double},
	})
	mustOK(t, InstanceContextDataSet(inst, int32(100)), "set data")

	results := []Value{{}}
	mustOK(t, InstanceCall(inst, cname("run"), []Value{I32(21)}, results), "call")
	if got := results[0].Value().I32(); got != 142 {
		t.Errorf("run(21) = %d, want 142", got)
	}
	if seenByte != 'h' {
		t.Errorf("memory[0] seen by host = %q, want 'h'", seenByte)
	}

	// The context and memory handles only live for the duration of the call.
	if InstanceContextDataGet(seenCtx) != nil {
		t.Error("context handle outlived the call")
	}
	if handles.reg.Valid(seenMem) {
		t.Error("context memory handle outlived the call")
	}

	mustOK(t, ImportFuncDestroy(double), "destroy func")
	mustOK(t, InstanceCall(inst, cname("run"), []Value{I32(1)}, results), "call after func destroy")
}

func TestImportFunc_ErrorTraps(t *testing.T) {
	reset(t)

	fail := ImportFuncNew(func(handle.Handle, []Value, []Value) Result {
		return setLastError(errAborted)
	}, []value.Type{value.TypeI32}, []value.Type{value.TypeI32})
	inst := instance(t, hostModule(), []Import{
		{ModuleName: ByteArray("env"), ImportName: ByteArray("double"), Tag: value.KindFunction, Value: fail},
	})

	wantError(t, InstanceCall(inst, cname("run"), []Value{I32(1)}, []Value{{}}), "aborted by host")
}

type abortError struct{}

func (abortError) Error() string { return "aborted by host" }

var errAborted error = abortError{}

func TestImport_BadHandle(t *testing.T) {
	reset(t)
	mem, res := MemoryNew(Limits{Min: 1})
	mustOK(t, res, "memory")

	_, res = Instantiate(hostModule(), []Import{
		{ModuleName: ByteArray("env"), ImportName: ByteArray("double"), Tag: value.KindFunction, Value: mem},
	})
	wantError(t, res, "wrong_handle_kind")

	_, res = Instantiate(hostModule(), nil)
	wantError(t, res, "instantiation")
}

func TestMemory_ViewCopy(t *testing.T) {
	reset(t)
	mem, res := MemoryNew(Limits{Min: 1, Max: LimitOption{HasSome: true, Some: 2}})
	mustOK(t, res, "memory")

	page := make([]byte, 65536)
	page[0], page[65535] = 1, 2
	mustOK(t, MemoryWrite(mem, 0, page), "write full page")
	wantError(t, MemoryWrite(mem, 65500, make([]byte, 100)), "out_of_bounds")

	back := make([]byte, 2)
	mustOK(t, MemoryRead(mem, 65534, back), "read")
	if back[1] != 2 {
		t.Errorf("read back %v", back)
	}

	mustOK(t, MemoryGrow(mem, 1), "grow")
	if n := MemoryLength(mem); n != 2 {
		t.Errorf("MemoryLength() = %d, want 2", n)
	}
	if n := MemoryDataLength(mem); n != 2*65536 {
		t.Errorf("MemoryDataLength() = %d", n)
	}
	wantError(t, MemoryGrow(mem, 1), "out_of_bounds")

	mustOK(t, MemoryDestroy(mem), "destroy")
	wantError(t, MemoryDestroy(mem), "stale_handle")
}

func TestMemory_WriteRespectsAtomicMode(t *testing.T) {
	reset(t)
	mem, res := MemoryNew(Limits{Min: 1})
	mustOK(t, res, "memory")

	m, err := lookup[*runtime.Memory](mem, kindMemory)
	if err != nil {
		t.Fatal(err)
	}
	v, err := memview.New[uint32](m, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	av := v.Atomically()

	wantError(t, MemoryWrite(mem, 4, []byte{1}), "atomic mode")
	wantError(t, MemoryRead(mem, 0, make([]byte, 16)), "atomic mode")
	mustOK(t, MemoryWrite(mem, 16, []byte{1}), "write outside region")

	av.Release()
	mustOK(t, MemoryWrite(mem, 4, []byte{9}), "write after release")
	if got := v.Get(1); got != 9 {
		t.Errorf("element 1 = %d, want 9", got)
	}
}

func TestMemory_ImportedByGuest(t *testing.T) {
	reset(t)
	mem, res := MemoryNew(Limits{Min: 1})
	mustOK(t, res, "memory")
	mustOK(t, MemoryWrite(mem, 8, []byte{7, 0, 0, 0}), "write")

	b := wasm.NewBuilder()
	b.ImportMemory("env", "memory", wasm.Limits{Min: 1})
	load := b.AddFunc(wasm.FuncType{Results: i32}, nil,
		new(wasm.Code).I32Const(8).I32Load(0).End())
	b.Export("load", wasm.ExternFunc, load)

	inst := instance(t, b.Build(), []Import{
		{ModuleName: ByteArray("env"), ImportName: ByteArray("memory"), Tag: value.KindMemory, Value: mem},
	})
	results := []Value{{}}
	mustOK(t, InstanceCall(inst, cname("load"), []Value{}, results), "call")
	if results[0] != I32(7) {
		t.Errorf("load() = %+v, want i32 7", results[0])
	}
}

func TestGlobal_GetSet(t *testing.T) {
	reset(t)

	g, res := GlobalNew(I64(5), true)
	mustOK(t, res, "global")
	mustOK(t, GlobalSet(g, I64(9)), "set")
	v, res := GlobalGet(g)
	mustOK(t, res, "get")
	if v != I64(9) {
		t.Errorf("GlobalGet() = %+v, want i64 9", v)
	}
	wantError(t, GlobalSet(g, I32(1)), "type_mismatch")

	desc, _ := GlobalGetDescriptor(g)
	if diff := cmp.Diff(GlobalDescriptor{Kind: value.TypeI64, Mutable: true}, desc); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}

	frozen, res := GlobalNew(F64(1.5), false)
	mustOK(t, res, "global")
	wantError(t, GlobalSet(frozen, F64(2)), "unsupported")

	mustOK(t, GlobalDestroy(g), "destroy")
	mustOK(t, GlobalDestroy(frozen), "destroy")
}

func TestTable_LengthGrow(t *testing.T) {
	reset(t)

	tbl, res := TableNew(Limits{Min: 2, Max: LimitOption{HasSome: true, Some: 3}})
	mustOK(t, res, "table")
	if n := TableLength(tbl); n != 2 {
		t.Errorf("TableLength() = %d, want 2", n)
	}
	mustOK(t, TableGrow(tbl, 1), "grow")
	if n := TableLength(tbl); n != 3 {
		t.Errorf("TableLength() = %d, want 3", n)
	}
	wantError(t, TableGrow(tbl, 1), "out_of_bounds")

	_, res = TableNew(Limits{Min: 4, Max: LimitOption{HasSome: true, Some: 1}})
	wantError(t, res, "invalid_input")
	mustOK(t, TableDestroy(tbl), "destroy")
}

func TestShutdown_ClearsHandles(t *testing.T) {
	reset(t)
	instance(t, addModule(), nil)
	if Live() == 0 {
		t.Fatal("expected live handles")
	}
	mustOK(t, Shutdown(), "shutdown")
	if n := Live(); n != 0 {
		t.Errorf("Live() = %d after Shutdown, want 0", n)
	}
	mustOK(t, Init(nil), "init after shutdown")
	if !Validate(addModule()) {
		t.Error("Validate(addModule()) = false")
	}
	wantError(t, Init(nil), "already initialized")
}
