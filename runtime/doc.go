// Package runtime provides the high-level API for embedding WebAssembly modules.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Compile(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx)
//
//	inst, err := mod.Instantiate(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	results, err := inst.Call(ctx, "add", value.I32(2), value.I32(3))
//	fmt.Println(results[0]) // i32:5
//
// # Imports
//
// Imports are records of module name, import name and an extern. Host
// functions, memories, tables and globals all satisfy imports:
//
//	printFn, _ := runtime.NewFunction([]value.Type{value.TypeI32}, nil,
//	    func(ctx *runtime.Context, args []value.Value) ([]value.Value, error) {
//	        fmt.Println(args[0].I32())
//	        return nil, nil
//	    })
//	mem, _ := rt.NewMemory(ctx, runtime.Limits{Min: 1})
//
//	inst, err := mod.Instantiate(ctx, []runtime.Import{
//	    {Module: []byte("env"), Name: []byte("print"), Extern: printFn},
//	    {Module: []byte("env"), Name: []byte("memory"), Extern: mem},
//	})
//
// When two records share a module and name, Config.CollisionPolicy decides:
// the last one wins by default.
//
// # Host Functions
//
// Typed Go functions can be registered once on the runtime and are offered
// to every instantiation:
//
//	rt.RegisterFunc("env", "add", func(a, b int32) int32 { return a + b })
//
// Struct hosts register each exported method under its snake_case name:
//
//	type Clock struct{}
//	func (Clock) Namespace() string { return "clock" }
//	func (Clock) NowNanos() int64   { return time.Now().UnixNano() }
//
// A host function whose first parameter is a *Context can read the calling
// instance's context data and memory.
//
// # Descriptors
//
// Module.ExportDescriptors lists exports in declaration order.
// Module.ImportDescriptors lists imports grouped as functions, tables,
// globals and memories, each group in declaration order.
//
// # Lifetimes
//
// Externs are shared references: Clone never copies, and the underlying
// object is released when its last reference is closed. Externs obtained
// from an instance's exports are only valid while the instance is open.
package runtime
