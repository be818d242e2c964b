// Package wasmembed is a host-embedding boundary for core WebAssembly modules
// built on wazero.
//
// It lets a host compile and instantiate modules, resolve imports from
// host-provided functions, memories, globals and tables, enumerate import and
// export descriptors, call exports with tagged values, and read or write an
// instance's linear memory through typed views.
//
// # Architecture Overview
//
//	wasmembed/           Root package with the core Memory interface
//	├── runtime/         Go API: Runtime, Module, Instance, exports and host objects
//	├── engine/          wazero integration: compile, link, instantiate
//	├── linker/          import records to namespaces, collision policy, bridging
//	├── value/           tagged values and engine marshalling
//	├── memview/         typed, bounds-checked memory views with atomic mode
//	├── handle/          generation-checked handle registry
//	├── capi/            C-style surface: handles, status codes, last error
//	├── errors/          structured error types
//	└── cmd/wasm-inspect CLI to list descriptors and call exports
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	printFn, err := runtime.NewFunction([]value.Type{value.TypeI32}, nil,
//	    func(hc *runtime.Context, args []value.Value) ([]value.Value, error) {
//	        fmt.Println(args[0].I32())
//	        return nil, nil
//	    })
//
//	inst, err := rt.Instantiate(ctx, wasmBytes, []runtime.Import{
//	    {Module: []byte("env"), Name: []byte("print"), Extern: printFn},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	results, err := inst.Call(ctx, "add", value.I32(2), value.I32(3))
//	fmt.Println(results[0].I32()) // 5
//
// # Memory Views
//
//	mem := inst.Memory()
//	view, err := memview.New[uint32](mem, 0, 16)
//	view.Set(0, 42)
//
// # Logging
//
// Packages log through zap and default to a no-op logger:
//
//	logger, _ := zap.NewDevelopment()
//	runtime.SetLogger(logger)
package wasmembed
