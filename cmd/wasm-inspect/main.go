package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/runtime"
	"github.com/wippyai/wasm-embed/value"
)

type options struct {
	wasmFile string
	funcName string
	args     string
	policy   string
	hosts    hostDecls
	memPages uint
	timeout  time.Duration
	list     bool
	noStub   bool
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.wasmFile, "wasm", "", "Path to core wasm module")
	flag.StringVar(&opts.funcName, "func", "", "Function to call (optional)")
	flag.StringVar(&opts.args, "args", "", "Arguments, comma-separated (e.g. 2,3)")
	flag.StringVar(&opts.policy, "policy", "overwrite", "Import collision policy: overwrite, keep-first, reject")
	flag.Var(&opts.hosts, "host", "Host stub ns.name=func(a: s32) -> s32 (repeatable)")
	flag.UintVar(&opts.memPages, "mem-pages", 0, "Memory limit in 64KB pages (0 = 4GB)")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Call timeout (0 = none)")
	flag.BoolVar(&opts.list, "list", false, "List imports and exports and exit")
	flag.BoolVar(&opts.noStub, "no-stub", false, "Do not stub imports that -host does not cover")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	interactive := flag.Bool("i", false, "Interactive mode with TUI")
	flag.Parse()

	if opts.wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: wasm-inspect -wasm <file.wasm> [-func name] [-args 1,2] [-host ns.name=func(...)]")
		fmt.Fprintln(os.Stderr, "       wasm-inspect -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       wasm-inspect -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// newRuntime creates the runtime and compiles the module named by opts.
func newRuntime(ctx context.Context, opts options, log *zap.Logger) (*runtime.Runtime, *runtime.Module, error) {
	data, err := os.ReadFile(opts.wasmFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}
	policy, err := linker.ParsePolicy(opts.policy)
	if err != nil {
		return nil, nil, err
	}

	rt, err := runtime.NewWithConfig(ctx, &runtime.Config{
		Logger:             log,
		MemoryLimitPages:   uint32(opts.memPages),
		CollisionPolicy:    policy,
		CloseOnContextDone: opts.timeout > 0,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create runtime: %w", err)
	}

	mod, err := rt.Compile(ctx, data)
	if err != nil {
		rt.Close(ctx)
		return nil, nil, fmt.Errorf("compile: %w", err)
	}
	return rt, mod, nil
}

func run(opts options) error {
	ctx := context.Background()

	log, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	rt, mod, err := newRuntime(ctx, opts, log)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)
	defer mod.Close(ctx)

	fmt.Println(renderListing(opts.wasmFile, mod))
	if opts.list {
		return nil
	}

	imports, err := buildImports(ctx, rt, mod, opts.hosts, !opts.noStub, log)
	if err != nil {
		return err
	}
	inst, err := mod.Instantiate(ctx, imports)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(ctx)

	funcName := opts.funcName
	if funcName == "" {
		funcName = entryPoint(mod)
		if funcName == "" {
			fmt.Printf("\nNo function specified and no common entry point found.\n")
			fmt.Printf("Use -func to specify a function to call.\n")
			return nil
		}
	}

	args, err := parseArgs(mod, funcName, opts.args)
	if err != nil {
		return err
	}

	callCtx := ctx
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, formatValues(args))
	results, err := inst.Call(callCtx, funcName, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	fmt.Println(resultStyle.Render("Result: " + formatValues(results)))
	return nil
}

// entryPoint picks _start, run or main, or the only exported function.
func entryPoint(mod *runtime.Module) string {
	var funcs []string
	for _, d := range mod.ExportDescriptors() {
		if d.Kind == value.KindFunction {
			funcs = append(funcs, d.Name)
		}
	}
	for _, name := range []string{"_start", "run", "main"} {
		for _, f := range funcs {
			if f == name {
				return name
			}
		}
	}
	if len(funcs) == 1 {
		return funcs[0]
	}
	return ""
}

func parseArgs(mod *runtime.Module, funcName, argStr string) ([]value.Value, error) {
	var params []value.Type
	found := false
	for _, d := range mod.ExportDescriptors() {
		if d.Name == funcName && d.Kind == value.KindFunction {
			p, _, ok := d.Signature()
			if !ok {
				return nil, fmt.Errorf("%s uses reference or vector types", funcName)
			}
			params, found = p, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("no exported function %q", funcName)
	}

	var raw []string
	if strings.TrimSpace(argStr) != "" {
		raw = strings.Split(argStr, ",")
	}
	if len(raw) != len(params) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", funcName, len(params), len(raw))
	}
	args := make([]value.Value, len(params))
	for i, t := range params {
		v, err := value.ParseValue(t, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func formatValues(vs []value.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
