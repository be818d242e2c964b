package capi

import (
	"context"
	"sync"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/handle"
	"github.com/wippyai/wasm-embed/runtime"
)

// Handle kinds issued by this package.
const (
	kindModule            handle.Kind = "module"
	kindInstance          handle.Kind = "instance"
	kindContext           handle.Kind = "instance_context"
	kindExportDescriptors handle.Kind = "export_descriptors"
	kindExportDescriptor  handle.Kind = "export_descriptor"
	kindImportDescriptors handle.Kind = "import_descriptors"
	kindImportDescriptor  handle.Kind = "import_descriptor"
	kindExports           handle.Kind = "exports"
	kindExport            handle.Kind = "export"
	kindExportFunc        handle.Kind = "export_func"
	kindImportFunc        handle.Kind = "import_func"
	kindMemory            handle.Kind = "memory"
	kindGlobal            handle.Kind = "global"
	kindTable             handle.Kind = "table"
)

// store is the registry plus the borrowed handles hanging off each parent.
type store struct {
	reg      *handle.Registry
	children map[handle.Handle][]handle.Handle
	mu       sync.Mutex
}

func newStore() *store {
	reg := handle.New()
	reg.Subscribe(handleLogger{})
	return &store{reg: reg, children: make(map[handle.Handle][]handle.Handle)}
}

var handles = newStore()

func (s *store) insert(kind handle.Kind, v any) handle.Handle {
	return s.reg.Insert(kind, v)
}

// borrow issues a handle that is removed together with parent.
func (s *store) borrow(parent handle.Handle, kind handle.Kind, v any) handle.Handle {
	h := s.reg.Insert(kind, v)
	s.mu.Lock()
	s.children[parent] = append(s.children[parent], h)
	s.mu.Unlock()
	return h
}

// remove invalidates h and every handle borrowed from it, after checking
// that h was issued with kind. The zero handle is a no-op.
func (s *store) remove(h handle.Handle, kind handle.Kind) (any, error) {
	if h == 0 {
		return nil, nil
	}
	if _, err := s.reg.Get(h, kind); err != nil {
		return nil, err
	}
	s.dropChildren(h)
	return s.reg.Remove(h)
}

func (s *store) dropChildren(parent handle.Handle) {
	s.mu.Lock()
	kids := s.children[parent]
	delete(s.children, parent)
	s.mu.Unlock()

	for _, h := range kids {
		s.dropChildren(h)
		_, _ = s.reg.Remove(h)
	}
}

func (s *store) clear() {
	s.mu.Lock()
	s.children = make(map[handle.Handle][]handle.Handle)
	s.mu.Unlock()
	s.reg.Clear()
}

func lookup[T any](h handle.Handle, kind handle.Kind) (T, error) {
	return handle.Lookup[T](handles.reg, h, kind)
}

// Live returns the number of live handles.
func Live() int {
	return handles.reg.Len()
}

var shared struct {
	mu  sync.Mutex
	rt  *runtime.Runtime
	cfg *runtime.Config
}

// defaultRuntime returns the shared runtime, creating it on first use.
func defaultRuntime() (*runtime.Runtime, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.rt != nil {
		return shared.rt, nil
	}
	rt, err := runtime.NewWithConfig(context.Background(), shared.cfg)
	if err != nil {
		return nil, err
	}
	shared.rt = rt
	return rt, nil
}

// Init sets the configuration of the shared runtime. It fails once the
// runtime exists; call Shutdown first to reconfigure.
func Init(cfg *runtime.Config) Result {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.rt != nil {
		return setLastError(errors.InvalidInput(errors.PhaseInstantiate, "runtime already initialized"))
	}
	shared.cfg = cfg
	if cfg != nil && cfg.Logger != nil {
		SetLogger(cfg.Logger)
	}
	return OK
}

// Shutdown destroys every handle and closes the shared runtime, which
// releases every module, instance and extern it created.
func Shutdown() Result {
	handles.clear()

	shared.mu.Lock()
	rt := shared.rt
	shared.rt = nil
	shared.mu.Unlock()

	if rt == nil {
		return OK
	}
	if err := rt.Close(context.Background()); err != nil {
		return setLastError(err)
	}
	return OK
}
