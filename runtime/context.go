package runtime

import (
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/errors"
)

// instances maps engine modules to the instances wrapping them, so a host
// function can find the instance whose code called it.
var instances = struct {
	byModule map[api.Module]*Instance
	mu       sync.RWMutex
}{byModule: make(map[api.Module]*Instance)}

func registerInstance(inst *Instance) {
	instances.mu.Lock()
	instances.byModule[inst.wazeroInstance.Module()] = inst
	instances.mu.Unlock()
}

func unregisterInstance(inst *Instance) {
	instances.mu.Lock()
	delete(instances.byModule, inst.wazeroInstance.Module())
	instances.mu.Unlock()
}

// unregisterRuntime forgets every instance created by r.
func unregisterRuntime(r *Runtime) {
	instances.mu.Lock()
	for mod, inst := range instances.byModule {
		if inst.runtime == r {
			delete(instances.byModule, mod)
		}
	}
	instances.mu.Unlock()
}

func instanceOf(caller api.Module) *Instance {
	if caller == nil {
		return nil
	}
	instances.mu.RLock()
	defer instances.mu.RUnlock()
	return instances.byModule[caller]
}

// Context is handed to host functions. It gives access to the calling
// instance's context data and memory.
type Context struct {
	inst   *Instance
	caller api.Module
}

// contextFrom returns the Context of the instance whose code made the call.
// A caller with no Instance yet, such as a start function running during
// instantiation, gets a Context with no instance and the caller's memory.
func contextFrom(caller api.Module) *Context {
	return &Context{inst: instanceOf(caller), caller: caller}
}

// Data returns the instance's context data, or nil.
func (c *Context) Data() any {
	if c.inst == nil {
		return nil
	}
	return c.inst.ContextData()
}

// Instance returns the calling instance, or nil during instantiation.
func (c *Context) Instance() *Instance {
	return c.inst
}

// Memory returns the caller's memory with index idx. Only index 0 exists.
func (c *Context) Memory(idx uint32) (*Memory, error) {
	if idx != 0 {
		return nil, errors.OutOfBounds(errors.PhaseMemory, []string{"memory"}, uint64(idx), 1)
	}
	if c.inst != nil {
		if m := c.inst.Memory(); m != nil {
			return m, nil
		}
		return nil, errors.NotFound(errors.PhaseMemory, "memory", "0")
	}
	if c.caller == nil || c.caller.Memory() == nil {
		return nil, errors.NotFound(errors.PhaseMemory, "memory", "0")
	}
	return &Memory{mem: c.caller.Memory(), owner: &owner{refs: 1}}, nil
}
