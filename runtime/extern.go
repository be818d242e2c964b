package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/linker"
)

type closer interface {
	Close(ctx context.Context) error
}

// owner counts the references to a host-owned extern. The provider module
// and anything attached to it close when the last reference is released.
// Externs exported by an instance have an owner with no module: the
// instance keeps them alive.
type owner struct {
	mod      api.Module
	attached []closer
	mu       sync.Mutex
	refs     int
}

func newOwner(mod api.Module) *owner {
	return &owner{mod: mod, refs: 1}
}

func (o *owner) retain() *owner {
	o.mu.Lock()
	o.refs++
	o.mu.Unlock()
	return o
}

func (o *owner) attach(c closer) {
	o.mu.Lock()
	o.attached = append(o.attached, c)
	o.mu.Unlock()
}

func (o *owner) release(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.refs == 0 {
		return nil
	}
	o.refs--
	if o.refs > 0 {
		return nil
	}

	var first error
	for i := len(o.attached) - 1; i >= 0; i-- {
		if err := o.attached[i].Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	o.attached = nil
	if o.mod != nil {
		if err := o.mod.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func providerSource(mod api.Module, export string) linker.Source {
	return linker.Source{Module: mod.Name(), Name: export}
}
