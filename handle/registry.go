package handle

import (
	"sync"

	"github.com/wippyai/wasm-embed/errors"
)

// Registry stores values under generation-checked handles.
type Registry struct {
	slots     []slot
	freeList  []uint32
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	live      int
}

type slot struct {
	value any
	kind  Kind
	gen   uint32
	valid bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		slots:    make([]slot, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Insert stores value under a fresh handle of the given kind.
func (r *Registry) Insert(kind Kind, value any) Handle {
	r.mu.Lock()
	var idx uint32
	if n := len(r.freeList); n > 0 {
		idx = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
	} else {
		r.slots = append(r.slots, slot{gen: 1})
		idx = uint32(len(r.slots) - 1)
	}
	s := &r.slots[idx]
	s.value = value
	s.kind = kind
	s.valid = true
	r.live++
	h := makeHandle(idx, s.gen)
	r.mu.Unlock()

	r.notify(Event{Type: EventCreated, Handle: h, Kind: kind, Value: value})
	return h
}

// lookup returns the slot for h. Caller holds r.mu.
func (r *Registry) lookup(h Handle) (*slot, error) {
	if h == 0 {
		return nil, errors.NilPointer(errors.PhaseHandle, "handle")
	}
	idx := h.Slot()
	if int(idx) >= len(r.slots) {
		return nil, errors.StaleHandle(uint64(h))
	}
	s := &r.slots[idx]
	if !s.valid || s.gen != h.Generation() {
		return nil, errors.StaleHandle(uint64(h))
	}
	return s, nil
}

// Get returns the value stored under h, checking that it was issued with kind.
func (r *Registry) Get(h Handle, kind Kind) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.lookup(h)
	if err != nil {
		return nil, err
	}
	if s.kind != kind {
		return nil, errors.WrongHandleKind(uint64(h), string(kind), string(s.kind))
	}
	return s.value, nil
}

// Kind returns the kind h was issued with.
func (r *Registry) Kind(h Handle) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.lookup(h)
	if err != nil {
		return "", false
	}
	return s.kind, true
}

// Valid reports whether h refers to a live entry.
func (r *Registry) Valid(h Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.lookup(h)
	return err == nil
}

// Remove invalidates h and returns its value. Values implementing Dropper are
// dropped. Removing the zero handle is a no-op.
func (r *Registry) Remove(h Handle) (any, error) {
	if h == 0 {
		return nil, nil
	}

	r.mu.Lock()
	s, err := r.lookup(h)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	value, kind := s.value, s.kind
	s.value = nil
	s.valid = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	r.live--
	r.freeList = append(r.freeList, h.Slot())
	r.mu.Unlock()

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	r.notify(Event{Type: EventDestroyed, Handle: h, Kind: kind, Value: value})
	return value, nil
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// Each calls fn for every live handle until fn returns false.
func (r *Registry) Each(fn func(h Handle, kind Kind, value any) bool) {
	r.mu.RLock()
	type item struct {
		value any
		kind  Kind
		h     Handle
	}
	items := make([]item, 0, r.live)
	for i := range r.slots {
		s := &r.slots[i]
		if s.valid {
			items = append(items, item{h: makeHandle(uint32(i), s.gen), kind: s.kind, value: s.value})
		}
	}
	r.mu.RUnlock()

	for _, it := range items {
		if !fn(it.h, it.kind, it.value) {
			return
		}
	}
}

// Clear removes every live handle.
func (r *Registry) Clear() {
	var handles []Handle
	r.Each(func(h Handle, _ Kind, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		_, _ = r.Remove(h)
	}
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnHandleEvent(e)
	}
}

// Lookup returns the value stored under h as a T.
func Lookup[T any](r *Registry, h Handle, kind Kind) (T, error) {
	var zero T
	v, err := r.Get(h, kind)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.PhaseHandle, errors.KindWrongHandleKind).
			Want(string(kind)).
			Detail("stored value has unexpected type %T", v).
			Build()
	}
	return t, nil
}
