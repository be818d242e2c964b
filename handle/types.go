package handle

// Handle is an opaque reference to a registry entry. Handle 0 is never issued.
type Handle uint64

// Slot returns the slot index encoded in h.
func (h Handle) Slot() uint32 {
	return uint32(h) - 1
}

// Generation returns the generation encoded in h.
func (h Handle) Generation() uint32 {
	return uint32(h >> 32)
}

func makeHandle(slot, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot+1))
}

// Kind names the type of object a handle refers to.
type Kind string

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDestroyed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Kind   Kind
	Handle Handle
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Dropper is implemented by values that release resources when their handle is removed.
type Dropper interface {
	Drop()
}
