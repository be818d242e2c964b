package handle

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-embed/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnHandleEvent(e Event) {
	o.events = append(o.events, e)
}

type dropCounter struct {
	drops int
}

func (d *dropCounter) Drop() { d.drops++ }

func TestRegistry_Basic(t *testing.T) {
	reg := New()

	h := reg.Insert("module", "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, err := reg.Get(h, "module")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, err := reg.Get(h, "instance"); !errors.HasKind(err, errors.KindWrongHandleKind) {
		t.Fatalf("Get with wrong kind: got %v", err)
	}

	if k, ok := reg.Kind(h); !ok || k != "module" {
		t.Fatalf("Kind = %q, %v", k, ok)
	}

	val, err = reg.Remove(h)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}
	if reg.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestRegistry_StaleAfterReuse(t *testing.T) {
	reg := New()

	h1 := reg.Insert("memory", 1)
	if _, err := reg.Remove(h1); err != nil {
		t.Fatal(err)
	}
	h2 := reg.Insert("memory", 2)

	if h1.Slot() != h2.Slot() {
		t.Fatalf("expected slot reuse, got %d and %d", h1.Slot(), h2.Slot())
	}
	if h1 == h2 {
		t.Fatal("reused slot must carry a new generation")
	}
	if _, err := reg.Get(h1, "memory"); !errors.HasKind(err, errors.KindStaleHandle) {
		t.Fatalf("stale Get: got %v", err)
	}
	if _, err := reg.Remove(h1); !errors.HasKind(err, errors.KindStaleHandle) {
		t.Fatalf("double Remove: got %v", err)
	}
	if v, err := reg.Get(h2, "memory"); err != nil || v != 2 {
		t.Fatalf("Get(h2) = %v, %v", v, err)
	}
}

func TestRegistry_ZeroHandle(t *testing.T) {
	reg := New()

	v, err := reg.Remove(0)
	if v != nil || err != nil {
		t.Fatalf("Remove(0) = %v, %v; want no-op", v, err)
	}
	if _, err := reg.Get(0, "module"); !errors.HasKind(err, errors.KindNilPointer) {
		t.Fatalf("Get(0): got %v", err)
	}
	if reg.Valid(0) {
		t.Fatal("zero handle must not be valid")
	}
}

func TestRegistry_UnknownHandle(t *testing.T) {
	reg := New()
	if _, err := reg.Get(makeHandle(40, 1), "module"); !errors.HasKind(err, errors.KindStaleHandle) {
		t.Fatalf("got %v", err)
	}
}

func TestRegistry_Observer(t *testing.T) {
	reg := New()
	obs := &testObserver{}
	reg.Subscribe(obs)

	h := reg.Insert("global", "g")
	_, _ = reg.Remove(h)

	want := []Event{
		{Type: EventCreated, Handle: h, Kind: "global", Value: "g"},
		{Type: EventDestroyed, Handle: h, Kind: "global", Value: "g"},
	}
	if diff := cmp.Diff(want, obs.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	reg.Unsubscribe(obs)
	reg.Insert("global", "g2")
	if len(obs.events) != 2 {
		t.Errorf("unsubscribed observer received %d events", len(obs.events))
	}
}

func TestRegistry_Dropper(t *testing.T) {
	reg := New()
	d := &dropCounter{}
	h := reg.Insert("instance", d)

	_, _ = reg.Remove(h)
	_, _ = reg.Remove(h)
	if d.drops != 1 {
		t.Fatalf("drops = %d, want 1", d.drops)
	}
}

func TestRegistry_EachAndClear(t *testing.T) {
	reg := New()
	d := &dropCounter{}
	reg.Insert("a", 1)
	reg.Insert("b", d)
	reg.Insert("a", 3)

	count := 0
	reg.Each(func(h Handle, kind Kind, value any) bool {
		count++
		return true
	})
	if count != 3 {
		t.Fatalf("Each visited %d, want 3", count)
	}

	reg.Clear()
	if reg.Len() != 0 {
		t.Fatalf("Len after Clear = %d", reg.Len())
	}
	if d.drops != 1 {
		t.Fatalf("Clear should drop values, drops = %d", d.drops)
	}
}

func TestLookup(t *testing.T) {
	reg := New()
	h := reg.Insert("name", "hello")

	s, err := Lookup[string](reg, h, "name")
	if err != nil || s != "hello" {
		t.Fatalf("Lookup = %q, %v", s, err)
	}
	if _, err := Lookup[int](reg, h, "name"); !errors.HasKind(err, errors.KindWrongHandleKind) {
		t.Fatalf("Lookup with wrong type: got %v", err)
	}
}
