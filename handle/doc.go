// Package handle provides the opaque handle registry behind the C-style API.
//
// A Handle is a 64-bit token: the high 32 bits hold a generation counter and
// the low 32 bits a slot index (plus one, so the zero Handle is never issued).
// Removing an entry bumps the slot's generation, which turns every copy of the
// old handle into a stale handle instead of an alias for whatever value reuses
// the slot next:
//
//	reg := handle.New()
//	h := reg.Insert("module", mod)
//	reg.Remove(h)
//	_, err := reg.Get(h, "module") // stale_handle
//
// Lookups also check the kind the handle was issued with, so a handle to an
// instance cannot be used where a module is expected.
//
// Registry is safe for concurrent use. Observers are notified synchronously
// after the registry lock is released.
package handle
