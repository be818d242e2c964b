// Package value holds the tagged value and type representations that cross the
// embedding boundary and their conversion to and from the engine's raw encoding.
//
// The engine (wazero) passes every parameter and result as a uint64 stack slot.
// Value keeps the declared type next to those bits so a caller never has to
// reinterpret a slot by hand:
//
//	v := value.I32(-7)
//	raw := value.ToEngine(v)                      // 0x00000000fffffff9
//	back := value.FromEngine(api.ValueTypeI32, raw) // value.I32(-7)
//
// Float payloads travel as IEEE-754 bit patterns, so NaN payloads survive a
// round trip. Engine types outside {i32, i64, f32, f64} cannot be represented;
// converting one panics with *UnsupportedTypeError.
package value
