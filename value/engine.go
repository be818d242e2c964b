package value

import (
	"fmt"
	"strconv"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/errors"
)

// ToEngine encodes v as an engine stack slot.
func ToEngine(v Value) uint64 {
	switch v.typ {
	case TypeI32:
		return api.EncodeI32(v.I32())
	case TypeI64:
		return api.EncodeI64(v.I64())
	case TypeF32:
		return api.EncodeF32(v.F32())
	case TypeF64:
		return api.EncodeF64(v.F64())
	default:
		panic(fmt.Sprintf("value: invalid type tag %d", uint32(v.typ)))
	}
}

// FromEngine decodes an engine stack slot of type vt.
// Unsupported engine types panic with *UnsupportedTypeError.
func FromEngine(vt api.ValueType, raw uint64) Value {
	switch vt {
	case api.ValueTypeI32:
		return I32(int32(uint32(raw)))
	case api.ValueTypeI64:
		return I64(int64(raw))
	case api.ValueTypeF32:
		return F32(api.DecodeF32(raw))
	case api.ValueTypeF64:
		return F64(api.DecodeF64(raw))
	default:
		panic(&UnsupportedTypeError{Engine: vt})
	}
}

// Encode converts values to engine stack slots.
func Encode(vs []Value) []uint64 {
	out := make([]uint64, len(vs))
	for i, v := range vs {
		out[i] = ToEngine(v)
	}
	return out
}

// Decode converts engine stack slots to values. Only the first len(types)
// slots are read.
func Decode(types []api.ValueType, raw []uint64) []Value {
	out := make([]Value, len(types))
	for i, vt := range types {
		out[i] = FromEngine(vt, raw[i])
	}
	return out
}

// Check reports whether vs matches the types one to one.
func Check(types []Type, vs []Value) error {
	if len(types) != len(vs) {
		return errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Detail("expected %d values, got %d", len(types), len(vs)).
			Build()
	}
	for i, t := range types {
		if vs[i].typ != t {
			return errors.TypeMismatch(errors.PhaseMarshal, []string{strconv.Itoa(i)}, t.String(), vs[i].typ.String())
		}
	}
	return nil
}
