package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-embed/errors"
)

// Value is a tagged numeric value. The zero Value is I32(0).
type Value struct {
	bits uint64
	typ  Type
}

// I32 creates an i32 value.
func I32(v int32) Value { return Value{typ: TypeI32, bits: uint64(uint32(v))} }

// I64 creates an i64 value.
func I64(v int64) Value { return Value{typ: TypeI64, bits: uint64(v)} }

// F32 creates an f32 value.
func F32(v float32) Value { return Value{typ: TypeF32, bits: uint64(math.Float32bits(v))} }

// F64 creates an f64 value.
func F64(v float64) Value { return Value{typ: TypeF64, bits: math.Float64bits(v)} }

// FromBits creates a value of type t from its raw bit pattern.
// 32-bit types keep only the low 32 bits.
func FromBits(t Type, bits uint64) Value {
	switch t {
	case TypeI32, TypeF32:
		bits &= 0xffffffff
	case TypeI64, TypeF64:
	default:
		panic(fmt.Sprintf("value: invalid type tag %d", uint32(t)))
	}
	return Value{typ: t, bits: bits}
}

// Type returns the value's tag.
func (v Value) Type() Type { return v.typ }

// Bits returns the raw bit pattern.
func (v Value) Bits() uint64 { return v.bits }

// I32 returns the payload of an i32 value.
func (v Value) I32() int32 {
	v.expect(TypeI32)
	return int32(uint32(v.bits))
}

// I64 returns the payload of an i64 value.
func (v Value) I64() int64 {
	v.expect(TypeI64)
	return int64(v.bits)
}

// F32 returns the payload of an f32 value.
func (v Value) F32() float32 {
	v.expect(TypeF32)
	return math.Float32frombits(uint32(v.bits))
}

// F64 returns the payload of an f64 value.
func (v Value) F64() float64 {
	v.expect(TypeF64)
	return math.Float64frombits(v.bits)
}

func (v Value) expect(t Type) {
	if v.typ != t {
		panic(fmt.Sprintf("value: %s accessor used on %s value", t, v.typ))
	}
}

// String formats the value as "type:payload".
func (v Value) String() string {
	switch v.typ {
	case TypeI32:
		return "i32:" + strconv.FormatInt(int64(v.I32()), 10)
	case TypeI64:
		return "i64:" + strconv.FormatInt(v.I64(), 10)
	case TypeF32:
		return "f32:" + strconv.FormatFloat(float64(v.F32()), 'g', -1, 32)
	case TypeF64:
		return "f64:" + strconv.FormatFloat(v.F64(), 'g', -1, 64)
	default:
		return fmt.Sprintf("%s:%#x", v.typ, v.bits)
	}
}

// ParseValue parses s as a value of type t. Integers accept any base prefix
// strconv understands; i32 also accepts the unsigned range.
func ParseValue(t Type, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch t {
	case TypeI32:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil || n < math.MinInt32 || n > math.MaxUint32 {
			return Value{}, parseError(t, s, err)
		}
		return FromBits(TypeI32, uint64(n)), nil
	case TypeI64:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			u, uerr := strconv.ParseUint(s, 0, 64)
			if uerr != nil {
				return Value{}, parseError(t, s, err)
			}
			return FromBits(TypeI64, u), nil
		}
		return I64(n), nil
	case TypeF32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, parseError(t, s, err)
		}
		return F32(float32(f)), nil
	case TypeF64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, parseError(t, s, err)
		}
		return F64(f), nil
	default:
		return Value{}, errors.Unsupported(errors.PhaseParse, t.String())
	}
}

func parseError(t Type, s string, cause error) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidInput).
		Want(t.String()).
		Value(s).
		Detail("cannot parse %q", s).
		Cause(cause).
		Build()
}
