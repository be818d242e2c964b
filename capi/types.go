package capi

import (
	"math"

	"github.com/wippyai/wasm-embed/handle"
	"github.com/wippyai/wasm-embed/runtime"
	"github.com/wippyai/wasm-embed/value"
)

// Value is a tagged value. Bits holds the raw pattern: 32-bit types use
// the low half, floats their IEEE-754 bits.
type Value struct {
	Tag  value.Type
	Bits uint64
}

func I32(v int32) Value   { return Value{Tag: value.TypeI32, Bits: uint64(uint32(v))} }
func I64(v int64) Value   { return Value{Tag: value.TypeI64, Bits: uint64(v)} }
func F32(v float32) Value { return Value{Tag: value.TypeF32, Bits: uint64(math.Float32bits(v))} }
func F64(v float64) Value { return Value{Tag: value.TypeF64, Bits: math.Float64bits(v)} }

// Value converts v to a runtime value. An unknown tag panics.
func (v Value) Value() value.Value {
	return value.FromBits(v.Tag, v.Bits)
}

func fromValue(v value.Value) Value {
	return Value{Tag: v.Type(), Bits: v.Bits()}
}

func toValues(vs []Value) []value.Value {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[i] = v.Value()
	}
	return out
}

// ByteArray is a borrowed byte string. It aliases memory owned by the
// object it was read from.
type ByteArray []byte

func (b ByteArray) String() string { return string(b) }

// LimitOption is an optional limit.
type LimitOption struct {
	HasSome bool
	Some    uint32
}

// Limits bounds a memory in pages or a table in elements.
type Limits struct {
	Min uint32
	Max LimitOption
}

func (l Limits) toRuntime() runtime.Limits {
	lim := runtime.Limits{Min: l.Min}
	if l.Max.HasSome {
		m := l.Max.Some
		lim.Max = &m
	}
	return lim
}

// Import is an import record. Value is a handle of the kind named by Tag:
// an import function, memory, global or table.
type Import struct {
	ModuleName ByteArray
	ImportName ByteArray
	Tag        value.Kind
	Value      handle.Handle
}

// GlobalDescriptor describes a global.
type GlobalDescriptor struct {
	Kind    value.Type
	Mutable bool
}
