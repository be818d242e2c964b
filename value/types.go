package value

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Type tags a boundary value. The numeric values are part of the C-compatible layout.
type Type uint32

const (
	TypeI32 Type = iota
	TypeI64
	TypeF32
	TypeF64
)

// String returns the wasm text name of the type.
func (t Type) String() string {
	switch t {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// Valid reports whether t is one of the four numeric types.
func (t Type) Valid() bool {
	return t <= TypeF64
}

// Engine returns the engine value type for t. Panics on an invalid tag.
func (t Type) Engine() api.ValueType {
	switch t {
	case TypeI32:
		return api.ValueTypeI32
	case TypeI64:
		return api.ValueTypeI64
	case TypeF32:
		return api.ValueTypeF32
	case TypeF64:
		return api.ValueTypeF64
	default:
		panic(fmt.Sprintf("value: invalid type tag %d", uint32(t)))
	}
}

// UnsupportedTypeError is the panic value raised when an engine type has no
// boundary representation.
type UnsupportedTypeError struct {
	Engine api.ValueType
}

func (e *UnsupportedTypeError) Error() string {
	return "value: unsupported engine value type " + api.ValueTypeName(e.Engine)
}

// TypeFromEngine maps an engine value type to a boundary type.
// Reference and vector types panic with *UnsupportedTypeError.
func TypeFromEngine(vt api.ValueType) Type {
	switch vt {
	case api.ValueTypeI32:
		return TypeI32
	case api.ValueTypeI64:
		return TypeI64
	case api.ValueTypeF32:
		return TypeF32
	case api.ValueTypeF64:
		return TypeF64
	default:
		panic(&UnsupportedTypeError{Engine: vt})
	}
}

// Supported reports whether every type in vts has a boundary representation.
func Supported(vts ...api.ValueType) bool {
	for _, vt := range vts {
		switch vt {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return false
		}
	}
	return true
}

// TypesFromEngine converts a whole signature list.
func TypesFromEngine(vts []api.ValueType) []Type {
	out := make([]Type, len(vts))
	for i, vt := range vts {
		out[i] = TypeFromEngine(vt)
	}
	return out
}

// TypesToEngine converts boundary types to engine value types.
func TypesToEngine(ts []Type) []api.ValueType {
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		out[i] = t.Engine()
	}
	return out
}

// CopyTypes writes the boundary tag of each engine type into dst.
// dst must hold at least len(src) entries; a shorter buffer panics.
func CopyTypes(dst []Type, src []api.ValueType) {
	for i, vt := range src {
		dst[i] = TypeFromEngine(vt)
	}
}

// Kind tags an importable or exportable extern.
// The numeric values are part of the C-compatible layout.
type Kind uint32

const (
	KindFunction Kind = iota
	KindGlobal
	KindMemory
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindGlobal:
		return "global"
	case KindMemory:
		return "memory"
	case KindTable:
		return "table"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}
