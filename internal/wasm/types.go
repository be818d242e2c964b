package wasm

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Magic and version header of a core module.
var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Section IDs.
const (
	sectionCustom   byte = 0
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionTable    byte = 4
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionStart    byte = 8
	sectionElement  byte = 9
	sectionCode     byte = 10
	sectionData     byte = 11
)

// ExternKind is the binary kind byte of an import or export.
type ExternKind byte

const (
	ExternFunc   ExternKind = 0x00
	ExternTable  ExternKind = 0x01
	ExternMemory ExternKind = 0x02
	ExternGlobal ExternKind = 0x03
	ExternTag    ExternKind = 0x04
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	case ExternGlobal:
		return "global"
	case ExternTag:
		return "tag"
	default:
		return fmt.Sprintf("extern(%#x)", byte(k))
	}
}

// Value and reference types not covered by the api package.
const (
	ValueTypeV128    api.ValueType = 0x7b
	ValueTypeFuncref api.ValueType = 0x70
)

// FuncType is a function signature.
type FuncType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

// Equal reports whether two signatures match exactly.
func (f FuncType) Equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// Limits are the size bounds of a memory (pages) or table (elements).
type Limits struct {
	Max    *uint32
	Min    uint32
	Shared bool
}

// TableType describes a table.
type TableType struct {
	Limits   Limits
	ElemType api.ValueType
}

// GlobalType describes a global.
type GlobalType struct {
	ValType api.ValueType
	Mutable bool
}

// Import is one entry of the import section.
type Import struct {
	Global  *GlobalType
	Table   *TableType
	Memory  *Limits
	Module  string
	Name    string
	TypeIdx uint32
	Kind    ExternKind
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Index uint32
	Kind  ExternKind
}

// Module is the decoded metadata of a core module.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32
	Tables   []TableType
	Memories []Limits
	Globals  []GlobalType
	Exports  []Export
}

func (m *Module) importCount(kind ExternKind) uint32 {
	var n uint32
	for i := range m.Imports {
		if m.Imports[i].Kind == kind {
			n++
		}
	}
	return n
}

func (m *Module) nthImport(kind ExternKind, idx uint32) *Import {
	for i := range m.Imports {
		if m.Imports[i].Kind != kind {
			continue
		}
		if idx == 0 {
			return &m.Imports[i]
		}
		idx--
	}
	return nil
}

// FuncType returns the signature of function idx in the function index space.
func (m *Module) FuncType(idx uint32) (FuncType, bool) {
	var typeIdx uint32
	if imp := m.nthImport(ExternFunc, idx); imp != nil {
		typeIdx = imp.TypeIdx
	} else {
		local := idx - m.importCount(ExternFunc)
		if int(local) >= len(m.Funcs) {
			return FuncType{}, false
		}
		typeIdx = m.Funcs[local]
	}
	if int(typeIdx) >= len(m.Types) {
		return FuncType{}, false
	}
	return m.Types[typeIdx], true
}

// TableType returns the type of table idx in the table index space.
func (m *Module) TableType(idx uint32) (TableType, bool) {
	if imp := m.nthImport(ExternTable, idx); imp != nil {
		return *imp.Table, true
	}
	local := idx - m.importCount(ExternTable)
	if int(local) >= len(m.Tables) {
		return TableType{}, false
	}
	return m.Tables[local], true
}

// MemoryLimits returns the limits of memory idx in the memory index space.
func (m *Module) MemoryLimits(idx uint32) (Limits, bool) {
	if imp := m.nthImport(ExternMemory, idx); imp != nil {
		return *imp.Memory, true
	}
	local := idx - m.importCount(ExternMemory)
	if int(local) >= len(m.Memories) {
		return Limits{}, false
	}
	return m.Memories[local], true
}

// GlobalType returns the type of global idx in the global index space.
func (m *Module) GlobalType(idx uint32) (GlobalType, bool) {
	if imp := m.nthImport(ExternGlobal, idx); imp != nil {
		return *imp.Global, true
	}
	local := idx - m.importCount(ExternGlobal)
	if int(local) >= len(m.Globals) {
		return GlobalType{}, false
	}
	return m.Globals[local], true
}

// Export returns the export with the given name.
func (m *Module) Export(name string) (Export, bool) {
	for _, e := range m.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}
