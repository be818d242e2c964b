package wasm

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Builder assembles a core module. Imports of a kind must be declared before
// any definition of that kind so index spaces stay stable.
type Builder struct {
	types    []FuncType
	imports  []Import
	funcs    []funcDef
	tables   []TableType
	memories []Limits
	globals  []globalDef
	exports  []Export
	data     []dataSegment
	start    *uint32
	imported [4]uint32
	defined  [4]bool
}

type funcDef struct {
	locals  []api.ValueType
	body    []byte
	typeIdx uint32
}

type globalDef struct {
	init []byte
	typ  GlobalType
}

type dataSegment struct {
	data   []byte
	offset uint32
}

// NewBuilder creates an empty module builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddType adds a function type, reusing an identical existing entry.
func (b *Builder) AddType(ft FuncType) uint32 {
	for i, t := range b.types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	b.types = append(b.types, ft)
	return uint32(len(b.types) - 1)
}

func (b *Builder) addImport(imp Import) uint32 {
	if b.defined[imp.Kind] {
		panic(fmt.Sprintf("wasm: %s import %s.%s declared after a %s definition", imp.Kind, imp.Module, imp.Name, imp.Kind))
	}
	b.imports = append(b.imports, imp)
	idx := b.imported[imp.Kind]
	b.imported[imp.Kind]++
	return idx
}

// ImportFunc declares a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, ft FuncType) uint32 {
	return b.addImport(Import{Module: module, Name: name, Kind: ExternFunc, TypeIdx: b.AddType(ft)})
}

// ImportTable declares a table import and returns its table index.
func (b *Builder) ImportTable(module, name string, tt TableType) uint32 {
	return b.addImport(Import{Module: module, Name: name, Kind: ExternTable, Table: &tt})
}

// ImportMemory declares a memory import and returns its memory index.
func (b *Builder) ImportMemory(module, name string, lim Limits) uint32 {
	return b.addImport(Import{Module: module, Name: name, Kind: ExternMemory, Memory: &lim})
}

// ImportGlobal declares a global import and returns its global index.
func (b *Builder) ImportGlobal(module, name string, gt GlobalType) uint32 {
	return b.addImport(Import{Module: module, Name: name, Kind: ExternGlobal, Global: &gt})
}

// AddFunc defines a function. body holds the instructions including the
// final end opcode.
func (b *Builder) AddFunc(ft FuncType, locals []api.ValueType, body []byte) uint32 {
	b.defined[ExternFunc] = true
	b.funcs = append(b.funcs, funcDef{typeIdx: b.AddType(ft), locals: locals, body: body})
	return b.imported[ExternFunc] + uint32(len(b.funcs)-1)
}

// AddTable defines a table.
func (b *Builder) AddTable(tt TableType) uint32 {
	b.defined[ExternTable] = true
	b.tables = append(b.tables, tt)
	return b.imported[ExternTable] + uint32(len(b.tables)-1)
}

// AddMemory defines a memory.
func (b *Builder) AddMemory(lim Limits) uint32 {
	b.defined[ExternMemory] = true
	b.memories = append(b.memories, lim)
	return b.imported[ExternMemory] + uint32(len(b.memories)-1)
}

// AddGlobal defines a global initialized from the raw bit pattern of its
// value. Reference globals start as null.
func (b *Builder) AddGlobal(gt GlobalType, bits uint64) uint32 {
	b.defined[ExternGlobal] = true
	b.globals = append(b.globals, globalDef{typ: gt, init: constExpr(gt.ValType, bits)})
	return b.imported[ExternGlobal] + uint32(len(b.globals)-1)
}

// Export exports index idx of the given kind under name.
func (b *Builder) Export(name string, kind ExternKind, idx uint32) {
	b.exports = append(b.exports, Export{Name: name, Kind: kind, Index: idx})
}

// AddData adds an active data segment for memory 0.
func (b *Builder) AddData(offset uint32, data []byte) {
	b.data = append(b.data, dataSegment{offset: offset, data: data})
}

// SetStart sets the start function.
func (b *Builder) SetStart(funcIdx uint32) {
	b.start = &funcIdx
}

// Build encodes the module.
func (b *Builder) Build() []byte {
	var out writer
	out.raw(header)

	if len(b.types) > 0 {
		var s writer
		s.u32(uint32(len(b.types)))
		for _, t := range b.types {
			s.byte(0x60)
			s.u32(uint32(len(t.Params)))
			for _, p := range t.Params {
				s.byte(p)
			}
			s.u32(uint32(len(t.Results)))
			for _, r := range t.Results {
				s.byte(r)
			}
		}
		out.section(sectionType, s.bytes())
	}

	if len(b.imports) > 0 {
		var s writer
		s.u32(uint32(len(b.imports)))
		for _, imp := range b.imports {
			s.name(imp.Module)
			s.name(imp.Name)
			s.byte(byte(imp.Kind))
			switch imp.Kind {
			case ExternFunc:
				s.u32(imp.TypeIdx)
			case ExternTable:
				writeTableType(&s, *imp.Table)
			case ExternMemory:
				writeLimits(&s, *imp.Memory)
			case ExternGlobal:
				writeGlobalType(&s, *imp.Global)
			}
		}
		out.section(sectionImport, s.bytes())
	}

	if len(b.funcs) > 0 {
		var s writer
		s.u32(uint32(len(b.funcs)))
		for _, f := range b.funcs {
			s.u32(f.typeIdx)
		}
		out.section(sectionFunction, s.bytes())
	}

	if len(b.tables) > 0 {
		var s writer
		s.u32(uint32(len(b.tables)))
		for _, t := range b.tables {
			writeTableType(&s, t)
		}
		out.section(sectionTable, s.bytes())
	}

	if len(b.memories) > 0 {
		var s writer
		s.u32(uint32(len(b.memories)))
		for _, m := range b.memories {
			writeLimits(&s, m)
		}
		out.section(sectionMemory, s.bytes())
	}

	if len(b.globals) > 0 {
		var s writer
		s.u32(uint32(len(b.globals)))
		for _, g := range b.globals {
			writeGlobalType(&s, g.typ)
			s.raw(g.init)
		}
		out.section(sectionGlobal, s.bytes())
	}

	if len(b.exports) > 0 {
		var s writer
		s.u32(uint32(len(b.exports)))
		for _, e := range b.exports {
			s.name(e.Name)
			s.byte(byte(e.Kind))
			s.u32(e.Index)
		}
		out.section(sectionExport, s.bytes())
	}

	if b.start != nil {
		var s writer
		s.u32(*b.start)
		out.section(sectionStart, s.bytes())
	}

	if len(b.funcs) > 0 {
		var s writer
		s.u32(uint32(len(b.funcs)))
		for _, f := range b.funcs {
			var body writer
			writeLocals(&body, f.locals)
			body.raw(f.body)
			s.u32(uint32(len(body.bytes())))
			s.raw(body.bytes())
		}
		out.section(sectionCode, s.bytes())
	}

	if len(b.data) > 0 {
		var s writer
		s.u32(uint32(len(b.data)))
		for _, d := range b.data {
			s.byte(0x00)
			s.byte(0x41)
			s.s64(int64(int32(d.offset)))
			s.byte(0x0b)
			s.u32(uint32(len(d.data)))
			s.raw(d.data)
		}
		out.section(sectionData, s.bytes())
	}

	return out.bytes()
}

func writeLimits(w *writer, lim Limits) {
	var flags byte
	if lim.Max != nil {
		flags |= 0x01
	}
	if lim.Shared {
		flags |= 0x02
	}
	w.byte(flags)
	w.u32(lim.Min)
	if lim.Max != nil {
		w.u32(*lim.Max)
	}
}

func writeTableType(w *writer, tt TableType) {
	elem := tt.ElemType
	if elem == 0 {
		elem = ValueTypeFuncref
	}
	w.byte(elem)
	writeLimits(w, tt.Limits)
}

func writeGlobalType(w *writer, gt GlobalType) {
	w.byte(gt.ValType)
	if gt.Mutable {
		w.byte(0x01)
	} else {
		w.byte(0x00)
	}
}

// writeLocals groups consecutive locals of the same type.
func writeLocals(w *writer, locals []api.ValueType) {
	type group struct {
		n  uint32
		vt api.ValueType
	}
	var groups []group
	for _, vt := range locals {
		if n := len(groups); n > 0 && groups[n-1].vt == vt {
			groups[n-1].n++
			continue
		}
		groups = append(groups, group{n: 1, vt: vt})
	}
	w.u32(uint32(len(groups)))
	for _, g := range groups {
		w.u32(g.n)
		w.byte(g.vt)
	}
}

func constExpr(vt api.ValueType, bits uint64) []byte {
	var w writer
	switch vt {
	case api.ValueTypeI32:
		w.byte(0x41)
		w.s64(int64(int32(uint32(bits))))
	case api.ValueTypeI64:
		w.byte(0x42)
		w.s64(int64(bits))
	case api.ValueTypeF32:
		w.byte(0x43)
		w.u32LE(uint32(bits))
	case api.ValueTypeF64:
		w.byte(0x44)
		w.u64LE(bits)
	case api.ValueTypeExternref, ValueTypeFuncref:
		w.byte(0xd0)
		w.byte(vt)
	default:
		panic(fmt.Sprintf("wasm: no constant initializer for %s", api.ValueTypeName(vt)))
	}
	w.byte(0x0b)
	return w.bytes()
}
