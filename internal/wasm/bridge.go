package wasm

import "github.com/tetratelabs/wazero/api"

// ProviderExport is the export name used by provider modules.
const ProviderExport = "extern"

// Bridge builds a module that imports externs from other engine modules and
// re-exports them under new names. It has no code of its own.
type Bridge struct {
	b     *Builder
	funcs uint32
	tabs  uint32
	mems  uint32
	globs uint32
}

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{b: NewBuilder()}
}

// Func re-exports function module.name as exportName.
func (br *Bridge) Func(exportName, module, name string, ft FuncType) {
	idx := br.b.ImportFunc(module, name, ft)
	br.b.Export(exportName, ExternFunc, idx)
	br.funcs++
}

// Table re-exports table module.name as exportName.
func (br *Bridge) Table(exportName, module, name string, tt TableType) {
	idx := br.b.ImportTable(module, name, TableType{ElemType: tt.ElemType, Limits: Limits{Min: 0}})
	br.b.Export(exportName, ExternTable, idx)
	br.tabs++
}

// Memory re-exports memory module.name as exportName. lim must be the
// source memory's declared limits.
func (br *Bridge) Memory(exportName, module, name string, lim Limits) {
	idx := br.b.ImportMemory(module, name, lim)
	br.b.Export(exportName, ExternMemory, idx)
	br.mems++
}

// Global re-exports global module.name as exportName.
func (br *Bridge) Global(exportName, module, name string, gt GlobalType) {
	idx := br.b.ImportGlobal(module, name, gt)
	br.b.Export(exportName, ExternGlobal, idx)
	br.globs++
}

// Memories returns the number of bridged memories.
func (br *Bridge) Memories() uint32 {
	return br.mems
}

// Empty reports whether nothing was bridged.
func (br *Bridge) Empty() bool {
	return br.funcs+br.tabs+br.mems+br.globs == 0
}

// Build encodes the bridge module.
func (br *Bridge) Build() []byte {
	return br.b.Build()
}

// MemoryProvider builds a module owning one memory, exported as ProviderExport.
func MemoryProvider(lim Limits) []byte {
	b := NewBuilder()
	b.Export(ProviderExport, ExternMemory, b.AddMemory(lim))
	return b.Build()
}

// TableProvider builds a module owning one table, exported as ProviderExport.
func TableProvider(tt TableType) []byte {
	b := NewBuilder()
	b.Export(ProviderExport, ExternTable, b.AddTable(tt))
	return b.Build()
}

// GlobalProvider builds a module owning one global initialized from bits,
// exported as ProviderExport.
func GlobalProvider(gt GlobalType, bits uint64) []byte {
	b := NewBuilder()
	b.Export(ProviderExport, ExternGlobal, b.AddGlobal(gt, bits))
	return b.Build()
}

// Exports of a table probe.
const (
	ProbeSize = "size"
	ProbeGrow = "grow"
)

// TableProbe builds a module importing table module.name and exporting
// size() -> i32 and grow(delta i32) -> i32, where grow fills new slots with
// null and returns the previous size or -1.
func TableProbe(module, name string, elem api.ValueType) []byte {
	b := NewBuilder()
	tbl := b.ImportTable(module, name, TableType{ElemType: elem})

	i32 := []api.ValueType{api.ValueTypeI32}
	size := b.AddFunc(FuncType{Results: i32}, nil, new(Code).TableSize(tbl).End())
	grow := b.AddFunc(FuncType{Params: i32, Results: i32}, nil,
		new(Code).RefNull(elemOrFuncref(elem)).LocalGet(0).TableGrow(tbl).End())

	b.Export(ProbeSize, ExternFunc, size)
	b.Export(ProbeGrow, ExternFunc, grow)
	return b.Build()
}

func elemOrFuncref(vt api.ValueType) api.ValueType {
	if vt == 0 {
		return ValueTypeFuncref
	}
	return vt
}
