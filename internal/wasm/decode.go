package wasm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Decode reads module metadata. Sections other than type, import, function,
// table, memory, global and export are skipped without validation; full
// validation is the engine's job.
func Decode(data []byte) (*Module, error) {
	if len(data) < len(header) || !bytes.Equal(data[:4], header[:4]) {
		return nil, &ParseError{Err: errors.New("missing magic header")}
	}
	if !bytes.Equal(data[4:8], header[4:8]) {
		return nil, &ParseError{Position: 4, Err: fmt.Errorf("unsupported version %x", data[4:8])}
	}

	m := &Module{}
	r := newReader(data)
	r.pos = len(header)

	for r.remaining() > 0 {
		id, err := r.readByte()
		if err != nil {
			return nil, err
		}
		size, err := r.readU32()
		if err != nil {
			return nil, r.sectionError("section header", err)
		}
		body, err := r.readBytes(int(size))
		if err != nil {
			return nil, r.sectionError("section body", err)
		}
		sr := newReader(body)

		switch id {
		case sectionType:
			err = decodeTypes(sr, m)
		case sectionImport:
			err = decodeImports(sr, m)
		case sectionFunction:
			err = decodeFuncs(sr, m)
		case sectionTable:
			err = decodeTables(sr, m)
		case sectionMemory:
			err = decodeMemories(sr, m)
		case sectionGlobal:
			err = decodeGlobals(sr, m)
		case sectionExport:
			err = decodeExports(sr, m)
		}
		if err != nil {
			return nil, &ParseError{Section: sectionName(id), Position: r.pos - int(size) + sr.pos, Err: err}
		}
	}

	return m, nil
}

func sectionName(id byte) string {
	switch id {
	case sectionType:
		return "type section"
	case sectionImport:
		return "import section"
	case sectionFunction:
		return "function section"
	case sectionTable:
		return "table section"
	case sectionMemory:
		return "memory section"
	case sectionGlobal:
		return "global section"
	case sectionExport:
		return "export section"
	default:
		return fmt.Sprintf("section %d", id)
	}
}

func decodeTypes(r *reader, m *Module) error {
	n, err := r.readU32()
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, n)
	for i := uint32(0); i < n; i++ {
		form, err := r.readByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("type %d: unsupported type form %#x", i, form)
		}
		params, err := readValTypes(r)
		if err != nil {
			return err
		}
		results, err := readValTypes(r)
		if err != nil {
			return err
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func readValTypes(r *reader) ([]api.ValueType, error) {
	n, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]api.ValueType, n)
	for i := range out {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func decodeImports(r *reader, m *Module) error {
	n, err := r.readU32()
	if err != nil {
		return err
	}
	m.Imports = make([]Import, 0, n)
	for i := uint32(0); i < n; i++ {
		var imp Import
		if imp.Module, err = r.readName(); err != nil {
			return err
		}
		if imp.Name, err = r.readName(); err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}
		imp.Kind = ExternKind(kind)

		switch imp.Kind {
		case ExternFunc:
			if imp.TypeIdx, err = r.readU32(); err != nil {
				return err
			}
		case ExternTable:
			tt, err := readTableType(r)
			if err != nil {
				return err
			}
			imp.Table = &tt
		case ExternMemory:
			lim, err := readLimits(r)
			if err != nil {
				return err
			}
			imp.Memory = &lim
		case ExternGlobal:
			gt, err := readGlobalType(r)
			if err != nil {
				return err
			}
			imp.Global = &gt
		default:
			return fmt.Errorf("import %s.%s: unsupported kind %s", imp.Module, imp.Name, imp.Kind)
		}
		m.Imports = append(m.Imports, imp)
	}
	return nil
}

func decodeFuncs(r *reader, m *Module) error {
	n, err := r.readU32()
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, n)
	for i := range m.Funcs {
		if m.Funcs[i], err = r.readU32(); err != nil {
			return err
		}
	}
	return nil
}

func decodeTables(r *reader, m *Module) error {
	n, err := r.readU32()
	if err != nil {
		return err
	}
	m.Tables = make([]TableType, 0, n)
	for i := uint32(0); i < n; i++ {
		tt, err := readTableType(r)
		if err != nil {
			return err
		}
		m.Tables = append(m.Tables, tt)
	}
	return nil
}

func decodeMemories(r *reader, m *Module) error {
	n, err := r.readU32()
	if err != nil {
		return err
	}
	m.Memories = make([]Limits, 0, n)
	for i := uint32(0); i < n; i++ {
		lim, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Memories = append(m.Memories, lim)
	}
	return nil
}

func decodeGlobals(r *reader, m *Module) error {
	n, err := r.readU32()
	if err != nil {
		return err
	}
	m.Globals = make([]GlobalType, 0, n)
	for i := uint32(0); i < n; i++ {
		gt, err := readGlobalType(r)
		if err != nil {
			return err
		}
		if err := skipConstExpr(r); err != nil {
			return fmt.Errorf("global %d init: %w", i, err)
		}
		m.Globals = append(m.Globals, gt)
	}
	return nil
}

func decodeExports(r *reader, m *Module) error {
	n, err := r.readU32()
	if err != nil {
		return err
	}
	m.Exports = make([]Export, 0, n)
	for i := uint32(0); i < n; i++ {
		var e Export
		if e.Name, err = r.readName(); err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}
		e.Kind = ExternKind(kind)
		if e.Index, err = r.readU32(); err != nil {
			return err
		}
		m.Exports = append(m.Exports, e)
	}
	return nil
}

func readLimits(r *reader) (Limits, error) {
	flags, err := r.readByte()
	if err != nil {
		return Limits{}, err
	}
	if flags&^0x03 != 0 {
		return Limits{}, fmt.Errorf("unsupported limits flags %#x", flags)
	}
	var lim Limits
	if lim.Min, err = r.readU32(); err != nil {
		return Limits{}, err
	}
	if flags&0x01 != 0 {
		max, err := r.readU32()
		if err != nil {
			return Limits{}, err
		}
		lim.Max = &max
	}
	lim.Shared = flags&0x02 != 0
	return lim, nil
}

func readTableType(r *reader) (TableType, error) {
	elem, err := r.readByte()
	if err != nil {
		return TableType{}, err
	}
	lim, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: elem, Limits: lim}, nil
}

func readGlobalType(r *reader) (GlobalType, error) {
	vt, err := r.readByte()
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.readByte()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, fmt.Errorf("invalid mutability %#x", mut)
	}
	return GlobalType{ValType: vt, Mutable: mut == 1}, nil
}

// skipConstExpr consumes a constant expression up to and including its end
// opcode, decoding immediates so an 0x0b inside one is not mistaken for end.
func skipConstExpr(r *reader) error {
	for {
		op, err := r.readByte()
		if err != nil {
			return err
		}
		switch op {
		case 0x0b: // end
			return nil
		case 0x41: // i32.const
			_, err = r.readS32()
		case 0x42: // i64.const
			_, err = r.readS64()
		case 0x43: // f32.const
			_, err = r.readBytes(4)
		case 0x44: // f64.const
			_, err = r.readBytes(8)
		case 0x23, 0xd2: // global.get, ref.func
			_, err = r.readU32()
		case 0xd0: // ref.null
			_, err = r.readByte()
		case 0x6a, 0x6b, 0x6c, 0x7c, 0x7d, 0x7e: // extended const arithmetic
		case 0xfd: // v128.const
			var sub uint32
			if sub, err = r.readU32(); err == nil {
				if sub != 0x0c {
					return fmt.Errorf("unsupported vector opcode %#x in constant expression", sub)
				}
				_, err = r.readBytes(16)
			}
		default:
			return fmt.Errorf("unsupported opcode %#x in constant expression", op)
		}
		if err != nil {
			return err
		}
	}
}
