package wasm

import (
	"bytes"
	"errors"
)

// RewriteImportModules returns a copy of data with every import module name m
// replaced by rename(m) when rename reports true. data is returned unchanged
// when nothing is renamed.
func RewriteImportModules(data []byte, rename func(module string) (string, bool)) ([]byte, error) {
	if len(data) < len(header) || !bytes.Equal(data[:len(header)], header) {
		return nil, &ParseError{Err: errors.New("missing magic header")}
	}

	r := newReader(data)
	r.pos = len(header)

	var out writer
	out.raw(header)
	changed := false

	for r.remaining() > 0 {
		sectionStart := r.pos
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

		if id != sectionImport {
			out.raw(data[sectionStart:r.pos])
			continue
		}

		rewritten, did, err := rewriteImportSection(body, rename)
		if err != nil {
			return nil, &ParseError{Section: "import section", Position: sectionStart, Err: err}
		}
		changed = changed || did
		out.section(sectionImport, rewritten)
	}

	if !changed {
		return data, nil
	}
	return out.bytes(), nil
}

func rewriteImportSection(section []byte, rename func(string) (string, bool)) ([]byte, bool, error) {
	r := newReader(section)
	var w writer
	changed := false

	n, err := r.readU32()
	if err != nil {
		return nil, false, err
	}
	w.u32(n)

	for i := uint32(0); i < n; i++ {
		module, err := r.readName()
		if err != nil {
			return nil, false, err
		}
		if renamed, ok := rename(module); ok && renamed != module {
			module = renamed
			changed = true
		}
		w.name(module)

		// The import name and descriptor are copied verbatim.
		start := r.pos
		if _, err := r.readName(); err != nil {
			return nil, false, err
		}
		kind, err := r.readByte()
		if err != nil {
			return nil, false, err
		}
		switch ExternKind(kind) {
		case ExternFunc:
			_, err = r.readU32()
		case ExternTable:
			_, err = readTableType(r)
		case ExternMemory:
			_, err = readLimits(r)
		case ExternGlobal:
			_, err = readGlobalType(r)
		default:
			err = errors.New("unsupported import kind " + ExternKind(kind).String())
		}
		if err != nil {
			return nil, false, err
		}
		w.raw(section[start:r.pos])
	}

	return w.bytes(), changed, nil
}
