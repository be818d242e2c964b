package linker

import (
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/value"
)

// Resolve builds an import table from import records in one pass. It fails
// without returning a partial table on the first invalid record.
func Resolve(imports []Import, policy Policy) (*ImportTable, error) {
	table := NewImportTable(policy)

	for i, imp := range imports {
		path := []string{"imports", strconv.Itoa(i)}
		if !utf8.Valid(imp.Module) {
			return nil, errors.InvalidUTF8(errors.PhaseLinking, append(path, "module"), imp.Module)
		}
		if !utf8.Valid(imp.Name) {
			return nil, errors.InvalidUTF8(errors.PhaseLinking, append(path, "name"), imp.Name)
		}
		if imp.Extern == nil {
			return nil, errors.NilPointer(errors.PhaseLinking, "imports["+strconv.Itoa(i)+"].extern")
		}

		entry := imp.Extern.LinkEntry()
		if err := validEntry(entry); err != nil {
			return nil, errors.Wrap(errors.PhaseLinking, errors.KindInvalidInput, err,
				"import "+string(imp.Module)+"."+string(imp.Name))
		}
		if err := table.Define(string(imp.Module), string(imp.Name), entry); err != nil {
			return nil, err
		}
	}

	Logger().Debug("imports resolved",
		zapCount("records", len(imports)),
		zapCount("namespaces", table.Len()))
	return table, nil
}

func validEntry(e Entry) error {
	switch e.Kind {
	case value.KindFunction:
		if e.Func == nil || e.Func.Handler == nil {
			return errors.NilPointer(errors.PhaseLinking, "function")
		}
		return nil
	case value.KindMemory:
		if e.Memory == nil {
			return errors.NilPointer(errors.PhaseLinking, "memory")
		}
	case value.KindTable:
		if e.Table == nil {
			return errors.NilPointer(errors.PhaseLinking, "table")
		}
	case value.KindGlobal:
		if e.Global == nil {
			return errors.NilPointer(errors.PhaseLinking, "global")
		}
	default:
		return errors.Unsupported(errors.PhaseLinking, "extern kind "+e.Kind.String())
	}
	if e.Source.Module == "" {
		return errors.Unsupported(errors.PhaseLinking,
			e.Kind.String()+" is neither exported nor imported by its instance and cannot be shared")
	}
	return nil
}

func externKind(k value.Kind) wasm.ExternKind {
	switch k {
	case value.KindFunction:
		return wasm.ExternFunc
	case value.KindMemory:
		return wasm.ExternMemory
	case value.KindTable:
		return wasm.ExternTable
	default:
		return wasm.ExternGlobal
	}
}

// Check reports the imports of info that a namespace of the table should
// satisfy but cannot. Imports from modules absent from the table are left
// to the engine.
func (t *ImportTable) Check(info *wasm.Module) error {
	var missing []errors.MissingImport

	for _, imp := range info.Imports {
		ns, ok := t.byName[imp.Module]
		if !ok {
			continue
		}
		mi := errors.MissingImport{Namespace: imp.Module, Name: imp.Name, Kind: imp.Kind.String()}

		e, ok := ns.Get(imp.Name)
		if !ok {
			mi.Reason = "not provided"
			missing = append(missing, mi)
			continue
		}
		if got := externKind(e.Kind); got != imp.Kind {
			mi.Reason = "provided as " + got.String()
			missing = append(missing, mi)
			continue
		}

		switch imp.Kind {
		case wasm.ExternFunc:
			if int(imp.TypeIdx) >= len(info.Types) {
				continue
			}
			want := info.Types[imp.TypeIdx]
			got := wasm.FuncType{Params: e.Func.ParamTypes, Results: e.Func.ResultTypes}
			if !want.Equal(got) {
				mi.Reason = "signature mismatch"
				missing = append(missing, mi)
			}
		case wasm.ExternGlobal:
			if *imp.Global != *e.Global {
				mi.Reason = "global type mismatch"
				missing = append(missing, mi)
			}
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return errors.New(errors.PhaseLinking, errors.KindMissingImport).
		Detail("import table does not satisfy module").
		Cause(errors.NewMissingImportsError(missing)).
		Build()
}
