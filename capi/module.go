package capi

import (
	"context"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/handle"
	"github.com/wippyai/wasm-embed/linker"
	"github.com/wippyai/wasm-embed/runtime"
	"github.com/wippyai/wasm-embed/value"
)

// Compile compiles a binary module. The caller owns the returned handle
// and releases it with ModuleDestroy.
func Compile(wasm []byte) (handle.Handle, Result) {
	rt, err := defaultRuntime()
	if err != nil {
		return 0, setLastError(err)
	}
	mod, err := rt.Compile(context.Background(), wasm)
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.insert(kindModule, mod), OK
}

// Validate reports whether wasm is a valid module.
func Validate(wasm []byte) bool {
	rt, err := defaultRuntime()
	if err != nil {
		setLastError(err)
		return false
	}
	return rt.Validate(context.Background(), wasm) == nil
}

// ModuleDestroy releases a compiled module. Instances created from it
// stay valid.
func ModuleDestroy(mod handle.Handle) Result {
	v, err := handles.remove(mod, kindModule)
	if err != nil {
		return setLastError(err)
	}
	if m, ok := v.(*runtime.Module); ok {
		if err := m.Close(context.Background()); err != nil {
			return setLastError(err)
		}
	}
	return OK
}

// Instantiate compiles wasm and instantiates it against imports. The
// caller owns the returned instance and releases it with InstanceDestroy.
func Instantiate(wasm []byte, imports []Import) (handle.Handle, Result) {
	if wasm == nil {
		return 0, setLastError(errors.NilPointer(errors.PhaseInstantiate, "wasm"))
	}
	rt, err := defaultRuntime()
	if err != nil {
		return 0, setLastError(err)
	}
	resolved, err := externs(imports)
	if err != nil {
		return 0, setLastError(err)
	}
	inst, err := rt.Instantiate(context.Background(), wasm, resolved)
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.insert(kindInstance, inst), OK
}

// ModuleInstantiate instantiates a compiled module against imports.
func ModuleInstantiate(mod handle.Handle, imports []Import) (handle.Handle, Result) {
	m, err := lookup[*runtime.Module](mod, kindModule)
	if err != nil {
		return 0, setLastError(err)
	}
	resolved, err := externs(imports)
	if err != nil {
		return 0, setLastError(err)
	}
	inst, err := m.Instantiate(context.Background(), resolved)
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.insert(kindInstance, inst), OK
}

// externs turns import records into runtime imports by resolving each
// record's handle against its tag.
func externs(imports []Import) ([]runtime.Import, error) {
	out := make([]runtime.Import, 0, len(imports))
	for i, imp := range imports {
		ext, err := extern(imp)
		if err != nil {
			return nil, errors.New(errors.PhaseLinking, errors.KindInvalidInput).
				Path("imports", imp.ModuleName.String(), imp.ImportName.String()).
				Value(i).
				Cause(err).
				Detail("unusable import value").
				Build()
		}
		out = append(out, runtime.Import{Module: imp.ModuleName, Name: imp.ImportName, Extern: ext})
	}
	return out, nil
}

func extern(imp Import) (linker.Extern, error) {
	switch imp.Tag {
	case value.KindFunction:
		if k, ok := handles.reg.Kind(imp.Value); ok && k == kindExportFunc {
			return lookup[*runtime.ExportedFunction](imp.Value, kindExportFunc)
		}
		return lookup[*runtime.Function](imp.Value, kindImportFunc)
	case value.KindMemory:
		return lookup[*runtime.Memory](imp.Value, kindMemory)
	case value.KindGlobal:
		return lookup[*runtime.Global](imp.Value, kindGlobal)
	case value.KindTable:
		return lookup[*runtime.Table](imp.Value, kindTable)
	default:
		return nil, errors.Unsupported(errors.PhaseLinking, "import tag "+imp.Tag.String())
	}
}

// ExportDescriptors lists a module's exports in declaration order. The
// caller releases the collection with ExportDescriptorsDestroy.
func ExportDescriptors(mod handle.Handle) (handle.Handle, Result) {
	m, err := lookup[*runtime.Module](mod, kindModule)
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.insert(kindExportDescriptors, m.ExportDescriptors()), OK
}

// ExportDescriptorsDestroy releases the collection and every descriptor
// handle read from it.
func ExportDescriptorsDestroy(descs handle.Handle) Result {
	if _, err := handles.remove(descs, kindExportDescriptors); err != nil {
		return setLastError(err)
	}
	return OK
}

// ExportDescriptorsLen returns the number of descriptors, or -1 for a bad
// handle.
func ExportDescriptorsLen(descs handle.Handle) int {
	ds, err := lookup[[]runtime.ExportDescriptor](descs, kindExportDescriptors)
	if err != nil {
		setLastError(err)
		return -1
	}
	return len(ds)
}

// ExportDescriptorsGet returns a borrowed handle to descriptor idx. idx
// must be below ExportDescriptorsLen.
func ExportDescriptorsGet(descs handle.Handle, idx int) handle.Handle {
	ds, err := lookup[[]runtime.ExportDescriptor](descs, kindExportDescriptors)
	if err != nil {
		setLastError(err)
		return 0
	}
	return handles.borrow(descs, kindExportDescriptor, ds[idx])
}

// ExportDescriptorName returns the export name, or nil for a bad handle.
func ExportDescriptorName(desc handle.Handle) ByteArray {
	d, err := lookup[runtime.ExportDescriptor](desc, kindExportDescriptor)
	if err != nil {
		setLastError(err)
		return nil
	}
	return ByteArray(d.Name)
}

func ExportDescriptorKind(desc handle.Handle) (value.Kind, Result) {
	d, err := lookup[runtime.ExportDescriptor](desc, kindExportDescriptor)
	if err != nil {
		return 0, setLastError(err)
	}
	return d.Kind, OK
}

// ImportDescriptors lists a module's imports: functions, then tables, then
// globals, then memories. The caller releases the collection with
// ImportDescriptorsDestroy.
func ImportDescriptors(mod handle.Handle) (handle.Handle, Result) {
	m, err := lookup[*runtime.Module](mod, kindModule)
	if err != nil {
		return 0, setLastError(err)
	}
	return handles.insert(kindImportDescriptors, m.ImportDescriptors()), OK
}

func ImportDescriptorsDestroy(descs handle.Handle) Result {
	if _, err := handles.remove(descs, kindImportDescriptors); err != nil {
		return setLastError(err)
	}
	return OK
}

func ImportDescriptorsLen(descs handle.Handle) int {
	ds, err := lookup[[]runtime.ImportDescriptor](descs, kindImportDescriptors)
	if err != nil {
		setLastError(err)
		return -1
	}
	return len(ds)
}

func ImportDescriptorsGet(descs handle.Handle, idx int) handle.Handle {
	ds, err := lookup[[]runtime.ImportDescriptor](descs, kindImportDescriptors)
	if err != nil {
		setLastError(err)
		return 0
	}
	return handles.borrow(descs, kindImportDescriptor, ds[idx])
}

func ImportDescriptorName(desc handle.Handle) ByteArray {
	d, err := lookup[runtime.ImportDescriptor](desc, kindImportDescriptor)
	if err != nil {
		setLastError(err)
		return nil
	}
	return ByteArray(d.Name)
}

func ImportDescriptorModuleName(desc handle.Handle) ByteArray {
	d, err := lookup[runtime.ImportDescriptor](desc, kindImportDescriptor)
	if err != nil {
		setLastError(err)
		return nil
	}
	return ByteArray(d.Module)
}

func ImportDescriptorKind(desc handle.Handle) (value.Kind, Result) {
	d, err := lookup[runtime.ImportDescriptor](desc, kindImportDescriptor)
	if err != nil {
		return 0, setLastError(err)
	}
	return d.Kind, OK
}
