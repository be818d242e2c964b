package linker

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-embed/errors"
	"github.com/wippyai/wasm-embed/internal/wasm"
	"github.com/wippyai/wasm-embed/value"
)

// Type aliases for extern descriptors.
type (
	Limits     = wasm.Limits
	TableType  = wasm.TableType
	GlobalType = wasm.GlobalType
)

// FuncDef defines a host function
type FuncDef struct {
	Name        string
	Handler     api.GoModuleFunc
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// Source locates an extern exported by an instantiated engine module.
type Source struct {
	Module string
	Name   string
}

// Entry is one resolved import. Func is set for functions; Source and the
// matching descriptor are set for memories, tables and globals.
type Entry struct {
	Func   *FuncDef
	Memory *Limits
	Table  *TableType
	Global *GlobalType
	Source Source
	Kind   value.Kind
}

// Extern is implemented by host objects that can satisfy an import.
type Extern interface {
	LinkEntry() Entry
}

// Import is one host-supplied import record.
type Import struct {
	Extern Extern
	Module []byte
	Name   []byte
}

// Namespace holds the entries of one import module name.
type Namespace struct {
	entries map[string]Entry
	name    string
	order   []string
}

func newNamespace(name string) *Namespace {
	return &Namespace{
		name:    name,
		entries: make(map[string]Entry),
	}
}

// Name returns the namespace name
func (ns *Namespace) Name() string {
	return ns.name
}

// Define adds an entry, resolving a collision with policy.
func (ns *Namespace) Define(name string, e Entry, policy Policy) error {
	if _, exists := ns.entries[name]; exists {
		switch policy {
		case PolicyKeepFirst:
			Logger().Debug("import shadowed, keeping first",
				zapNamespace(ns.name), zapName(name))
			return nil
		case PolicyReject:
			return errors.DuplicateImport(ns.name, name)
		default:
			Logger().Debug("import overwritten",
				zapNamespace(ns.name), zapName(name))
			ns.entries[name] = e
			return nil
		}
	}
	ns.entries[name] = e
	ns.order = append(ns.order, name)
	return nil
}

// Get returns the entry for name.
func (ns *Namespace) Get(name string) (Entry, bool) {
	e, ok := ns.entries[name]
	return e, ok
}

// Names returns entry names in first-definition order.
func (ns *Namespace) Names() []string {
	return append([]string(nil), ns.order...)
}

// Len returns the number of entries.
func (ns *Namespace) Len() int {
	return len(ns.order)
}

// ImportTable maps namespace names to namespaces.
type ImportTable struct {
	byName     map[string]*Namespace
	namespaces []*Namespace
	policy     Policy
}

// NewImportTable creates an empty table using policy for collisions.
func NewImportTable(policy Policy) *ImportTable {
	return &ImportTable{
		byName: make(map[string]*Namespace),
		policy: policy,
	}
}

// Policy returns the table's collision policy.
func (t *ImportTable) Policy() Policy {
	return t.policy
}

// Namespace returns the namespace called name, creating it if needed.
func (t *ImportTable) Namespace(name string) *Namespace {
	if ns, ok := t.byName[name]; ok {
		return ns
	}
	ns := newNamespace(name)
	t.byName[name] = ns
	t.namespaces = append(t.namespaces, ns)
	return ns
}

// Lookup returns an existing namespace.
func (t *ImportTable) Lookup(name string) (*Namespace, bool) {
	ns, ok := t.byName[name]
	return ns, ok
}

// Namespaces returns namespaces in first-seen order.
func (t *ImportTable) Namespaces() []*Namespace {
	return append([]*Namespace(nil), t.namespaces...)
}

// Len returns the number of namespaces.
func (t *ImportTable) Len() int {
	return len(t.namespaces)
}

// Define adds an entry to the named namespace.
func (t *ImportTable) Define(namespace, name string, e Entry) error {
	return t.Namespace(namespace).Define(name, e, t.policy)
}
