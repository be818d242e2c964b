package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile     Phase = "compile"     // module compilation and validation
	PhaseLinking     Phase = "linking"     // import resolution
	PhaseInstantiate Phase = "instantiate" // instance creation
	PhaseCall        Phase = "call"        // export invocation
	PhaseMarshal     Phase = "marshal"     // value conversion
	PhaseMemory      Phase = "memory"      // linear memory access
	PhaseHandle      Phase = "handle"      // handle registry
	PhaseHost        Phase = "host"        // host function construction
	PhaseParse       Phase = "parse"       // binary and signature parsing
)

// Kind categorizes the error
type Kind string

const (
	KindNilPointer      Kind = "nil_pointer"
	KindInvalidUTF8     Kind = "invalid_utf8"
	KindInstantiation   Kind = "instantiation"
	KindCall            Kind = "call"
	KindWrongExportKind Kind = "wrong_export_kind"
	KindStaleHandle     Kind = "stale_handle"
	KindWrongHandleKind Kind = "wrong_handle_kind"
	KindDuplicateImport Kind = "duplicate_import"
	KindMissingImport   Kind = "missing_import"
	KindNotFound        Kind = "not_found"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindUnsupported     Kind = "unsupported"
	KindInvalidInput    Kind = "invalid_input"
	KindInvalidData     Kind = "invalid_data"
	KindTypeMismatch    Kind = "type_mismatch"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Want   string
	Got    string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	hasTypes := e.Want != "" || e.Got != ""
	if hasTypes {
		b.WriteString(": ")
		switch {
		case e.Want != "" && e.Got != "":
			b.WriteString("want ")
			b.WriteString(e.Want)
			b.WriteString(", got ")
			b.WriteString(e.Got)
		case e.Want != "":
			b.WriteString("want ")
			b.WriteString(e.Want)
		default:
			b.WriteString("got ")
			b.WriteString(e.Got)
		}
	}

	if e.Detail != "" {
		if hasTypes {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// HasKind reports whether err or anything it wraps is an *Error of the given kind.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Want sets the expected type or kind name
func (b *Builder) Want(t string) *Builder {
	b.err.Want = t
	return b
}

// Got sets the actual type or kind name
func (b *Builder) Got(t string) *Builder {
	b.err.Got = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, want, got string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindTypeMismatch,
		Path:  path,
		Want:  want,
		Got:   got,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// NilPointer creates a nil pointer error for a required argument
func NilPointer(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   []string{what},
		Detail: "nil pointer",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// LengthMismatch creates an out of bounds error for a copy between unequal lengths
func LengthMismatch(phase Phase, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("length mismatch: destination has %d elements, source has %d", want, got),
		Value:  got,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Instantiation creates an instantiation error carrying the engine's cause
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// CallFailed creates a call error for the named export
func CallFailed(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindCall,
		Path:   []string{name},
		Detail: "call export",
		Cause:  cause,
	}
}

// WrongExportKind creates an error for an export used as the wrong kind of extern
func WrongExportKind(name, want, got string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindWrongExportKind,
		Path:   []string{name},
		Want:   want,
		Got:    got,
		Detail: fmt.Sprintf("cannot cast export to %s: export is a %s", want, got),
	}
}

// StaleHandle creates an error for a handle whose target was destroyed
func StaleHandle(h uint64) *Error {
	return &Error{
		Phase:  PhaseHandle,
		Kind:   KindStaleHandle,
		Detail: fmt.Sprintf("handle %#x was destroyed or never issued", h),
		Value:  h,
	}
}

// WrongHandleKind creates an error for a handle of another kind
func WrongHandleKind(h uint64, want, got string) *Error {
	return &Error{
		Phase: PhaseHandle,
		Kind:  KindWrongHandleKind,
		Want:  want,
		Got:   got,
		Value: h,
	}
}

// DuplicateImport creates an error for a repeated namespace/name pair
func DuplicateImport(namespace, name string) *Error {
	return &Error{
		Phase:  PhaseLinking,
		Kind:   KindDuplicateImport,
		Path:   []string{namespace, name},
		Detail: "import defined more than once",
	}
}

// Compile creates a compilation error
func Compile(cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindInvalidData,
		Detail: "compile module",
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Namespace string // e.g., "env"
	Name      string // e.g., "print_i32"
	Kind      string // e.g., "function"
	Reason    string
}

// MissingImportsError is returned when an import table lacks entries the module needs
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from the unresolved imports
func NewMissingImportsError(imports []MissingImport) *MissingImportsError {
	return &MissingImportsError{Imports: imports}
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[linking] missing_import: no imports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "unresolved %d import(s):\n", len(e.Imports))

	byNS := make(map[string][]MissingImport)
	for _, imp := range e.Imports {
		byNS[imp.Namespace] = append(byNS[imp.Namespace], imp)
	}
	namespaces := make([]string, 0, len(byNS))
	for ns := range byNS {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, ns := range namespaces {
		b.WriteString("\n  ")
		b.WriteString(ns)
		b.WriteString(":\n")
		for _, imp := range byNS[ns] {
			b.WriteString("    - ")
			b.WriteString(imp.Name)
			if imp.Kind != "" {
				b.WriteString(" (")
				b.WriteString(imp.Kind)
				b.WriteByte(')')
			}
			if imp.Reason != "" {
				b.WriteString(": ")
				b.WriteString(imp.Reason)
			}
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
