package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseMarshal,
				Kind:   KindTypeMismatch,
				Path:   []string{"add", "arg0"},
				Want:   "i32",
				Got:    "f64",
				Detail: "cannot convert",
			},
			contains: []string{"[marshal]", "type_mismatch", "add.arg0", "want i32", "got f64", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMemory,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[memory]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInstantiate,
				Kind:   KindInstantiation,
				Detail: "instantiate module",
				Cause:  errors.New("start function trapped"),
			},
			contains: []string{"[instantiate]", "instantiation", "instantiate module", "caused by", "start function trapped"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseCall,
		Kind:  KindCall,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseLinking,
		Kind:  KindDuplicateImport,
		Path:  []string{"env", "f"},
	}

	if !err.Is(&Error{Phase: PhaseLinking, Kind: KindDuplicateImport}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseCall, Kind: KindDuplicateImport}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseLinking, Kind: KindInvalidUTF8}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, &Error{Phase: PhaseLinking, Kind: KindDuplicateImport}) {
		t.Error("errors.Is should match")
	}
}

func TestHasKind(t *testing.T) {
	inner := StaleHandle(0x100000001)
	outer := Wrap(PhaseCall, KindCall, inner, "lookup instance")

	if !HasKind(outer, KindCall) {
		t.Error("HasKind should match outer kind")
	}
	if !HasKind(outer, KindStaleHandle) {
		t.Error("HasKind should match wrapped kind")
	}
	if HasKind(outer, KindInvalidUTF8) {
		t.Error("HasKind should not match absent kind")
	}
	if HasKind(errors.New("plain"), KindCall) {
		t.Error("HasKind should not match plain errors")
	}
	if HasKind(nil, KindCall) {
		t.Error("HasKind should not match nil")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseMarshal, KindTypeMismatch).
		Path("fn", "result0").
		Want("i32").
		Got("i64").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "i32", "i64").
		Build()

	if err.Phase != PhaseMarshal {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseMarshal)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "fn" || err.Path[1] != "result0" {
		t.Errorf("Path = %v, want [fn result0]", err.Path)
	}
	if err.Want != "i32" || err.Got != "i64" {
		t.Errorf("Want=%q Got=%q", err.Want, err.Got)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected i32, got i64" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
		text  string
	}{
		{"InvalidUTF8", InvalidUTF8(PhaseLinking, []string{"module"}, []byte{0xff, 0xfe}), PhaseLinking, KindInvalidUTF8, "fffe"},
		{"NilPointer", NilPointer(PhaseCall, "params"), PhaseCall, KindNilPointer, "params"},
		{"Unsupported", Unsupported(PhaseParse, "memory64"), PhaseParse, KindUnsupported, "memory64"},
		{"OutOfBounds", OutOfBounds(PhaseMemory, []string{"view"}, 10, 5), PhaseMemory, KindOutOfBounds, "index 10"},
		{"LengthMismatch", LengthMismatch(PhaseMemory, 65536, 100), PhaseMemory, KindOutOfBounds, "65536"},
		{"Instantiation", Instantiation(errors.New("boom")), PhaseInstantiate, KindInstantiation, "boom"},
		{"CallFailed", CallFailed("run", errors.New("unreachable")), PhaseCall, KindCall, "unreachable"},
		{"WrongExportKind", WrongExportKind("mem", "function", "memory"), PhaseCall, KindWrongExportKind, "cannot cast"},
		{"StaleHandle", StaleHandle(7), PhaseHandle, KindStaleHandle, "0x7"},
		{"WrongHandleKind", WrongHandleKind(7, "module", "instance"), PhaseHandle, KindWrongHandleKind, "want module"},
		{"DuplicateImport", DuplicateImport("env", "f"), PhaseLinking, KindDuplicateImport, "env.f"},
		{"Compile", Compile(errors.New("bad magic")), PhaseCompile, KindInvalidData, "bad magic"},
		{"ParseFailed", ParseFailed("signature", errors.New("eof")), PhaseParse, KindInvalidData, "parse signature"},
		{"NotFound", NotFound(PhaseCall, "export", "run"), PhaseCall, KindNotFound, `"run"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.text) {
				t.Errorf("Error() = %q, should contain %q", tt.err.Error(), tt.text)
			}
		})
	}
}

func TestMissingImportsError(t *testing.T) {
	t.Run("grouped by namespace", func(t *testing.T) {
		err := NewMissingImportsError([]MissingImport{
			{Namespace: "env", Name: "print", Kind: "function"},
			{Namespace: "wasi", Name: "fd_write", Kind: "function"},
			{Namespace: "env", Name: "memory", Kind: "memory", Reason: "namespace provides a global"},
		})
		msg := err.Error()
		for _, s := range []string{"3 import(s)", "env:", "wasi:", "print (function)", "namespace provides a global"} {
			if !strings.Contains(msg, s) {
				t.Errorf("message %q should contain %q", msg, s)
			}
		}
		if strings.Index(msg, "env:") > strings.Index(msg, "wasi:") {
			t.Error("namespaces should be sorted")
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError(nil)
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]MissingImport{{Namespace: "ns", Name: "fn"}})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
	})
}
