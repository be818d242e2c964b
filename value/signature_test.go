package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		in      string
		params  []Type
		results []Type
		names   []string
	}{
		{"func()", nil, nil, nil},
		{"func(a: s32, b: s32) -> s32", []Type{TypeI32, TypeI32}, []Type{TypeI32}, []string{"a", "b"}},
		{"func(x: u64, y: f32) -> f64", []Type{TypeI64, TypeF32}, []Type{TypeF64}, []string{"x", "y"}},
		{"func(flag: bool, c: char)", []Type{TypeI32, TypeI32}, nil, []string{"flag", "c"}},
		{"func(ptr: u32, len: u32) -> (s32, s64)", []Type{TypeI32, TypeI32}, []Type{TypeI32, TypeI64}, []string{"ptr", "len"}},
		{"func(i64) -> i32", []Type{TypeI64}, []Type{TypeI32}, []string{"p0"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sig, err := ParseSignature(tt.in)
			if err != nil {
				t.Fatalf("ParseSignature: %v", err)
			}
			if diff := cmp.Diff(tt.params, sig.Params); diff != "" {
				t.Errorf("params (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.results, sig.Results); diff != "" {
				t.Errorf("results (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.names, sig.ParamNames); diff != "" {
				t.Errorf("names (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSignatureErrors(t *testing.T) {
	for _, in := range []string{
		"add(a: s32)",
		"func(a: s32",
		"func(a: string)",
		"func(a: list<u8>) -> s32",
		"func() s32",
	} {
		if _, err := ParseSignature(in); err == nil {
			t.Errorf("ParseSignature(%q) should fail", in)
		}
	}
}

func TestSignatureString(t *testing.T) {
	sig := &Signature{
		ParamNames: []string{"a", "b"},
		Params:     []Type{TypeI32, TypeF64},
		Results:    []Type{TypeI64, TypeI32},
	}
	if got, want := sig.String(), "func(a: i32, b: f64) -> (i64, i32)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
