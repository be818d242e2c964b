package value

import (
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-embed/errors"
)

// Signature is a parsed function type.
type Signature struct {
	ParamNames []string
	Params     []Type
	Results    []Type
}

// ParseSignature parses WIT-style function text such as
//
//	func(a: s32, b: f64) -> u64
//	func(ptr: u32, len: u32) -> (s32, s32)
//
// into core value types. Integer, bool and char types lower to i32 or i64 by
// width; compound WIT types are rejected.
func ParseSignature(text string) (*Signature, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimPrefix(s, "func"))
	if !strings.HasPrefix(s, "(") {
		return nil, errors.InvalidInput(errors.PhaseParse, "signature must start with func(: "+text)
	}

	end := matchingParen(s)
	if end < 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "unbalanced parentheses in signature: "+text)
	}
	paramsStr := s[1:end]
	rest := strings.TrimSpace(s[end+1:])

	sig := &Signature{}
	for i, p := range splitList(paramsStr) {
		name, typStr := "", p
		if idx := strings.LastIndex(p, ":"); idx != -1 {
			name = strings.TrimSpace(p[:idx])
			typStr = strings.TrimSpace(p[idx+1:])
		}
		t, err := lowerWitType(typStr)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse param type "+typStr)
		}
		if name == "" {
			name = "p" + strconv.Itoa(i)
		}
		sig.ParamNames = append(sig.ParamNames, name)
		sig.Params = append(sig.Params, t)
	}

	if rest == "" {
		return sig, nil
	}
	if !strings.HasPrefix(rest, "->") {
		return nil, errors.InvalidInput(errors.PhaseParse, "unexpected text after params: "+rest)
	}
	resultStr := strings.TrimSpace(strings.TrimPrefix(rest, "->"))
	if strings.HasPrefix(resultStr, "(") && strings.HasSuffix(resultStr, ")") {
		resultStr = resultStr[1 : len(resultStr)-1]
	}
	for _, part := range splitList(resultStr) {
		t, err := lowerWitType(part)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse result type "+part)
		}
		sig.Results = append(sig.Results, t)
	}
	return sig, nil
}

// String renders the signature back in WIT-style text using core type names.
func (s *Signature) String() string {
	var b strings.Builder
	b.WriteString("func(")
	for i, t := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if i < len(s.ParamNames) && s.ParamNames[i] != "" {
			b.WriteString(s.ParamNames[i])
			b.WriteString(": ")
		}
		b.WriteString(t.String())
	}
	b.WriteByte(')')
	switch len(s.Results) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(s.Results[0].String())
	default:
		b.WriteString(" -> (")
		for i, t := range s.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

func lowerWitType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "i32":
		return TypeI32, nil
	case "i64":
		return TypeI64, nil
	}
	t, err := wit.ParseType(s)
	if err != nil {
		return 0, err
	}
	switch t.(type) {
	case wit.Bool, wit.S8, wit.U8, wit.S16, wit.U16, wit.S32, wit.U32, wit.Char:
		return TypeI32, nil
	case wit.S64, wit.U64:
		return TypeI64, nil
	case wit.F32:
		return TypeF32, nil
	case wit.F64:
		return TypeF64, nil
	default:
		return 0, errors.Unsupported(errors.PhaseParse, "non-scalar type "+s)
	}
}

func matchingParen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitList splits a comma separated list, ignoring commas nested in () or <>.
func splitList(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
			current.WriteRune(ch)
		case ')', '>':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}
