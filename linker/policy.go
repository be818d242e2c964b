package linker

import (
	"strings"

	"github.com/wippyai/wasm-embed/errors"
)

// Policy decides what happens when two imports share a namespace and name.
type Policy int

const (
	// PolicyOverwrite keeps the last definition.
	PolicyOverwrite Policy = iota
	// PolicyKeepFirst keeps the first definition.
	PolicyKeepFirst
	// PolicyReject fails with a duplicate_import error.
	PolicyReject
)

func (p Policy) String() string {
	switch p {
	case PolicyOverwrite:
		return "overwrite"
	case PolicyKeepFirst:
		return "keep-first"
	case PolicyReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParsePolicy parses the String form of a policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return PolicyOverwrite, nil
	case "keep-first", "first":
		return PolicyKeepFirst, nil
	case "reject", "error":
		return PolicyReject, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseLinking, "unknown collision policy "+s)
	}
}
