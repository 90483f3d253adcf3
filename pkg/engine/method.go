package engine

import (
	"fmt"

	"paqman/pkg/fault"
)

// Method selects how segment payloads in a block are compressed. Higher
// methods trade speed for ratio.
type Method uint8

const (
	MethodStore Method = iota
	MethodFast
	MethodFastHC
	MethodDefault
	MethodBetter
	MethodBest

	// DefaultMethod is used when no method is given.
	DefaultMethod = MethodBest
)

// ParseMethod parses a method given as a single digit "0" to "5".
func ParseMethod(s string) (Method, error) {
	if len(s) != 1 || s[0] < '0' || s[0] > '0'+byte(MethodBest) {
		return 0, fault.Validation("parse method", "", fmt.Errorf("invalid method %q, use 0-5", s))
	}
	return Method(s[0] - '0'), nil
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m <= MethodBest
}

// String returns the digit form accepted by ParseMethod.
func (m Method) String() string {
	return fmt.Sprintf("%d", uint8(m))
}

// Describe returns a short human-readable description of the method.
func (m Method) Describe() string {
	switch m {
	case MethodStore:
		return "store"
	case MethodFast:
		return "lz4"
	case MethodFastHC:
		return "lz4-hc"
	case MethodDefault:
		return "zstd"
	case MethodBetter:
		return "zstd-better"
	case MethodBest:
		return "zstd-best"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// memoryEstimate approximates the decoder state needed for a block written
// with m, excluding the record buffer.
func (m Method) memoryEstimate() int64 {
	switch m {
	case MethodStore:
		return 0
	case MethodFast, MethodFastHC:
		return 64 << 10
	default:
		return 8 << 20
	}
}
