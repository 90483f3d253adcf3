// Package lib is the public entry point for embedding paqman. It re-exports
// the archive operations from the core package and adds whole-stream helpers
// for callers that hold readers and writers rather than paths.
package lib

import (
	"bufio"
	"io"
	"iter"

	"paqman/pkg/core"
	"paqman/pkg/engine"
	"paqman/pkg/fault"
)

// Method selects a compression method, 0 (store) through 5 (best).
type Method = engine.Method

// Re-export methods
const (
	MethodStore   = engine.MethodStore
	MethodFast    = engine.MethodFast
	MethodFastHC  = engine.MethodFastHC
	MethodDefault = engine.MethodDefault
	MethodBetter  = engine.MethodBetter
	MethodBest    = engine.MethodBest
	DefaultMethod = engine.DefaultMethod
)

// Options re-exported from core
type Options = core.Options

// Entry re-exported from core
type Entry = core.Entry

// Error classes re-exported from fault, for use with errors.Is.
var (
	ErrOpen       = fault.ErrOpen
	ErrFormat     = fault.ErrFormat
	ErrIO         = fault.ErrIO
	ErrValidation = fault.ErrValidation
)

// ParseMethod parses "0" through "5".
func ParseMethod(s string) (Method, error) {
	return engine.ParseMethod(s)
}

// DefaultOptions is a wrapper around core.DefaultOptions
func DefaultOptions() Options {
	return core.DefaultOptions()
}

// Compress is a wrapper around core.Compress
func Compress(input, output string, opts Options) error {
	return core.Compress(input, output, opts)
}

// Decompress is a wrapper around core.Decompress
func Decompress(input, outputRoot string, opts Options) error {
	return core.Decompress(input, outputRoot, opts)
}

// List is a wrapper around core.List
func List(input string, opts Options) iter.Seq2[string, error] {
	return core.List(input, opts)
}

// ListNames is a wrapper around core.ListNames
func ListNames(input string, opts Options) ([]string, error) {
	return core.ListNames(input, opts)
}

// CompressStream writes everything read from r to w as a single-segment
// archive named name.
func CompressStream(r io.Reader, w io.Writer, m Method, name string) error {
	bw := bufio.NewWriter(w)
	if err := engine.Compress(bufio.NewReader(r), bw, m, name); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fault.IO("flush", name, err)
	}
	return nil
}

// DecompressStream writes the concatenated payloads of every segment in the
// archive read from r to w.
func DecompressStream(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := engine.Decompress(bufio.NewReader(r), bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fault.IO("flush", "", err)
	}
	return nil
}
