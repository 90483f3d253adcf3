// Package core reads and writes paqman archives: a directory tree or a single
// file stored as one block of named segments.
package core

import (
	"errors"
	"fmt"
	"log/slog"

	"paqman/pkg/engine"
	"paqman/pkg/fault"
	"paqman/pkg/progress"
)

// Extension is the conventional suffix for archive files.
const Extension = ".pqm"

// ErrUnsafePath is reported for a segment name that would resolve outside the
// extraction root.
var ErrUnsafePath = errors.New("segment name escapes output directory")

// ErrOutputIsInput is reported when the archive would overwrite the file
// being compressed.
var ErrOutputIsInput = errors.New("output is the input file")

// Entry holds file information for compression
type Entry struct {
	RelPath  string // Slash-separated name stored in the archive
	FilePath string // Full file path on disk
	Size     int64
}

// Options controls a single archive operation. The zero value stores without
// compression and uses the default chunk size; DefaultOptions is usually what
// callers want.
type Options struct {
	// Method is the engine method for new blocks. Ignored when reading.
	Method engine.Method
	// ChunkSize bounds the bytes moved per engine step. Zero means
	// engine.DefaultChunkSize.
	ChunkSize int
	// SkipVerify trusts segment markers without comparing them against the
	// decoded payload.
	SkipVerify bool
	// Progress logs periodic byte counts while the operation runs.
	Progress bool
	// Logger receives status lines. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Method:    engine.DefaultMethod,
		ChunkSize: engine.DefaultChunkSize,
	}
}

func (o Options) withDefaults() Options {
	if o.ChunkSize == 0 {
		o.ChunkSize = engine.DefaultChunkSize
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

func (o Options) validate() error {
	if !o.Method.Valid() {
		return fault.Validation("check options", "", fmt.Errorf("invalid method %d, use 0-5", o.Method))
	}
	if o.ChunkSize < 1 || o.ChunkSize > engine.MaxRecordSize {
		return fault.Validation("check options", "", fmt.Errorf("chunk size %d out of range 1-%d", o.ChunkSize, engine.MaxRecordSize))
	}
	return nil
}

// tracker returns a progress tracker when progress is enabled, nil otherwise.
// A nil tracker is a no-op.
func (o Options) tracker(total uint64) *progress.Tracker {
	if !o.Progress {
		return nil
	}
	return progress.New(total, o.Logger)
}
