package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"paqman/pkg/engine"
	"paqman/pkg/fault"
	"paqman/pkg/stream"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Decompress extracts every segment of every block in input beneath
// outputRoot, creating it and any missing parent directories.
func Decompress(input, outputRoot string, opts Options) error {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return err
	}

	src, err := stream.OpenSource(input)
	if err != nil {
		return err
	}
	defer src.Close()

	root, err := filepath.Abs(outputRoot)
	if err != nil {
		return fault.Open("resolve output directory", outputRoot, err)
	}

	var total uint64
	if size, err := src.Size(); err == nil {
		total = uint64(size)
	}
	tracker := opts.tracker(total)
	tracker.Start()
	defer tracker.Stop()

	opts.Logger.Info("extracting", "input", input, "output", outputRoot)

	// The output root is created once the input is known to hold a block,
	// so a foreign file leaves nothing behind.
	createRoot := func() error {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fault.Open("create output directory", outputRoot, err)
		}
		return nil
	}

	var segments int
	err = scanArchive(tracker.Source(src), input, opts, createRoot, func(r *engine.Reader, name string) error {
		if err := decompressSegment(r, root, name, opts); err != nil {
			return err
		}
		segments++
		return nil
	})
	if err != nil {
		return err
	}

	opts.Logger.Info("extraction complete", "output", outputRoot, "segments", segments)
	return nil
}

// scanArchive walks every block and segment of the archive read from src,
// calling visit after each name. visit must consume the segment's payload.
// firstBlock, when set, runs once after the first block header is read.
func scanArchive(src stream.Source, input string, opts Options, firstBlock func() error, visit func(r *engine.Reader, name string) error) error {
	r := engine.NewReader(src)
	defer r.Close()

	for blocks := 0; ; blocks++ {
		memory, found, err := r.FindBlock()
		if err != nil {
			return fmt.Errorf("read %s: %w", input, err)
		}
		if !found {
			if blocks == 0 {
				return fault.Format("find block", input, engine.ErrNoBlock)
			}
			return nil
		}
		if blocks == 0 && firstBlock != nil {
			if err := firstBlock(); err != nil {
				return err
			}
		}
		opts.Logger.Debug("found block",
			"archive", input,
			"method", r.Method().Describe(),
			"memory", memory)

		for {
			name, ok, err := ReadName(r)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			if !ok {
				break
			}
			if err := visit(r, name); err != nil {
				return err
			}
		}
	}
}

// decompressSegment writes the current segment to its destination beneath
// root. The file is flushed and synced before the next segment is read.
func decompressSegment(r *engine.Reader, root, name string, opts Options) error {
	destPath, err := resolveDestination(root, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fault.Open("create directory", filepath.Dir(destPath), err)
	}

	sink, err := stream.CreateSink(destPath)
	if err != nil {
		return err
	}
	defer sink.Close()

	counter := &stream.Counter{Sink: sink}
	sum, err := Decode(r, counter, opts.ChunkSize, !opts.SkipVerify)
	if err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}
	if err := sink.Close(); err != nil {
		return err
	}

	opts.Logger.Debug("extracted segment",
		"name", name,
		"path", destPath,
		"bytes", counter.N,
		"checksum", sum.String())
	return nil
}

// resolveDestination maps a stored segment name to a path beneath root.
// Absolute names and names with ".." components are rejected outright;
// symlinks already present under root are resolved without leaving it.
func resolveDestination(root, name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) || filepath.Clean(rel) == "." || hasDotDot(name) {
		return "", fault.Format("resolve name", name, ErrUnsafePath)
	}
	destPath, err := securejoin.SecureJoin(root, rel)
	if err != nil {
		return "", fault.Open("resolve name", name, err)
	}
	return destPath, nil
}

func hasDotDot(name string) bool {
	for _, part := range strings.FieldsFunc(name, isSeparator) {
		if part == ".." {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}
