package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"paqman/pkg/engine"
	"paqman/pkg/fault"
	"paqman/pkg/progress"
	"paqman/pkg/stream"

	"github.com/dustin/go-humanize"
)

// Compress writes input, a file or a directory tree, to output as a single
// block. A directory becomes one segment per regular file, named by its
// slash-separated path relative to input; a file becomes one segment named
// by its base name.
func Compress(input, output string, opts Options) error {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return err
	}

	info, err := os.Stat(input)
	if err != nil {
		return fault.Open("stat input", input, err)
	}

	// Nil when the output does not exist yet.
	outputInfo, _ := os.Stat(output)

	var entries []Entry
	if info.IsDir() {
		// WalkDir does not follow a symlinked root.
		root, err := filepath.EvalSymlinks(input)
		if err != nil {
			return fault.Open("resolve input", input, err)
		}
		entries, err = collectDirEntries(root, outputInfo, opts)
		if err != nil {
			return err
		}
	} else {
		if outputInfo != nil && os.SameFile(info, outputInfo) {
			return fault.Validation("check output", output, ErrOutputIsInput)
		}
		entries = []Entry{{RelPath: filepath.Base(input), FilePath: input, Size: info.Size()}}
	}

	opts.Logger.Info("compressing",
		"input", input,
		"output", output,
		"method", opts.Method.Describe(),
		"files", len(entries))

	tracker := opts.tracker(calculateTotalSize(entries))
	tracker.Start()
	defer tracker.Stop()

	return compressFiles(entries, output, opts, tracker)
}

// calculateTotalSize sums the sizes recorded while collecting entries.
func calculateTotalSize(entries []Entry) uint64 {
	var totalSize uint64
	for _, entry := range entries {
		totalSize += uint64(entry.Size)
	}
	return totalSize
}

// collectDirEntries gathers all regular files under root in lexical walk
// order. The existing file described by outputInfo is left out, so an archive
// rewritten inside root does not include itself.
func collectDirEntries(root string, outputInfo os.FileInfo, opts Options) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fault.Open("walk", path, err)
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			opts.Logger.Warn("skipping non-regular file", "path", path, "type", d.Type().String())
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fault.Open("stat", path, err)
		}
		if outputInfo != nil && os.SameFile(info, outputInfo) {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fault.Open("relative path", path, err)
		}
		entries = append(entries, Entry{
			RelPath:  filepath.ToSlash(relPath),
			FilePath: path,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", root, err)
	}
	return entries, nil
}

// compressFiles writes one block holding a segment per entry.
func compressFiles(entries []Entry, output string, opts Options, tracker *progress.Tracker) error {
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fault.Open("create output directory", dir, err)
		}
	}

	sink, err := stream.CreateSink(output)
	if err != nil {
		return err
	}
	defer sink.Close()

	counter := &stream.Counter{Sink: sink}
	w := engine.NewWriter(counter)
	defer w.Close()

	if err := w.StartBlock(opts.Method); err != nil {
		return err
	}
	var original uint64
	for _, entry := range entries {
		n, err := compressEntry(w, entry, opts, tracker)
		if err != nil {
			return fmt.Errorf("compress %s: %w", entry.FilePath, err)
		}
		original += n
	}
	if err := w.EndBlock(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fault.IO("close encoder", output, err)
	}
	if err := sink.Close(); err != nil {
		return err
	}

	opts.Logger.Info("archive written",
		"output", output,
		"segments", len(entries),
		"original", humanize.IBytes(original),
		"compressed", humanize.IBytes(uint64(counter.N)))
	return nil
}

// compressEntry encodes one file as a segment and returns the bytes read.
func compressEntry(w *engine.Writer, entry Entry, opts Options, tracker *progress.Tracker) (uint64, error) {
	src, err := stream.OpenSource(entry.FilePath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	counted := &countingSource{Source: tracker.Source(src)}
	sum, err := Encode(w, entry.RelPath, counted, opts.ChunkSize)
	if err != nil {
		return 0, err
	}
	opts.Logger.Debug("added segment",
		"name", entry.RelPath,
		"bytes", counted.n,
		"checksum", sum.String())
	return counted.n, nil
}

// countingSource counts the bytes read through it.
type countingSource struct {
	stream.Source
	n uint64
}

func (s *countingSource) ReadByte() (byte, error) {
	c, err := s.Source.ReadByte()
	if err == nil {
		s.n++
	}
	return c, err
}

func (s *countingSource) Read(p []byte) (int, error) {
	n, err := s.Source.Read(p)
	s.n += uint64(n)
	return n, err
}
