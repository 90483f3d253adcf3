// Package stream binds the engine's byte reader and byte writer contracts to
// files, and provides the discard sink used when listing an archive.
package stream

import (
	"bufio"
	"errors"
	"io"
	"os"

	"paqman/pkg/fault"
)

const bufferSize = 64 * 1024

// Source is read by the engine one byte at a time, or in bulk when it can.
// ReadByte returns io.EOF at end of stream.
type Source interface {
	io.ByteReader
	io.Reader
}

// Sink receives bytes from the engine one at a time, or in bulk when it can.
type Sink interface {
	io.ByteWriter
	io.Writer
}

// FileSource is a buffered Source over a file opened for reading.
type FileSource struct {
	f    *os.File
	r    *bufio.Reader
	path string
}

// OpenSource opens path for reading.
func OpenSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Open("open", path, err)
	}
	adviseSequential(f)
	return &FileSource{f: f, r: bufio.NewReaderSize(f, bufferSize), path: path}, nil
}

// ReadByte implements io.ByteReader.
func (s *FileSource) ReadByte() (byte, error) {
	c, err := s.r.ReadByte()
	if err != nil && err != io.EOF {
		return 0, fault.IO("read", s.path, err)
	}
	return c, err
}

// Read implements io.Reader.
func (s *FileSource) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fault.IO("read", s.path, err)
	}
	return n, err
}

// Size returns the size of the underlying file.
func (s *FileSource) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, fault.IO("stat", s.path, err)
	}
	return info.Size(), nil
}

// Path returns the path the source was opened with.
func (s *FileSource) Path() string {
	return s.path
}

// Close closes the file.
func (s *FileSource) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// FileSink is a buffered Sink over a file created for writing. Close must be
// called on every path; it flushes and syncs before closing.
type FileSink struct {
	f    *os.File
	w    *bufio.Writer
	path string
}

// CreateSink creates or truncates path for writing.
func CreateSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fault.Open("create", path, err)
	}
	return &FileSink{f: f, w: bufio.NewWriterSize(f, bufferSize), path: path}, nil
}

// WriteByte implements io.ByteWriter.
func (s *FileSink) WriteByte(c byte) error {
	if err := s.w.WriteByte(c); err != nil {
		return fault.IO("write", s.path, err)
	}
	return nil
}

// Write implements io.Writer.
func (s *FileSink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		return n, fault.IO("write", s.path, err)
	}
	return n, nil
}

// Path returns the path the sink was created with.
func (s *FileSink) Path() string {
	return s.path
}

// Close flushes buffered data, syncs it to storage and closes the file.
// Calling Close again is a no-op.
func (s *FileSink) Close() error {
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil

	var errs []error
	if err := s.w.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := f.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := f.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fault.IO("close", s.path, errors.Join(errs...))
	}
	return nil
}

// Discard is a Sink that drops everything written to it.
var Discard Sink = discard{}

type discard struct{}

func (discard) WriteByte(byte) error        { return nil }
func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Counter wraps a Sink and counts the bytes written through it.
type Counter struct {
	Sink Sink
	N    int64
}

// WriteByte implements io.ByteWriter.
func (c *Counter) WriteByte(b byte) error {
	if err := c.Sink.WriteByte(b); err != nil {
		return err
	}
	c.N++
	return nil
}

// Write implements io.Writer.
func (c *Counter) Write(p []byte) (int, error) {
	n, err := c.Sink.Write(p)
	c.N += int64(n)
	return n, err
}
