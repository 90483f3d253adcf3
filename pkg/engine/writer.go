package engine

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"paqman/pkg/fault"
	"paqman/pkg/stream"

	"github.com/zeebo/blake3"
)

type writerState uint8

const (
	writerIdle writerState = iota
	writerBlock
	writerSegment
)

// Writer produces container blocks on a Sink. Blocks hold segments, and a
// segment's payload is pulled from the input Source in bounded steps:
//
//	w := engine.NewWriter(sink)
//	w.StartBlock(engine.MethodBest)
//	w.SetInput(src)
//	w.StartSegment("dir/file.txt")
//	for more := true; more; {
//		more, err = w.Compress(engine.DefaultChunkSize)
//	}
//	w.EndSegment()
//	w.EndBlock()
//
// A Writer is not safe for concurrent use.
type Writer struct {
	out    stream.Sink
	in     stream.Source
	state  writerState
	method Method
	enc    *encoder
	hash   *blake3.Hasher
	buf    []byte
	header [2 + 2*binary.MaxVarintLen64]byte
}

// NewWriter returns a Writer emitting blocks to out.
func NewWriter(out stream.Sink) *Writer {
	return &Writer{out: out, hash: blake3.New()}
}

// SetInput sets the Source the next Compress calls read from.
func (w *Writer) SetInput(in stream.Source) {
	w.in = in
}

// StartBlock writes a block header for method m.
func (w *Writer) StartBlock(m Method) error {
	if w.state != writerIdle {
		return fmt.Errorf("start block: %w", ErrState)
	}
	if !m.Valid() {
		return fault.Validation("start block", "", fmt.Errorf("invalid method %d", m))
	}

	if w.enc == nil || w.method != m {
		if err := w.closeEncoder(); err != nil {
			return err
		}
		enc, err := newEncoder(m)
		if err != nil {
			return err
		}
		w.enc = enc
		w.method = m
	}

	if err := w.write(blockMagic[:]); err != nil {
		return err
	}
	if err := w.write([]byte{formatVersion, byte(m)}); err != nil {
		return err
	}
	w.state = writerBlock
	return nil
}

// StartSegment opens a segment named name. The name must not contain a NUL
// byte and must be at most MaxNameLength bytes.
func (w *Writer) StartSegment(name string) error {
	if w.state != writerBlock {
		return fmt.Errorf("start segment: %w", ErrState)
	}
	if len(name) > MaxNameLength {
		return fault.Validation("start segment", name, ErrNameTooLong)
	}
	if strings.IndexByte(name, nameTerminator) >= 0 {
		return fault.Validation("start segment", name, fmt.Errorf("name contains NUL byte"))
	}

	if err := w.writeByte(segmentStart); err != nil {
		return err
	}
	if err := w.write([]byte(name)); err != nil {
		return err
	}
	if err := w.writeByte(nameTerminator); err != nil {
		return err
	}
	w.hash.Reset()
	w.state = writerSegment
	return nil
}

// Compress reads at most max bytes from the input and writes them as one
// record. It reports whether more input may remain.
func (w *Writer) Compress(max int) (bool, error) {
	if w.state != writerSegment || w.in == nil {
		return false, fmt.Errorf("compress: %w", ErrState)
	}
	if max <= 0 || max > MaxRecordSize {
		return false, fault.Validation("compress", "", fmt.Errorf("chunk size %d out of range", max))
	}

	if cap(w.buf) < max {
		w.buf = make([]byte, max)
	}
	n, err := io.ReadFull(w.in, w.buf[:max])
	last := false
	switch err {
	case nil:
	case io.EOF:
		return false, nil
	case io.ErrUnexpectedEOF:
		last = true
	default:
		return false, fault.IO("read input", "", err)
	}

	raw := w.buf[:n]
	w.hash.Write(raw)

	tag, stored, err := w.enc.encode(raw)
	if err != nil {
		return false, err
	}

	h := w.header[:0]
	h = append(h, recordStart, byte(tag))
	h = binary.AppendUvarint(h, uint64(len(raw)))
	h = binary.AppendUvarint(h, uint64(len(stored)))
	if err := w.write(h); err != nil {
		return false, err
	}
	if err := w.write(stored); err != nil {
		return false, err
	}
	return !last, nil
}

// EndSegment closes the current segment with its integrity marker and
// returns the marker.
func (w *Writer) EndSegment() (Checksum, error) {
	var sum Checksum
	if w.state != writerSegment {
		return sum, fmt.Errorf("end segment: %w", ErrState)
	}
	copy(sum[:], w.hash.Sum(nil))

	if err := w.writeByte(segmentEnd); err != nil {
		return sum, err
	}
	if err := w.write(sum[:]); err != nil {
		return sum, err
	}
	w.state = writerBlock
	return sum, nil
}

// EndBlock closes the current block. Another block may be started after.
func (w *Writer) EndBlock() error {
	if w.state != writerBlock {
		return fmt.Errorf("end block: %w", ErrState)
	}
	if err := w.writeByte(blockEnd); err != nil {
		return err
	}
	w.state = writerIdle
	return nil
}

// Close releases the encoder. It does not close the Sink.
func (w *Writer) Close() error {
	return w.closeEncoder()
}

func (w *Writer) closeEncoder() error {
	if w.enc == nil {
		return nil
	}
	err := w.enc.close()
	w.enc = nil
	return err
}

func (w *Writer) writeByte(c byte) error {
	if err := w.out.WriteByte(c); err != nil {
		return fault.IO("write block", "", err)
	}
	return nil
}

func (w *Writer) write(p []byte) error {
	if _, err := w.out.Write(p); err != nil {
		return fault.IO("write block", "", err)
	}
	return nil
}
