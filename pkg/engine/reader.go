package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"paqman/pkg/fault"
	"paqman/pkg/stream"

	"github.com/zeebo/blake3"
)

type readerState uint8

const (
	readerIdle readerState = iota
	readerBlock
	readerPayload
	readerSegmentEnd
)

// Reader decodes container blocks from a Source, front to back:
//
//	r := engine.NewReader(src)
//	for {
//		_, found, err := r.FindBlock()
//		if !found { break }
//		for {
//			found, err = r.FindFilename(nameSink)
//			if !found { break }
//			r.SetOutput(sink)
//			for more := true; more; {
//				more, err = r.Decompress(engine.DefaultChunkSize)
//			}
//			sum, err := r.ReadSegmentEnd()
//		}
//	}
//
// A Reader is not safe for concurrent use.
type Reader struct {
	in     stream.Source
	out    stream.Sink
	state  readerState
	method Method
	dec    decoder
	hash   *blake3.Hasher
	stored []byte
}

// NewReader returns a Reader decoding blocks from in.
func NewReader(in stream.Source) *Reader {
	return &Reader{in: in, hash: blake3.New()}
}

// SetOutput sets the Sink decoded payload bytes are written to. A nil Sink
// drops them.
func (r *Reader) SetOutput(out stream.Sink) {
	r.out = out
}

// Method returns the method of the current or last block.
func (r *Reader) Method() Method {
	return r.method
}

// FindBlock reads the next block header. It returns found == false at a
// clean end of input, and an error wrapping ErrNoBlock when the input holds
// something other than a block. The first return value estimates the
// decoder memory the block needs.
func (r *Reader) FindBlock() (int64, bool, error) {
	if r.state != readerIdle {
		return 0, false, fmt.Errorf("find block: %w", ErrState)
	}

	var hdr [len(blockMagic) + 2]byte
	_, err := io.ReadFull(r.in, hdr[:])
	switch {
	case err == io.EOF:
		return 0, false, nil
	case err == io.ErrUnexpectedEOF:
		return 0, false, fault.Format("find block", "", ErrNoBlock)
	case err != nil:
		return 0, false, fault.IO("find block", "", err)
	}

	if [4]byte(hdr[:4]) != blockMagic {
		return 0, false, fault.Format("find block", "", ErrNoBlock)
	}
	if hdr[4] != formatVersion {
		return 0, false, fault.Format("find block", "", fmt.Errorf("unsupported version %d", hdr[4]))
	}
	m := Method(hdr[5])
	if !m.Valid() {
		return 0, false, fault.Format("find block", "", fmt.Errorf("unknown method %d", hdr[5]))
	}

	r.method = m
	r.state = readerBlock
	return m.memoryEstimate(), true, nil
}

// FindFilename reads the next segment name into name, one byte at a time.
// It returns found == false when the block has no more segments. A nil
// name drops the bytes.
func (r *Reader) FindFilename(name io.ByteWriter) (bool, error) {
	if r.state != readerBlock {
		return false, fmt.Errorf("find filename: %w", ErrState)
	}

	c, err := r.readByte("find filename")
	if err != nil {
		return false, err
	}
	switch c {
	case blockEnd:
		r.state = readerIdle
		return false, nil
	case segmentStart:
	default:
		return false, fault.Format("find filename", "", fmt.Errorf("unexpected byte 0x%02x", c))
	}

	for {
		c, err := r.readByte("read filename")
		if err != nil {
			return false, err
		}
		if c == nameTerminator {
			break
		}
		if name == nil {
			continue
		}
		if err := name.WriteByte(c); err != nil {
			return false, err
		}
	}

	r.hash.Reset()
	r.state = readerPayload
	return true, nil
}

// Decompress decodes records of the current segment until at least max
// bytes were produced or the payload ends. It reports whether payload may
// remain.
func (r *Reader) Decompress(max int) (bool, error) {
	if r.state != readerPayload {
		return false, fmt.Errorf("decompress: %w", ErrState)
	}
	if max <= 0 {
		return false, fault.Validation("decompress", "", fmt.Errorf("chunk size %d out of range", max))
	}

	produced := 0
	for produced < max {
		c, err := r.readByte("read record")
		if err != nil {
			return false, err
		}
		switch c {
		case segmentEnd:
			r.state = readerSegmentEnd
			return false, nil
		case recordStart:
		default:
			return false, fault.Format("read record", "", fmt.Errorf("unexpected byte 0x%02x", c))
		}

		n, err := r.readRecord()
		if err != nil {
			return false, err
		}
		produced += n
	}
	return true, nil
}

func (r *Reader) readRecord() (int, error) {
	tag, err := r.readByte("read record")
	if err != nil {
		return 0, err
	}
	rawLen, err := r.readLength()
	if err != nil {
		return 0, err
	}
	storedLen, err := r.readLength()
	if err != nil {
		return 0, err
	}
	if rawLen == 0 {
		return 0, fault.Format("read record", "", fmt.Errorf("empty record"))
	}

	if cap(r.stored) < storedLen {
		r.stored = make([]byte, storedLen)
	}
	stored := r.stored[:storedLen]
	if _, err := io.ReadFull(r.in, stored); err != nil {
		return 0, r.wrapRead("read record", err)
	}

	raw, err := r.dec.decode(codecTag(tag), stored, rawLen)
	if err != nil {
		return 0, err
	}
	r.hash.Write(raw)

	if r.out != nil {
		if _, err := r.out.Write(raw); err != nil {
			return 0, fault.IO("write output", "", err)
		}
	}
	return rawLen, nil
}

func (r *Reader) readLength() (int, error) {
	v, err := binary.ReadUvarint(r.in)
	if err != nil {
		return 0, r.wrapRead("read record", err)
	}
	if v > MaxRecordSize {
		return 0, fault.Format("read record", "", fmt.Errorf("record length %d exceeds limit", v))
	}
	return int(v), nil
}

// ReadSegmentEnd consumes the integrity marker after a fully decompressed
// segment and returns it.
func (r *Reader) ReadSegmentEnd() (Checksum, error) {
	var sum Checksum
	if r.state != readerSegmentEnd {
		return sum, fmt.Errorf("read segment end: %w", ErrState)
	}
	if _, err := io.ReadFull(r.in, sum[:]); err != nil {
		return sum, r.wrapRead("read segment end", err)
	}
	r.state = readerBlock
	return sum, nil
}

// Digest returns the marker computed over the payload decoded so far in
// the current segment.
func (r *Reader) Digest() Checksum {
	var sum Checksum
	copy(sum[:], r.hash.Sum(nil))
	return sum
}

// Close releases the decoder. It does not close the Source.
func (r *Reader) Close() {
	r.dec.close()
}

func (r *Reader) readByte(op string) (byte, error) {
	c, err := r.in.ReadByte()
	if err != nil {
		return 0, r.wrapRead(op, err)
	}
	return c, nil
}

// wrapRead classifies a read failure. Running out of input inside a block
// means the container is truncated.
func (r *Reader) wrapRead(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fault.Format(op, "", io.ErrUnexpectedEOF)
	}
	return fault.IO(op, "", err)
}
