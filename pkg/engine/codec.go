package engine

import (
	"errors"
	"fmt"

	"paqman/pkg/fault"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// codecTag identifies how one record's bytes are stored. Tags are written
// to the container, so their values must not change.
type codecTag uint8

const (
	codecStore codecTag = 0
	codecLZ4   codecTag = 1
	codecZstd  codecTag = 2
)

func (tag codecTag) String() string {
	switch tag {
	case codecStore:
		return "store"
	case codecLZ4:
		return "lz4"
	case codecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// encoder compresses records for one block method.
type encoder struct {
	method Method
	fast   lz4.Compressor
	hc     lz4.CompressorHC
	zstd   *zstd.Encoder
	buf    []byte
}

func newEncoder(m Method) (*encoder, error) {
	e := &encoder{method: m, hc: lz4.CompressorHC{Level: lz4.Level9}}

	var level zstd.EncoderLevel
	switch m {
	case MethodDefault:
		level = zstd.SpeedDefault
	case MethodBetter:
		level = zstd.SpeedBetterCompression
	case MethodBest:
		level = zstd.SpeedBestCompression
	default:
		return e, nil
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	e.zstd = enc
	return e, nil
}

// encode returns the stored form of src and its tag. The result aliases an
// internal buffer and is valid until the next call. Data the codec cannot
// shrink is stored as is.
func (e *encoder) encode(src []byte) (codecTag, []byte, error) {
	switch e.method {
	case MethodFast, MethodFastHC:
		bound := lz4.CompressBlockBound(len(src))
		if cap(e.buf) < bound {
			e.buf = make([]byte, bound)
		}
		dst := e.buf[:bound]

		var n int
		var err error
		if e.method == MethodFast {
			n, err = e.fast.CompressBlock(src, dst)
		} else {
			n, err = e.hc.CompressBlock(src, dst)
		}
		if err != nil {
			return 0, nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock returns 0 for incompressible input.
		if n == 0 || n >= len(src) {
			return codecStore, src, nil
		}
		return codecLZ4, dst[:n], nil

	case MethodDefault, MethodBetter, MethodBest:
		e.buf = e.zstd.EncodeAll(src, e.buf[:0])
		if len(e.buf) >= len(src) {
			return codecStore, src, nil
		}
		return codecZstd, e.buf, nil

	default:
		return codecStore, src, nil
	}
}

func (e *encoder) close() error {
	if e.zstd == nil {
		return nil
	}
	err := e.zstd.Close()
	e.zstd = nil
	return err
}

// decoder expands records of any codec. The zstd decoder is created on
// first use.
type decoder struct {
	zstd *zstd.Decoder
	buf  []byte
}

var errRecordSize = errors.New("decoded size does not match record header")

// decode returns the raw bytes of a record. The result may alias stored or
// an internal buffer and is valid until the next call.
func (d *decoder) decode(tag codecTag, stored []byte, rawLen int) ([]byte, error) {
	switch tag {
	case codecStore:
		if len(stored) != rawLen {
			return nil, fault.Format("decode record", "", errRecordSize)
		}
		return stored, nil

	case codecLZ4:
		if cap(d.buf) < rawLen {
			d.buf = make([]byte, rawLen)
		}
		n, err := lz4.UncompressBlock(stored, d.buf[:rawLen])
		if err != nil {
			return nil, fault.Format("decode record", "", fmt.Errorf("lz4 decompress: %w", err))
		}
		if n != rawLen {
			return nil, fault.Format("decode record", "", errRecordSize)
		}
		return d.buf[:n], nil

	case codecZstd:
		if d.zstd == nil {
			dec, err := zstd.NewReader(nil,
				zstd.WithDecoderConcurrency(1),
				zstd.WithDecoderMaxMemory(MaxRecordSize),
			)
			if err != nil {
				return nil, fmt.Errorf("create zstd decoder: %w", err)
			}
			d.zstd = dec
		}
		if cap(d.buf) < rawLen {
			d.buf = make([]byte, 0, rawLen)
		}
		out, err := d.zstd.DecodeAll(stored, d.buf[:0])
		if err != nil {
			return nil, fault.Format("decode record", "", fmt.Errorf("zstd decompress: %w", err))
		}
		d.buf = out
		if len(out) != rawLen {
			return nil, fault.Format("decode record", "", errRecordSize)
		}
		return out, nil

	default:
		return nil, fault.Format("decode record", "", fmt.Errorf("unknown codec %s", tag))
	}
}

func (d *decoder) close() {
	if d.zstd != nil {
		d.zstd.Close()
		d.zstd = nil
	}
}
