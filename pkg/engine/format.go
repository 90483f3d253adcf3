package engine

import (
	"encoding/hex"
	"errors"
)

// Container layout:
//
//	block   := magic "PQMN" | version | method | segment* | blockEnd
//	segment := segmentStart | name | 0x00 | record* | segmentEnd | checksum[20]
//	record  := recordStart | codec | uvarint rawLen | uvarint storedLen | stored
const (
	formatVersion = 1

	segmentStart = 0x01
	recordStart  = 0x02
	segmentEnd   = 0xFD
	blockEnd     = 0xFF

	nameTerminator = 0x00
)

var blockMagic = [4]byte{'P', 'Q', 'M', 'N'}

const (
	// DefaultChunkSize is the number of input bytes one bounded
	// Compress or Decompress call processes.
	DefaultChunkSize = 1_000_000

	// MaxNameLength is the longest segment name a reader accepts.
	MaxNameLength = 4095

	// MaxRecordSize bounds a single record on both sides.
	MaxRecordSize = 64 << 20

	// ChecksumSize is the size of the integrity marker closing a segment.
	ChecksumSize = 20
)

var (
	// ErrNoBlock is returned when the input does not start with a block header.
	ErrNoBlock = errors.New("no container block found")
	// ErrChecksumMismatch is returned when a segment's marker does not match
	// its decoded payload.
	ErrChecksumMismatch = errors.New("segment checksum mismatch")
	// ErrNameTooLong is returned for segment names over MaxNameLength bytes.
	ErrNameTooLong = errors.New("segment name too long")
	// ErrState is returned when engine calls are made out of order.
	ErrState = errors.New("engine call out of order")
)

// Checksum is the 160-bit integrity marker closing a segment: the first
// 20 bytes of the BLAKE3 digest of the segment's payload.
type Checksum [ChecksumSize]byte

// String returns the checksum in hex.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}
