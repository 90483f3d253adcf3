package engine

import (
	"fmt"

	"paqman/pkg/fault"
	"paqman/pkg/stream"
)

// Compress writes src to dst as a single block holding one segment named
// name.
func Compress(src stream.Source, dst stream.Sink, m Method, name string) error {
	w := NewWriter(dst)
	defer w.Close()

	if err := w.StartBlock(m); err != nil {
		return err
	}
	w.SetInput(src)
	if err := w.StartSegment(name); err != nil {
		return err
	}
	for more := true; more; {
		var err error
		if more, err = w.Compress(DefaultChunkSize); err != nil {
			return err
		}
	}
	if _, err := w.EndSegment(); err != nil {
		return err
	}
	if err := w.EndBlock(); err != nil {
		return err
	}
	return w.Close()
}

// Decompress writes the payload of every segment in src to dst, in order,
// checking each segment's marker.
func Decompress(src stream.Source, dst stream.Sink) error {
	r := NewReader(src)
	defer r.Close()
	r.SetOutput(dst)

	for blocks := 0; ; blocks++ {
		_, found, err := r.FindBlock()
		if err != nil {
			return err
		}
		if !found {
			if blocks == 0 {
				return fault.Format("find block", "", ErrNoBlock)
			}
			return nil
		}

		for {
			found, err := r.FindFilename(nil)
			if err != nil {
				return err
			}
			if !found {
				break
			}
			for more := true; more; {
				if more, err = r.Decompress(DefaultChunkSize); err != nil {
					return err
				}
			}
			sum, err := r.ReadSegmentEnd()
			if err != nil {
				return err
			}
			if sum != r.Digest() {
				return fault.Format("verify segment", "", fmt.Errorf("%w: stored %s", ErrChecksumMismatch, sum))
			}
		}
	}
}
