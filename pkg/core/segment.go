package core

import (
	"fmt"
	"strings"

	"paqman/pkg/engine"
	"paqman/pkg/fault"
	"paqman/pkg/stream"
)

// Encode writes src as one segment named name into the open block of w,
// moving at most chunk bytes per engine step.
func Encode(w *engine.Writer, name string, src stream.Source, chunk int) (engine.Checksum, error) {
	w.SetInput(src)
	if err := w.StartSegment(name); err != nil {
		return engine.Checksum{}, err
	}
	for more := true; more; {
		var err error
		if more, err = w.Compress(chunk); err != nil {
			return engine.Checksum{}, err
		}
	}
	return w.EndSegment()
}

// Decode writes the payload of the current segment into sink and consumes the
// trailing marker, which it returns. With verify set, a marker that does not
// match the decoded bytes is a format error.
func Decode(r *engine.Reader, sink stream.Sink, chunk int, verify bool) (engine.Checksum, error) {
	r.SetOutput(sink)
	for more := true; more; {
		var err error
		if more, err = r.Decompress(chunk); err != nil {
			return engine.Checksum{}, err
		}
	}

	sum, err := r.ReadSegmentEnd()
	if err != nil {
		return engine.Checksum{}, err
	}
	if verify {
		if got := r.Digest(); got != sum {
			return sum, fault.Format("verify segment", "",
				fmt.Errorf("%w: stored %s, decoded %s", engine.ErrChecksumMismatch, sum, got))
		}
	}
	return sum, nil
}

// ReadName reads the next segment name. ok is false once the current block
// has no more segments.
func ReadName(r *engine.Reader) (name string, ok bool, err error) {
	var buf nameBuffer
	found, err := r.FindFilename(&buf)
	if err != nil || !found {
		return "", false, err
	}
	return buf.String(), true, nil
}

// nameBuffer collects a segment name and refuses to grow past
// engine.MaxNameLength.
type nameBuffer struct {
	strings.Builder
}

func (b *nameBuffer) WriteByte(c byte) error {
	if b.Len() >= engine.MaxNameLength {
		return fault.Format("read name", "", fmt.Errorf("%w: more than %d bytes", engine.ErrNameTooLong, engine.MaxNameLength))
	}
	return b.Builder.WriteByte(c)
}
