package core

import (
	"errors"
	"fmt"
	"iter"

	"paqman/pkg/engine"
	"paqman/pkg/stream"
)

// errStopList ends a scan early when the caller stops ranging.
var errStopList = errors.New("listing stopped")

// List yields the name of every segment in input, in archive order, after its
// payload and marker have been consumed. The archive is opened when ranging
// starts and closed when it ends, including on break. A failure is yielded
// once as ("", err) and ends the sequence.
func List(input string, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		opts := opts.withDefaults()
		if err := opts.validate(); err != nil {
			yield("", err)
			return
		}

		src, err := stream.OpenSource(input)
		if err != nil {
			yield("", err)
			return
		}
		defer src.Close()

		err = scanArchive(src, input, opts, nil, func(r *engine.Reader, name string) error {
			if _, err := Decode(r, stream.Discard, opts.ChunkSize, !opts.SkipVerify); err != nil {
				return fmt.Errorf("list %s: %w", name, err)
			}
			if !yield(name, nil) {
				return errStopList
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopList) {
			yield("", err)
		}
	}
}

// ListNames collects the segment names of input.
func ListNames(input string, opts Options) ([]string, error) {
	var names []string
	for name, err := range List(input, opts) {
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}
