package lib

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamRoundTrip(t *testing.T) {
	data := strings.Repeat("streamed through the facade\n", 2000)

	var archive bytes.Buffer
	require.NoError(t, CompressStream(strings.NewReader(data), &archive, MethodBetter, "stdin"))
	assert.Less(t, archive.Len(), len(data))

	var out bytes.Buffer
	require.NoError(t, DecompressStream(&archive, &out))
	assert.Equal(t, data, out.String())
}

func TestDecompressStreamRejectsGarbage(t *testing.T) {
	err := DecompressStream(strings.NewReader("garbage"), &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestPathWrappers(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("wrapped"), 0o644))

	m, err := ParseMethod("2")
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.Method = m

	archive := filepath.Join(dir, "in.pqm")
	require.NoError(t, Compress(in, archive, opts))

	names, err := ListNames(archive, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"in.txt"}, names)

	out := filepath.Join(dir, "out")
	require.NoError(t, Decompress(archive, out, opts))
	got, err := os.ReadFile(filepath.Join(out, "in.txt"))
	require.NoError(t, err)
	assert.Equal(t, "wrapped", string(got))

	_, err = ParseMethod("x")
	assert.ErrorIs(t, err, ErrValidation)
}
