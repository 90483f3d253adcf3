package engine

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"paqman/pkg/fault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPayloads returns incompressible and highly compressible inputs.
func testPayloads() map[string][]byte {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 300_000)
	rng.Read(random)

	text := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog\n", 5000))

	return map[string][]byte{
		"empty":  {},
		"byte":   {0x42},
		"random": random,
		"text":   text,
	}
}

type segment struct {
	name string
	data []byte
}

func writeBlock(t *testing.T, m Method, chunk int, segments ...segment) []byte {
	t.Helper()

	var out bytes.Buffer
	w := NewWriter(&out)
	defer w.Close()

	require.NoError(t, w.StartBlock(m))
	for _, s := range segments {
		w.SetInput(bytes.NewReader(s.data))
		require.NoError(t, w.StartSegment(s.name))
		for more := true; more; {
			var err error
			more, err = w.Compress(chunk)
			require.NoError(t, err)
		}
		_, err := w.EndSegment()
		require.NoError(t, err)
	}
	require.NoError(t, w.EndBlock())
	return out.Bytes()
}

func readBlock(t *testing.T, archive []byte, chunk int) []segment {
	t.Helper()

	r := NewReader(bytes.NewReader(archive))
	defer r.Close()

	var got []segment
	for {
		_, found, err := r.FindBlock()
		require.NoError(t, err)
		if !found {
			return got
		}
		for {
			var name bytes.Buffer
			found, err := r.FindFilename(&name)
			require.NoError(t, err)
			if !found {
				break
			}
			var data bytes.Buffer
			r.SetOutput(&data)
			for more := true; more; {
				more, err = r.Decompress(chunk)
				require.NoError(t, err)
			}
			sum, err := r.ReadSegmentEnd()
			require.NoError(t, err)
			require.Equal(t, r.Digest(), sum, "marker of %s", name.String())
			got = append(got, segment{name: name.String(), data: data.Bytes()})
		}
	}
}

func TestParseMethod(t *testing.T) {
	for i, s := range []string{"0", "1", "2", "3", "4", "5"} {
		m, err := ParseMethod(s)
		require.NoError(t, err)
		assert.Equal(t, Method(i), m)
		assert.Equal(t, s, m.String())
	}

	for _, s := range []string{"", "6", "9", "-1", "55", "a", " 5"} {
		_, err := ParseMethod(s)
		assert.ErrorIs(t, err, fault.ErrValidation, "method %q", s)
	}

	assert.Equal(t, MethodBest, DefaultMethod)
	assert.Equal(t, "store", MethodStore.Describe())
}

func TestRoundTripAllMethods(t *testing.T) {
	for name, data := range testPayloads() {
		for m := MethodStore; m <= MethodBest; m++ {
			t.Run(name+"/"+m.Describe(), func(t *testing.T) {
				archive := writeBlock(t, m, 64*1024, segment{name: "file.bin", data: data})
				got := readBlock(t, archive, 64*1024)

				require.Len(t, got, 1)
				assert.Equal(t, "file.bin", got[0].name)
				assert.True(t, bytes.Equal(data, got[0].data), "payload mismatch")
			})
		}
	}
}

func TestCompressibleDataShrinks(t *testing.T) {
	text := testPayloads()["text"]
	for m := MethodFast; m <= MethodBest; m++ {
		archive := writeBlock(t, m, DefaultChunkSize, segment{name: "t", data: text})
		assert.Less(t, len(archive), len(text)/4, "method %s", m.Describe())
	}
}

func TestRandomDataIsStored(t *testing.T) {
	random := testPayloads()["random"]
	archive := writeBlock(t, MethodBest, DefaultChunkSize, segment{name: "r", data: random})

	// Framing only: header, name, one record header, marker, block end.
	assert.Less(t, len(archive), len(random)+64)
}

func TestSegmentsKeepOrder(t *testing.T) {
	segments := []segment{
		{name: "b.txt", data: []byte("bravo")},
		{name: "a/z.txt", data: []byte("zulu")},
		{name: "a/a.txt", data: nil},
		{name: "c", data: bytes.Repeat([]byte{7}, 10_000)},
	}
	archive := writeBlock(t, MethodDefault, 1000, segments...)
	got := readBlock(t, archive, 333)

	require.Len(t, got, len(segments))
	for i := range segments {
		assert.Equal(t, segments[i].name, got[i].name)
		assert.Equal(t, len(segments[i].data), len(got[i].data))
	}
}

func TestConcatenatedBlocks(t *testing.T) {
	first := writeBlock(t, MethodStore, 100, segment{name: "one", data: []byte("1")})
	second := writeBlock(t, MethodFast, 100, segment{name: "two", data: []byte("22")})

	got := readBlock(t, append(append([]byte{}, first...), second...), 100)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].name)
	assert.Equal(t, "two", got[1].name)
}

func TestOneShotRoundTrip(t *testing.T) {
	data := testPayloads()["text"]

	var archive bytes.Buffer
	require.NoError(t, Compress(bytes.NewReader(data), &archive, MethodFastHC, "hello.txt"))

	var out bytes.Buffer
	require.NoError(t, Decompress(bytes.NewReader(archive.Bytes()), &out))
	assert.True(t, bytes.Equal(data, out.Bytes()))
}

func TestFindBlockRejectsForeignInput(t *testing.T) {
	tests := map[string][]byte{
		"text":      []byte("definitely not an archive"),
		"short":     []byte("PQ"),
		"version":   {'P', 'Q', 'M', 'N', 9, 0},
		"bad level": {'P', 'Q', 'M', 'N', formatVersion, 6},
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			r := NewReader(bytes.NewReader(input))
			_, found, err := r.FindBlock()
			assert.False(t, found)
			assert.ErrorIs(t, err, fault.ErrFormat)
		})
	}

	err := Decompress(bytes.NewReader(nil), &bytes.Buffer{})
	assert.ErrorIs(t, err, fault.ErrFormat)
	assert.ErrorIs(t, err, ErrNoBlock)
}

func TestTruncatedBlock(t *testing.T) {
	archive := writeBlock(t, MethodBest, 1000, segment{name: "f", data: testPayloads()["text"]})

	for _, cut := range []int{7, len(archive) / 2, len(archive) - 5, len(archive) - 1} {
		err := Decompress(bytes.NewReader(archive[:cut]), &bytes.Buffer{})
		assert.ErrorIs(t, err, fault.ErrFormat, "cut at %d", cut)
	}
}

func TestTamperedPayload(t *testing.T) {
	archive := writeBlock(t, MethodStore, 1000, segment{name: "f", data: []byte("hello world")})
	i := bytes.Index(archive, []byte("hello"))
	require.Positive(t, i)
	archive[i] = 'j'

	err := Decompress(bytes.NewReader(archive), &bytes.Buffer{})
	assert.ErrorIs(t, err, fault.ErrFormat)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestStartSegmentValidatesName(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	defer w.Close()
	require.NoError(t, w.StartBlock(MethodStore))

	err := w.StartSegment(strings.Repeat("n", MaxNameLength+1))
	assert.ErrorIs(t, err, fault.ErrValidation)
	assert.ErrorIs(t, err, ErrNameTooLong)

	err = w.StartSegment("bad\x00name")
	assert.ErrorIs(t, err, fault.ErrValidation)

	assert.NoError(t, w.StartSegment(strings.Repeat("n", MaxNameLength)))
}

func TestCallOrder(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	defer w.Close()

	assert.ErrorIs(t, w.StartSegment("x"), ErrState)
	_, err := w.Compress(10)
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorIs(t, w.EndBlock(), ErrState)
	assert.ErrorIs(t, w.StartBlock(Method(9)), fault.ErrValidation)

	require.NoError(t, w.StartBlock(MethodStore))
	assert.ErrorIs(t, w.StartBlock(MethodStore), ErrState)
	_, err = w.EndSegment()
	assert.ErrorIs(t, err, ErrState)

	archive := writeBlock(t, MethodStore, 10, segment{name: "a", data: []byte("abc")})
	r := NewReader(bytes.NewReader(archive))
	_, err = r.Decompress(10)
	assert.ErrorIs(t, err, ErrState)
	_, err = r.FindFilename(nil)
	assert.ErrorIs(t, err, ErrState)
	_, found, err := r.FindBlock()
	require.NoError(t, err)
	require.True(t, found)
	_, err = r.ReadSegmentEnd()
	assert.ErrorIs(t, err, ErrState)
}
