package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps user config files and PAQMAN_* variables out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, env := range os.Environ() {
		if key, _, ok := strings.Cut(env, "="); ok && strings.HasPrefix(key, "PAQMAN_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	t.Chdir(dir)
	return dir
}

func runCLI(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestUsage(t *testing.T) {
	isolate(t)

	for _, args := range [][]string{nil, {"--help"}} {
		stdout, _, err := runCLI(args...)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Usage:")
		assert.Contains(t, stdout, "Available Commands:")
	}
}

func TestCompressListExtract(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "sub", "b.txt"), []byte("bravo"), 0o644))

	_, stderr, err := runCLI("c", "src", "out/src.pqm", "1")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "archive written")

	stdout, _, err := runCLI("l", "out/src.pqm")
	require.NoError(t, err)
	assert.Equal(t, "a.txt\nsub/b.txt\n", stdout)

	_, _, err = runCLI("--log-level", "error", "d", "out/src.pqm", "restored")
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "restored", "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bravo", string(got))
}

func TestMethodFromEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte(strings.Repeat("z", 10_000)), 0o644))
	t.Setenv("PAQMAN_METHOD", "0")

	_, _, err := runCLI("c", "in.txt", "in.pqm")
	require.NoError(t, err)
	info, err := os.Stat(filepath.Join(dir, "in.pqm"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(10_000), "store method should not compress")
}

func TestFailuresExitWithOneLine(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.pqm"), []byte("not an archive"), 0o644))

	tests := map[string]struct {
		args []string
		want string
	}{
		"invalid method":  {[]string{"c", "in.txt", "o.pqm", "9"}, "invalid method"},
		"missing input":   {[]string{"c", "missing", "o.pqm"}, "missing"},
		"not an archive":  {[]string{"l", "junk.pqm"}, "junk.pqm"},
		"missing archive": {[]string{"d", "nope.pqm", "out"}, "nope.pqm"},
		"too few args":    {[]string{"c", "in.txt"}, "accepts between 2 and 3 arg(s)"},
		"unknown verb":    {[]string{"x", "a"}, "unknown command"},
		"bad log level":   {[]string{"--log-level", "loud", "l", "junk.pqm"}, "log_level"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			stdout, stderr, err := runCLI(append([]string{"--log-level", "error"}, tt.args...)...)
			require.Error(t, err)
			assert.Empty(t, stdout)
			assert.Equal(t, 1, strings.Count(stderr, "\n"), "stderr: %q", stderr)
			assert.Contains(t, stderr, tt.want)
		})
	}
}
