package core

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"paqman/pkg/engine"
)

func benchmarkInput(b *testing.B, size int) (string, string) {
	b.Helper()
	testDir := b.TempDir()
	testFile := filepath.Join(testDir, "testfile.dat")
	if err := os.WriteFile(testFile, patterned(size), 0o644); err != nil {
		b.Fatalf("Failed to write test file: %v", err)
	}
	return testDir, testFile
}

func BenchmarkCompression(b *testing.B) {
	sizes := []int{
		1024 * 1024,      // 1MB
		10 * 1024 * 1024, // 10MB
	}

	for _, size := range sizes {
		for _, m := range []engine.Method{engine.MethodFast, engine.MethodBest} {
			b.Run(fmt.Sprintf("Size-%dMB/%s", size/(1024*1024), m.Describe()), func(b *testing.B) {
				testDir, testFile := benchmarkInput(b, size)
				archive := filepath.Join(testDir, "compressed.pqm")
				opts := DefaultOptions()
				opts.Method = m

				b.SetBytes(int64(size))
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := Compress(testFile, archive, opts); err != nil {
						b.Fatalf("Compression failed: %v", err)
					}
				}
			})
		}
	}
}

func BenchmarkDecompression(b *testing.B) {
	sizes := []int{
		1024 * 1024,      // 1MB
		10 * 1024 * 1024, // 10MB
	}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Size-%dMB", size/(1024*1024)), func(b *testing.B) {
			testDir, testFile := benchmarkInput(b, size)
			archive := filepath.Join(testDir, "compressed.pqm")
			if err := Compress(testFile, archive, DefaultOptions()); err != nil {
				b.Fatalf("Compression failed during setup: %v", err)
			}

			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				out := filepath.Join(testDir, fmt.Sprintf("decompressed_%d", i))
				if err := Decompress(archive, out, DefaultOptions()); err != nil {
					b.Fatalf("Decompression failed: %v", err)
				}
				os.RemoveAll(out)
			}
		})
	}
}
