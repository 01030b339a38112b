package compressor

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	original := []byte(strings.Repeat("chunkdrive stores files in pieces. ", 2000))

	compressed, err := CompressChunk(original)
	if err != nil {
		t.Fatalf("failed to compress: %v", err)
	}
	if len(compressed) >= len(original) {
		t.Errorf("repetitive data did not shrink: %d -> %d bytes", len(original), len(compressed))
	}

	decompressed, err := DecompressChunk(compressed)
	if err != nil {
		t.Fatalf("failed to decompress: %v", err)
	}
	if !bytes.Equal(decompressed, original) {
		t.Errorf("round trip changed the data")
	}
}

func TestShouldSkipCompression(t *testing.T) {
	cases := []struct {
		name string
		skip bool
	}{
		{"movie.mp4", true},
		{"photo.JPG", true},
		{"archive.zip", true},
		{"notes.txt", false},
		{"data.csv", false},
		{"noextension", false},
	}
	for _, tc := range cases {
		if got := ShouldSkipCompression(tc.name); got != tc.skip {
			t.Errorf("ShouldSkipCompression(%q) = %v, expected %v", tc.name, got, tc.skip)
		}
	}
}
