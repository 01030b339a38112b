package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Chunk is one bounded slice of a file's bytes, the unit of transport upload.
type Chunk struct {
	Index int // 0-based position within the file
	Data  []byte
}

// Splitter reads a byte stream and yields chunks of at most chunkSize bytes,
// in order. A zero-length stream yields exactly one empty chunk, so that an
// empty file is never confused with an absent one. A stream whose length is
// an exact multiple of chunkSize yields no trailing empty chunk.
type Splitter struct {
	r         io.Reader
	chunkSize int64
	index     int
	done      bool
}

// NewSplitter creates a Splitter over r. chunkSize must be at least 1.
func NewSplitter(r io.Reader, chunkSize int64) (*Splitter, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("invalid chunk size: %d", chunkSize)
	}
	return &Splitter{r: r, chunkSize: chunkSize}, nil
}

// Next returns the next chunk in sequence, or io.EOF once the stream is
// exhausted. The returned data is a fresh copy safe to retain.
func (s *Splitter) Next() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}

	buf := make([]byte, s.chunkSize)
	n, err := io.ReadFull(s.r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		s.done = true
		return Chunk{}, fmt.Errorf("failed to read chunk: %w", err)
	}

	if n < int(s.chunkSize) {
		s.done = true
	}

	if n == 0 && s.index > 0 {
		return Chunk{}, io.EOF
	}

	chunk := Chunk{Index: s.index, Data: buf[:n]}
	s.index++
	return chunk, nil
}

// Fingerprint returns the hex-encoded SHA-256 digest of data.
func Fingerprint(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// EmptyFingerprint is the digest of a zero-length chunk.
var EmptyFingerprint = Fingerprint(nil)

// CountChunks returns the number of chunks a stream of the given size splits
// into: ceil(size/chunkSize), with a minimum of 1 (an empty file is a single
// empty chunk).
func CountChunks(size, chunkSize int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + chunkSize - 1) / chunkSize)
}
