package chunker

import (
	"fmt"
	"io"
)

// Join writes the chunk payloads to w in the order given. The caller must
// supply every chunk of the file, in sequence order; no reordering or gap
// detection is performed beyond the count check against expected.
func Join(w io.Writer, chunks [][]byte, expected int) (int64, error) {
	if len(chunks) != expected {
		return 0, fmt.Errorf("chunk count mismatch: got %d, expected %d", len(chunks), expected)
	}

	var written int64
	for i, data := range chunks {
		n, err := w.Write(data)
		if err != nil {
			return written, fmt.Errorf("failed to write chunk %d: %w", i, err)
		}
		written += int64(n)
	}
	return written, nil
}

// Verify checks data against its recorded fingerprint.
func Verify(data []byte, fingerprint string) error {
	if got := Fingerprint(data); got != fingerprint {
		return fmt.Errorf("fingerprint mismatch: expected %s, got %s", fingerprint, got)
	}
	return nil
}
