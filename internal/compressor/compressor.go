package compressor

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

var skipExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".zip": true, ".rar": true, ".7z": true,
	".mp3": true, ".flac": true, ".aac": true,
	".apk": true, ".iso": true,
}

// ShouldSkipCompression reports whether the file's extension marks content
// that is already compressed and not worth running through lz4.
func ShouldSkipCompression(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	return skipExtensions[ext]
}

func CompressChunk(chunkData []byte) ([]byte, error) {
	var compressed bytes.Buffer
	writer := lz4.NewWriter(&compressed)
	if _, err := writer.Write(chunkData); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	return compressed.Bytes(), nil
}

func DecompressChunk(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))
	var decompressed bytes.Buffer

	if _, err := io.Copy(&decompressed, reader); err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}

	return decompressed.Bytes(), nil
}
