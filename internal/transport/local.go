package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalTransport implements Transport on the local filesystem. Each blob is
// one file in a flat directory; the handle is the file name.
type LocalTransport struct {
	basePath string
}

// NewLocalTransport creates a LocalTransport rooted at basePath.
func NewLocalTransport(basePath string) (*LocalTransport, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &LocalTransport{basePath: basePath}, nil
}

// Store writes data to a new file named after the suggested name plus a
// unique suffix, so identical chunks stored twice get distinct handles.
func (t *LocalTransport) Store(data []byte, suggestedName string) (string, error) {
	handle := uuid.NewString()
	if suggestedName != "" {
		handle = suggestedName + "-" + handle
	}

	filePath := filepath.Join(t.basePath, handle)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		if os.IsPermission(err) {
			return "", fmt.Errorf("failed to write blob: %w", ErrPermission)
		}
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return handle, nil
}

// Fetch reads the blob for handle.
func (t *LocalTransport) Fetch(handle string) ([]byte, error) {
	filePath, err := t.blobPath(handle)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", handle, ErrNotFound)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("blob %s: %w", handle, ErrPermission)
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", handle, err)
	}
	return data, nil
}

// Delete removes the blob for handle.
func (t *LocalTransport) Delete(handle string) error {
	filePath, err := t.blobPath(handle)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("blob %s: %w", handle, ErrNotFound)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("blob %s: %w", handle, ErrPermission)
		}
		return fmt.Errorf("failed to delete blob %s: %w", handle, err)
	}
	return nil
}

// blobPath resolves a handle to a file path, rejecting handles that would
// escape the blob directory.
func (t *LocalTransport) blobPath(handle string) (string, error) {
	if handle == "" || handle != filepath.Base(handle) || strings.HasPrefix(handle, ".") {
		return "", fmt.Errorf("invalid handle %q", handle)
	}
	return filepath.Join(t.basePath, handle), nil
}
