package transport

import (
	"errors"
)

// Sentinel errors implementations must return (possibly wrapped) so callers
// can classify failures with errors.Is.
var (
	// ErrNotFound means no blob exists for the given handle.
	ErrNotFound = errors.New("blob not found")
	// ErrPermission means the transport refused access to the blob.
	ErrPermission = errors.New("permission denied")
)

// Transport stores opaque blobs and hands back identifiers for later
// retrieval or deletion. In production the blobs live as message attachments
// on a chat platform; the handle is the message id. Every blob passed to
// Store is at most the configured chunk size; behavior for larger blobs is
// undefined.
type Transport interface {
	// Store persists data and returns an opaque handle. suggestedName is a
	// human-readable hint (the chunk fingerprint); the transport may ignore
	// it. Two Store calls always yield distinct handles, even for identical
	// content.
	Store(data []byte, suggestedName string) (string, error)
	// Fetch returns the blob for handle, or ErrNotFound.
	Fetch(handle string) ([]byte, error)
	// Delete removes the blob for handle. Returns ErrNotFound if no such
	// blob exists and ErrPermission if the transport refuses the deletion.
	Delete(handle string) error
}
