package drive

import (
	"errors"
	"fmt"

	"github.com/dream2503/chunkdrive/internal/transport"
)

// Kind classifies an operation failure for callers that need to branch on
// it (the command layer, retry tooling).
type Kind string

const (
	// KindNotFound: the manifest or a referenced chunk is absent.
	KindNotFound Kind = "not_found"
	// KindAlreadyExists: upload rejected because the filename is taken.
	KindAlreadyExists Kind = "already_exists"
	// KindTransportFailure: a store/fetch/delete call failed for a reason
	// outside the caller's control.
	KindTransportFailure Kind = "transport_failure"
	// KindPermissionDenied: the transport refused access.
	KindPermissionDenied Kind = "permission_denied"
	// KindCorruptManifest: a stored manifest references a malformed entry.
	KindCorruptManifest Kind = "corrupt_manifest"
	// KindCommitFailure: every chunk was stored but the manifest write
	// failed; the chunks do not need re-uploading.
	KindCommitFailure Kind = "commit_failure"
	// KindIOFailure: the caller's source or sink failed mid-operation.
	KindIOFailure Kind = "io_failure"
)

// Stage names the phase of an operation that failed.
type Stage string

const (
	StageCheck  Stage = "check"
	StageSplit  Stage = "split"
	StageStore  Stage = "store"
	StageCommit Stage = "commit"
	StageFetch  Stage = "fetch"
	StageJoin   Stage = "join"
	StageDelete Stage = "delete"
)

// OpError is the failure type every Drive operation returns. It carries
// enough context for a manual retry: the operation, the stage it died in,
// the file, and the 1-based chunk index when the failure is chunk-specific.
type OpError struct {
	Op       string
	Stage    Stage
	Kind     Kind
	Owner    string
	FileName string
	Chunk    int // 1-based failing chunk index, 0 if not chunk-specific
	Err      error
}

func (e *OpError) Error() string {
	if e.Chunk > 0 {
		return fmt.Sprintf("%s %q for %s: %s failed at chunk %d: %v", e.Op, e.FileName, e.Owner, e.Stage, e.Chunk, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %q for %s: %s failed: %v", e.Op, e.FileName, e.Owner, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %q for %s: %s failed: %s", e.Op, e.FileName, e.Owner, e.Stage, e.Kind)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// ErrKind extracts the Kind from an error returned by a Drive operation, or
// "" if the error is not an OpError.
func ErrKind(err error) Kind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}

// classifyTransport maps a transport error to its Kind.
func classifyTransport(err error) Kind {
	switch {
	case errors.Is(err, transport.ErrNotFound):
		return KindNotFound
	case errors.Is(err, transport.ErrPermission):
		return KindPermissionDenied
	default:
		return KindTransportFailure
	}
}
