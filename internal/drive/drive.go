package drive

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dream2503/chunkdrive/internal/chunker"
	"github.com/dream2503/chunkdrive/internal/compressor"
	"github.com/dream2503/chunkdrive/internal/manifest"
	"github.com/dream2503/chunkdrive/internal/transport"
)

// DefaultChunkSize is the transport's safe per-message attachment limit.
const DefaultChunkSize int64 = 10_000_000

// ManifestStore is the persistence the orchestrator records manifests in.
// *manifest.Store satisfies it.
type ManifestStore interface {
	Exists(owner, fileName string) (bool, error)
	Get(owner, fileName string) (manifest.FileManifest, error)
	Create(m manifest.FileManifest) error
	Delete(owner, fileName string) error
	List(owner string) ([]manifest.FileManifest, error)
	ListFilenames(owner string) ([]string, error)
}

// Drive orchestrates the chunk codec, the blob transport, and the manifest
// store into all-or-nothing-per-file Upload, Download, and Remove
// operations. Chunks are processed strictly sequentially, in manifest
// order; the transport and the stores are injected at construction.
type Drive struct {
	transport transport.Transport
	manifests ManifestStore
	log       *logrus.Logger
	chunkSize int64
	compress  bool
}

// NewDrive creates a Drive. chunkSize <= 0 selects DefaultChunkSize; a nil
// logger selects a fresh default logrus logger.
func NewDrive(t transport.Transport, ms ManifestStore, log *logrus.Logger, chunkSize int64, compress bool) *Drive {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if log == nil {
		log = logrus.New()
	}
	return &Drive{
		transport: t,
		manifests: ms,
		log:       log,
		chunkSize: chunkSize,
		compress:  compress,
	}
}

// UploadResult reports a successful upload.
type UploadResult struct {
	FileName string
	Chunks   int
	Size     int64
}

// DownloadResult reports a successful download.
type DownloadResult struct {
	FileName string
	Chunks   int
	Size     int64
}

// RemoveResult reports a successful removal.
type RemoveResult struct {
	Files         int
	ChunksDeleted int
}

// FileInfo describes one stored file.
type FileInfo struct {
	FileName string
	Chunks   int
	Size     int64
}

// Upload splits r into chunks, stores each through the transport, and
// commits the manifest only after every chunk is durably stored. A filename
// that already exists for the owner is rejected with KindAlreadyExists and
// nothing is touched. On a chunk failure, every chunk already stored for
// this attempt receives a best-effort compensating delete and no manifest
// is written. size may be negative when unknown; the stream is then chunked
// incrementally.
func (d *Drive) Upload(owner, fileName string, r io.Reader, size int64) (UploadResult, error) {
	exists, err := d.manifests.Exists(owner, fileName)
	if err != nil {
		return UploadResult{}, &OpError{Op: "upload", Stage: StageCheck, Kind: KindTransportFailure, Owner: owner, FileName: fileName, Err: err}
	}
	if exists {
		return UploadResult{}, &OpError{Op: "upload", Stage: StageCheck, Kind: KindAlreadyExists, Owner: owner, FileName: fileName,
			Err: fmt.Errorf("file %q already uploaded", fileName)}
	}

	attempt := uuid.NewString()
	logger := d.log.WithFields(logrus.Fields{
		"owner":   owner,
		"file":    fileName,
		"attempt": attempt,
	})

	total := 0
	if size >= 0 {
		total = chunker.CountChunks(size, d.chunkSize)
		logger = logger.WithField("parts", total)
	}
	logger.Info("starting upload")

	skipCompress := !d.compress || compressor.ShouldSkipCompression(fileName)

	splitter, err := chunker.NewSplitter(r, d.chunkSize)
	if err != nil {
		return UploadResult{}, &OpError{Op: "upload", Stage: StageSplit, Kind: KindIOFailure, Owner: owner, FileName: fileName, Err: err}
	}

	var entries []manifest.Entry
	var written int64

	for {
		chunk, err := splitter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			d.rollback(logger, entries)
			return UploadResult{}, &OpError{Op: "upload", Stage: StageSplit, Kind: KindIOFailure, Owner: owner, FileName: fileName,
				Chunk: len(entries) + 1, Err: err}
		}

		part := chunk.Index + 1
		fingerprint := chunker.Fingerprint(chunk.Data)

		payload := chunk.Data
		compressed := false
		if !skipCompress && len(chunk.Data) > 0 {
			packed, err := compressor.CompressChunk(chunk.Data)
			if err != nil {
				d.rollback(logger, entries)
				return UploadResult{}, &OpError{Op: "upload", Stage: StageSplit, Kind: KindIOFailure, Owner: owner, FileName: fileName,
					Chunk: part, Err: err}
			}
			// Incompressible data grows under the lz4 frame overhead and
			// could exceed the transport's size limit; keep it raw.
			if len(packed) < len(chunk.Data) {
				payload = packed
				compressed = true
			}
		}

		handle, err := d.transport.Store(payload, fingerprint)
		if err != nil {
			logger.WithField("part", part).WithError(err).Error("chunk store failed, rolling back")
			d.rollback(logger, entries)
			return UploadResult{}, &OpError{Op: "upload", Stage: StageStore, Kind: classifyTransport(err), Owner: owner, FileName: fileName,
				Chunk: part, Err: err}
		}

		entries = append(entries, manifest.Entry{
			Fingerprint: fingerprint,
			Handle:      handle,
			Size:        int64(len(chunk.Data)),
			Compressed:  compressed,
		})
		written += int64(len(chunk.Data))

		if total > 0 {
			logger.Debugf("uploaded part %d/%d", part, total)
		} else {
			logger.Debugf("uploaded part %d", part)
		}
	}

	m := manifest.NewFileManifest(owner, fileName, written, entries)
	if err := d.manifests.Create(m); err != nil {
		if errors.Is(err, manifest.ErrExists) {
			// A concurrent upload of the same filename committed first; this
			// attempt's chunks are duplicates and can go.
			d.rollback(logger, entries)
			return UploadResult{}, &OpError{Op: "upload", Stage: StageCommit, Kind: KindAlreadyExists, Owner: owner, FileName: fileName, Err: err}
		}
		// Every chunk is already stored; the chunks are orphaned until an
		// operator sweeps them, but re-uploading is not required.
		logger.WithError(err).Warn("manifest commit failed, stored chunks are orphaned")
		return UploadResult{}, &OpError{Op: "upload", Stage: StageCommit, Kind: KindCommitFailure, Owner: owner, FileName: fileName, Err: err}
	}

	logger.WithField("chunks", len(entries)).Info("upload complete")
	return UploadResult{FileName: fileName, Chunks: len(entries), Size: written}, nil
}

// rollback issues compensating deletes for chunks stored by a failed upload
// attempt. Delete errors are logged and swallowed: the manifest was never
// committed, so a leaked chunk is an orphan, not a correctness problem.
func (d *Drive) rollback(logger *logrus.Entry, entries []manifest.Entry) {
	for i, entry := range entries {
		if err := d.transport.Delete(entry.Handle); err != nil {
			logger.WithFields(logrus.Fields{
				"part":   i + 1,
				"handle": entry.Handle,
			}).WithError(err).Warn("rollback delete failed, chunk orphaned")
		}
	}
}

// Download fetches every chunk of the file in manifest order and writes the
// payloads to w. On any failure the operation aborts immediately with the
// failing 1-based chunk index; bytes already written to w are partial
// output the caller must discard.
func (d *Drive) Download(owner, fileName string, w io.Writer) (DownloadResult, error) {
	m, err := d.manifests.Get(owner, fileName)
	if err != nil {
		kind := KindTransportFailure
		if errors.Is(err, manifest.ErrNotFound) {
			kind = KindNotFound
		}
		return DownloadResult{}, &OpError{Op: "download", Stage: StageFetch, Kind: kind, Owner: owner, FileName: fileName, Err: err}
	}

	logger := d.log.WithFields(logrus.Fields{
		"owner": owner,
		"file":  fileName,
		"parts": len(m.Entries),
	})
	logger.Info("starting download")

	var written int64
	for i, entry := range m.Entries {
		part := i + 1
		if entry.Handle == "" || entry.Fingerprint == "" {
			return DownloadResult{}, &OpError{Op: "download", Stage: StageFetch, Kind: KindCorruptManifest, Owner: owner, FileName: fileName,
				Chunk: part, Err: fmt.Errorf("manifest entry %d is malformed", part)}
		}

		data, err := d.transport.Fetch(entry.Handle)
		if err != nil {
			logger.WithField("part", part).WithError(err).Error("chunk fetch failed")
			return DownloadResult{}, &OpError{Op: "download", Stage: StageFetch, Kind: classifyTransport(err), Owner: owner, FileName: fileName,
				Chunk: part, Err: err}
		}

		if entry.Compressed {
			data, err = compressor.DecompressChunk(data)
			if err != nil {
				return DownloadResult{}, &OpError{Op: "download", Stage: StageFetch, Kind: KindTransportFailure, Owner: owner, FileName: fileName,
					Chunk: part, Err: err}
			}
		}

		// A handle with no retrievable payload is a transport fault unless
		// the manifest says this really is the empty chunk.
		if len(data) == 0 && entry.Fingerprint != chunker.EmptyFingerprint {
			return DownloadResult{}, &OpError{Op: "download", Stage: StageFetch, Kind: KindTransportFailure, Owner: owner, FileName: fileName,
				Chunk: part, Err: fmt.Errorf("empty payload for handle %s", entry.Handle)}
		}

		if err := chunker.Verify(data, entry.Fingerprint); err != nil {
			return DownloadResult{}, &OpError{Op: "download", Stage: StageFetch, Kind: KindTransportFailure, Owner: owner, FileName: fileName,
				Chunk: part, Err: err}
		}

		if _, err := w.Write(data); err != nil {
			return DownloadResult{}, &OpError{Op: "download", Stage: StageJoin, Kind: KindIOFailure, Owner: owner, FileName: fileName,
				Chunk: part, Err: err}
		}
		written += int64(len(data))
		logger.Debugf("downloaded part %d/%d", part, len(m.Entries))
	}

	logger.Info("download complete")
	return DownloadResult{FileName: fileName, Chunks: len(m.Entries), Size: written}, nil
}

// Remove deletes every chunk the file's manifest references, then the
// manifest itself. A chunk the transport no longer has is treated as
// already deleted; any other transport error aborts before the manifest is
// touched, so a retry can resume.
func (d *Drive) Remove(owner, fileName string) (RemoveResult, error) {
	m, err := d.manifests.Get(owner, fileName)
	if err != nil {
		kind := KindTransportFailure
		if errors.Is(err, manifest.ErrNotFound) {
			kind = KindNotFound
		}
		return RemoveResult{}, &OpError{Op: "remove", Stage: StageDelete, Kind: kind, Owner: owner, FileName: fileName, Err: err}
	}

	logger := d.log.WithFields(logrus.Fields{
		"owner": owner,
		"file":  fileName,
		"parts": len(m.Entries),
	})
	logger.Info("removing file")

	deleted := 0
	for i, entry := range m.Entries {
		part := i + 1
		err := d.transport.Delete(entry.Handle)
		if err == nil {
			deleted++
			logger.Debugf("deleted part %d/%d", part, len(m.Entries))
			continue
		}
		if errors.Is(err, transport.ErrNotFound) {
			logger.WithField("part", part).Debug("chunk already gone")
			continue
		}
		logger.WithField("part", part).WithError(err).Error("chunk delete failed, manifest kept for retry")
		return RemoveResult{}, &OpError{Op: "remove", Stage: StageDelete, Kind: classifyTransport(err), Owner: owner, FileName: fileName,
			Chunk: part, Err: err}
	}

	if err := d.manifests.Delete(owner, fileName); err != nil {
		return RemoveResult{}, &OpError{Op: "remove", Stage: StageCommit, Kind: KindCommitFailure, Owner: owner, FileName: fileName, Err: err}
	}

	logger.WithField("deleted", deleted).Info("file removed")
	return RemoveResult{Files: 1, ChunksDeleted: deleted}, nil
}

// RemoveAll removes every file stored for owner. The first per-file failure
// aborts the pass with that file's error; files already removed stay
// removed.
func (d *Drive) RemoveAll(owner string) (RemoveResult, error) {
	names, err := d.manifests.ListFilenames(owner)
	if err != nil {
		return RemoveResult{}, &OpError{Op: "remove", Stage: StageDelete, Kind: KindTransportFailure, Owner: owner, Err: err}
	}

	var result RemoveResult
	for _, name := range names {
		r, err := d.Remove(owner, name)
		if err != nil {
			return result, err
		}
		result.Files += r.Files
		result.ChunksDeleted += r.ChunksDeleted
	}
	return result, nil
}

// List returns the files stored for owner, in filename order.
func (d *Drive) List(owner string) ([]FileInfo, error) {
	manifests, err := d.manifests.List(owner)
	if err != nil {
		return nil, &OpError{Op: "list", Stage: StageFetch, Kind: KindTransportFailure, Owner: owner, Err: err}
	}

	infos := make([]FileInfo, 0, len(manifests))
	for _, m := range manifests {
		infos = append(infos, FileInfo{
			FileName: m.FileName,
			Chunks:   len(m.Entries),
			Size:     m.FileSize,
		})
	}
	return infos, nil
}
