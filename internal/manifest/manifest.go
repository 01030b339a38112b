package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var (
	// ErrNotFound means no manifest exists for the (owner, filename) key.
	ErrNotFound = errors.New("manifest not found")
	// ErrExists means a manifest already exists for the key; manifests are
	// never overwritten.
	ErrExists = errors.New("manifest already exists")
)

const keyPrefix = "drive:"

// Entry references one stored chunk: its content fingerprint, the transport
// handle it was stored under, and how the blob was encoded.
type Entry struct {
	Fingerprint string `json:"fingerprint"`
	Handle      string `json:"handle"`
	Size        int64  `json:"size"`
	Compressed  bool   `json:"compressed,omitempty"`
}

// FileManifest is the ordered list of chunk entries for one file. Entry
// order is reassembly order.
type FileManifest struct {
	Owner     string  `json:"owner"`
	FileName  string  `json:"file_name"`
	FileSize  int64   `json:"file_size"`
	Entries   []Entry `json:"entries"`
	CreatedAt int64   `json:"created_at"` // Unix timestamp
}

// NewFileManifest creates a manifest stamped with the current time.
func NewFileManifest(owner, fileName string, fileSize int64, entries []Entry) FileManifest {
	return FileManifest{
		Owner:     owner,
		FileName:  fileName,
		FileSize:  fileSize,
		Entries:   entries,
		CreatedAt: time.Now().Unix(),
	}
}

// Store wraps BadgerDB for manifest persistence. Each (owner, filename) pair
// is its own key, so operations on unrelated files never contend.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) a BadgerDB at the given path.
func OpenStore(dbPath string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the BadgerDB.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a manifest for a key that must not already exist. The
// existence check and the write run in one transaction, so two concurrent
// uploads of the same file cannot both commit.
func (s *Store) Create(m FileManifest) error {
	key, err := manifestKey(m.Owner, m.FileName)
	if err != nil {
		return err
	}
	val, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, val)
	})
}

// Get retrieves the manifest for (owner, fileName), or ErrNotFound.
func (s *Store) Get(owner, fileName string) (FileManifest, error) {
	var m FileManifest
	key, err := manifestKey(owner, fileName)
	if err != nil {
		return m, err
	}
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	return m, err
}

// Exists reports whether a manifest is stored for (owner, fileName).
func (s *Store) Exists(owner, fileName string) (bool, error) {
	_, err := s.Get(owner, fileName)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the manifest for (owner, fileName). Deleting an absent key
// is not an error.
func (s *Store) Delete(owner, fileName string) error {
	key, err := manifestKey(owner, fileName)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// List returns every manifest stored for owner, in filename order.
func (s *Store) List(owner string) ([]FileManifest, error) {
	prefix, err := ownerPrefix(owner)
	if err != nil {
		return nil, err
	}
	var manifests []FileManifest
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var m FileManifest
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			})
			if err != nil {
				return err
			}
			manifests = append(manifests, m)
		}
		return nil
	})
	return manifests, err
}

// ListFilenames returns the filenames stored for owner, in filename order.
func (s *Store) ListFilenames(owner string) ([]string, error) {
	prefix, err := ownerPrefix(owner)
	if err != nil {
		return nil, err
	}
	var names []string
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(prefix):]))
		}
		return nil
	})
	return names, err
}

// manifestKey builds the badger key for (owner, fileName). The owner must
// not contain the key separator; filenames may.
func manifestKey(owner, fileName string) ([]byte, error) {
	prefix, err := ownerPrefix(owner)
	if err != nil {
		return nil, err
	}
	if fileName == "" {
		return nil, fmt.Errorf("invalid filename: empty")
	}
	return append(prefix, fileName...), nil
}

func ownerPrefix(owner string) ([]byte, error) {
	if owner == "" || strings.Contains(owner, ":") {
		return nil, fmt.Errorf("invalid owner %q", owner)
	}
	return []byte(keyPrefix + owner + ":"), nil
}
