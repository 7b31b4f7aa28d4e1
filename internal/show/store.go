package show

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the single show document.
type Store interface {
	// Load returns the stored document, or Default() when none exists yet.
	Load(ctx context.Context) (*Document, error)

	// Save replaces the stored document.
	Save(ctx context.Context, doc *Document) error
}

const (
	showDirPermissions  = 0750
	showFilePermissions = 0600
)

// FileStore keeps the document as a JSON file. Writes go to a temporary file
// that is renamed over the target so readers never see a partial document.
type FileStore struct {
	path string

	mu              sync.Mutex
	lastFingerprint string
}

// NewFileStore creates a store for path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document path.
func (s *FileStore) Path() string { return s.path }

// Load reads and validates the document. A missing file yields Default().
func (s *FileStore) Load(_ context.Context) (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading show document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.lastFingerprint = Fingerprint(doc)
	s.mu.Unlock()
	return doc, nil
}

// Save writes the document atomically.
func (s *FileStore) Save(_ context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, showDirPermissions); err != nil {
		return fmt.Errorf("creating show directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".show-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("writing show document: %w", err)
	}
	if err := tmp.Chmod(showFilePermissions); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing show document: %w", err)
	}
	s.lastFingerprint = Fingerprint(doc)
	return nil
}

// LastFingerprint is the fingerprint of the document last loaded or saved.
func (s *FileStore) LastFingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFingerprint
}
