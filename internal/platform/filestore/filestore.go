// Package filestore stores uploaded medical record files. It validates type
// and size before anything touches disk, names stored files so concurrent
// uploads never collide, and ships a local-disk implementation plus an
// in-memory one for tests and the fallback backend.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrInvalidFileType = errors.New("file type is not allowed")
	ErrMissingFileName = errors.New("file name is required")
)

// MaxFileSize is the maximum allowed upload size in bytes (10 MiB).
const MaxFileSize = 10 * 1024 * 1024

// allowedExtensions and allowedContentTypes must BOTH match for an upload to
// be accepted.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
}

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var allowedContentTypes = map[string]bool{
	"application/pdf":          true,
	"image/jpeg":               true,
	"image/png":                true,
	"application/msword":       true,
	"application/vnd.ms-excel": true,
	docxContentType:            true,
	xlsxContentType:            true,
}

// ValidateFile checks name, content type, and declared size against the
// allow-list. A zero size is permitted: the store re-checks actual bytes.
func ValidateFile(fileName, contentType string, size int64) error {
	if fileName == "" {
		return ErrMissingFileName
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtensions[ext] {
		return ErrInvalidFileType
	}
	if !allowedContentTypes[contentType] {
		return ErrInvalidFileType
	}
	if size > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// StoredName builds the on-disk name for an upload. The millisecond prefix
// and actor ID keep simultaneous uploads of identically named files apart.
func StoredName(actorID int64, originalName string) string {
	base := filepath.Base(originalName)
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%d-%d-%s", time.Now().UnixMilli(), actorID, base)
}

// Store is the contract for upload storage backends.
type Store interface {
	// Save validates and persists content, returning the stored name and
	// byte count.
	Save(ctx context.Context, actorID int64, originalName, contentType string, content io.Reader) (string, int64, error)
	// Open returns a reader over a stored file. The caller closes it.
	Open(ctx context.Context, storedName string) (io.ReadCloser, error)
	Delete(ctx context.Context, storedName string) error
}

// readBounded reads at most MaxFileSize bytes, erroring when content is larger.
func readBounded(content io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// Local disk implementation
// ---------------------------------------------------------------------------

// LocalStore persists uploads under a single directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the directory uploads are stored in.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Save(_ context.Context, actorID int64, originalName, contentType string, content io.Reader) (string, int64, error) {
	if err := ValidateFile(originalName, contentType, 0); err != nil {
		return "", 0, err
	}

	data, err := readBounded(content)
	if err != nil {
		return "", 0, err
	}

	name := StoredName(actorID, originalName)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", 0, fmt.Errorf("write file: %w", err)
	}
	return name, int64(len(data)), nil
}

func (s *LocalStore) Open(_ context.Context, storedName string) (io.ReadCloser, error) {
	// Base() guards against path traversal in stored names read back from
	// the database.
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(storedName)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, storedName string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(storedName)))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

// MemoryStore is a thread-safe, in-memory Store used by tests and by the
// fallback backend when Postgres is unreachable.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, actorID int64, originalName, contentType string, content io.Reader) (string, int64, error) {
	if err := ValidateFile(originalName, contentType, 0); err != nil {
		return "", 0, err
	}

	data, err := readBounded(content)
	if err != nil {
		return "", 0, err
	}

	name := StoredName(actorID, originalName)
	s.mu.Lock()
	s.files[name] = data
	s.mu.Unlock()
	return name, int64(len(data)), nil
}

func (s *MemoryStore) Open(_ context.Context, storedName string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.files[storedName]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, storedName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[storedName]; !ok {
		return ErrFileNotFound
	}
	delete(s.files, storedName)
	return nil
}

// Len reports how many files are stored. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
