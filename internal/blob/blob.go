// Package blob stores generated binary documents on the local
// filesystem and returns stable paths for them.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brennholz24/invoicegen"
	"github.com/brennholz24/invoicegen/internal/hints"
)

// Sentinel errors for document storage.
var (
	ErrInvalidDir      = errors.New("invalid document directory")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrWriteFailed     = errors.New("failed to write document")
)

// Compile-time interface check.
var _ invoicegen.BlobStore = (*FileStore)(nil)

// FileStore writes documents under a base directory, creating it on
// first use.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidDir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDir, err)
	}
	return &FileStore{dir: abs}, nil
}

// SavePDF writes data to a file under the store directory and returns
// the absolute path. Filenames must be bare names without separators.
func (s *FileStore) SavePDF(_ context.Context, filename string, data []byte) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v%s", ErrWriteFailed, err, hints.ForOutputDirectory())
	}

	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v%s", ErrWriteFailed, err, hints.ForOutputDirectory())
	}
	return path, nil
}

// Dir returns the resolved base directory.
func (s *FileStore) Dir() string { return s.dir }
