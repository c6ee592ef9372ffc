package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidLocator is returned for locators that resolve outside the base directory.
var ErrInvalidLocator = errors.New("invalid blob locator")

// LocalStorage persists blobs on disk under a base directory. Locators are
// paths relative to that directory.
type LocalStorage struct {
	baseDir string
	now     func() time.Time
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploaded_files"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: abs, now: time.Now}, nil
}

// Put copies r into a new file and returns its locator and byte count. The
// content is written to a temporary file first so a failed copy never leaves
// a partial blob under the final name.
func (s *LocalStorage) Put(ctx context.Context, r io.Reader, suggestedName string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	locator := ObjectName(suggestedName, s.now())
	path := filepath.Join(s.baseDir, locator)

	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("create blob file: %w", err)
	}
	tmpName := tmp.Name()
	size, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if copyErr != nil {
			return Object{}, fmt.Errorf("write blob stream: %w", copyErr)
		}
		return Object{}, fmt.Errorf("close blob file: %w", closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return Object{}, fmt.Errorf("finalise blob file: %w", err)
	}
	return Object{Locator: locator, Size: size}, nil
}

// Get opens the blob for reading.
func (s *LocalStorage) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob file: %w", err)
	}
	return file, nil
}

// Delete removes a stored blob. Deleting a missing blob is not an error.
func (s *LocalStorage) Delete(ctx context.Context, locator string) error {
	path, err := s.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob file: %w", err)
	}
	return nil
}

// Path exposes the absolute path for a locator (useful for debugging).
func (s *LocalStorage) Path(locator string) string {
	path, err := s.resolve(locator)
	if err != nil {
		return ""
	}
	return path
}

func (s *LocalStorage) resolve(locator string) (string, error) {
	if locator == "" || filepath.IsAbs(locator) {
		return "", ErrInvalidLocator
	}
	path := filepath.Join(s.baseDir, filepath.Clean(locator))
	if path != s.baseDir && !strings.HasPrefix(path, s.baseDir+string(os.PathSeparator)) {
		return "", ErrInvalidLocator
	}
	return path, nil
}
