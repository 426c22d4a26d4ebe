package blob

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

// DiskStore keeps blobs under a local directory. Used by tests and by
// local development against the mock service.
type DiskStore struct {
	DataDir string
}

// NewDiskStore creates a disk-backed store rooted at dataDir.
func NewDiskStore(dataDir string) *DiskStore {
	return &DiskStore{DataDir: dataDir}
}

// Put writes the payload under DataDir, creating sub-directories for any
// slashes in the key.
func (s *DiskStore) Put(key string, data io.Reader, size int64) error {
	path := filepath.Join(s.DataDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(file, data)
	return err
}

// Get opens the payload stored under key. The caller closes it.
func (s *DiskStore) Get(key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.DataDir, filepath.FromSlash(key)))
}

// SignedURL is not supported on disk; refs carry only the relative
// location.
func (s *DiskStore) SignedURL(key string, method string, expiry time.Duration) (string, error) {
	return "", nil
}
