// Package blob stages batch payloads on an external blob store and
// resolves the references the scoring service exchanges for them.
package blob

import (
	"io"
	"time"
)

// Store abstracts the staging storage. A payload is stored under a key
// inside one container; implementations cover S3-compatible services and
// the local disk.
type Store interface {
	Put(key string, data io.Reader, size int64) error
	Get(key string) (data io.ReadCloser, err error)
	// SignedURL returns a time-boxed URL granting the given HTTP method
	// on the key, or "" when the store cannot presign.
	SignedURL(key string, method string, expiry time.Duration) (string, error)
}
