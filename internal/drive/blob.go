package drive

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned (wrapped) by BlobStore.Get when nothing is
// stored under the key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds the raw bytes of the tree, keyed by path.
// Keys look like "<ownerID>/docs/report.pdf". Directories are real objects
// (or markers) so that Exists reports them.
type BlobStore interface {
	// Put stores size bytes read from r under key, replacing any previous value.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the bytes stored under key to w.
	Get(ctx context.Context, key string, w io.Writer) error

	// MakeDir creates a directory at key, including missing parents.
	MakeDir(ctx context.Context, key string) error

	// Move renames key, and everything beneath it, to newKey.
	Move(ctx context.Context, key, newKey string) error

	// Delete removes key and everything beneath it.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a file or directory is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// ValidateSetup verifies that the store is reachable and writable.
	ValidateSetup(ctx context.Context) error
}

// Notifier tells a user that something was shared with them.
// Failures are logged by the caller and never fail the share.
type Notifier interface {
	Send(ctx context.Context, email string, link string) error
}
