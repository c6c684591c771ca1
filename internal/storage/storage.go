// Package storage contains the content store for uploaded document binaries.
//
// Objects are addressed by a key on write. Put returns ObjectInfo.Location,
// the value persisted as a document's file path; every other method accepts
// either the key or that location.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"

	"docvault/internal/config"
)

const (
	DriverLocal = "local"
	DriverMinIO = "minio"
)

// ErrOutsideRoot is returned for a reference that resolves outside the content directory.
var ErrOutsideRoot = errors.New("path is outside the content directory")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key string
	// Location is the durable reference for the object: an absolute file path
	// for the local backend, the object key for MinIO.
	Location     string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the content store used by the document service.
// Missing objects are reported with errors wrapping fs.ErrNotExist.
type Storage interface {
	// Put writes an object under key, replacing any object already stored there.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, ref string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object.
	Delete(ctx context.Context, ref string) error
}

// New builds the backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, minioCfg config.MinIOConfig) (Storage, error) {
	switch cfg.Driver {
	case "", DriverLocal:
		return NewLocal(afero.NewOsFs(), cfg.UploadDir)
	case DriverMinIO:
		return NewMinIO(ctx, minioCfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
