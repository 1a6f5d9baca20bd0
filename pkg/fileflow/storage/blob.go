package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotConfigured is returned by every call on a store built without
// credentials.
var ErrNotConfigured = errors.New("blob store not configured")

// ErrExists is returned by Put when the key is already taken. Objects are
// never overwritten.
var ErrExists = errors.New("blob already exists")

// BlobStore holds raw artifact bytes, addressed by key, in a single bucket.
type BlobStore interface {
	// EnsureBucket creates the bucket if it does not exist yet and makes it
	// publicly readable.
	EnsureBucket(ctx context.Context) error
	// Put stores a new object and fails with ErrExists if key is in use.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]BlobInfo, error)
	PublicURL(key string) string
}

type BlobInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type unconfigured struct{}

// Unconfigured returns a BlobStore that fails every operation with
// ErrNotConfigured.
func Unconfigured() BlobStore { return unconfigured{} }

func (unconfigured) EnsureBucket(context.Context) error { return ErrNotConfigured }
func (unconfigured) Put(context.Context, string, io.Reader, int64, string) error {
	return ErrNotConfigured
}
func (unconfigured) Remove(context.Context, string) error     { return ErrNotConfigured }
func (unconfigured) List(context.Context) ([]BlobInfo, error) { return nil, ErrNotConfigured }
func (unconfigured) PublicURL(string) string                  { return "" }
