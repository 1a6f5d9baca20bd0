package testutil

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/fileflow-app/fileflow/pkg/fileflow/storage"
)

// MemoryBlobStore is an in-process storage.BlobStore for tests. Set the
// *Err fields to make the matching call fail.
type MemoryBlobStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject

	EnsureErr error
	PutErr    error
	RemoveErr error
	ListErr   error

	Calls int
}

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: map[string]memoryObject{}}
}

func (m *MemoryBlobStore) EnsureBucket(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.EnsureErr
}

func (m *MemoryBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	m.Calls++
	putErr := m.PutErr
	m.mu.Unlock()
	if putErr != nil {
		return putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return storage.ErrExists
	}
	m.objects[key] = memoryObject{data: data, contentType: contentType, modified: time.Now()}
	return nil
}

func (m *MemoryBlobStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryBlobStore) List(ctx context.Context) ([]storage.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]storage.BlobInfo, 0, len(m.objects))
	for k, o := range m.objects {
		out = append(out, storage.BlobInfo{Key: k, Size: int64(len(o.data)), LastModified: o.modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryBlobStore) PublicURL(key string) string {
	return "https://blobs.test/fileflow/" + key
}

// Seed stores an object with an explicit modification time.
func (m *MemoryBlobStore) Seed(key string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, modified: modified}
}

// Data returns the stored bytes of key, nil if absent.
func (m *MemoryBlobStore) Data(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key].data
}

func (m *MemoryBlobStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *MemoryBlobStore) ContentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key].contentType
}

func (m *MemoryBlobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
