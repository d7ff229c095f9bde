package storage

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
	acl         string
}

// MemoryBackend is an in-process ObjectStore. Failures can be injected per op and key.
type MemoryBackend struct {
	bucket string

	mu       sync.Mutex
	objects  map[string]memoryObject
	failures map[string]error
}

func NewMemoryBackend(bucket string) *MemoryBackend {
	return &MemoryBackend{
		bucket:   bucket,
		objects:  make(map[string]memoryObject),
		failures: make(map[string]error),
	}
}

// FailOn makes op ("put", "get", "head", "delete", "list") fail for key.
// An empty key matches every key. A nil err clears the failure.
func (b *MemoryBackend) FailOn(op, key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op+"\x00"+key)
		return
	}
	b.failures[op+"\x00"+key] = err
}

func (b *MemoryBackend) failure(op, key string) error {
	if err, ok := b.failures[op+"\x00"+key]; ok {
		return newError(op, b.bucket, key, err)
	}
	if err, ok := b.failures[op+"\x00"]; ok {
		return newError(op, b.bucket, key, err)
	}
	return nil
}

func (b *MemoryBackend) Bucket() string {
	return b.bucket
}

func (b *MemoryBackend) Put(_ context.Context, params *PutObjectParams) error {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return newError("put", b.bucket, params.Key, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure("put", params.Key); err != nil {
		return err
	}
	b.objects[params.Key] = memoryObject{data: data, contentType: params.ContentType, acl: params.ACL}
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, key string, w io.Writer) (int64, error) {
	b.mu.Lock()
	obj, ok := b.objects[key]
	err := b.failure("get", key)
	b.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, newError("get", b.bucket, key, ErrObjectNotFound)
	}
	return io.Copy(w, bytes.NewReader(obj.data))
}

func (b *MemoryBackend) Head(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure("head", key); err != nil {
		return false, err
	}
	_, ok := b.objects[key]
	return ok, nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure("delete", key); err != nil {
		return err
	}
	delete(b.objects, key)
	return nil
}

func (b *MemoryBackend) List(_ context.Context, prefix, marker string, maxKeys int32) (*ListResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure("list", prefix); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		if strings.HasPrefix(key, prefix) && key > marker {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	result := &ListResult{Keys: keys}
	if maxKeys > 0 && int32(len(keys)) > maxKeys {
		result.Keys = keys[:maxKeys]
		result.Truncated = true
	}
	return result, nil
}

// Object returns a stored object's content and metadata.
func (b *MemoryBackend) Object(key string) (data []byte, contentType, acl string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[key]
	return bytes.Clone(obj.data), obj.contentType, obj.acl, ok
}

// Keys returns every stored key in order.
func (b *MemoryBackend) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

var _ ObjectStore = (*MemoryBackend)(nil)
