package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryObjects stands in for the upload and archive buckets.
type MemoryObjects struct {
	mu      sync.RWMutex
	uploads map[string][]byte
	archive map[string][]byte
}

// NewMemoryObjects constructs an empty MemoryObjects.
func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{
		uploads: make(map[string][]byte),
		archive: make(map[string][]byte),
	}
}

// PutUpload stores data under key in the upload bucket.
func (o *MemoryObjects) PutUpload(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.uploads[key] = append([]byte(nil), data...)
	return nil
}

// PutArchived stores data directly in the archive bucket.
func (o *MemoryObjects) PutArchived(key string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.archive[key] = append([]byte(nil), data...)
}

// Archive moves srcKey from the upload bucket to dstKey in the archive.
func (o *MemoryObjects) Archive(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.uploads[srcKey]
	if !ok {
		return fmt.Errorf("upload %s: %w", srcKey, ErrNotFound)
	}
	o.archive[dstKey] = data
	delete(o.uploads, srcKey)
	return nil
}

// LoadArchived returns a copy of the archived object.
func (o *MemoryObjects) LoadArchived(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	data, ok := o.archive[key]
	if !ok {
		return nil, fmt.Errorf("archived %s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}
