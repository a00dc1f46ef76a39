// Package storage contains in-memory implementations of the persistence
// interfaces, used by local runs and tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dharsanguruparan/StreetPass/internal/model"
)

var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("not found")
)

// MemoryStore keeps upload logs and contact documents in maps guarded by an
// RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	logs     map[string]model.UploadLog
	contacts map[string][]model.ContactSummary
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:     make(map[string]model.UploadLog),
		contacts: make(map[string][]model.ContactSummary),
	}
}

// UpsertUploadLog replaces the entry stored under entry.FileName.
func (m *MemoryStore) UpsertUploadLog(ctx context.Context, entry model.UploadLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[entry.FileName] = entry
	return nil
}

// UploadLog returns the entry for fileName.
func (m *MemoryStore) UploadLog(ctx context.Context, fileName string) (model.UploadLog, error) {
	if err := ctx.Err(); err != nil {
		return model.UploadLog{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.logs[fileName]
	if !ok {
		return model.UploadLog{}, fmt.Errorf("upload log %s: %w", fileName, ErrNotFound)
	}
	return entry, nil
}

// UpdateContacts runs fn under the write lock, so concurrent updates of one
// document never interleave.
func (m *MemoryStore) UpdateContacts(ctx context.Context, identity string, fn func([]model.ContactSummary) ([]model.ContactSummary, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prior := append([]model.ContactSummary(nil), m.contacts[identity]...)
	next, err := fn(prior)
	if err != nil {
		return err
	}
	m.contacts[identity] = append([]model.ContactSummary(nil), next...)
	return nil
}

// Contacts returns a copy of the document stored for identity.
func (m *MemoryStore) Contacts(ctx context.Context, identity string) ([]model.ContactSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.contacts[identity]
	if !ok {
		return nil, fmt.Errorf("contacts of %s: %w", identity, ErrNotFound)
	}
	return append([]model.ContactSummary(nil), doc...), nil
}

// FindByContact returns every stored summary whose contact ID is contactID,
// across all documents.
func (m *MemoryStore) FindByContact(ctx context.Context, contactID string) ([]model.ContactSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ContactSummary
	for _, doc := range m.contacts {
		for _, s := range doc {
			if s.Record.ContactID == contactID {
				out = append(out, s)
			}
		}
	}
	return out, nil
}
