package index

import (
	"fmt"
	"sync"

	"github.com/hyperjump/omoide/internal/models"
)

// MetaStore is an ordered, append-only collection of media entries, one per
// stored vector at the same ordinal position. Entries are immutable once added.
type MetaStore struct {
	entries []models.MediaEntry
	mu      sync.RWMutex
}

// NewMetaStore creates an empty metadata store.
func NewMetaStore() *MetaStore {
	return &MetaStore{entries: make([]models.MediaEntry, 0)}
}

// Append stores entry, assigns its ordinal from the current count, and
// returns the ordinal. It cannot fail, which lets the index treat a vector
// append followed by a metadata append as one transaction.
func (m *MetaStore) Append(entry models.MediaEntry) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Ordinal = len(m.entries)
	m.entries = append(m.entries, entry)
	return entry.Ordinal
}

// Get returns the entry at ordinal, or ErrOutOfRange.
func (m *MetaStore) Get(ordinal int) (models.MediaEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(m.entries) {
		return models.MediaEntry{}, fmt.Errorf("%w: %d (count %d)", ErrOutOfRange, ordinal, len(m.entries))
	}
	return m.entries[ordinal], nil
}

// All returns a restartable iterator over (ordinal, entry) in insertion order.
// The snapshot taken at call time is not affected by later appends.
func (m *MetaStore) All() func(yield func(int, models.MediaEntry) bool) {
	m.mu.RLock()
	snapshot := m.entries
	m.mu.RUnlock()
	return func(yield func(int, models.MediaEntry) bool) {
		for i, e := range snapshot {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Count returns the number of entries.
func (m *MetaStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// CountByType returns the number of image and video entries.
func (m *MetaStore) CountByType() (images, videos int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		switch e.FileType {
		case models.FileTypeImage:
			images++
		case models.FileTypeVideo:
			videos++
		}
	}
	return images, videos
}
