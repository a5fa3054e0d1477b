// Package session holds the single process-wide slot for the current dataset
// and the current analysis backend.
package session

import (
	"sync"

	"github.com/tablechat/tablechat/internal/backend"
	"github.com/tablechat/tablechat/internal/dataset"
)

// Store is the process singleton. Both fields are independently optional and
// replaced wholesale; the mutex makes each replacement atomic but there is no
// cross-request transaction, so the last writer wins.
type Store struct {
	mu      sync.RWMutex
	dataset *dataset.Dataset
	backend *backend.Handle
}

// NewStore returns an empty store: no dataset, no backend.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset and backend by reference. Either may be
// nil. Callers must not mutate the dataset's rows in place.
func (s *Store) Get() (*dataset.Dataset, *backend.Handle) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset, s.backend
}

// Dataset returns just the current dataset, which may be nil.
func (s *Store) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Backend returns just the current backend handle, which may be nil.
func (s *Store) Backend() *backend.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// SetDataset replaces the current dataset. The previous dataset is dropped,
// never merged.
func (s *Store) SetDataset(d *dataset.Dataset) {
	s.mu.Lock()
	s.dataset = d
	s.mu.Unlock()
}

// SetBackend replaces the current backend handle unconditionally.
func (s *Store) SetBackend(h *backend.Handle) {
	s.mu.Lock()
	s.backend = h
	s.mu.Unlock()
}

// DatasetInfo is the metadata slice of a snapshot; rows never leave the
// store through this path.
type DatasetInfo struct {
	Filename string
	Rows     int
	Columns  int
}

// Snapshot is the presence view consumed by /status and SSE status events.
type Snapshot struct {
	DataLoaded    bool
	LLMConfigured bool
	Dataset       *DatasetInfo
}

// Snapshot reports presence flags plus dataset metadata. It never exposes
// row data or the backend handle.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		DataLoaded:    s.dataset != nil,
		LLMConfigured: s.backend != nil,
	}
	if s.dataset != nil {
		snap.Dataset = &DatasetInfo{
			Filename: s.dataset.SourceName,
			Rows:     s.dataset.RowCount(),
			Columns:  s.dataset.ColumnCount(),
		}
	}
	return snap
}
