// Package reports keeps a history of meeting analysis reports.
package reports

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// Entry is the listing view of a stored report.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Score     int       `json:"score" yaml:"score"`
	Timed     bool      `json:"timed" yaml:"timed"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// Store persists reports. Get returns an error wrapping errors.ErrNotFound
// for unknown IDs.
type Store interface {
	Save(ctx context.Context, r *analysis.Report) error
	Get(ctx context.Context, id string) (*analysis.Report, error)
	List(ctx context.Context, limit int) ([]Entry, error)
}

func entryOf(r *analysis.Report) Entry {
	return Entry{ID: r.ID, Title: r.Title, Score: r.Score, Timed: r.Timed, CreatedAt: r.CreatedAt}
}

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*analysis.Report
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*analysis.Report)}
}

func (m *MemoryStore) Save(_ context.Context, r *analysis.Report) error {
	if r == nil || r.ID == "" {
		return fferrors.Input(fferrors.ErrMissingInput, "report id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*analysis.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, notFound(id)
	}
	return r, nil
}

// List returns the newest reports first.
func (m *MemoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	m.mu.RLock()
	entries := make([]Entry, 0, len(m.reports))
	for _, r := range m.reports {
		entries = append(entries, entryOf(r))
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func notFound(id string) error {
	return fmt.Errorf("report %s: %w", id, fferrors.ErrNotFound)
}
