package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
)

// DefaultMemoryCapacity is how many runs a MemoryStore keeps
const DefaultMemoryCapacity = 100

// MemoryStore keeps the most recent runs in process memory. It is used
// when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     []models.ScreenerRun // oldest first
	capacity int
}

// NewMemoryStore creates a MemoryStore holding at most capacity runs
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

// CreateScreenerRun stores a copy of run, evicting the oldest run when full
func (m *MemoryStore) CreateScreenerRun(_ context.Context, run *models.ScreenerRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, *run)
	if len(m.runs) > m.capacity {
		m.runs = slices.Delete(m.runs, 0, len(m.runs)-m.capacity)
	}
	return nil
}

// UpdateScreenerRun replaces the stored copy of run; unknown runs are ignored
func (m *MemoryStore) UpdateScreenerRun(_ context.Context, run *models.ScreenerRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = *run
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) GetScreenerRun(_ context.Context, id uuid.UUID) (*models.ScreenerRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.runs {
		if m.runs[i].ID == id {
			run := m.runs[i]
			return &run, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetLatestScreenerRun(_ context.Context) (*models.ScreenerRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.runs) == 0 {
		return nil, nil
	}
	run := m.runs[len(m.runs)-1]
	return &run, nil
}

// GetScreenerRunHistory returns up to limit runs, newest first
func (m *MemoryStore) GetScreenerRunHistory(_ context.Context, limit int) ([]models.ScreenerRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	out := make([]models.ScreenerRun, 0, min(limit, len(m.runs)))
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *MemoryStore) Health(context.Context) error { return nil }
func (m *MemoryStore) Close()                       {}
