package store

import (
	"context"
	"sync"

	"qroute/internal/model"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
	mu    sync.Mutex
	paths map[string]model.PathRecord
	order []string // insertion order
}

func NewMemory() *Memory {
	return &Memory{paths: map[string]model.PathRecord{}}
}

func (m *Memory) SavePath(ctx context.Context, rec model.PathRecord) (model.PathRecord, error) {
	rec = prepare(rec)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.paths[rec.ID]; !ok {
		m.order = append(m.order, rec.ID)
	}
	m.paths[rec.ID] = rec
	return rec, nil
}

func (m *Memory) GetPath(ctx context.Context, id string) (model.PathRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.paths[id]
	if !ok {
		return model.PathRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListPaths(ctx context.Context, cursor string, limit int) ([]model.PathRecord, string, error) {
	limit = pageLimit(limit)
	m.mu.Lock()
	defer m.mu.Unlock()
	start := len(m.order) - 1
	if cursor != "" {
		for i := len(m.order) - 1; i >= 0; i-- {
			if m.order[i] == cursor {
				start = i - 1
				break
			}
		}
	}
	out := []model.PathRecord{}
	for i := start; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.paths[m.order[i]])
	}
	return out, nextCursor(out, limit), nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
