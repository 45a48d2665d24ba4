package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory in-process RunStore (STORE_DRIVER=none). Contents are lost on exit.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemory empty memory store
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]*Run)}
}

// Save implements RunStore
func (m *Memory) Save(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; ok {
		return ErrDuplicate
	}
	cp := *run
	cp.Result = append([]byte(nil), run.Result...)
	m.runs[run.ID] = &cp
	return nil
}

// Get implements RunStore
func (m *Memory) Get(_ context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *run
	return &cp, nil
}

// List implements RunStore, newest first
func (m *Memory) List(_ context.Context, f Filter) ([]Summary, error) {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.runs))
	for _, r := range m.runs {
		if f.InputHash != "" && r.InputHash != f.InputHash {
			continue
		}
		out = append(out, r.Summary)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset >= len(out) {
		return []Summary{}, nil
	}
	out = out[f.Offset:]
	return out[:min(len(out), f.limit())], nil
}

// Prune implements RunStore
func (m *Memory) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.runs {
		if r.CreatedAt.Before(cutoff) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

// Close implements RunStore
func (m *Memory) Close() error { return nil }
