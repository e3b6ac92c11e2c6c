package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// record pairs a command with its own lock so writers on different ids do not contend.
type record struct {
	mu      sync.Mutex
	cmd     *models.Command
	deleted bool
}

// MemoryStore is a concurrency-safe in-memory CommandStore. Reads return deep
// copies, so callers may mutate what they get back.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*record
}

// NewMemoryStore returns an initialized MemoryStore ready for use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
	}
}

func (s *MemoryStore) Create(_ context.Context, cmd *models.Command) error {
	if cmd == nil || cmd.ID == "" {
		return fmt.Errorf("command id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[cmd.ID]; exists {
		return fmt.Errorf("%w: %s", ErrExists, cmd.ID)
	}
	s.records[cmd.ID] = &record{cmd: cmd.Clone()}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Command, error) {
	r, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleted {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.cmd.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*models.Command) error) error {
	r, err := s.lookup(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleted {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	working := r.cmd.Clone()
	if err := fn(working); err != nil {
		return err
	}
	working.ID = id
	r.cmd = working
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	r, ok := s.records[id]
	if ok {
		delete(s.records, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	// An Update may still hold a pointer to r; mark it so it cannot resurrect the row.
	r.mu.Lock()
	r.deleted = true
	r.mu.Unlock()
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// PurgeTerminalBefore drops terminal commands whose last activity is older than cutoff.
func (s *MemoryStore) PurgeTerminalBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.RLock()
	candidates := make([]string, 0)
	for id, r := range s.records {
		r.mu.Lock()
		if r.cmd.Status.IsTerminal() && lastActivity(r.cmd).Before(cutoff) {
			candidates = append(candidates, id)
		}
		r.mu.Unlock()
	}
	s.mu.RUnlock()

	purged := 0
	for _, id := range candidates {
		if err := s.Delete(context.Background(), id); err == nil {
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStore) lookup(id string) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}
