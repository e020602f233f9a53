package jobs

import (
	"sync"

	"github.com/ticketlens/backend/internal/models"
)

// Store is the job registry. It is narrow on purpose so tests can swap
// in a fake; the production store is an in-memory map, since job state
// only lives for the process lifetime.
type Store interface {
	Create(job models.Job)
	// Get returns a snapshot of the job. The snapshot shares the result
	// pointer, which is never mutated after the terminal transition.
	Get(id string) (models.Job, bool)
	// Update applies fn to the live record under the store lock.
	Update(id string, fn func(*models.Job)) bool
	Delete(id string) bool
}

type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]*models.Job{}}
}

func (s *MemoryStore) Create(job models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = &job
}

func (s *MemoryStore) Get(id string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

func (s *MemoryStore) Update(id string, fn func(*models.Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}
