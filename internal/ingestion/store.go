package ingestion

import (
	"sync"
)

// Store holds ingestion records and their embeddings for the lifetime of the
// process. It is safe for concurrent use. Nothing is ever evicted.
type Store struct {
	mu         sync.RWMutex
	records    map[string]Record
	embeddings map[string]Embedding
	completed  []string // embedding ids in completion order
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		records:    make(map[string]Record),
		embeddings: make(map[string]Embedding),
	}
}

// Insert adds a new record in the processing state.
func (s *Store) Insert(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[id]; exists {
		return Record{}, ErrDuplicateID
	}
	rec := Record{ID: id, Status: StatusProcessing}
	s.records[id] = rec
	return rec, nil
}

// Get returns the current record for id.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Complete moves id to completed and stores its embedding in one step, so the
// embedding is visible exactly when the status is.
func (s *Store) Complete(id, message string, emb Embedding) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.transitionLocked(id, StatusCompleted, message)
	if err != nil {
		return rec, err
	}
	emb.ID = id
	s.embeddings[id] = emb
	s.completed = append(s.completed, id)
	return rec, nil
}

// Fail moves id to failed. No embedding is created.
func (s *Store) Fail(id, message string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(id, StatusFailed, message)
}

func (s *Store) transitionLocked(id string, to Status, message string) (Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.Status.Terminal() {
		return rec, ErrTerminal
	}
	rec.Status = to
	rec.Message = message
	s.records[id] = rec
	return rec, nil
}

// Embedding returns the embedding for a completed ingestion.
func (s *Store) Embedding(id string) (Embedding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emb, ok := s.embeddings[id]
	return emb, ok
}

// Completed returns every stored embedding in completion order. The slice is
// a copy; vectors and metadata are shared and must not be mutated.
func (s *Store) Completed() []Embedding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Embedding, 0, len(s.completed))
	for _, id := range s.completed {
		out = append(out, s.embeddings[id])
	}
	return out
}
