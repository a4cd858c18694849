package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[string]*gameDoc
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*gameDoc), now: time.Now}
}

func (s *MemoryStore) doc(id string) *gameDoc {
	d, ok := s.games[id]
	if !ok {
		d = newGameDoc(id)
		s.games[id] = d
	}
	return d
}

func (s *MemoryStore) PutAnalysis(_ context.Context, a MoveAnalysis) error {
	if err := CheckID(a.GameID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc(a.GameID).putAnalysis(a, s.now())
	return nil
}

func (s *MemoryStore) Analyses(_ context.Context, gameID string) ([]MoveAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.games[gameID]
	if !ok || len(d.Analyses) == 0 {
		return nil, ErrNotFound
	}
	return d.analyses(), nil
}

func (s *MemoryStore) PutReview(_ context.Context, r MoveReview) error {
	if err := CheckID(r.GameID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc(r.GameID).putReview(r, s.now())
	return nil
}

func (s *MemoryStore) AttachExplanation(_ context.Context, gameID string, ply int, text, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.games[gameID]
	if !ok {
		return ErrNotFound
	}
	return d.attach(ply, text, status, s.now())
}

func (s *MemoryStore) Review(_ context.Context, gameID string, ply int) (MoveReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.games[gameID]
	if !ok {
		return MoveReview{}, ErrNotFound
	}
	r, ok := d.Reviews[ply]
	if !ok {
		return MoveReview{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) Reviews(_ context.Context, gameID string) ([]MoveReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.games[gameID]
	if !ok || len(d.Reviews) == 0 {
		return nil, ErrNotFound
	}
	return d.reviews(), nil
}

func (s *MemoryStore) PutSummary(_ context.Context, sum GameSummary) error {
	if err := CheckID(sum.GameID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = s.now()
	}
	s.doc(sum.GameID).Summary = &sum
	return nil
}

func (s *MemoryStore) Summary(_ context.Context, gameID string) (GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.games[gameID]
	if !ok || d.Summary == nil {
		return GameSummary{}, ErrNotFound
	}
	return *d.Summary, nil
}

func (s *MemoryStore) GameIDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.games))
	for id, d := range s.games {
		if !d.empty() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }
