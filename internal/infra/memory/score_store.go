package memory

import (
	"context"
	"sync"

	"quiz-rank-service/internal/domain"
)

// ScoreStore is an in-memory implementation of app.ScoreStore. Records are
// grouped per test code, each board behind its own lock, so the better-of
// comparison for one pair cannot lose an update and submissions against
// different tests do not contend.
type ScoreStore struct {
	mu     sync.RWMutex
	boards map[string]*board
}

type board struct {
	mu      sync.RWMutex
	records map[string]domain.ScoreRecord // keyed by userID
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{boards: make(map[string]*board)}
}

func (s *ScoreStore) forTest(testCode string) *board {
	s.mu.RLock()
	b, ok := s.boards[testCode]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.boards[testCode]; ok {
		return b
	}
	b = &board{records: make(map[string]domain.ScoreRecord)}
	s.boards[testCode] = b
	return b
}

func (s *ScoreStore) UpsertIfBetter(_ context.Context, candidate domain.ScoreRecord) (domain.ScoreRecord, error) {
	b := s.forTest(candidate.TestCode)
	b.mu.Lock()
	defer b.mu.Unlock()

	stored, ok := b.records[candidate.UserID]
	if !ok || candidate.Improves(stored) {
		b.records[candidate.UserID] = candidate
		return candidate, nil
	}
	return stored, nil
}

func (s *ScoreStore) ListByTest(_ context.Context, testCode string) ([]domain.ScoreRecord, error) {
	b := s.forTest(testCode)
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.ScoreRecord, 0, len(b.records))
	for _, rec := range b.records {
		out = append(out, rec)
	}
	return out, nil
}
