package memory

import (
	"context"
	"sync"

	"quiz-rank-service/internal/domain"
)

// Ledger is an in-memory implementation of app.HistoryLedger. Each user
// owns an independently locked slice, so unrelated users' appends never
// serialize against each other.
type Ledger struct {
	mu    sync.RWMutex
	users map[string]*userLedger
}

type userLedger struct {
	mu       sync.RWMutex
	attempts []domain.QuizAttempt // newest first
}

func NewLedger() *Ledger {
	return &Ledger{users: make(map[string]*userLedger)}
}

func (l *Ledger) forUser(userID string) *userLedger {
	l.mu.RLock()
	ul, ok := l.users[userID]
	l.mu.RUnlock()
	if ok {
		return ul
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ul, ok := l.users[userID]; ok {
		return ul
	}
	ul = &userLedger{}
	l.users[userID] = ul
	return ul
}

func (l *Ledger) FindDuplicate(_ context.Context, userID, testCode, subject, topic string) (domain.QuizAttempt, bool, error) {
	ul := l.forUser(userID)
	ul.mu.RLock()
	defer ul.mu.RUnlock()
	for _, a := range ul.attempts {
		if a.TestCode == testCode && a.Subject == subject && a.Topic == topic {
			return a, true, nil
		}
	}
	return domain.QuizAttempt{}, false, nil
}

func (l *Ledger) Append(_ context.Context, userID string, attempt domain.QuizAttempt) error {
	ul := l.forUser(userID)
	ul.mu.Lock()
	defer ul.mu.Unlock()
	ul.attempts = append([]domain.QuizAttempt{attempt}, ul.attempts...)
	return nil
}

func (l *Ledger) History(_ context.Context, userID string) ([]domain.QuizAttempt, error) {
	ul := l.forUser(userID)
	ul.mu.RLock()
	defer ul.mu.RUnlock()
	out := make([]domain.QuizAttempt, len(ul.attempts))
	copy(out, ul.attempts)
	return out, nil
}
