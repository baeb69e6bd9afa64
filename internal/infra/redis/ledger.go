package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-rank-service/internal/domain"
)

// Ledger stores each user's quiz history as a Redis list of JSON entries.
// LPUSH keeps the list newest first, matching the read contract directly.
type Ledger struct {
	client *redis.Client
}

func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

func (l *Ledger) Append(ctx context.Context, userID string, attempt domain.QuizAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	if err := l.client.LPush(ctx, l.key(userID), data).Err(); err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

func (l *Ledger) History(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	raw, err := l.client.LRange(ctx, l.key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	attempts := make([]domain.QuizAttempt, 0, len(raw))
	for _, item := range raw {
		var attempt domain.QuizAttempt
		if err := json.Unmarshal([]byte(item), &attempt); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

func (l *Ledger) FindDuplicate(ctx context.Context, userID, testCode, subject, topic string) (domain.QuizAttempt, bool, error) {
	attempts, err := l.History(ctx, userID)
	if err != nil {
		return domain.QuizAttempt{}, false, err
	}
	for _, a := range attempts {
		if a.TestCode == testCode && a.Subject == subject && a.Topic == topic {
			return a, true, nil
		}
	}
	return domain.QuizAttempt{}, false, nil
}

func (l *Ledger) key(userID string) string {
	return "rank:user:" + userID + ":attempts"
}
