package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-rank-service/internal/domain"
)

// Ledger persists quiz attempts in Postgres. The newest-first read
// contract is enforced by ordering on the creation timestamp.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Append(ctx context.Context, userID string, a domain.QuizAttempt) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO quiz_attempts
		  (id, user_id, subject, topic, score, total_questions, test_code, rank, total_participants, time_taken_sec, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, userID, a.Subject, a.Topic, a.Score, a.TotalQuestions, a.TestCode,
		a.Rank, a.TotalParticipants, a.TimeTakenSec, a.Date)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

func (l *Ledger) History(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, subject, topic, score, total_questions, test_code, rank, total_participants, time_taken_sec, date
		FROM quiz_attempts WHERE user_id=$1 ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	var attempts []domain.QuizAttempt
	for rows.Next() {
		var a domain.QuizAttempt
		if err := rows.Scan(&a.ID, &a.Subject, &a.Topic, &a.Score, &a.TotalQuestions,
			&a.TestCode, &a.Rank, &a.TotalParticipants, &a.TimeTakenSec, &a.Date); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (l *Ledger) FindDuplicate(ctx context.Context, userID, testCode, subject, topic string) (domain.QuizAttempt, bool, error) {
	var a domain.QuizAttempt
	err := l.pool.QueryRow(ctx, `
		SELECT id, subject, topic, score, total_questions, test_code, rank, total_participants, time_taken_sec, date
		FROM quiz_attempts
		WHERE user_id=$1 AND test_code=$2 AND subject=$3 AND topic=$4
		ORDER BY date DESC LIMIT 1`, userID, testCode, subject, topic,
	).Scan(&a.ID, &a.Subject, &a.Topic, &a.Score, &a.TotalQuestions,
		&a.TestCode, &a.Rank, &a.TotalParticipants, &a.TimeTakenSec, &a.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizAttempt{}, false, nil
	}
	if err != nil {
		return domain.QuizAttempt{}, false, fmt.Errorf("find duplicate: %w", err)
	}
	return a, true, nil
}
