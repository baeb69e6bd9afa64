package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-rank-service/internal/domain"
)

// ScoreStore persists best-score records in Postgres. The better-of
// decision runs inside a single conditional upsert, so the row lock makes
// concurrent submissions for one (test, user) pair serialize.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

func (s *ScoreStore) UpsertIfBetter(ctx context.Context, candidate domain.ScoreRecord) (domain.ScoreRecord, error) {
	stored := domain.ScoreRecord{TestCode: candidate.TestCode, UserID: candidate.UserID}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO score_records (test_code, user_id, score, total_questions, time_taken_sec)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (test_code, user_id) DO UPDATE
		SET score = EXCLUDED.score,
		    total_questions = EXCLUDED.total_questions,
		    time_taken_sec = EXCLUDED.time_taken_sec
		WHERE EXCLUDED.score > score_records.score
		   OR (EXCLUDED.score = score_records.score AND EXCLUDED.time_taken_sec < score_records.time_taken_sec)
		RETURNING score, total_questions, time_taken_sec`,
		candidate.TestCode, candidate.UserID, candidate.Score, candidate.TotalQuestions, candidate.TimeTakenSec,
	).Scan(&stored.Score, &stored.TotalQuestions, &stored.TimeTakenSec)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.ScoreRecord{}, fmt.Errorf("upsert score: %w", err)
	}

	// The candidate did not beat the stored record; read the authoritative one.
	err = s.pool.QueryRow(ctx,
		`SELECT score, total_questions, time_taken_sec FROM score_records WHERE test_code=$1 AND user_id=$2`,
		candidate.TestCode, candidate.UserID,
	).Scan(&stored.Score, &stored.TotalQuestions, &stored.TimeTakenSec)
	if err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("read score: %w", err)
	}
	return stored, nil
}

func (s *ScoreStore) ListByTest(ctx context.Context, testCode string) ([]domain.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, score, total_questions, time_taken_sec FROM score_records WHERE test_code=$1`,
		testCode)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	var records []domain.ScoreRecord
	for rows.Next() {
		rec := domain.ScoreRecord{TestCode: testCode}
		if err := rows.Scan(&rec.UserID, &rec.Score, &rec.TotalQuestions, &rec.TimeTakenSec); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
