package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"quiz-rank-service/internal/domain"
)

// HistoryLedger abstracts a user's append-only quiz history (in-memory,
// Redis, Postgres). Appends only ever touch the target user's ledger.
type HistoryLedger interface {
	// FindDuplicate returns an existing attempt matching all four
	// coordinates exactly, if one was recorded before.
	FindDuplicate(ctx context.Context, userID, testCode, subject, topic string) (domain.QuizAttempt, bool, error)
	// Append inserts the attempt at the head of the user's ledger.
	Append(ctx context.Context, userID string, attempt domain.QuizAttempt) error
	// History returns the user's attempts newest first.
	History(ctx context.Context, userID string) ([]domain.QuizAttempt, error)
}

// ScoreStore keeps the authoritative best record per (testCode, userID).
type ScoreStore interface {
	// UpsertIfBetter stores the candidate when it beats the existing record
	// (or none exists) and returns whatever is stored after the decision.
	// The comparison must not race with a concurrent upsert for the same pair.
	UpsertIfBetter(ctx context.Context, candidate domain.ScoreRecord) (domain.ScoreRecord, error)
	// ListByTest returns a snapshot of all records for the test, in no
	// particular order.
	ListByTest(ctx context.Context, testCode string) ([]domain.ScoreRecord, error)
}

// RankCalculator determines a user's standing among a test's participants.
type RankCalculator interface {
	Rank(ctx context.Context, testCode, userID string) (domain.Standing, error)
}

// SubmitRequest carries one quiz submission. Pointer fields distinguish
// "absent" from a legitimate zero (a score of 0 is a valid result).
type SubmitRequest struct {
	Subject        string
	Topic          string
	Score          *int
	TotalQuestions *int
	TestCode       string
	TimeTakenSec   *int
}

// SubmitStatus names the terminal state of one submission.
type SubmitStatus string

const (
	StatusDuplicate         SubmitStatus = "duplicate"
	StatusRecordedUntracked SubmitStatus = "recorded-untracked"
	StatusRecordedRanked    SubmitStatus = "recorded-ranked"
	StatusRankDegraded      SubmitStatus = "recorded-rank-degraded"
)

// SubmitOutcome is the result of one submission: the attempt as recorded
// (or the previously recorded one on a duplicate) plus the caller's full
// history, newest first.
type SubmitOutcome struct {
	Attempt domain.QuizAttempt
	History []domain.QuizAttempt
	Status  SubmitStatus
}

// ResultService orchestrates ledger, score store and ranker into one
// submission operation. Ranking is best-effort: a ranking failure degrades
// the attempt to rank 0 instead of blocking the record.
type ResultService struct {
	ledger HistoryLedger
	scores ScoreStore
	ranker RankCalculator
	hub    *leaderboardHub
	lbCall singleflight.Group
	now    func() time.Time
	newID  func() string
}

func NewResultService(ledger HistoryLedger, scores ScoreStore, ranker RankCalculator) *ResultService {
	return NewResultServiceWithClock(ledger, scores, ranker, time.Now)
}

// NewResultServiceWithClock is test-only for deterministic timestamps.
func NewResultServiceWithClock(ledger HistoryLedger, scores ScoreStore, ranker RankCalculator, now func() time.Time) *ResultService {
	return &ResultService{
		ledger: ledger,
		scores: scores,
		ranker: ranker,
		hub:    newLeaderboardHub(),
		now:    now,
		newID:  uuid.NewString,
	}
}

// SubmitResult records one quiz attempt for userID.
//
// Tracked submissions (testCode set) are idempotent per
// (user, testCode, subject, topic): a resubmission returns the previously
// recorded attempt without re-ranking or appending.
func (s *ResultService) SubmitResult(ctx context.Context, userID string, req SubmitRequest) (SubmitOutcome, error) {
	if req.Subject == "" || req.Score == nil || req.TotalQuestions == nil {
		return SubmitOutcome{}, fmt.Errorf("%w: subject, score and totalQuestions are required", domain.ErrInvalidSubmission)
	}

	if req.TestCode != "" {
		existing, found, err := s.ledger.FindDuplicate(ctx, userID, req.TestCode, req.Subject, req.Topic)
		if err != nil {
			return SubmitOutcome{}, fmt.Errorf("duplicate check: %w", err)
		}
		if found {
			history, err := s.ledger.History(ctx, userID)
			if err != nil {
				return SubmitOutcome{}, fmt.Errorf("read history: %w", err)
			}
			return SubmitOutcome{Attempt: existing, History: history, Status: StatusDuplicate}, nil
		}
	}

	attempt := domain.QuizAttempt{
		ID:             s.newID(),
		Subject:        req.Subject,
		Topic:          req.Topic,
		Score:          *req.Score,
		TotalQuestions: *req.TotalQuestions,
		Date:           s.now(),
		TestCode:       req.TestCode,
	}
	status := StatusRecordedUntracked

	if req.TestCode != "" {
		timeTaken := domain.DefaultTimeTakenSec
		if req.TimeTakenSec != nil && *req.TimeTakenSec > 0 {
			timeTaken = *req.TimeTakenSec
		}
		attempt.TimeTakenSec = timeTaken
		status = s.rankAttempt(ctx, userID, &attempt, timeTaken)
	}

	if err := s.ledger.Append(ctx, userID, attempt); err != nil {
		return SubmitOutcome{}, fmt.Errorf("append attempt: %w", err)
	}

	if status == StatusRecordedRanked {
		s.publishLeaderboard(ctx, req.TestCode)
	}

	history, err := s.ledger.History(ctx, userID)
	if err != nil {
		return SubmitOutcome{}, fmt.Errorf("read history: %w", err)
	}
	return SubmitOutcome{Attempt: attempt, History: history, Status: status}, nil
}

// rankAttempt runs the score upsert and rank computation, filling the
// attempt in place. Failures degrade to rank 0 rather than propagating.
func (s *ResultService) rankAttempt(ctx context.Context, userID string, attempt *domain.QuizAttempt, timeTaken int) SubmitStatus {
	_, err := s.scores.UpsertIfBetter(ctx, domain.ScoreRecord{
		TestCode:       attempt.TestCode,
		UserID:         userID,
		Score:          attempt.Score,
		TotalQuestions: attempt.TotalQuestions,
		TimeTakenSec:   timeTaken,
	})
	if err != nil {
		log.Printf("score upsert failed for test %s user %s: %v", attempt.TestCode, userID, err)
		return StatusRankDegraded
	}

	standing, err := s.ranker.Rank(ctx, attempt.TestCode, userID)
	if err != nil {
		log.Printf("rank failed for test %s user %s: %v", attempt.TestCode, userID, err)
		return StatusRankDegraded
	}
	attempt.Rank = standing.Position
	attempt.TotalParticipants = standing.TotalParticipants
	return StatusRecordedRanked
}

// History returns the user's full ledger, newest first.
func (s *ResultService) History(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	return s.ledger.History(ctx, userID)
}

// Leaderboard returns the ordered scoreboard for a test code. Concurrent
// reads for the same test are coalesced into one store scan.
func (s *ResultService) Leaderboard(ctx context.Context, testCode string) (domain.Leaderboard, error) {
	result, err, _ := s.lbCall.Do(testCode, func() (interface{}, error) {
		return s.buildLeaderboard(ctx, testCode)
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

func (s *ResultService) buildLeaderboard(ctx context.Context, testCode string) (domain.Leaderboard, error) {
	records, err := s.scores.ListByTest(ctx, testCode)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("list scores: %w", err)
	}
	sortRecords(records)
	entries := make([]domain.LeaderboardEntry, 0, len(records))
	for i, rec := range records {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:       rec.UserID,
			Score:        rec.Score,
			TimeTakenSec: rec.TimeTakenSec,
			Position:     i + 1,
		})
	}
	return domain.Leaderboard{TestCode: testCode, Entries: entries, UpdatedAt: s.now()}, nil
}

// Watch streams leaderboard snapshots for a test: the current board first,
// then one snapshot after each ranked submission. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *ResultService) Watch(ctx context.Context, testCode string) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.buildLeaderboard(ctx, testCode)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.subscribe(testCode)
	ch <- initial
	return ch, cancel, nil
}

func (s *ResultService) publishLeaderboard(ctx context.Context, testCode string) {
	if !s.hub.active(testCode) {
		return
	}
	lb, err := s.buildLeaderboard(ctx, testCode)
	if err != nil {
		log.Printf("leaderboard publish failed for test %s: %v", testCode, err)
		return
	}
	s.hub.publish(testCode, lb)
}
