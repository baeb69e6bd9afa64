package app

import (
	"context"
	"fmt"
	"sort"

	"quiz-rank-service/internal/domain"
)

// ScanRanker computes standings by scanning every record for the test and
// sorting by (score desc, time asc). O(participants) per call, fine at
// modest scale; an incrementally maintained ranked index can replace it
// behind the RankCalculator interface.
type ScanRanker struct {
	scores ScoreStore
}

func NewScanRanker(scores ScoreStore) *ScanRanker {
	return &ScanRanker{scores: scores}
}

func (r *ScanRanker) Rank(ctx context.Context, testCode, userID string) (domain.Standing, error) {
	records, err := r.scores.ListByTest(ctx, testCode)
	if err != nil {
		return domain.Standing{}, fmt.Errorf("%w: list scores for %s: %v", domain.ErrRankingUnavailable, testCode, err)
	}
	sortRecords(records)
	standing := domain.Standing{TotalParticipants: len(records)}
	for i, rec := range records {
		if rec.UserID == userID {
			standing.Position = i + 1
			break
		}
	}
	// Position stays 0 when the user has no record for this test.
	return standing, nil
}

func sortRecords(records []domain.ScoreRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return domain.Better(records[i], records[j])
	})
}
