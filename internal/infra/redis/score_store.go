package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quiz-rank-service/internal/domain"
)

// compositeBase folds (score, timeTaken) into one sorted-set weight:
// score*base - time. Valid while timeTaken stays below the base.
const compositeBase = 1_000_000

// upsertScript performs the better-of comparison server-side so two
// concurrent submissions for the same (test, user) pair cannot lose an
// update. It returns the stored record after the decision.
var upsertScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'score')
if cur then
  local curScore = tonumber(cur)
  local curTime = tonumber(redis.call('HGET', KEYS[1], 'time'))
  local newScore = tonumber(ARGV[1])
  local newTime = tonumber(ARGV[3])
  if newScore < curScore or (newScore == curScore and newTime >= curTime) then
    return {cur, redis.call('HGET', KEYS[1], 'total'), redis.call('HGET', KEYS[1], 'time')}
  end
end
redis.call('HSET', KEYS[1], 'score', ARGV[1], 'total', ARGV[2], 'time', ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[5], ARGV[4])
return {ARGV[1], ARGV[2], ARGV[3]}
`)

// ScoreStore keeps score records in Redis: a hash per (test, user) with
// the record fields and a sorted set per test indexing participants by a
// composite (score, -time) weight.
type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func (s *ScoreStore) UpsertIfBetter(ctx context.Context, candidate domain.ScoreRecord) (domain.ScoreRecord, error) {
	weight := float64(candidate.Score)*compositeBase - float64(candidate.TimeTakenSec)
	raw, err := upsertScript.Run(ctx, s.client,
		[]string{s.recordKey(candidate.TestCode, candidate.UserID), s.boardKey(candidate.TestCode)},
		candidate.Score, candidate.TotalQuestions, candidate.TimeTakenSec, candidate.UserID, weight,
	).Slice()
	if err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("upsert score: %w", err)
	}
	if len(raw) != 3 {
		return domain.ScoreRecord{}, fmt.Errorf("upsert score: unexpected reply %v", raw)
	}

	stored := domain.ScoreRecord{TestCode: candidate.TestCode, UserID: candidate.UserID}
	if stored.Score, err = toInt(raw[0]); err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("upsert score: %w", err)
	}
	if stored.TotalQuestions, err = toInt(raw[1]); err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("upsert score: %w", err)
	}
	if stored.TimeTakenSec, err = toInt(raw[2]); err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("upsert score: %w", err)
	}
	return stored, nil
}

func (s *ScoreStore) ListByTest(ctx context.Context, testCode string) ([]domain.ScoreRecord, error) {
	userIDs, err := s.client.ZRevRange(ctx, s.boardKey(testCode), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list board: %w", err)
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(userIDs))
	for i, userID := range userIDs {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(testCode, userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	records := make([]domain.ScoreRecord, 0, len(userIDs))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		rec := domain.ScoreRecord{TestCode: testCode, UserID: userIDs[i]}
		rec.Score, _ = strconv.Atoi(fields["score"])
		rec.TotalQuestions, _ = strconv.Atoi(fields["total"])
		rec.TimeTakenSec, _ = strconv.Atoi(fields["time"])
		records = append(records, rec)
	}
	return records, nil
}

func (s *ScoreStore) recordKey(testCode, userID string) string {
	return "rank:test:" + testCode + ":user:" + userID
}

func (s *ScoreStore) boardKey(testCode string) string {
	return "rank:test:" + testCode + ":board"
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unexpected reply type %T", v)
	}
}
