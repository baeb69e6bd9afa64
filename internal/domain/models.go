package domain

import "time"

// DefaultTimeTakenSec is assumed when a submission carries no elapsed time.
// The same fallback is used for storage and for score tie-breaks.
const DefaultTimeTakenSec = 300

// QuizAttempt is one entry in a user's quiz history ledger. Entries are
// immutable once appended; rank, totalParticipants and timeTaken are filled
// in at creation time from the ranking pass.
type QuizAttempt struct {
	ID                string    `json:"quizId"`
	Subject           string    `json:"subject"`
	Topic             string    `json:"topic,omitempty"`
	Score             int       `json:"score"`
	TotalQuestions    int       `json:"totalQuestions"`
	Date              time.Time `json:"date"`
	TestCode          string    `json:"testCode,omitempty"`
	Rank              int       `json:"rank"`
	TotalParticipants int       `json:"totalParticipants"`
	TimeTakenSec      int       `json:"timeTaken"`
}

// ScoreRecord is the best-known attempt for a (testCode, userID) pair.
// At most one record exists per pair; it is only ever replaced by a
// strictly better attempt.
type ScoreRecord struct {
	TestCode       string `json:"testCode"`
	UserID         string `json:"userId"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	TimeTakenSec   int    `json:"timeTaken"`
}

// Improves reports whether r beats the stored record: strictly higher
// score wins, an equal score wins on strictly lower time.
func (r ScoreRecord) Improves(stored ScoreRecord) bool {
	if r.Score != stored.Score {
		return r.Score > stored.Score
	}
	return r.TimeTakenSec < stored.TimeTakenSec
}

// Better is the leaderboard ordering: score descending, time ascending,
// then userID ascending so fully tied records order the same way on
// every read.
func Better(a, b ScoreRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.TimeTakenSec != b.TimeTakenSec {
		return a.TimeTakenSec < b.TimeTakenSec
	}
	return a.UserID < b.UserID
}

// Standing is a user's 1-based position within a test's participant set.
// Position 0 means the user has no record for the test.
type Standing struct {
	Position          int `json:"rank"`
	TotalParticipants int `json:"totalParticipants"`
}

// LeaderboardEntry is one ranked row of a test's leaderboard.
type LeaderboardEntry struct {
	UserID       string `json:"userId"`
	Score        int    `json:"score"`
	TimeTakenSec int    `json:"timeTaken"`
	Position     int    `json:"position"`
}

// Leaderboard is the ordered scoreboard for one test code.
type Leaderboard struct {
	TestCode  string             `json:"testCode"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
