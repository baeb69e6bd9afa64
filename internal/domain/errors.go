package domain

import "errors"

var (
	// ErrInvalidSubmission is returned when a submission is missing a
	// required field (subject, score or totalQuestions).
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRankingUnavailable signals a transient ranking failure. Recording
	// the attempt still proceeds; only rank data is degraded.
	ErrRankingUnavailable = errors.New("ranking unavailable")
)
