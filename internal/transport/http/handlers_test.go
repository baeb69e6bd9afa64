package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-rank-service/internal/app"
	"quiz-rank-service/internal/auth"
	"quiz-rank-service/internal/domain"
	"quiz-rank-service/internal/infra/memory"
)

const testSecret = "test-secret"

func TestSubmitRequiresBearerToken(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Post(server.URL+"/quiz/results", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSubmitRejectsInvalidToken(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp := doSubmit(t, server, "not-a-token", map[string]any{
		"subject": "Math", "score": 8, "totalQuestions": 10,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSubmitReturnsRankedAttempt(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp := doSubmit(t, server, tokenFor(t, "u1"), map[string]any{
		"subject": "Math", "score": 8, "totalQuestions": 10, "testCode": "T1",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Message     string               `json:"message"`
		QuizResult  domain.QuizAttempt   `json:"quizResult"`
		QuizHistory []domain.QuizAttempt `json:"quizHistory"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Quiz result saved successfully" {
		t.Fatalf("unexpected message: %s", body.Message)
	}
	if body.QuizResult.Rank != 1 || body.QuizResult.TotalParticipants != 1 {
		t.Fatalf("expected rank 1 of 1, got %d of %d", body.QuizResult.Rank, body.QuizResult.TotalParticipants)
	}
	if len(body.QuizHistory) != 1 {
		t.Fatalf("expected history of 1, got %d", len(body.QuizHistory))
	}
}

func TestSubmitMissingFieldIs400(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp := doSubmit(t, server, tokenFor(t, "u1"), map[string]any{
		"subject": "Math", "totalQuestions": 10,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDuplicateSubmitAnswersWithExistingResult(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	payload := map[string]any{"subject": "Math", "topic": "Algebra", "score": 8, "totalQuestions": 10, "testCode": "T1"}
	first := doSubmit(t, server, tokenFor(t, "u1"), payload)
	first.Body.Close()

	resp := doSubmit(t, server, tokenFor(t, "u1"), payload)
	defer resp.Body.Close()

	var body struct {
		Message     string               `json:"message"`
		QuizHistory []domain.QuizAttempt `json:"quizHistory"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Quiz result already saved" {
		t.Fatalf("unexpected message: %s", body.Message)
	}
	if len(body.QuizHistory) != 1 {
		t.Fatalf("duplicate must not grow history, got %d", len(body.QuizHistory))
	}
}

func TestLeaderboardOrdersParticipants(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	doSubmit(t, server, tokenFor(t, "u1"), map[string]any{"subject": "Math", "score": 8, "totalQuestions": 10, "testCode": "T1"}).Body.Close()
	doSubmit(t, server, tokenFor(t, "u2"), map[string]any{"subject": "Math", "score": 9, "totalQuestions": 10, "testCode": "T1"}).Body.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/quiz/leaderboard/T1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "u1"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var lb domain.Leaderboard
	if err := json.NewDecoder(resp.Body).Decode(&lb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].UserID != "u2" || lb.Entries[0].Position != 1 {
		t.Fatalf("unexpected leaderboard: %+v", lb.Entries)
	}
}

func TestHistoryReturnsCallerLedger(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	doSubmit(t, server, tokenFor(t, "u1"), map[string]any{"subject": "Math", "score": 8, "totalQuestions": 10}).Body.Close()
	doSubmit(t, server, tokenFor(t, "u1"), map[string]any{"subject": "History", "score": 6, "totalQuestions": 10}).Body.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/quiz/history", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "u1"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		QuizHistory []domain.QuizAttempt `json:"quizHistory"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.QuizHistory) != 2 || body.QuizHistory[0].Subject != "History" {
		t.Fatalf("expected newest first history, got %+v", body.QuizHistory)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ledger := memory.NewLedger()
	scores := memory.NewScoreStore()
	service := app.NewResultService(ledger, scores, app.NewScanRanker(scores))
	return httptest.NewServer(NewRouter(service, auth.NewVerifier(testSecret)))
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.NewVerifier(testSecret).IssueToken(userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doSubmit(t *testing.T, server *httptest.Server, token string, payload map[string]any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/quiz/results", server.URL), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}
