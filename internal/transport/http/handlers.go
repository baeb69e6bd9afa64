package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quiz-rank-service/internal/app"
	"quiz-rank-service/internal/auth"
	"quiz-rank-service/internal/domain"
)

// Handler exposes the submission and ranking use cases over JSON.
type Handler struct {
	service *app.ResultService
}

func NewHandler(service *app.ResultService) *Handler {
	return &Handler{service: service}
}

type submitRequest struct {
	Subject        string `json:"subject"`
	Topic          string `json:"topic"`
	Score          *int   `json:"score"`
	TotalQuestions *int   `json:"totalQuestions"`
	TestCode       string `json:"testCode"`
	TimeTakenSec   *int   `json:"timeTaken"`
}

type submitResponse struct {
	Message     string               `json:"message"`
	QuizResult  domain.QuizAttempt   `json:"quizResult"`
	QuizHistory []domain.QuizAttempt `json:"quizHistory"`
}

type historyResponse struct {
	QuizHistory []domain.QuizAttempt `json:"quizHistory"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	outcome, err := h.service.SubmitResult(r.Context(), userID, app.SubmitRequest{
		Subject:        req.Subject,
		Topic:          req.Topic,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		TestCode:       req.TestCode,
		TimeTakenSec:   req.TimeTakenSec,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Quiz result saved successfully"
	if outcome.Status == app.StatusDuplicate {
		message = "Quiz result already saved"
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Message:     message,
		QuizResult:  outcome.Attempt,
		QuizHistory: outcome.History,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	history, err := h.service.History(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{QuizHistory: history})
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	testCode := chi.URLParam(r, "testCode")
	if testCode == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "testCode is required"})
		return
	}
	lb, err := h.service.Leaderboard(r.Context(), testCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSubmission):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
