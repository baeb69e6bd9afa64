package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quiz-rank-service/internal/app"
	"quiz-rank-service/internal/auth"
)

// NewRouter wires the quiz routes behind bearer authentication. Every quiz
// operation needs a verified user; health stays open.
func NewRouter(service *app.ResultService, verifier *auth.Verifier) http.Handler {
	handler := NewHandler(service)
	wsHandler := NewWSHandler(service)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))
		r.Post("/quiz/results", handler.SubmitResult)
		r.Get("/quiz/history", handler.History)
		r.Get("/quiz/leaderboard/{testCode}", handler.Leaderboard)
		r.Get("/ws/leaderboard", wsHandler.ServeWS)
	})
	return r
}
