package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-rank-service/internal/app"
)

// WSHandler streams live leaderboard snapshots for one test code over a
// websocket: the current board on connect, then an update after every
// ranked submission.
type WSHandler struct {
	service  *app.ResultService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ResultService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	testCode := r.URL.Query().Get("testCode")
	if testCode == "" {
		http.Error(w, "missing testCode", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.service.Watch(r.Context(), testCode)
	if err != nil {
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames only to notice a disconnect.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case lb, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[any]{Type: "leaderboard", Payload: lb}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}
