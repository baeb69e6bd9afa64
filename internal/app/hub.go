package app

import (
	"sync"

	"quiz-rank-service/internal/domain"
)

// leaderboardHub fans leaderboard snapshots out to watchers grouped by
// test code. Slow watchers never block a publish: a full channel has its
// oldest snapshot dropped in favor of the newest.
type leaderboardHub struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.Leaderboard]struct{}
}

func newLeaderboardHub() *leaderboardHub {
	return &leaderboardHub{subs: make(map[string]map[chan domain.Leaderboard]struct{})}
}

func (h *leaderboardHub) subscribe(testCode string) (chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	if h.subs[testCode] == nil {
		h.subs[testCode] = make(map[chan domain.Leaderboard]struct{})
	}
	h.subs[testCode][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[testCode]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, testCode)
			}
		}
	}
	return ch, cancel
}

func (h *leaderboardHub) active(testCode string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[testCode]) > 0
}

func (h *leaderboardHub) publish(testCode string, lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[testCode] {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
