// Package ws is the websocket transport: one session per connection, a hub
// registry for fan-out, and a dispatch loop keyed by message type.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"wardline/pkg/logger"
	"wardline/pkg/metrics"
)

// session is one connected client. Outbound messages go through a buffered
// channel drained by the connection's writer goroutine.
type session struct {
	id  string
	out chan []byte
}

// Hub tracks live sessions and fans messages out to them. It implements the
// coordinator's Sender contract.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	logger   logger.Logger
}

// NewHub creates an empty session registry.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*session),
		logger:   logger.Named("ws"),
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	n := len(h.sessions)
	h.mu.Unlock()
	metrics.UpdateWSSessions(n)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	if s, ok := h.sessions[id]; ok {
		delete(h.sessions, id)
		close(s.out)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	metrics.UpdateWSSessions(n)
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast marshals once and enqueues to every session. A session whose
// buffer is full skips the message; the next mutation re-broadcasts the full
// world anyway.
func (h *Hub) Broadcast(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), "broadcast marshal failed", logger.Error(err))
		return
	}
	h.mu.RLock()
	for _, s := range h.sessions {
		select {
		case s.out <- b:
		default:
			h.logger.Warn(context.Background(), "session buffer full, dropping frame",
				logger.String("session", s.id))
		}
	}
	h.mu.RUnlock()
	metrics.RecordBroadcast(len(b))
}

// SendTo enqueues a message to one session, if it is still connected.
func (h *Hub) SendTo(playerID string, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), "send marshal failed", logger.Error(err))
		return
	}
	// Send under the read lock so remove() cannot close the channel
	// between the lookup and the send.
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[playerID]
	if !ok {
		return
	}
	select {
	case s.out <- b:
	default:
		h.logger.Warn(context.Background(), "session buffer full, dropping frame",
			logger.String("session", s.id))
	}
}
