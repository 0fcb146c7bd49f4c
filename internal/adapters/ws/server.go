package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	service "wardline/internal/app"
	"wardline/internal/protocol"
	"wardline/pkg/logger"
)

// Connection timing constants.
const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	outBufferSize  = 64
	readLimitBytes = 16 * 1024
)

// Server upgrades HTTP requests to websocket sessions and drives the
// coordinator from inbound messages.
type Server struct {
	svc      *service.Service
	hub      *Hub
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer wires the transport to the coordinator and registers the hub as
// the coordinator's sender.
func NewServer(svc *service.Service, hub *Hub, opts ...Option) *Server {
	s := &Server{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.Named("ws"),
	}
	for _, opt := range opts {
		opt(s)
	}
	svc.SetSender(hub)
	return s
}

// Handler returns the websocket endpoint. Each connection becomes a session
// whose id doubles as the participant id once the client registers.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.logger.Warn(r.Context(), "upgrade failed", logger.Error(err))
			return
		}

		sess := &session{id: uuid.NewString(), out: make(chan []byte, outBufferSize)}
		s.hub.add(sess)

		ctx, cancel := context.WithCancel(context.Background())
		go s.writePump(ctx, cancel, conn, sess)

		// Greet before any world state exists for this session.
		s.hub.SendTo(sess.id, protocol.NewRequestName())

		s.readPump(ctx, cancel, conn, sess)

		// Cleanup. Disconnect is idempotent for sessions that never
		// registered.
		s.hub.remove(sess.id)
		if err := s.svc.DisconnectPlayer(context.Background(), sess.id); err != nil {
			s.logger.Error(context.Background(), "disconnect failed",
				logger.String("session", sess.id), logger.Error(err))
		}
		_ = conn.Close()
	}
}

func (s *Server) writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-sess.out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				cancel()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cancel()
				return
			}
		}
	}
}

func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *session) {
	defer cancel()
	conn.SetReadLimit(readLimitBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(ctx, sess.id, msg)
	}
}

// dispatch routes one inbound frame by its type field. Malformed frames are
// dropped; backend errors are logged and the session lives on.
func (s *Server) dispatch(ctx context.Context, sessionID string, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.logger.Debug(ctx, "undecodable frame dropped", logger.String("session", sessionID))
		return
	}

	switch base.Type {
	case protocol.TypeRegister:
		var m protocol.RegisterMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		if _, err := s.svc.RegisterPlayer(ctx, sessionID, m.Name); err != nil {
			if !errors.Is(err, service.ErrEmptyName) {
				s.logger.Error(ctx, "register failed", logger.String("session", sessionID), logger.Error(err))
			}
			return
		}
		s.sendLeaderboard(ctx, sessionID)

	case protocol.TypeClaim:
		var m protocol.ClaimMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		if err := s.svc.ClaimTask(ctx, sessionID, m.TaskID); err != nil {
			s.logger.Error(ctx, "claim failed", logger.String("session", sessionID), logger.Error(err))
		}

	case protocol.TypeResolve:
		var m protocol.ResolveMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		if err := s.svc.ResolveTask(ctx, sessionID, m.TaskID, m.Action); err != nil {
			s.logger.Error(ctx, "resolve failed", logger.String("session", sessionID), logger.Error(err))
		}

	case protocol.TypeRelease:
		var m protocol.ReleaseMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		if err := s.svc.ReleaseTask(ctx, sessionID, m.TaskID); err != nil {
			s.logger.Error(ctx, "release failed", logger.String("session", sessionID), logger.Error(err))
		}

	case protocol.TypeGetLeaderboard:
		s.sendLeaderboard(ctx, sessionID)

	default:
		s.logger.Debug(ctx, "unknown message type dropped",
			logger.String("session", sessionID), logger.String("type", base.Type))
	}
}

func (s *Server) sendLeaderboard(ctx context.Context, sessionID string) {
	entries, err := s.svc.Leaderboard(ctx)
	if err != nil {
		s.logger.Error(ctx, "leaderboard read failed", logger.Error(err))
		return
	}
	s.hub.SendTo(sessionID, protocol.NewLeaderboardUpdate(entries))
}
