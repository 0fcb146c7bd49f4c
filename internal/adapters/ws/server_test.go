package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	repository "wardline/internal/adapters/repository"
	"wardline/internal/adapters/ws"
	service "wardline/internal/app"
	"wardline/internal/domain/model"
	"wardline/internal/protocol"
	"wardline/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type stubHistory struct{}

func (stubHistory) TopScores(context.Context, int) ([]model.LeaderboardEntry, error) {
	return []model.LeaderboardEntry{{Name: "Vera", Score: 120}}, nil
}
func (stubHistory) RecordScore(context.Context, string, int, time.Time) error { return nil }
func (stubHistory) RecordSession(context.Context, string, int, time.Time, time.Time) error {
	return nil
}
func (stubHistory) ArchiveSnapshot(model.Snapshot, time.Time) (string, error) { return "", nil }

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

// readUntil reads frames until one matches the wanted type or the deadline
// passes.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) []byte {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read while waiting for %q: %v", msgType, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %q frame before deadline", msgType)
	return nil
}

func TestServer_SessionLifecycle(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := service.New(store, stubHistory{},
		service.WithSpawnInterval(time.Hour, time.Hour))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	srv := ws.NewServer(svc, ws.NewHub())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()

	// The server greets before anything else.
	msg := readUntil(t, conn, protocol.TypeRequestName)
	if msg == nil {
		t.Fatal("missing greeting")
	}

	// Register and expect both the leaderboard ack and a world broadcast.
	reg, _ := json.Marshal(protocol.RegisterMsg{Type: protocol.TypeRegister, Name: "Ada"})
	if err := conn.WriteMessage(websocket.TextMessage, reg); err != nil {
		t.Fatalf("write register: %v", err)
	}

	// Registration enqueues the world broadcast first, then the ack.
	var wu protocol.WorldUpdateMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeWorldUpdate), &wu); err != nil {
		t.Fatalf("unmarshal world update: %v", err)
	}
	var lb protocol.LeaderboardUpdateMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeLeaderboardUpdate), &lb); err != nil {
		t.Fatalf("unmarshal leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Name != "Vera" {
		t.Fatalf("unexpected leaderboard: %+v", lb.Entries)
	}
	found := false
	for _, p := range wu.Snapshot.Players {
		if p.Name == "Ada" {
			found = true
		}
	}
	if !found {
		t.Fatalf("registered player missing from snapshot: %+v", wu.Snapshot.Players)
	}

	// Closing the socket tears the participant down.
	conn.Close()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		n, err := store.ActiveCount(context.Background())
		if err != nil {
			t.Fatalf("active count: %v", err)
		}
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("participant not torn down after close")
}

func TestServer_BlankRegisterIgnored(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := service.New(store, stubHistory{},
		service.WithSpawnInterval(time.Hour, time.Hour))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	srv := ws.NewServer(svc, ws.NewHub())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()
	readUntil(t, conn, protocol.TypeRequestName)

	reg, _ := json.Marshal(protocol.RegisterMsg{Type: protocol.TypeRegister, Name: "   "})
	if err := conn.WriteMessage(websocket.TextMessage, reg); err != nil {
		t.Fatalf("write register: %v", err)
	}

	// Give the server a moment; no participant should appear.
	time.Sleep(100 * time.Millisecond)
	n, err := store.ActiveCount(context.Background())
	if err != nil {
		t.Fatalf("active count: %v", err)
	}
	if n != 0 {
		t.Fatalf("blank registration created a participant (active=%d)", n)
	}
}
