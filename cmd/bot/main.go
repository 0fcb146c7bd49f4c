// Command bot is a headless load client: it connects N scripted players over
// the websocket endpoint and has them claim and resolve tasks at random.
// Useful for soaking the claim arbiter under contention.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wardline/internal/domain/catalog"
	"wardline/internal/protocol"
	"wardline/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers  = 8
	defaultDuration = 60 * time.Second
	defaultThink    = 500 * time.Millisecond
	dialTimeout     = 5 * time.Second
	writeTimeout    = 5 * time.Second
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:9080/ws", "Websocket URL of the coordinator")
		players  = flag.Int("players", defaultPlayers, "Number of concurrent scripted players")
		duration = flag.Duration("duration", defaultDuration, "How long to run")
		think    = flag.Duration("think", defaultThink, "Pause between actions per player")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Named("bot")

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < *players; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("bot-%02d", n)
			if err := runPlayer(ctx, *url, name, *think); err != nil {
				log.Warn(ctx, "player stopped", logger.String("name", name), logger.Error(err))
			}
		}(i)
		// Stagger dials a little.
		time.Sleep(50 * time.Millisecond)
	}
	wg.Wait()
	log.Info(context.Background(), "soak finished",
		logger.Int("players", *players),
		logger.Any("duration", *duration),
	)
}

// runPlayer drives one scripted participant until the context ends.
func runPlayer(ctx context.Context, url, name string, think time.Duration) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // load generation
	actions := catalog.Actions()

	// Latest known open tasks, maintained by the reader.
	var mu sync.Mutex
	var tasks []string

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	send := func(v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(websocket.TextMessage, b)
	}

	// Reader: register on greeting, track tasks from world broadcasts.
	readerDone := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				readerDone <- err
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeRequestName:
				if err := send(protocol.RegisterMsg{Type: protocol.TypeRegister, Name: name}); err != nil {
					readerDone <- err
					return
				}
			case protocol.TypeWorldUpdate:
				var wu protocol.WorldUpdateMsg
				if err := json.Unmarshal(msg, &wu); err != nil {
					continue
				}
				ids := make([]string, 0, len(wu.Snapshot.Tasks))
				for _, t := range wu.Snapshot.Tasks {
					ids = append(ids, t.ID)
				}
				mu.Lock()
				tasks = ids
				mu.Unlock()
			}
		}
	}()

	ticker := time.NewTicker(think)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readerDone:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case <-ticker.C:
			mu.Lock()
			var taskID string
			if len(tasks) > 0 {
				taskID = tasks[rng.Intn(len(tasks))]
			}
			mu.Unlock()
			if taskID == "" {
				continue
			}
			if err := send(protocol.ClaimMsg{Type: protocol.TypeClaim, TaskID: taskID}); err != nil {
				return err
			}
			// Guess an action; the bot has no idea which one is right,
			// which is exactly the contention we want to generate.
			if err := send(protocol.ResolveMsg{
				Type:   protocol.TypeResolve,
				TaskID: taskID,
				Action: actions[rng.Intn(len(actions))],
			}); err != nil {
				return err
			}
			if rng.Intn(10) == 0 {
				if err := send(protocol.GetLeaderboardMsg{Type: protocol.TypeGetLeaderboard}); err != nil {
					return err
				}
			}
		}
	}
}
