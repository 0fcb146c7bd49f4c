// Package service provides the world coordinator: it owns the spawn
// scheduler and routes every participant operation through the shared store,
// ending each mutation with a snapshot broadcast.
package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	repository "wardline/internal/adapters/repository"
	"wardline/internal/domain/catalog"
	"wardline/internal/domain/model"
	"wardline/internal/domain/scoring"
	"wardline/internal/domain/vitals"
	"wardline/internal/protocol"
	"wardline/pkg/logger"
	"wardline/pkg/metrics"
)

// Default world configuration constants.
const (
	defaultSpawnMin        = 3 * time.Second
	defaultSpawnMax        = 7 * time.Second
	defaultClaimTTL        = 15 * time.Second
	defaultCapacityFloor   = 4
	defaultTasksPerPlayer  = 2
	defaultRoomTaskCap     = 2
	defaultLeaderboardSize = 10
)

// Sender delivers outbound messages to connected sessions. The transport
// layer implements it; tests use a fake.
type Sender interface {
	// Broadcast sends a message to every connected session.
	Broadcast(msg any)
	// SendTo sends a message to one participant's session.
	SendTo(playerID string, msg any)
}

// History is the durable store contract: leaderboard, session audit and the
// end-of-world snapshot archive. Write-mostly from the coordinator's side.
type History interface {
	TopScores(ctx context.Context, n int) ([]model.LeaderboardEntry, error)
	RecordScore(ctx context.Context, name string, score int, at time.Time) error
	RecordSession(ctx context.Context, name string, score int, connectedAt, disconnectedAt time.Time) error
	ArchiveSnapshot(snap model.Snapshot, at time.Time) (string, error)
}

// Service implements the shared-world coordinator.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	history History
	sender  Sender
	scorer  *scoring.Engine

	// Configuration
	rooms           []model.Room
	spawnMin        time.Duration
	spawnMax        time.Duration
	claimTTL        time.Duration
	capacityFloor   int
	tasksPerPlayer  int
	roomTaskCap     int
	leaderboardSize int

	rngMu sync.Mutex
	rng   *rand.Rand

	// Spawn scheduler state
	loopMu      sync.Mutex
	loopStop    chan struct{}
	loopRunning bool

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRooms sets the world's locations.
func WithRooms(rooms []model.Room) Option {
	return func(s *Service) {
		if len(rooms) > 0 {
			s.rooms = rooms
		}
	}
}

// WithSpawnInterval bounds the random wait between spawn attempts.
func WithSpawnInterval(min, max time.Duration) Option {
	return func(s *Service) {
		if min > 0 && max >= min {
			s.spawnMin = min
			s.spawnMax = max
		}
	}
}

// WithClaimTTL sets the claim auto-release window.
func WithClaimTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.claimTTL = ttl
		}
	}
}

// WithTaskCapacity sets the open-task ceiling parameters: the ceiling is
// max(floor, perPlayer × active participants).
func WithTaskCapacity(floor, perPlayer int) Option {
	return func(s *Service) {
		if floor > 0 {
			s.capacityFloor = floor
		}
		if perPlayer > 0 {
			s.tasksPerPlayer = perPlayer
		}
	}
}

// WithRoomTaskCap sets how many tasks a single room may hold at once.
func WithRoomTaskCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.roomTaskCap = n
		}
	}
}

// WithLeaderboardSize sets how many durable entries are served.
func WithLeaderboardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}

// WithScoring replaces the scoring engine.
func WithScoring(e *scoring.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.scorer = e
		}
	}
}

// WithRand sets the random source. Tests pass a seeded source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// DefaultRooms returns the standard ward layout.
func DefaultRooms() []model.Room {
	return []model.Room{
		{ID: "ward-1", Name: "Ward 1"},
		{ID: "ward-2", Name: "Ward 2"},
		{ID: "icu", Name: "ICU"},
		{ID: "er", Name: "ER"},
	}
}

// New constructs a Service around an injected store and history backend.
func New(store repository.Store, hist History, opts ...Option) *Service {
	s := &Service{
		store:           store,
		history:         hist,
		sender:          noopSender{},
		scorer:          scoring.New(),
		rooms:           DefaultRooms(),
		spawnMin:        defaultSpawnMin,
		spawnMax:        defaultSpawnMax,
		claimTTL:        defaultClaimTTL,
		capacityFloor:   defaultCapacityFloor,
		tasksPerPlayer:  defaultTasksPerPlayer,
		roomTaskCap:     defaultRoomTaskCap,
		leaderboardSize: defaultLeaderboardSize,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // game randomness, not crypto
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSender attaches the transport after construction (the hub needs the
// service and vice versa).
func (s *Service) SetSender(snd Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snd != nil {
		s.sender = snd
	}
}

func (s *Service) getSender() Sender {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sender
}

// Start seeds room vitals and marks the service ready. The spawn scheduler
// stays stopped until the first participant registers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	for _, room := range s.rooms {
		_, ok, err := s.store.Vitals(ctx, room.ID)
		if err != nil {
			return err
		}
		if !ok {
			if err := s.store.SetVitals(ctx, room.ID, vitals.Baseline()); err != nil {
				return err
			}
		}
	}

	s.started = true
	s.logger.Info(ctx, "world coordinator started",
		logger.Int("rooms", len(s.rooms)),
		logger.Any("spawn_min", s.spawnMin),
		logger.Any("spawn_max", s.spawnMax),
	)
	return nil
}

// Stop halts the spawn scheduler.
func (s *Service) Stop() {
	s.stopSpawnLoop()
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
}

// RegisterPlayer creates the participant record and wakes the spawn
// scheduler when the world was empty. The first registration on a session
// wins; repeats return the existing record.
func (s *Service) RegisterPlayer(ctx context.Context, playerID, name string) (model.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Player{}, ErrEmptyName
	}

	if existing, err := s.store.Player(ctx, playerID); err == nil {
		return existing, nil
	}

	p := model.Player{ID: playerID, Name: name, JoinedAt: time.Now()}
	if err := s.store.PutPlayer(ctx, p); err != nil {
		return model.Player{}, err
	}
	if err := s.store.AddActive(ctx, playerID); err != nil {
		return model.Player{}, err
	}

	active, err := s.store.ActiveCount(ctx)
	if err != nil {
		return model.Player{}, err
	}
	metrics.UpdateActivePlayers(active)
	if active == 1 {
		s.startSpawnLoop()
	}

	s.logger.Info(ctx, "player registered",
		logger.String("player", name),
		logger.Int("active", active),
	)
	s.broadcast(ctx)
	return p, nil
}

// Leaderboard returns the durable top scores.
func (s *Service) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	return s.history.TopScores(ctx, s.leaderboardSize)
}

// ClaimTask grants exclusive, time-bounded ownership of a task. Contention
// is reported to the caller; re-claiming an already-held task is a benign
// no-op; claiming a vanished task is silently ignored.
func (s *Service) ClaimTask(ctx context.Context, playerID, taskID string) error {
	p, err := s.store.Player(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil // unregistered sessions hold no world state
	}
	if err != nil {
		return err
	}

	if _, err := s.store.Task(ctx, taskID); errors.Is(err, repository.ErrNotFound) {
		return nil // expired or resolved concurrently
	} else if err != nil {
		return err
	}

	acquired, holder, err := s.store.AcquireClaim(ctx, taskID, playerID, s.claimTTL)
	if err != nil {
		return err
	}
	switch {
	case acquired:
		metrics.RecordClaim("granted")
		if err := s.store.SetTaskClaimant(ctx, taskID, p.Name); err != nil {
			return err
		}
		s.broadcast(ctx)
	case holder == playerID:
		metrics.RecordClaim("idempotent")
	default:
		metrics.RecordClaim("denied")
		s.getSender().SendTo(playerID, protocol.ClaimFailedMsg{
			Type: protocol.TypeClaimFailed, TaskID: taskID, Reason: "already_claimed",
		})
	}
	return nil
}

// ResolveTask applies a remedial action to a claimed task. The caller must
// hold the claim; a vanished task is silently ignored.
func (s *Service) ResolveTask(ctx context.Context, playerID, taskID, action string) error {
	p, err := s.store.Player(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	holder, ok, err := s.store.ClaimHolder(ctx, taskID)
	if err != nil {
		return err
	}
	if !ok || holder != playerID {
		metrics.RecordResolution("denied")
		s.getSender().SendTo(playerID, protocol.ResolveErrorMsg{
			Type: protocol.TypeResolveError, TaskID: taskID, Reason: "not_claim_holder",
		})
		return nil
	}

	task, err := s.store.Task(ctx, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordResolution("stale")
		return nil
	}
	if err != nil {
		return err
	}

	tier, _ := catalog.TierByName(task.Tier)
	if action == task.Action {
		return s.resolveCorrect(ctx, p, task, tier)
	}
	return s.resolveWrong(ctx, p, task, tier)
}

func (s *Service) resolveCorrect(ctx context.Context, p model.Player, task model.Task, tier catalog.Tier) error {
	// The remove is the linearization point: losing it means the task
	// expired first and this resolution is void.
	removed, err := s.store.RemoveTask(ctx, task.ID)
	if err != nil {
		return err
	}
	if !removed {
		metrics.RecordResolution("stale")
		return nil
	}

	res := s.scorer.Correct(tier, p.Streak)
	p.Score += res.Delta
	p.Streak = res.Streak
	if err := s.store.PutPlayer(ctx, p); err != nil {
		return err
	}
	team, err := s.store.AddTeamScore(ctx, res.Delta)
	if err != nil {
		return err
	}
	metrics.UpdateTeamScore(team)

	recover := catalog.GenericRecover
	if sym, ok := catalog.SymptomByName(task.Symptom); ok {
		recover = sym.Recover
	}
	if err := s.adjustVitals(ctx, task.RoomID, recover); err != nil {
		s.logger.Warn(ctx, "vitals recovery failed", logger.String("room", task.RoomID), logger.Error(err))
	}

	if _, err := s.store.ReleaseClaim(ctx, task.ID, p.ID); err != nil {
		s.logger.Warn(ctx, "claim release failed", logger.String("task", task.ID), logger.Error(err))
	}

	metrics.RecordResolution("correct")
	s.getSender().SendTo(p.ID, protocol.PlayerUpdateMsg{
		Type: protocol.TypePlayerUpdate, Score: p.Score, Streak: p.Streak, Bonus: res.Bonus, Correct: true,
	})
	s.broadcast(ctx)
	return nil
}

func (s *Service) resolveWrong(ctx context.Context, p model.Player, task model.Task, tier catalog.Tier) error {
	res := s.scorer.Wrong(tier)
	p.Score += res.Delta
	p.Streak = 0
	if err := s.store.PutPlayer(ctx, p); err != nil {
		return err
	}
	team, err := s.store.AddTeamScore(ctx, res.Delta)
	if err != nil {
		return err
	}
	metrics.UpdateTeamScore(team)

	if err := s.adjustVitals(ctx, task.RoomID, catalog.Punitive); err != nil {
		s.logger.Warn(ctx, "punitive vitals adjust failed", logger.String("room", task.RoomID), logger.Error(err))
	}

	// The task stays open for another participant to attempt.
	if _, err := s.store.ReleaseClaim(ctx, task.ID, p.ID); err != nil {
		s.logger.Warn(ctx, "claim release failed", logger.String("task", task.ID), logger.Error(err))
	}
	if err := s.store.SetTaskClaimant(ctx, task.ID, ""); err != nil {
		s.logger.Warn(ctx, "claimant clear failed", logger.String("task", task.ID), logger.Error(err))
	}

	metrics.RecordResolution("wrong")
	s.getSender().SendTo(p.ID, protocol.PlayerUpdateMsg{
		Type: protocol.TypePlayerUpdate, Score: p.Score, Streak: 0, Bonus: 0, Correct: false,
	})
	s.broadcast(ctx)
	return nil
}

// ReleaseTask gives a claim back without resolving. No-op unless the caller
// is the current holder.
func (s *Service) ReleaseTask(ctx context.Context, playerID, taskID string) error {
	released, err := s.store.ReleaseClaim(ctx, taskID, playerID)
	if err != nil {
		return err
	}
	if !released {
		return nil
	}
	if err := s.store.SetTaskClaimant(ctx, taskID, ""); err != nil {
		return err
	}
	s.broadcast(ctx)
	return nil
}

// DisconnectPlayer tears a participant down, persists the durable subset,
// and flushes the world when the last participant leaves.
func (s *Service) DisconnectPlayer(ctx context.Context, playerID string) error {
	p, err := s.store.Player(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil // session never registered
	}
	if err != nil {
		return err
	}

	now := time.Now()
	if p.Score > 0 {
		if err := s.history.RecordScore(ctx, p.Name, p.Score, now); err != nil {
			s.logger.Error(ctx, "leaderboard write failed", logger.String("player", p.Name), logger.Error(err))
		}
	}
	if err := s.history.RecordSession(ctx, p.Name, p.Score, p.JoinedAt, now); err != nil {
		s.logger.Error(ctx, "session audit write failed", logger.String("player", p.Name), logger.Error(err))
	}

	if err := s.store.RemovePlayer(ctx, playerID); err != nil {
		return err
	}
	if err := s.store.RemoveActive(ctx, playerID); err != nil {
		return err
	}

	active, err := s.store.ActiveCount(ctx)
	if err != nil {
		return err
	}
	metrics.UpdateActivePlayers(active)
	s.logger.Info(ctx, "player disconnected",
		logger.String("player", p.Name),
		logger.Int("score", p.Score),
		logger.Int("active", active),
	)

	if active > 0 {
		s.broadcast(ctx)
		return nil
	}

	// Last one out: stop spawning, archive the ending, flush the world.
	s.stopSpawnLoop()
	if snap, err := s.BuildSnapshot(ctx); err != nil {
		s.logger.Error(ctx, "final snapshot build failed, archive skipped", logger.Error(err))
	} else if path, err := s.history.ArchiveSnapshot(snap, now); err != nil {
		s.logger.Error(ctx, "session archive failed", logger.Error(err))
	} else if path != "" {
		s.logger.Info(ctx, "session archived", logger.String("path", path))
	}
	if err := s.store.Flush(ctx); err != nil {
		return err
	}
	metrics.UpdateOpenTasks(0)
	metrics.UpdateTeamScore(0)
	return nil
}

// Stats returns coordinator statistics for monitoring.
func (s *Service) Stats() map[string]interface{} {
	ctx := context.Background()

	stats := map[string]interface{}{
		"spawnLoopRunning": s.spawnLoopRunning(),
		"rooms":            len(s.rooms),
	}
	if tasks, err := s.store.Tasks(ctx); err == nil {
		stats["openTasks"] = len(tasks)
		metrics.UpdateOpenTasks(len(tasks))
	}
	if active, err := s.store.ActiveCount(ctx); err == nil {
		stats["activePlayers"] = active
		metrics.UpdateActivePlayers(active)
	}
	if team, err := s.store.TeamScore(ctx); err == nil {
		stats["teamScore"] = team
		metrics.UpdateTeamScore(team)
	}
	return stats
}

// noopSender swallows outbound messages until a transport attaches.
type noopSender struct{}

func (noopSender) Broadcast(any)      {}
func (noopSender) SendTo(string, any) {}
