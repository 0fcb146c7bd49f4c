package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"wardline/internal/domain/model"
)

// MemoryStore is an in-process Store with the same semantics as the Redis
// adapter. It backs single-binary deploys (no redis_addr configured) and
// tests. Claim expiry is enforced by deadlines checked at access time.
type MemoryStore struct {
	mu sync.Mutex

	tasks   map[string]model.Task
	vitals  map[string]model.Vitals
	players map[string]model.Player
	active  map[string]struct{}
	claims  map[string]claim
	team    int

	now func() time.Time
}

type claim struct {
	holder   string
	deadline time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		tasks:   make(map[string]model.Task),
		vitals:  make(map[string]model.Vitals),
		players: make(map[string]model.Player),
		active:  make(map[string]struct{}),
		claims:  make(map[string]claim),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) PutTask(_ context.Context, task model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

func (s *MemoryStore) Task(_ context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) Tasks(_ context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *MemoryStore) RemoveTask(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

func (s *MemoryStore) SetTaskClaimant(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	t.ClaimedBy = name
	s.tasks[id] = t
	return nil
}

func (s *MemoryStore) Vitals(_ context.Context, roomID string) (model.Vitals, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vitals[roomID]
	return v, ok, nil
}

func (s *MemoryStore) SetVitals(_ context.Context, roomID string, v model.Vitals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vitals[roomID] = v
	return nil
}

func (s *MemoryStore) AddTeamScore(_ context.Context, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.team += delta
	return s.team, nil
}

func (s *MemoryStore) TeamScore(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.team, nil
}

func (s *MemoryStore) PutPlayer(_ context.Context, p model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
	return nil
}

func (s *MemoryStore) Player(_ context.Context, id string) (model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return model.Player{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Players(_ context.Context) ([]model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *MemoryStore) RemovePlayer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

func (s *MemoryStore) AddActive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[id] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveActive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
	return nil
}

func (s *MemoryStore) ActiveCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active), nil
}

func (s *MemoryStore) AcquireClaim(_ context.Context, taskID, playerID string, ttl time.Duration) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.claims[taskID]; ok && s.now().Before(c.deadline) {
		return false, c.holder, nil
	}
	s.claims[taskID] = claim{holder: playerID, deadline: s.now().Add(ttl)}
	return true, playerID, nil
}

func (s *MemoryStore) ClaimHolder(_ context.Context, taskID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[taskID]
	if !ok || !s.now().Before(c.deadline) {
		return "", false, nil
	}
	return c.holder, true, nil
}

func (s *MemoryStore) ReleaseClaim(_ context.Context, taskID, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[taskID]
	if !ok || c.holder != playerID || !s.now().Before(c.deadline) {
		return false, nil
	}
	delete(s.claims, taskID)
	return true, nil
}

func (s *MemoryStore) DropClaim(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, taskID)
	return nil
}

func (s *MemoryStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]model.Task)
	s.vitals = make(map[string]model.Vitals)
	s.players = make(map[string]model.Player)
	s.active = make(map[string]struct{})
	s.claims = make(map[string]claim)
	s.team = 0
	return nil
}

func (s *MemoryStore) Close() error { return nil }
