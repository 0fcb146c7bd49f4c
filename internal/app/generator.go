package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	repository "wardline/internal/adapters/repository"
	"wardline/internal/domain/catalog"
	"wardline/internal/domain/model"
	"wardline/internal/domain/vitals"
	"wardline/pkg/logger"
	"wardline/pkg/metrics"
)

// startSpawnLoop launches the scheduler goroutine if it is not running.
func (s *Service) startSpawnLoop() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.loopRunning {
		return
	}
	s.loopStop = make(chan struct{})
	s.loopRunning = true
	go s.spawnLoop(s.loopStop)
}

// stopSpawnLoop signals the scheduler goroutine to exit. Pending per-task
// expiry timers are left to fire; they no-op once their task is gone.
func (s *Service) stopSpawnLoop() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if !s.loopRunning {
		return
	}
	close(s.loopStop)
	s.loopRunning = false
}

func (s *Service) spawnLoopRunning() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	return s.loopRunning
}

func (s *Service) spawnLoop(stop chan struct{}) {
	ctx := context.Background()
	s.logger.Info(ctx, "spawn scheduler started")
	for {
		timer := time.NewTimer(s.nextSpawnDelay())
		select {
		case <-stop:
			timer.Stop()
			s.logger.Info(ctx, "spawn scheduler stopped")
			return
		case <-timer.C:
			if _, err := s.SpawnOnce(ctx); err != nil {
				s.logger.Warn(ctx, "spawn attempt failed", logger.Error(err))
			}
		}
	}
}

func (s *Service) nextSpawnDelay() time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	if s.spawnMax <= s.spawnMin {
		return s.spawnMin
	}
	return s.spawnMin + time.Duration(s.rng.Int63n(int64(s.spawnMax-s.spawnMin)))
}

// SpawnOnce runs a single spawn attempt: skip when the world is empty, at
// the capacity ceiling, or when every room is full; otherwise materialize
// one symptom as a task and arm its expiry timer. Returns nil without error
// when the attempt was skipped.
func (s *Service) SpawnOnce(ctx context.Context) (*model.Task, error) {
	active, err := s.store.ActiveCount(ctx)
	if err != nil {
		return nil, err
	}
	if active == 0 {
		return nil, nil
	}

	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	ceiling := s.capacityFloor
	if perActive := s.tasksPerPlayer * active; perActive > ceiling {
		ceiling = perActive
	}
	if len(tasks) >= ceiling {
		return nil, nil
	}

	perRoom := make(map[string]int, len(s.rooms))
	for _, t := range tasks {
		perRoom[t.RoomID]++
	}
	candidates := make([]model.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if perRoom[room.ID] < s.roomTaskCap {
			candidates = append(candidates, room)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	room := candidates[s.randIntn(len(candidates))]

	v, ok, err := s.store.Vitals(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		v = vitals.Baseline()
	}
	sym := s.pickSymptom(v)
	tier := s.pickTier()

	task := model.Task{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		Symptom:   sym.Name,
		Label:     sym.Label,
		Action:    sym.Action,
		Tier:      tier.Name,
		ExpiresAt: time.Now().Add(tier.TTL),
	}
	if err := s.store.PutTask(ctx, task); err != nil {
		return nil, err
	}
	if err := s.adjustVitals(ctx, room.ID, sym.Degrade); err != nil {
		s.logger.Warn(ctx, "spawn vitals degrade failed", logger.String("room", room.ID), logger.Error(err))
	}

	time.AfterFunc(tier.TTL, func() {
		if err := s.ExpireTask(context.Background(), task.ID); err != nil {
			logger.Get().Warn(context.Background(), "task expiry failed",
				logger.String("task", task.ID), logger.Error(err))
		}
	})

	metrics.RecordTaskSpawned(tier.Name)
	s.logger.Debug(ctx, "task spawned",
		logger.String("task", task.ID),
		logger.String("room", room.ID),
		logger.String("symptom", sym.Name),
		logger.String("tier", tier.Name),
	)
	s.broadcast(ctx)
	return &task, nil
}

// ExpireTask fires when a task's TTL elapses. A task already resolved (or
// expired) is a no-op; otherwise the team is penalized and the patient
// degrades further.
func (s *Service) ExpireTask(ctx context.Context, taskID string) error {
	task, err := s.store.Task(ctx, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	removed, err := s.store.RemoveTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !removed {
		return nil // lost the race to a resolution
	}
	if err := s.store.DropClaim(ctx, taskID); err != nil {
		s.logger.Warn(ctx, "claim drop failed", logger.String("task", taskID), logger.Error(err))
	}

	tier, _ := catalog.TierByName(task.Tier)
	team, err := s.store.AddTeamScore(ctx, -tier.TeamPenalty)
	if err != nil {
		return err
	}
	metrics.UpdateTeamScore(team)

	if sym, ok := catalog.SymptomByName(task.Symptom); ok {
		if err := s.adjustVitals(ctx, task.RoomID, sym.Degrade); err != nil {
			s.logger.Warn(ctx, "expiry vitals degrade failed", logger.String("room", task.RoomID), logger.Error(err))
		}
	}

	metrics.RecordTaskExpired(tier.Name)
	s.logger.Debug(ctx, "task expired",
		logger.String("task", taskID),
		logger.String("tier", tier.Name),
	)
	s.broadcast(ctx)
	return nil
}

func (s *Service) pickSymptom(v model.Vitals) catalog.Symptom {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return catalog.PickSymptom(v, s.rng)
}

func (s *Service) pickTier() catalog.Tier {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return catalog.PickTier(s.rng)
}

func (s *Service) randIntn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}
