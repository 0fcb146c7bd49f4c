package service

import (
	"context"
	"sort"
	"time"

	"wardline/internal/domain/model"
	"wardline/internal/domain/vitals"
	"wardline/internal/protocol"
	"wardline/pkg/logger"
	"wardline/pkg/metrics"
)

// adjustVitals applies a delta to a room's patient, clamped to the vitals
// bands. A room without stored vitals starts from the baseline.
func (s *Service) adjustVitals(ctx context.Context, roomID string, d model.VitalsDelta) error {
	v, ok, err := s.store.Vitals(ctx, roomID)
	if err != nil {
		return err
	}
	if !ok {
		v = vitals.Baseline()
	}
	return s.store.SetVitals(ctx, roomID, vitals.Apply(v, d))
}

// BuildSnapshot reads the whole live world in one pass: rooms with vitals,
// tasks enriched with their room's vitals, participants sorted by descending
// score, and the team counter. The correct action never leaves the store.
func (s *Service) BuildSnapshot(ctx context.Context) (model.Snapshot, error) {
	roomViews := make([]model.RoomView, 0, len(s.rooms))
	vitalsByRoom := make(map[string]model.Vitals, len(s.rooms))
	namesByRoom := make(map[string]string, len(s.rooms))
	for _, room := range s.rooms {
		v, ok, err := s.store.Vitals(ctx, room.ID)
		if err != nil {
			return model.Snapshot{}, err
		}
		if !ok {
			v = vitals.Baseline()
		}
		roomViews = append(roomViews, model.RoomView{ID: room.ID, Name: room.Name, Vitals: v})
		vitalsByRoom[room.ID] = v
		namesByRoom[room.ID] = room.Name
	}

	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	taskViews := make([]model.TaskView, 0, len(tasks))
	for _, t := range tasks {
		taskViews = append(taskViews, model.TaskView{
			ID:        t.ID,
			RoomID:    t.RoomID,
			RoomName:  namesByRoom[t.RoomID],
			Symptom:   t.Symptom,
			Label:     t.Label,
			Tier:      t.Tier,
			ExpiresAt: t.ExpiresAt,
			ClaimedBy: t.ClaimedBy,
			Vitals:    vitalsByRoom[t.RoomID],
		})
	}
	sort.Slice(taskViews, func(i, j int) bool {
		if taskViews[i].ExpiresAt.Equal(taskViews[j].ExpiresAt) {
			return taskViews[i].ID < taskViews[j].ID
		}
		return taskViews[i].ExpiresAt.Before(taskViews[j].ExpiresAt)
	})

	players, err := s.store.Players(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	playerViews := make([]model.PlayerView, 0, len(players))
	for _, p := range players {
		playerViews = append(playerViews, model.PlayerView{Name: p.Name, Score: p.Score, Streak: p.Streak})
	}
	sort.Slice(playerViews, func(i, j int) bool {
		if playerViews[i].Score == playerViews[j].Score {
			return playerViews[i].Name < playerViews[j].Name
		}
		return playerViews[i].Score > playerViews[j].Score
	})

	team, err := s.store.TeamScore(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	metrics.UpdateOpenTasks(len(taskViews))
	return model.Snapshot{
		Tasks:     taskViews,
		TeamScore: team,
		Rooms:     roomViews,
		Players:   playerViews,
		TakenAt:   time.Now(),
	}, nil
}

// broadcast pushes a fresh snapshot to every session. Failures are logged
// and dropped; the next mutation re-broadcasts anyway.
func (s *Service) broadcast(ctx context.Context) {
	snap, err := s.BuildSnapshot(ctx)
	if err != nil {
		s.logger.Error(ctx, "snapshot build failed", logger.Error(err))
		return
	}
	s.getSender().Broadcast(protocol.NewWorldUpdate(snap))
}
