package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	repository "wardline/internal/adapters/repository"
	model "wardline/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	task := model.Task{ID: "t1", RoomID: "icu", Symptom: "hypoxia", Action: "give_oxygen", Tier: "urgent", ExpiresAt: time.Now().Add(12 * time.Second)}
	require.NoError(t, s.PutTask(ctx, task))

	got, err := s.Task(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "give_oxygen", got.Action)

	tasks, err := s.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	removed, err := s.RemoveTask(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, removed)

	// Second removal reports false: the remove is the linearization point
	// for resolve-versus-expiry races.
	removed, err = s.RemoveTask(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.Task(ctx, "t1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetTaskClaimantOnMissingTaskIsNoop(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()
	assert.NoError(t, s.SetTaskClaimant(ctx, "ghost", "alice"))
}

func TestConcurrentClaimExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	const contenders = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := make([]string, 0, 1)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("p%d", n)
			acquired, _, err := s.AcquireClaim(ctx, "task-1", id, time.Minute)
			assert.NoError(t, err)
			if acquired {
				mu.Lock()
				winners = append(winners, id)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one contender must win the claim")

	holder, ok, err := s.ClaimHolder(ctx, "task-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, winners[0], holder)
}

func TestClaimExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }
	s := repository.NewMemoryStore(repository.WithClock(func() time.Time { return clock() }))

	acquired, holder, err := s.AcquireClaim(ctx, "task-1", "alice", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, "alice", holder)

	// Within the window the claim holds against other callers.
	acquired, holder, err = s.AcquireClaim(ctx, "task-1", "bob", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Equal(t, "alice", holder)

	// Past the window it self-releases even without explicit release.
	now = now.Add(11 * time.Second)
	_, ok, err := s.ClaimHolder(ctx, "task-1")
	require.NoError(t, err)
	assert.False(t, ok)

	acquired, holder, err = s.AcquireClaim(ctx, "task-1", "bob", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, "bob", holder)
}

func TestReleaseClaimOnlyByHolder(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	_, _, err := s.AcquireClaim(ctx, "task-1", "alice", time.Minute)
	require.NoError(t, err)

	released, err := s.ReleaseClaim(ctx, "task-1", "bob")
	require.NoError(t, err)
	assert.False(t, released, "non-holder release must be a no-op")

	released, err = s.ReleaseClaim(ctx, "task-1", "alice")
	require.NoError(t, err)
	assert.True(t, released)

	_, ok, err := s.ClaimHolder(ctx, "task-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDanglingClaimForVanishedTaskIsHarmless(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	require.NoError(t, s.PutTask(ctx, model.Task{ID: "t1"}))
	_, _, err := s.AcquireClaim(ctx, "t1", "alice", time.Minute)
	require.NoError(t, err)

	// Task removal does not race with claim cleanup; the claim dangles.
	removed, err := s.RemoveTask(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, removed)

	holder, ok, err := s.ClaimHolder(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", holder)

	assert.NoError(t, s.DropClaim(ctx, "t1"))
}

func TestTeamScoreCounter(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	n, err := s.AddTeamScore(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	n, err = s.AddTeamScore(ctx, -5)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = s.TeamScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestPlayersAndActiveSet(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	alice := model.Player{ID: "p1", Name: "alice", JoinedAt: time.Now()}
	bob := model.Player{ID: "p2", Name: "bob", JoinedAt: time.Now().Add(time.Second)}
	require.NoError(t, s.PutPlayer(ctx, alice))
	require.NoError(t, s.PutPlayer(ctx, bob))
	require.NoError(t, s.AddActive(ctx, "p1"))
	require.NoError(t, s.AddActive(ctx, "p2"))
	require.NoError(t, s.AddActive(ctx, "p2")) // set semantics

	n, err := s.ActiveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	players, err := s.Players(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 2)

	require.NoError(t, s.RemoveActive(ctx, "p1"))
	require.NoError(t, s.RemovePlayer(ctx, "p1"))

	n, err = s.ActiveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Player(ctx, "p1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVitalsAbsentThenPresent(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	_, ok, err := s.Vitals(ctx, "icu")
	require.NoError(t, err)
	assert.False(t, ok)

	v := model.Vitals{HeartRate: 80, SpO2: 97, Temp: 37.0, BloodPressure: 120}
	require.NoError(t, s.SetVitals(ctx, "icu", v))

	got, ok, err := s.Vitals(ctx, "icu")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, v, got)
}

func TestFlushResetsEverything(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	require.NoError(t, s.PutTask(ctx, model.Task{ID: "t1"}))
	require.NoError(t, s.PutPlayer(ctx, model.Player{ID: "p1"}))
	require.NoError(t, s.AddActive(ctx, "p1"))
	_, err := s.AddTeamScore(ctx, 40)
	require.NoError(t, err)
	_, _, err = s.AcquireClaim(ctx, "t1", "p1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.Flush(ctx))

	tasks, err := s.Tasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	n, err := s.TeamScore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := s.ActiveCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, ok, err := s.ClaimHolder(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}
