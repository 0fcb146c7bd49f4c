// Package repository defines the shared world store interface and errors.
//
// The store is the single source of truth for all live world data: tasks,
// vitals, players, claims, the active-participant set and the team score.
// No component caches live state beyond one operation; every read is a fresh
// store query.
package repository

import (
	"context"
	"time"

	"wardline/internal/domain/model"
)

// Store provides read/write access to the live world state.
//
// Claim exclusivity is the store's job: AcquireClaim must be atomic
// (conditional set with expiry) so that concurrent callers cannot both win.
// Tasks live one entry per task id, so task creation and removal are
// single-key atomic and RemoveTask's boolean is the linearization point for
// resolve-versus-expiry races.
type Store interface {
	// PutTask persists a task under its id.
	PutTask(ctx context.Context, task model.Task) error
	// Task returns the task with the given id, or ErrNotFound.
	Task(ctx context.Context, id string) (model.Task, error)
	// Tasks returns all open tasks.
	Tasks(ctx context.Context) ([]model.Task, error)
	// RemoveTask deletes a task. It reports whether this call deleted it;
	// false means another caller already did (resolution or expiry).
	RemoveTask(ctx context.Context, id string) (bool, error)
	// SetTaskClaimant updates the claimant display name on a task.
	// A missing task is a benign no-op.
	SetTaskClaimant(ctx context.Context, id, name string) error

	// Vitals returns a room's readings; ok is false when none are stored.
	Vitals(ctx context.Context, roomID string) (v model.Vitals, ok bool, err error)
	// SetVitals writes a room's readings.
	SetVitals(ctx context.Context, roomID string, v model.Vitals) error

	// AddTeamScore adjusts the shared team counter and returns the new value.
	AddTeamScore(ctx context.Context, delta int) (int, error)
	// TeamScore returns the shared team counter.
	TeamScore(ctx context.Context) (int, error)

	// PutPlayer persists a participant record under its id.
	PutPlayer(ctx context.Context, p model.Player) error
	// Player returns the participant with the given id, or ErrNotFound.
	Player(ctx context.Context, id string) (model.Player, error)
	// Players returns all registered participants.
	Players(ctx context.Context) ([]model.Player, error)
	// RemovePlayer deletes a participant record.
	RemovePlayer(ctx context.Context, id string) error

	// AddActive adds a participant id to the active set.
	AddActive(ctx context.Context, id string) error
	// RemoveActive removes a participant id from the active set.
	RemoveActive(ctx context.Context, id string) error
	// ActiveCount returns the size of the active set.
	ActiveCount(ctx context.Context) (int, error)

	// AcquireClaim grants exclusive ownership of a task for ttl. It reports
	// whether this call acquired the claim and who holds it afterwards.
	// The claim self-expires after ttl even without explicit release.
	AcquireClaim(ctx context.Context, taskID, playerID string, ttl time.Duration) (acquired bool, holder string, err error)
	// ClaimHolder returns the current unexpired holder of a task's claim.
	ClaimHolder(ctx context.Context, taskID string) (holder string, ok bool, err error)
	// ReleaseClaim removes the claim only if playerID is the current holder.
	ReleaseClaim(ctx context.Context, taskID, playerID string) (bool, error)
	// DropClaim removes a task's claim regardless of holder (expiry path).
	DropClaim(ctx context.Context, taskID string) error

	// Flush clears all live world state (last participant left).
	Flush(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
