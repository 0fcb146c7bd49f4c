// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - Layer defaults, optional YAML file and env vars in Load.
// - External errors must be wrapped via this package's error helpers.
package config

import "context"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// RedisAddr selects the Redis-backed store when non-empty; otherwise the
	// in-memory store is used.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// HistoryPath locates the sqlite file for the durable leaderboard and
	// session audit.
	HistoryPath string `koanf:"history_path"`

	// ArchiveDir receives compressed end-of-world snapshots. Empty disables
	// archiving.
	ArchiveDir string `koanf:"archive_dir"`

	// SpawnMinMS and SpawnMaxMS bound the random wait between spawn attempts.
	SpawnMinMS int `koanf:"spawn_min_ms"`
	SpawnMaxMS int `koanf:"spawn_max_ms"`

	// ClaimTTLMS is the claim auto-release window.
	ClaimTTLMS int `koanf:"claim_ttl_ms"`

	// MaxTasksFloor and TasksPerPlayer shape the open-task ceiling
	// max(floor, perPlayer x active).
	MaxTasksFloor  int `koanf:"max_tasks_floor"`
	TasksPerPlayer int `koanf:"tasks_per_player"`

	// RoomTaskCap bounds open tasks per room.
	RoomTaskCap int `koanf:"room_task_cap"`

	// LeaderboardSize caps the durable top-score table.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// Rooms lists world locations as "id:Display Name" pairs.
	Rooms []string `koanf:"rooms"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		HistoryPath:     "wardline.db",
		SpawnMinMS:      3000,
		SpawnMaxMS:      7000,
		ClaimTTLMS:      15000,
		MaxTasksFloor:   4,
		TasksPerPlayer:  2,
		RoomTaskCap:     2,
		LeaderboardSize: 10,
		Rooms: []string{
			"ward-1:Ward 1",
			"ward-2:Ward 2",
			"icu:ICU",
			"er:ER",
		},
	}
}
