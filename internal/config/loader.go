package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"wardline/internal/domain/model"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if WARDLINE_CONFIG is set
//  3. env (prefix WARDLINE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("WARDLINE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: WARDLINE_ADDR, WARDLINE_CLAIM_TTL_MS, ...
	// Map env keys like WARDLINE_CLAIM_TTL_MS -> claim_ttl_ms (flat keys).
	envProvider := env.Provider("WARDLINE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "wardline_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SpawnMinMS <= 0 || c.SpawnMaxMS < c.SpawnMinMS:
		return fmt.Errorf("%w: spawn interval must satisfy 0 < min <= max", ErrInvalidConfig)
	case c.ClaimTTLMS <= 0:
		return fmt.Errorf("%w: claim_ttl_ms must be positive", ErrInvalidConfig)
	case c.MaxTasksFloor <= 0 || c.TasksPerPlayer <= 0 || c.RoomTaskCap <= 0:
		return fmt.Errorf("%w: task capacity settings must be positive", ErrInvalidConfig)
	case c.LeaderboardSize <= 0:
		return fmt.Errorf("%w: leaderboard_size must be positive", ErrInvalidConfig)
	case len(c.Rooms) == 0:
		return fmt.Errorf("%w: at least one room is required", ErrInvalidConfig)
	}
	if _, err := c.RoomList(); err != nil {
		return err
	}
	return nil
}

// RoomList parses the configured "id:Display Name" pairs.
func (c *Config) RoomList() ([]model.Room, error) {
	rooms := make([]model.Room, 0, len(c.Rooms))
	seen := make(map[string]bool, len(c.Rooms))
	for _, spec := range c.Rooms {
		id, name, ok := strings.Cut(spec, ":")
		id = strings.TrimSpace(id)
		name = strings.TrimSpace(name)
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("%w: malformed room %q, want id:name", ErrInvalidConfig, spec)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate room id %q", ErrInvalidConfig, id)
		}
		seen[id] = true
		rooms = append(rooms, model.Room{ID: id, Name: name})
	}
	return rooms, nil
}
