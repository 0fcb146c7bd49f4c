package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"wardline/internal/domain/model"
)

// Key layout under the configured prefix (default "ward:"):
//
//	task:<id>    JSON task, one key per task
//	vitals:<room> hash {hr, spo2, temp, bp}
//	player:<id>  JSON player
//	active       set of player ids
//	team         integer counter
//	claim:<task> claim holder, SET NX with expiry
const defaultKeyPrefix = "ward:"

const scanBatch = 200

// releaseScript deletes a claim only when the caller still holds it, in one
// server-side step.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisStore implements Store on a Redis backend. Claim exclusivity rides on
// SET NX EX; no in-process locking is involved.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping verifies the backend connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) taskKey(id string) string   { return s.prefix + "task:" + id }
func (s *RedisStore) vitalsKey(id string) string { return s.prefix + "vitals:" + id }
func (s *RedisStore) playerKey(id string) string { return s.prefix + "player:" + id }
func (s *RedisStore) claimKey(id string) string  { return s.prefix + "claim:" + id }
func (s *RedisStore) activeKey() string          { return s.prefix + "active" }
func (s *RedisStore) teamKey() string            { return s.prefix + "team" }

func (s *RedisStore) PutTask(ctx context.Context, task model.Task) error {
	b, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	return s.rdb.Set(ctx, s.taskKey(task.ID), b, 0).Err()
}

func (s *RedisStore) Task(ctx context.Context, id string) (model.Task, error) {
	val, err := s.rdb.Get(ctx, s.taskKey(id)).Result()
	if err == redis.Nil {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	var t model.Task
	if err := json.Unmarshal([]byte(val), &t); err != nil {
		return model.Task{}, fmt.Errorf("decode task %s: %w", id, err)
	}
	return t, nil
}

func (s *RedisStore) Tasks(ctx context.Context) ([]model.Task, error) {
	keys, err := s.scanKeys(ctx, s.prefix+"task:*")
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(keys))
	for _, key := range keys {
		val, err := s.rdb.Get(ctx, key).Result()
		if err == redis.Nil {
			continue // removed between scan and read
		}
		if err != nil {
			return nil, err
		}
		var t model.Task
		if err := json.Unmarshal([]byte(val), &t); err != nil {
			return nil, fmt.Errorf("decode task at %s: %w", key, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *RedisStore) RemoveTask(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Del(ctx, s.taskKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) SetTaskClaimant(ctx context.Context, id, name string) error {
	t, err := s.Task(ctx, id)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	t.ClaimedBy = name
	return s.PutTask(ctx, t)
}

func (s *RedisStore) Vitals(ctx context.Context, roomID string) (model.Vitals, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, s.vitalsKey(roomID)).Result()
	if err != nil {
		return model.Vitals{}, false, err
	}
	if len(fields) == 0 {
		return model.Vitals{}, false, nil
	}
	var v model.Vitals
	v.HeartRate, _ = strconv.Atoi(fields["hr"])
	v.SpO2, _ = strconv.Atoi(fields["spo2"])
	v.Temp, _ = strconv.ParseFloat(fields["temp"], 64)
	v.BloodPressure, _ = strconv.Atoi(fields["bp"])
	return v, true, nil
}

func (s *RedisStore) SetVitals(ctx context.Context, roomID string, v model.Vitals) error {
	return s.rdb.HSet(ctx, s.vitalsKey(roomID), map[string]interface{}{
		"hr":   v.HeartRate,
		"spo2": v.SpO2,
		"temp": strconv.FormatFloat(v.Temp, 'f', 2, 64),
		"bp":   v.BloodPressure,
	}).Err()
}

func (s *RedisStore) AddTeamScore(ctx context.Context, delta int) (int, error) {
	n, err := s.rdb.IncrBy(ctx, s.teamKey(), int64(delta)).Result()
	return int(n), err
}

func (s *RedisStore) TeamScore(ctx context.Context) (int, error) {
	val, err := s.rdb.Get(ctx, s.teamKey()).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

func (s *RedisStore) PutPlayer(ctx context.Context, p model.Player) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode player: %w", err)
	}
	return s.rdb.Set(ctx, s.playerKey(p.ID), b, 0).Err()
}

func (s *RedisStore) Player(ctx context.Context, id string) (model.Player, error) {
	val, err := s.rdb.Get(ctx, s.playerKey(id)).Result()
	if err == redis.Nil {
		return model.Player{}, ErrNotFound
	}
	if err != nil {
		return model.Player{}, err
	}
	var p model.Player
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return model.Player{}, fmt.Errorf("decode player %s: %w", id, err)
	}
	return p, nil
}

func (s *RedisStore) Players(ctx context.Context) ([]model.Player, error) {
	keys, err := s.scanKeys(ctx, s.prefix+"player:*")
	if err != nil {
		return nil, err
	}
	out := make([]model.Player, 0, len(keys))
	for _, key := range keys {
		val, err := s.rdb.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var p model.Player
		if err := json.Unmarshal([]byte(val), &p); err != nil {
			return nil, fmt.Errorf("decode player at %s: %w", key, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *RedisStore) RemovePlayer(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.playerKey(id)).Err()
}

func (s *RedisStore) AddActive(ctx context.Context, id string) error {
	return s.rdb.SAdd(ctx, s.activeKey(), id).Err()
}

func (s *RedisStore) RemoveActive(ctx context.Context, id string) error {
	return s.rdb.SRem(ctx, s.activeKey(), id).Err()
}

func (s *RedisStore) ActiveCount(ctx context.Context) (int, error) {
	n, err := s.rdb.SCard(ctx, s.activeKey()).Result()
	return int(n), err
}

func (s *RedisStore) AcquireClaim(ctx context.Context, taskID, playerID string, ttl time.Duration) (bool, string, error) {
	ok, err := s.rdb.SetNX(ctx, s.claimKey(taskID), playerID, ttl).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, playerID, nil
	}
	holder, err := s.rdb.Get(ctx, s.claimKey(taskID)).Result()
	if err == redis.Nil {
		// Expired between SETNX and GET; treat as contended this round.
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return false, holder, nil
}

func (s *RedisStore) ClaimHolder(ctx context.Context, taskID string) (string, bool, error) {
	holder, err := s.rdb.Get(ctx, s.claimKey(taskID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return holder, true, nil
}

func (s *RedisStore) ReleaseClaim(ctx context.Context, taskID, playerID string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.rdb, []string{s.claimKey(taskID)}, playerID).Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) DropClaim(ctx context.Context, taskID string) error {
	return s.rdb.Del(ctx, s.claimKey(taskID)).Err()
}

func (s *RedisStore) Flush(ctx context.Context) error {
	keys, err := s.scanKeys(ctx, s.prefix+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
