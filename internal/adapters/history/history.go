// Package history persists the durable subset of the game: the top-score
// leaderboard, the session audit trail, and zstd-compressed archives of the
// final world snapshot. Live world state never touches this store.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"wardline/internal/domain/model"
)

const defaultKeep = 10

// Option applies a configuration option to the DB.
type Option func(*DB)

// WithKeep sets how many leaderboard rows are retained.
func WithKeep(n int) Option {
	return func(d *DB) {
		if n > 0 {
			d.keep = n
		}
	}
}

// WithArchiveDir sets the directory session archives are written to.
// Archiving is disabled when empty.
func WithArchiveDir(dir string) Option {
	return func(d *DB) {
		d.archiveDir = dir
	}
}

// DB is the sqlite-backed durable store.
type DB struct {
	db         *sql.DB
	keep       int
	archiveDir string
}

// Open creates or opens the history database at path and ensures the schema.
func Open(path string, opts ...Option) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	d := &DB{db: db, keep: defaultKeep}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS leaderboard (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT    NOT NULL,
	score       INTEGER NOT NULL,
	achieved_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leaderboard_score ON leaderboard(score DESC, achieved_at ASC);
CREATE TABLE IF NOT EXISTS sessions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT    NOT NULL,
	score           INTEGER NOT NULL,
	connected_at    TEXT    NOT NULL,
	disconnected_at TEXT    NOT NULL
);`
	_, err := d.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate history schema: %w", err)
	}
	return nil
}

// RecordScore inserts a leaderboard row and prunes everything below the
// retained top-N.
func (d *DB) RecordScore(ctx context.Context, name string, score int, at time.Time) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO leaderboard(name, score, achieved_at) VALUES(?, ?, ?)`,
		name, score, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert leaderboard row: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM leaderboard WHERE id NOT IN (
			SELECT id FROM leaderboard ORDER BY score DESC, achieved_at ASC LIMIT ?
		)`, d.keep); err != nil {
		return fmt.Errorf("prune leaderboard: %w", err)
	}
	return tx.Commit()
}

// TopScores returns the top-n leaderboard entries by descending score.
func (d *DB) TopScores(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	if n <= 0 || n > d.keep {
		n = d.keep
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, score, achieved_at FROM leaderboard ORDER BY score DESC, achieved_at ASC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		var at string
		if err := rows.Scan(&e.Name, &e.Score, &at); err != nil {
			return nil, err
		}
		e.AchievedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordSession writes one audit row for a completed participant session.
func (d *DB) RecordSession(ctx context.Context, name string, score int, connectedAt, disconnectedAt time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO sessions(name, score, connected_at, disconnected_at) VALUES(?, ?, ?, ?)`,
		name, score,
		connectedAt.UTC().Format(time.RFC3339Nano),
		disconnectedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert session row: %w", err)
	}
	return nil
}

// ArchiveSnapshot writes the final world snapshot as zstd-compressed JSON and
// returns the file path. A disabled archive dir returns an empty path.
func (d *DB) ArchiveSnapshot(snap model.Snapshot, at time.Time) (string, error) {
	if d.archiveDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(d.archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	path := filepath.Join(d.archiveDir, fmt.Sprintf("world-%s.json.zst", at.UTC().Format("20060102T150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return "", fmt.Errorf("zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		_ = zw.Close()
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("flush archive: %w", err)
	}
	return path, nil
}

// Close releases the underlying database.
func (d *DB) Close() error { return d.db.Close() }
