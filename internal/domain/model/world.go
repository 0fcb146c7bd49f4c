// Package model contains domain models passed between layers.
package model

import "time"

// Vitals is one room's physiological readings.
type Vitals struct {
	HeartRate     int     `json:"heart_rate"`     // bpm
	SpO2          int     `json:"spo2"`           // percent
	Temp          float64 `json:"temp"`           // celsius
	BloodPressure int     `json:"blood_pressure"` // systolic mmHg
}

// VitalsDelta is a field-wise adjustment applied to Vitals.
type VitalsDelta struct {
	HeartRate     int
	SpO2          int
	Temp          float64
	BloodPressure int
}

// Room is a static location holding one patient.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task is one actionable problem at a room. Action is the single correct
// remedial action; it is persisted with the task but never sent to clients.
type Task struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Symptom   string    `json:"symptom"`
	Label     string    `json:"label"`
	Action    string    `json:"action"`
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expires_at"`
	ClaimedBy string    `json:"claimed_by,omitempty"` // claimant display name
}

// Player is an ephemeral per-connection participant record.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Streak   int       `json:"streak"`
	JoinedAt time.Time `json:"joined_at"`
}

// LeaderboardEntry is a durable top-score row.
type LeaderboardEntry struct {
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	AchievedAt time.Time `json:"achieved_at"`
}

// TaskView is a task enriched for display with its room's live vitals.
// The correct action is deliberately omitted.
type TaskView struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	RoomName  string    `json:"room_name"`
	Symptom   string    `json:"symptom"`
	Label     string    `json:"label"`
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expires_at"`
	ClaimedBy string    `json:"claimed_by,omitempty"`
	Vitals    Vitals    `json:"vitals"`
}

// RoomView pairs a room with its live vitals.
type RoomView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Vitals Vitals `json:"vitals"`
}

// PlayerView is the public slice of a participant included in snapshots.
type PlayerView struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Streak int    `json:"streak"`
}

// Snapshot is a point-in-time read of all live world state, sent to every
// connected participant on each mutation.
type Snapshot struct {
	Tasks     []TaskView   `json:"tasks"`
	TeamScore int          `json:"team_score"`
	Rooms     []RoomView   `json:"rooms"`
	Players   []PlayerView `json:"players"` // sorted by descending score
	TakenAt   time.Time    `json:"taken_at"`
}
