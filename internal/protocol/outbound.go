package protocol

import "wardline/internal/domain/model"

// RequestNameMsg is sent on connect, before the participant exists.
type RequestNameMsg struct {
	Type string `json:"type"`
}

// WorldUpdateMsg carries a full snapshot. Sent to every session on every
// world mutation; no diffing.
type WorldUpdateMsg struct {
	Type     string         `json:"type"`
	Snapshot model.Snapshot `json:"snapshot"`
}

// LeaderboardUpdateMsg carries the durable top scores.
type LeaderboardUpdateMsg struct {
	Type    string                   `json:"type"`
	Entries []model.LeaderboardEntry `json:"entries"`
}

// PlayerUpdateMsg is the directed acknowledgment after a resolution.
type PlayerUpdateMsg struct {
	Type    string `json:"type"`
	Score   int    `json:"score"`
	Streak  int    `json:"streak"`
	Bonus   int    `json:"bonus"`
	Correct bool   `json:"correct"`
}

// ClaimFailedMsg tells the caller a claim was contended.
type ClaimFailedMsg struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// ResolveErrorMsg tells the caller a resolution was not allowed.
type ResolveErrorMsg struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// NewRequestName builds the connect greeting.
func NewRequestName() RequestNameMsg {
	return RequestNameMsg{Type: TypeRequestName}
}

// NewWorldUpdate wraps a snapshot for broadcast.
func NewWorldUpdate(snap model.Snapshot) WorldUpdateMsg {
	return WorldUpdateMsg{Type: TypeWorldUpdate, Snapshot: snap}
}

// NewLeaderboardUpdate wraps leaderboard entries.
func NewLeaderboardUpdate(entries []model.LeaderboardEntry) LeaderboardUpdateMsg {
	return LeaderboardUpdateMsg{Type: TypeLeaderboardUpdate, Entries: entries}
}
