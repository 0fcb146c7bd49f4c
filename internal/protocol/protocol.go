// Package protocol defines the JSON messages exchanged with clients over the
// websocket transport. Messages are routed by their type field.
package protocol

import "encoding/json"

// Inbound message types.
const (
	TypeRegister       = "register"
	TypeClaim          = "claim"
	TypeResolve        = "resolve"
	TypeRelease        = "release"
	TypeGetLeaderboard = "get_leaderboard"
)

// Outbound message types.
const (
	TypeRequestName       = "request_name"
	TypeWorldUpdate       = "world_update"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypePlayerUpdate      = "player_update"
	TypeClaimFailed       = "claim_failed"
	TypeResolveError      = "resolve_error"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

// DecodeBase extracts the routing envelope from a raw message.
func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// RegisterMsg names a participant. Sent once per connection.
type RegisterMsg struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ClaimMsg asks for exclusive ownership of a task.
type ClaimMsg struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
}

// ResolveMsg submits a remedial action for a claimed task.
type ResolveMsg struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
	Action string `json:"action"`
}

// ReleaseMsg gives a claim back without resolving.
type ReleaseMsg struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
}

// GetLeaderboardMsg requests the durable top scores.
type GetLeaderboardMsg struct {
	Type string `json:"type"`
}
