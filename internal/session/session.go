// Package session implements the chat session state machines: the
// connection lifecycle with backoff and fallback, the room worklist,
// message ingest with dedup, and the inactivity monitor.
package session

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAgent     Role = "agent"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Leave reasons reported to the server when a room is left or closed.
const (
	ReasonInactivityTimeout = "inactivity_timeout"
	ReasonManualExit        = "manual_exit"
	ReasonAgentLogout       = "agent_logout"
)

// Room statuses.
const (
	RoomStatusActive = "active"
	RoomStatusClosed = "closed"
)

// Message is one chat message in a room.
type Message struct {
	ID       string    `json:"id,omitempty"`
	RoomID   string    `json:"roomId"`
	SenderID string    `json:"senderId"`
	Sender   string    `json:"sender,omitempty"`
	Role     Role      `json:"role"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"timestamp"`
	Typing   bool      `json:"typing,omitempty"`
	Pending  bool      `json:"pending,omitempty"`
}

// Room is one conversation in the registry.
type Room struct {
	ID             string    `json:"roomId"`
	Counterpart    string    `json:"userName,omitempty"`
	LastMessage    string    `json:"lastMessage,omitempty"`
	LastActivityAt time.Time `json:"lastActivityTime"`
	Unread         int       `json:"unread,omitempty"`
	Status         string    `json:"status"`
	Implicit       bool      `json:"-"`
}
