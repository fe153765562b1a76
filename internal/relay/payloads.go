package relay

import "time"

// Wire payloads exchanged with the relay. Field names match the JSON
// the web widget and agent dashboard emit.

// MessagePayload is the body of send_message and new_message events.
type MessagePayload struct {
	ID        string    `json:"id,omitempty"`
	RoomID    string    `json:"roomId"`
	SenderID  string    `json:"senderId"`
	Sender    string    `json:"sender,omitempty"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// IdentityPayload registers an agent identity on the channel.
type IdentityPayload struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
}

// JoinPayload is the body of join_room.
type JoinPayload struct {
	RoomID    string `json:"roomId"`
	AgentName string `json:"agentName,omitempty"`
}

// LeavePayload is the body of leave_room and close_room. Reason is one
// of the session leave reasons (inactivity_timeout, manual_exit,
// agent_logout).
type LeavePayload struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason,omitempty"`
}

// RequestAgentPayload asks the relay to page a human agent into a room.
type RequestAgentPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// AgentStatusPayload is the body of update_agent_status.
type AgentStatusPayload struct {
	Status string `json:"status"` // online | busy | offline
}

// RoomPayload describes one room in room_updated and available_rooms.
type RoomPayload struct {
	RoomID           string    `json:"roomId"`
	UserName         string    `json:"userName,omitempty"`
	LastMessage      string    `json:"lastMessage,omitempty"`
	LastActivityTime time.Time `json:"lastActivityTime"`
	Status           string    `json:"status,omitempty"`
}

// RoomListPayload is the body of available_rooms.
type RoomListPayload struct {
	Rooms []RoomPayload `json:"rooms"`
}

// HistoryPayload is the body of chat_history.
type HistoryPayload struct {
	RoomID   string           `json:"roomId"`
	Messages []MessagePayload `json:"messages"`
}

// PresencePayload is the body of agent_joined, agent_left, and
// room_left.
type PresencePayload struct {
	RoomID    string `json:"roomId"`
	AgentName string `json:"agentName,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
