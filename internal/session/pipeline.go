package session

import (
	"fmt"
	"sync"
	"time"
)

// RoomSink receives room activity derived from ingested messages.
// *Registry satisfies it.
type RoomSink interface {
	Touch(roomID, preview string, at time.Time)
}

// Pipeline ingests messages per room with duplicate suppression.
//
// A message is a duplicate when an already-ingested message in the same
// room shares its id, or shares both content and sender id. Re-ingesting
// a duplicate is a no-op, so replayed chat_history after a reconnect
// cannot double up the transcript.
type Pipeline struct {
	mu        sync.Mutex
	rooms     map[string][]Message
	selfID    string
	selfRole  Role
	sink      RoomSink
	nextLocal int
	clock     Clock
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSelfRole sets the role assigned to messages authored locally and
// to history entries from the session's own sender id. The agent
// console uses RoleAgent; the widget uses RoleUser.
func WithSelfRole(role Role) PipelineOption {
	return func(p *Pipeline) { p.selfRole = role }
}

// WithRoomSink forwards ingest activity to a room registry.
func WithRoomSink(sink RoomSink) PipelineOption {
	return func(p *Pipeline) { p.sink = sink }
}

// WithPipelineClock replaces the wall clock, for tests.
func WithPipelineClock(c Clock) PipelineOption {
	return func(p *Pipeline) { p.clock = c }
}

// NewPipeline creates an empty pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		rooms:    make(map[string][]Message),
		selfRole: RoleUser,
		clock:    SystemClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetSelfID records the channel-assigned sender id once known.
func (p *Pipeline) SetSelfID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selfID = id
}

// Ingest adds an incoming message to its room.
//
// Duplicates return ErrDuplicateMessage. If the stored duplicate was a
// pending local echo, it is confirmed in place first (server id and
// timestamp adopted), so the caller can still treat the error as
// "already displayed". A typing placeholder from the same sender is
// replaced in place rather than appended after.
func (p *Pipeline) Ingest(msg Message) (Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if msg.Role == "" {
		msg.Role = p.backfillRoleLocked(msg.SenderID)
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = p.clock.Now()
	}

	msgs := p.rooms[msg.RoomID]
	for i := range msgs {
		if !p.isDuplicateLocked(&msgs[i], &msg) {
			continue
		}
		if msgs[i].Pending && !msg.Pending {
			// Server echo of our optimistic send: confirm in place.
			if msg.ID != "" {
				msgs[i].ID = msg.ID
			}
			msgs[i].SentAt = msg.SentAt
			msgs[i].Pending = false
		}
		return msgs[i], ErrDuplicateMessage
	}

	// Replace a typing placeholder from the same sender in place so the
	// final content lands where the indicator was shown.
	if !msg.Typing {
		for i := range msgs {
			if msgs[i].Typing && msgs[i].SenderID == msg.SenderID {
				msg.Pending = false
				msgs[i] = msg
				p.touchLocked(msg)
				return msg, nil
			}
		}
	}

	p.rooms[msg.RoomID] = append(msgs, msg)
	p.touchLocked(msg)
	return msg, nil
}

func (p *Pipeline) isDuplicateLocked(have, in *Message) bool {
	if in.ID != "" && have.ID == in.ID {
		return true
	}
	return have.Content == in.Content && have.SenderID == in.SenderID && !have.Typing
}

func (p *Pipeline) backfillRoleLocked(senderID string) Role {
	switch senderID {
	case "system":
		return RoleSystem
	case p.selfID:
		return p.selfRole
	default:
		if p.selfRole == RoleAgent {
			return RoleUser
		}
		return RoleAgent
	}
}

func (p *Pipeline) touchLocked(msg Message) {
	if p.sink == nil || msg.Typing {
		return
	}
	p.sink.Touch(msg.RoomID, msg.Content, msg.SentAt)
}

// AppendLocal records an optimistic echo for an outgoing message. The
// echo carries a local id and stays pending until the server copy
// arrives through Ingest.
func (p *Pipeline) AppendLocal(roomID, content string) Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextLocal++
	msg := Message{
		ID:       fmt.Sprintf("local-%d", p.nextLocal),
		RoomID:   roomID,
		SenderID: p.selfID,
		Role:     p.selfRole,
		Content:  content,
		SentAt:   p.clock.Now(),
		Pending:  true,
	}
	p.rooms[roomID] = append(p.rooms[roomID], msg)
	p.touchLocked(msg)
	return msg
}

// AppendTyping records a typing placeholder for a sender. The next
// non-typing message from that sender replaces it in place.
func (p *Pipeline) AppendTyping(roomID, senderID string, role Role) Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := p.rooms[roomID]
	for i := range msgs {
		if msgs[i].Typing && msgs[i].SenderID == senderID {
			return msgs[i]
		}
	}
	p.nextLocal++
	msg := Message{
		ID:       fmt.Sprintf("local-%d", p.nextLocal),
		RoomID:   roomID,
		SenderID: senderID,
		Role:     role,
		SentAt:   p.clock.Now(),
		Typing:   true,
	}
	p.rooms[roomID] = append(msgs, msg)
	return msg
}

// LoadHistory bulk-ingests a chat_history payload, skipping duplicates.
// Returns the messages that were new.
func (p *Pipeline) LoadHistory(roomID string, msgs []Message) []Message {
	var added []Message
	for _, msg := range msgs {
		msg.RoomID = roomID
		if ingested, err := p.Ingest(msg); err == nil {
			added = append(added, ingested)
		}
	}
	return added
}

// History returns a copy of a room's transcript in arrival order.
func (p *Pipeline) History(roomID string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.rooms[roomID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Reset drops a room's transcript.
func (p *Pipeline) Reset(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rooms, roomID)
}
