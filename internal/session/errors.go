package session

import "errors"

var (
	// ErrChannelUnavailable is returned when an operation needs the
	// realtime channel but the session is disconnected or in fallback.
	ErrChannelUnavailable = errors.New("realtime channel unavailable")

	// ErrNotSendable is returned when a message cannot be sent in the
	// current connection state.
	ErrNotSendable = errors.New("message not sendable in current state")

	// ErrDuplicateMessage is returned by the pipeline when an incoming
	// message was already ingested.
	ErrDuplicateMessage = errors.New("duplicate message")

	// ErrRoomNotFound is returned for operations on an unknown room.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNoActiveRoom is returned when an operation requires an active
	// room and none is selected.
	ErrNoActiveRoom = errors.New("no active room")
)
