// Package relay implements the WebSocket client for the support-chat
// relay. Frames are JSON envelopes with an event name and a payload;
// the server greets each connection with a welcome frame carrying the
// connection's sender id, then pings every few seconds so dead links
// are detectable.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
)

// Subprotocol negotiated with the relay server.
const Subprotocol = "gdchat-v1-json"

// DefaultPingTimeout is how long we wait without receiving any frame
// (including server pings) before treating the connection as dead.
// The relay pings every ~3s, so 15s means ~5 missed pings.
var DefaultPingTimeout = 15 * time.Second

// ErrPingTimeout is returned when no frames are received within the ping timeout.
var ErrPingTimeout = errors.New("ping timeout: no frames received")

// Outbound event names.
const (
	EventRegisterIdentity  = "register_identity"
	EventJoinRoom          = "join_room"
	EventLeaveRoom         = "leave_room"
	EventCloseRoom         = "close_room"
	EventSendMessage       = "send_message"
	EventRequestAgent      = "request_agent"
	EventUpdateAgentStatus = "update_agent_status"
)

// Inbound event names.
const (
	EventNewMessage        = "new_message"
	EventChatHistory       = "chat_history"
	EventRoomUpdated       = "room_updated"
	EventRoomLeft          = "room_left"
	EventAvailableRooms    = "available_rooms"
	EventNoAgentsAvailable = "no_agents_available"
	EventAgentJoined       = "agent_joined"
	EventAgentLeft         = "agent_left"

	eventWelcome = "welcome"
	eventPing    = "ping"
	eventGoodbye = "goodbye"
)

// TransportError wraps a channel failure with the operation that hit it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// frame is a raw relay JSON envelope.
type frame struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// Event is a message received from the relay server.
type Event struct {
	Name string          // inbound event name
	Data json.RawMessage // the "data" field payload
	Err  error           // non-nil on read error or disconnect
}

// Client is a relay WebSocket client.
type Client struct {
	conn     *websocket.Conn
	url      string
	senderID string
}

// maxReadSize caps the maximum WebSocket frame size to 1 MB.
// Relay messages are small JSON; anything larger is likely malformed.
const maxReadSize = 1 << 20 // 1 MB

type welcomeData struct {
	SenderID string `json:"senderId"`
}

// Dial connects to the relay endpoint and waits for the welcome frame,
// which carries the sender id the server assigned to this connection.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	conn.SetReadLimit(maxReadSize)

	_, data, err := conn.Read(ctx)
	if err != nil {
		_ = conn.CloseNow()
		return nil, &TransportError{Op: "read welcome", Err: err}
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		_ = conn.CloseNow()
		return nil, &TransportError{Op: "parse welcome", Err: err}
	}
	if f.Event != eventWelcome {
		_ = conn.CloseNow()
		return nil, &TransportError{Op: "welcome", Err: fmt.Errorf("expected welcome, got %q (reason: %s)", f.Event, f.Reason)}
	}
	var wd welcomeData
	if len(f.Data) > 0 {
		_ = json.Unmarshal(f.Data, &wd)
	}

	return &Client{conn: conn, url: url, senderID: wd.SenderID}, nil
}

// SenderID returns the server-assigned sender id for this connection.
func (c *Client) SenderID() string { return c.senderID }

// Close gracefully closes the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// Emit sends an event with a JSON payload.
func (c *Client) Emit(ctx context.Context, event string, payload any) error {
	f := frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event, err)
		}
		f.Data = data
	}
	raw, _ := json.Marshal(f)
	if err := c.conn.Write(ctx, websocket.MessageText, raw); err != nil {
		return &TransportError{Op: "emit " + event, Err: err}
	}
	return nil
}

// Listen starts the read loop and returns a channel of events.
// Pings are handled silently. The channel closes when the connection
// drops or ctx is cancelled.
//
// A rolling ping timeout detects half-dead connections: if no frame
// (including server pings) arrives within DefaultPingTimeout, the
// connection is treated as dead and an ErrPingTimeout is emitted.
func (c *Client) Listen(ctx context.Context) <-chan Event {
	return c.ListenWithTimeout(ctx, DefaultPingTimeout)
}

// ListenWithTimeout is like Listen but with a configurable ping timeout.
// Use 0 to disable the timeout (not recommended in production).
func (c *Client) ListenWithTimeout(ctx context.Context, pingTimeout time.Duration) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		for {
			// Per-read deadline so that half-dead connections (no
			// FIN/RST, just silence) get detected.
			readCtx := ctx
			var readCancel context.CancelFunc
			if pingTimeout > 0 {
				readCtx, readCancel = context.WithTimeout(ctx, pingTimeout)
			}

			_, data, err := c.conn.Read(readCtx)

			if readCancel != nil {
				readCancel()
			}

			if err != nil {
				// Distinguish ping timeout from parent context cancellation.
				if pingTimeout > 0 && ctx.Err() == nil && readCtx.Err() != nil {
					err = ErrPingTimeout
				}
				select {
				case ch <- Event{Err: &TransportError{Op: "read", Err: err}}:
				case <-ctx.Done():
				}
				return
			}

			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				continue // skip malformed frames
			}

			switch f.Event {
			case eventPing, eventWelcome:
				continue
			case eventGoodbye:
				select {
				case ch <- Event{Err: &TransportError{Op: "goodbye", Err: fmt.Errorf("server closed channel (reason=%s)", f.Reason)}}:
				case <-ctx.Done():
				}
				return
			case "":
				continue
			default:
				select {
				case ch <- Event{Name: f.Event, Data: f.Data}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}
