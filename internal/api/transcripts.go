package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/godigitalafrica/gdchat/internal/session"
)

// Transcript is the stored message history for a room.
type Transcript struct {
	RoomID   string            `json:"roomId"`
	Guest    string            `json:"guest,omitempty"`
	Messages []session.Message `json:"messages"`
}

// Transcript fetches the stored history for a room. Histories for
// archived rooms are restored asynchronously: the backend answers 202
// with a Location header to poll until the transcript is ready.
func (c *Client) Transcript(ctx context.Context, roomID string) (Transcript, error) {
	var t Transcript
	path := c.apiPath("/rooms/" + url.PathEscape(roomID) + "/transcript")
	body, header, status, err := c.executeRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return t, err
	}
	if status == http.StatusAccepted {
		location := header.Get("Location")
		body, _, _, err = c.waitForAsync(ctx, location, header)
		if err != nil {
			return t, err
		}
	}
	if err := json.Unmarshal(body, &t); err != nil {
		return t, fmt.Errorf("unexpected API response format (JSON decode failed): %w", err)
	}
	return t, nil
}

// AppendTranscript persists messages to a room's stored history.
// The backend deduplicates by message id, so replaying a batch after a
// reconnect is safe.
func (c *Client) AppendTranscript(ctx context.Context, roomID string, msgs []session.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	body := map[string]any{"messages": msgs}
	if err := c.Post(ctx, "/rooms/"+url.PathEscape(roomID)+"/transcript", body, nil); err != nil {
		return fmt.Errorf("append transcript for room %s: %w", roomID, err)
	}
	return nil
}
