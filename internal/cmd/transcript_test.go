package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/godigitalafrica/gdchat/internal/session"
)

const transcriptBody = `{
	"roomId": "room-1692273458000",
	"guest": "Amina",
	"messages": [
		{"id": "m1", "roomId": "room-1692273458000", "senderId": "v1", "sender": "Amina", "role": "user", "content": "Hello, I need a quote", "timestamp": "2025-08-17T12:00:00Z"},
		{"id": "m2", "roomId": "room-1692273458000", "senderId": "a1", "sender": "Joy", "role": "agent", "content": "Happy to help!", "timestamp": "2025-08-17T12:00:30Z"}
	]
}`

func TestTranscript_Text(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/v1/rooms/room-1692273458000/transcript", jsonResponse(200, transcriptBody))
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"transcript", "room-1692273458000"}); err != nil {
			t.Errorf("transcript failed: %v", err)
		}
	})

	if !strings.Contains(output, "Conversation with Amina") {
		t.Errorf("output missing header: %s", output)
	}
	if !strings.Contains(output, "Amina: Hello, I need a quote") {
		t.Errorf("output missing guest message: %s", output)
	}
	if !strings.Contains(output, "Joy: Happy to help!") {
		t.Errorf("output missing agent message: %s", output)
	}
}

func TestTranscript_JSON(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/v1/rooms/room-1692273458000/transcript", jsonResponse(200, transcriptBody))
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"transcript", "room-1692273458000", "--json"}); err != nil {
			t.Errorf("transcript --json failed: %v", err)
		}
	})
	if !strings.Contains(output, `"roomId"`) || !strings.Contains(output, `"messages"`) {
		t.Errorf("JSON output missing fields: %s", output)
	}
}

func TestTranscript_JSONL(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/v1/rooms/room-1692273458000/transcript", jsonResponse(200, transcriptBody))
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"transcript", "room-1692273458000", "-o", "jsonl"}); err != nil {
			t.Errorf("transcript -o jsonl failed: %v", err)
		}
	})
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("jsonl lines = %d, want 2:\n%s", len(lines), output)
	}
}

func TestTranscript_JQFilter(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/v1/rooms/room-1692273458000/transcript", jsonResponse(200, transcriptBody))
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"transcript", "room-1692273458000", "--jq", ".guest"}); err != nil {
			t.Errorf("transcript --jq failed: %v", err)
		}
	})
	if !strings.Contains(output, "Amina") {
		t.Errorf("jq output = %q, want guest name", output)
	}
}

func TestTranscript_InvalidRoomID(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	captureStderr(t, func() {
		if err := Execute(context.Background(), []string{"transcript", "   "}); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestTranscript_NotFound(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/v1/rooms/room-404/transcript", jsonResponse(404, `{"error": "room not found"}`))
	setupTestEnvWithHandler(t, handler)

	captureStderr(t, func() {
		if err := Execute(context.Background(), []string{"transcript", "room-404"}); err == nil {
			t.Error("expected error for missing transcript")
		}
	})
}

func TestFormatMessageLine(t *testing.T) {
	at := time.Date(2025, 8, 17, 15, 4, 0, 0, time.UTC)
	tests := []struct {
		name string
		msg  session.Message
		want string
	}{
		{
			name: "named sender",
			msg:  session.Message{Sender: "Joy", Role: session.RoleAgent, Content: "hi", SentAt: at},
			want: "Joy: hi",
		},
		{
			name: "agent fallback",
			msg:  session.Message{Role: session.RoleAgent, Content: "hi", SentAt: at},
			want: "agent: hi",
		},
		{
			name: "assistant fallback",
			msg:  session.Message{Role: session.RoleAssistant, Content: "hi", SentAt: at},
			want: "assistant: hi",
		},
		{
			name: "guest fallback",
			msg:  session.Message{Role: session.RoleUser, Content: "hi", SentAt: at},
			want: "guest: hi",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMessageLine(tt.msg)
			if !strings.Contains(got, tt.want) {
				t.Errorf("formatMessageLine = %q, want contains %q", got, tt.want)
			}
			if !strings.HasPrefix(got, "[") {
				t.Errorf("formatMessageLine = %q, want timestamp prefix", got)
			}
		})
	}
}
