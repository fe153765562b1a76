package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestAgentsList(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/v1/agents", jsonResponse(200, `{"agents": [
			{"agentId": "a1", "agentName": "Joy", "status": "online"},
			{"agentId": "a2", "agentName": "Kwame", "status": "busy"}
		]}`))
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"agents", "list"}); err != nil {
			t.Errorf("agents list failed: %v", err)
		}
	})

	for _, want := range []string{"Joy", "online", "Kwame", "busy"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestAgentsList_Empty(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/v1/agents", jsonResponse(200, `{"agents": []}`))
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"agents", "list"}); err != nil {
			t.Errorf("agents list failed: %v", err)
		}
	})
	if !strings.Contains(output, "No agents registered") {
		t.Errorf("output = %q, want empty message", output)
	}
}

func TestAgentsList_JSON(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/v1/agents", jsonResponse(200, `{"agents": [
			{"agentId": "a1", "agentName": "Joy", "status": "online"}
		]}`))
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"agents", "list", "--json"}); err != nil {
			t.Errorf("agents list --json failed: %v", err)
		}
	})
	if !strings.Contains(output, `"agents"`) || !strings.Contains(output, `"agentId"`) {
		t.Errorf("JSON output missing fields: %s", output)
	}
}

func TestAgentsStatus(t *testing.T) {
	var received map[string]string
	handler := newRouteHandler().
		On("PATCH", "/api/v1/agents/me/status", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&received)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
		})
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"agents", "status", "busy"}); err != nil {
			t.Errorf("agents status failed: %v", err)
		}
	})

	if received["status"] != "busy" {
		t.Errorf("request status = %q, want busy", received["status"])
	}
	if !strings.Contains(output, "Availability set to busy") {
		t.Errorf("output = %q, want confirmation", output)
	}
}

func TestAgentsStatus_InvalidValue(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	captureStderr(t, func() {
		if err := Execute(context.Background(), []string{"agents", "status", "away"}); err == nil {
			t.Error("expected error for invalid status")
		}
	})
}
