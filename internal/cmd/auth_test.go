package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/godigitalafrica/gdchat/internal/config"
)

const profileBody = `{"agentId": "a1", "agentName": "Joy", "email": "joy@example.com", "status": "online"}`

func TestAuthLogin_WithToken(t *testing.T) {
	withCommandKeyring(t, nil)

	var gotAuth string
	handler := newRouteHandler().
		On("GET", "/api/v1/auth/profile", func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			jsonResponse(200, profileBody)(w, r)
		})
	server := setupTestEnvWithHandler(t, handler)
	t.Setenv("GDCHAT_ALLOW_PRIVATE", "1")

	output := captureStdout(t, func() {
		err := Execute(context.Background(), []string{
			"auth", "login",
			"--api-url", server.URL,
			"--relay-url", "ws://127.0.0.1:1/relay",
			"--token", "tok-1",
		})
		if err != nil {
			t.Errorf("auth login failed: %v", err)
		}
	})

	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", gotAuth)
	}
	if !strings.Contains(output, "Signed in as Joy") {
		t.Errorf("output = %q, want sign-in confirmation", output)
	}

	account, err := config.LoadProfile("")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if account.Token != "tok-1" || account.AgentID != "a1" || account.AgentName != "Joy" {
		t.Errorf("stored account = %+v", account)
	}
}

func TestAuthLogin_WithEmail(t *testing.T) {
	withCommandKeyring(t, nil)

	var received map[string]string
	handler := newRouteHandler().
		On("POST", "/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&received)
			jsonResponse(200, `{"token": "tok-2", "agentId": "a2", "agentName": "Kwame"}`)(w, r)
		})
	server := setupTestEnvWithHandler(t, handler)
	t.Setenv("GDCHAT_ALLOW_PRIVATE", "1")

	output := captureStdout(t, func() {
		err := Execute(context.Background(), []string{
			"auth", "login",
			"--api-url", server.URL,
			"--relay-url", "ws://127.0.0.1:1/relay",
			"--email", "kwame@example.com",
			"--password", "secret",
		})
		if err != nil {
			t.Errorf("auth login failed: %v", err)
		}
	})

	if received["email"] != "kwame@example.com" || received["password"] != "secret" {
		t.Errorf("login request = %v", received)
	}
	if !strings.Contains(output, "Signed in as Kwame") {
		t.Errorf("output = %q, want sign-in confirmation", output)
	}

	account, err := config.LoadProfile("")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if account.Token != "tok-2" {
		t.Errorf("stored token = %q, want tok-2", account.Token)
	}
}

func TestAuthLogin_NamedProfile(t *testing.T) {
	withCommandKeyring(t, nil)

	handler := newRouteHandler().
		On("GET", "/api/v1/auth/profile", jsonResponse(200, profileBody))
	server := setupTestEnvWithHandler(t, handler)
	t.Setenv("GDCHAT_ALLOW_PRIVATE", "1")

	err := Execute(context.Background(), []string{
		"auth", "login",
		"--api-url", server.URL,
		"--relay-url", "ws://127.0.0.1:1/relay",
		"--token", "tok-1",
		"--profile", "staging",
	})
	if err != nil {
		t.Fatalf("auth login failed: %v", err)
	}

	if _, err := config.LoadProfile("staging"); err != nil {
		t.Errorf("staging profile not stored: %v", err)
	}
	current, err := config.CurrentProfile()
	if err != nil {
		t.Fatalf("current profile: %v", err)
	}
	if current != "staging" {
		t.Errorf("current profile = %q, want staging", current)
	}
}

func TestAuthLogin_TokenConflictsWithEmail(t *testing.T) {
	withCommandKeyring(t, nil)
	server := setupTestEnvWithHandler(t, newRouteHandler())
	t.Setenv("GDCHAT_ALLOW_PRIVATE", "1")

	errOut := captureStderr(t, func() {
		err := Execute(context.Background(), []string{
			"auth", "login",
			"--api-url", server.URL,
			"--relay-url", "ws://127.0.0.1:1/relay",
			"--token", "tok-1",
			"--email", "joy@example.com",
		})
		if err == nil {
			t.Error("expected conflict error")
		}
	})
	if !strings.Contains(errOut, "--token conflicts") {
		t.Errorf("stderr = %q, want conflict message", errOut)
	}
}

func TestAuthLogin_MissingAPIURL(t *testing.T) {
	withCommandKeyring(t, nil)
	setupTestEnvWithHandler(t, newRouteHandler())

	captureStderr(t, func() {
		err := Execute(context.Background(), []string{"auth", "login", "--token", "tok-1"})
		if err == nil {
			t.Error("expected error for missing --api-url")
		} else if !strings.Contains(err.Error(), "--api-url is required") {
			t.Errorf("error = %v, want missing --api-url", err)
		}
	})
}

func TestAuthLogin_EnvFile(t *testing.T) {
	withCommandKeyring(t, nil)

	handler := newRouteHandler().
		On("GET", "/api/v1/auth/profile", jsonResponse(200, profileBody))
	server := setupTestEnvWithHandler(t, handler)
	t.Setenv("GDCHAT_ALLOW_PRIVATE", "1")

	envFile := filepath.Join(t.TempDir(), ".env")
	contents := "GDCHAT_API_URL=" + server.URL + "\n" +
		"GDCHAT_RELAY_URL=ws://127.0.0.1:1/relay\n" +
		"GDCHAT_TOKEN=tok-env\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	err := Execute(context.Background(), []string{"auth", "login", "--env-file", envFile})
	if err != nil {
		t.Fatalf("auth login --env-file failed: %v", err)
	}

	account, err := config.LoadProfile("")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if account.Token != "tok-env" {
		t.Errorf("stored token = %q, want tok-env", account.Token)
	}
}

func TestAuthStatus(t *testing.T) {
	withCommandKeyring(t, nil)

	handler := newRouteHandler().
		On("GET", "/health", jsonResponse(200, `{"status": "ok"}`))
	server := setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"auth", "status"}); err != nil {
			t.Errorf("auth status failed: %v", err)
		}
	})

	if !strings.Contains(output, server.URL) {
		t.Errorf("output missing API URL: %s", output)
	}
	if !strings.Contains(output, "healthy") {
		t.Errorf("output missing backend health: %s", output)
	}
}

func TestAuthStatus_NoHealthCheck(t *testing.T) {
	withCommandKeyring(t, nil)
	setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"auth", "status", "--no-health-check"}); err != nil {
			t.Errorf("auth status failed: %v", err)
		}
	})
	if strings.Contains(output, "Backend:") {
		t.Errorf("output should skip the health probe: %s", output)
	}
}

func TestAuthStatus_JSON(t *testing.T) {
	withCommandKeyring(t, nil)

	handler := newRouteHandler().
		On("GET", "/health", jsonResponse(200, `{"status": "ok"}`))
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"auth", "status", "--json"}); err != nil {
			t.Errorf("auth status --json failed: %v", err)
		}
	})
	if !strings.Contains(output, `"healthy"`) || !strings.Contains(output, `"apiUrl"`) {
		t.Errorf("JSON output missing fields: %s", output)
	}
}

func TestAuthLogout(t *testing.T) {
	withCommandKeyring(t, nil)

	serverLogout := false
	handler := newRouteHandler().
		On("POST", "/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			serverLogout = true
			jsonResponse(200, `{}`)(w, r)
		})
	server := setupTestEnvWithHandler(t, handler)

	err := config.SaveProfile("", config.Account{
		APIBaseURL: server.URL,
		RelayURL:   "ws://127.0.0.1:1/relay",
		Token:      "tok-1",
		AgentID:    "a1",
		AgentName:  "Joy",
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"auth", "logout"}); err != nil {
			t.Errorf("auth logout failed: %v", err)
		}
	})

	if !serverLogout {
		t.Error("server-side logout was not called")
	}
	if !strings.Contains(output, `Signed out of profile "default"`) {
		t.Errorf("output = %q, want sign-out confirmation", output)
	}
	if _, err := config.LoadProfile(""); !errors.Is(err, config.ErrNotConfigured) {
		t.Errorf("profile should be gone after logout, got err = %v", err)
	}
}

func TestAuthLogout_ServerFailureStillRemovesCredentials(t *testing.T) {
	withCommandKeyring(t, nil)

	handler := newRouteHandler().
		On("POST", "/api/v1/auth/logout", jsonResponse(500, `{"error": "boom"}`))
	server := setupTestEnvWithHandler(t, handler)
	t.Setenv("GDCHAT_MAX_5XX_RETRIES", "0")

	if err := config.SaveProfile("", config.Account{
		APIBaseURL: server.URL,
		RelayURL:   "ws://127.0.0.1:1/relay",
		Token:      "tok-1",
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	errOut := captureStderr(t, func() {
		output := captureStdout(t, func() {
			if err := Execute(context.Background(), []string{"auth", "logout"}); err != nil {
				t.Errorf("auth logout failed: %v", err)
			}
		})
		if !strings.Contains(output, "Signed out") {
			t.Errorf("output = %q, want sign-out confirmation", output)
		}
	})

	if !strings.Contains(errOut, "server logout failed") {
		t.Errorf("stderr = %q, want logout warning", errOut)
	}
	if _, err := config.LoadProfile(""); !errors.Is(err, config.ErrNotConfigured) {
		t.Errorf("profile should be gone despite server failure, got err = %v", err)
	}
}
