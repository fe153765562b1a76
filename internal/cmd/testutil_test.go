// Package cmd test utilities.
//
// Commands are tested against mock HTTP servers:
//
//   - routeHandler: chainable handler for routing requests to mock responses
//   - setupTestEnvWithHandler: environment setup with automatic cleanup
//   - captureStdout / captureStderr: output capture
//   - jsonResponse: helper for JSON response handlers
//
// A minimal example:
//
//	func TestMyCommand(t *testing.T) {
//	    handler := newRouteHandler().
//	        On("GET", "/api/v1/agents", jsonResponse(200, `{"agents": []}`))
//
//	    setupTestEnvWithHandler(t, handler)
//
//	    output := captureStdout(t, func() {
//	        if err := Execute(context.Background(), []string{"agents", "list"}); err != nil {
//	            t.Fatalf("command failed: %v", err)
//	        }
//	    })
//	    // Assert on output...
//	}
package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/99designs/keyring"

	"github.com/godigitalafrica/gdchat/internal/config"
)

// captureStdout executes a function and captures its stdout output.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// captureStderr executes a function and captures its stderr output.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	_ = w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// setupTestEnvWithHandler creates a mock backend and points the CLI at
// it through the environment:
//
//   - GDCHAT_API_URL / GDCHAT_RELAY_URL / GDCHAT_TOKEN select the mock
//   - GDCHAT_TESTING=1 skips URL validation for the localhost server
//   - HOME is isolated so a real ~/.gdchat/.env cannot leak in
func setupTestEnvWithHandler(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("GDCHAT_API_URL", server.URL)
	t.Setenv("GDCHAT_RELAY_URL", "ws://127.0.0.1:1/relay")
	t.Setenv("GDCHAT_TOKEN", "test-token")
	t.Setenv("GDCHAT_PROFILE", "")
	t.Setenv("GDCHAT_TESTING", "1")
	t.Setenv("GDCHAT_OUTPUT", "text")

	return server
}

// withCommandKeyring routes config keyring access to an in-memory
// keyring for the duration of the test.
func withCommandKeyring(t *testing.T, items []keyring.Item) keyring.Keyring {
	t.Helper()
	ring := keyring.NewArrayKeyring(items)
	restore := config.SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	})
	t.Cleanup(restore)
	return ring
}

// jsonResponse returns a handler that writes a fixed JSON response.
func jsonResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(body))
	}
}

// routeHandler routes requests by exact "METHOD PATH". Unmatched
// requests get a 404.
type routeHandler struct {
	routes map[string]http.HandlerFunc
}

func newRouteHandler() *routeHandler {
	return &routeHandler{routes: make(map[string]http.HandlerFunc)}
}

// On registers a handler for the given HTTP method and path and
// returns the routeHandler for chaining.
func (h *routeHandler) On(method, path string, handler http.HandlerFunc) *routeHandler {
	h.routes[method+" "+path] = handler
	return h
}

func (h *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler, ok := h.routes[r.Method+" "+r.URL.Path]; ok {
		handler(w, r)
		return
	}
	http.NotFound(w, r)
}
