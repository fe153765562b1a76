package update

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// setupTestServer creates a test server and overrides GitHubReleasesURL.
// Returns a cleanup function that restores the original URL.
func setupTestServer(handler http.HandlerFunc) (*httptest.Server, func()) {
	server := httptest.NewServer(handler)
	originalURL := GitHubReleasesURL
	GitHubReleasesURL = server.URL
	cleanup := func() {
		server.Close()
		GitHubReleasesURL = originalURL
	}
	return server, cleanup
}

func serveRelease(tag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Release{
			TagName: tag,
			HTMLURL: "https://github.com/godigitalafrica/gdchat/releases/tag/" + tag,
		})
	}
}

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1.0.0", "v1.0.0"},
		{"v1.0.0", "v1.0.0"},
		{"", "v"},
	}
	for _, tt := range tests {
		if got := normalizeVersion(tt.input); got != tt.expected {
			t.Errorf("normalizeVersion(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCheckForUpdate_DevVersionSkipsCheck(t *testing.T) {
	if CheckForUpdate(context.Background(), "dev") != nil {
		t.Error("expected nil for dev version")
	}
	if CheckForUpdate(context.Background(), "") != nil {
		t.Error("expected nil for empty version")
	}
}

func TestCheckForUpdate_UpdateAvailable(t *testing.T) {
	_, cleanup := setupTestServer(serveRelease("v2.0.0"))
	defer cleanup()

	result := CheckForUpdate(context.Background(), "1.0.0")
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if !result.UpdateAvailable {
		t.Error("expected update to be available")
	}
	if result.LatestVersion != "2.0.0" {
		t.Errorf("LatestVersion = %s, want 2.0.0 (v prefix stripped)", result.LatestVersion)
	}
}

func TestCheckForUpdate_NoUpdateNeeded(t *testing.T) {
	_, cleanup := setupTestServer(serveRelease("v1.0.0"))
	defer cleanup()

	result := CheckForUpdate(context.Background(), "1.0.0")
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if result.UpdateAvailable {
		t.Error("expected no update when versions match")
	}
}

func TestCheckForUpdate_CurrentNewer(t *testing.T) {
	_, cleanup := setupTestServer(serveRelease("v1.0.0"))
	defer cleanup()

	result := CheckForUpdate(context.Background(), "2.0.0")
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if result.UpdateAvailable {
		t.Error("expected no update when current is newer")
	}
}

func TestCheckForUpdate_ServerErrorReturnsNil(t *testing.T) {
	_, cleanup := setupTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer cleanup()

	if CheckForUpdate(context.Background(), "1.0.0") != nil {
		t.Error("expected nil on server error")
	}
}

func TestCheckForUpdate_InvalidJSONReturnsNil(t *testing.T) {
	_, cleanup := setupTestServer(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("invalid json"))
	})
	defer cleanup()

	if CheckForUpdate(context.Background(), "1.0.0") != nil {
		t.Error("expected nil on invalid JSON")
	}
}

func TestCheckForUpdate_InvalidSemver(t *testing.T) {
	_, cleanup := setupTestServer(serveRelease("not-a-version"))
	defer cleanup()

	result := CheckForUpdate(context.Background(), "1.0.0")
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if result.UpdateAvailable {
		t.Error("expected UpdateAvailable false for invalid semver")
	}
}

func TestCheckForUpdate_ConnectionErrorReturnsNil(t *testing.T) {
	originalURL := GitHubReleasesURL
	GitHubReleasesURL = "http://localhost:1"
	defer func() { GitHubReleasesURL = originalURL }()

	if CheckForUpdate(context.Background(), "1.0.0") != nil {
		t.Error("expected nil on connection error")
	}
}

func TestCheckForUpdate_ContextCanceled(t *testing.T) {
	_, cleanup := setupTestServer(serveRelease("v2.0.0"))
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if CheckForUpdate(ctx, "1.0.0") != nil {
		t.Error("expected nil on canceled context")
	}
}
