package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	t.Setenv("GDCHAT_TESTING", "1")

	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"token":"tok-9","agentId":"a1","agentName":"Amina"}`))
	}))
	defer srv.Close()

	creds, err := Login(context.Background(), srv.URL, " amina@godigitalafrica.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tok-9", creds.Token)
	assert.Equal(t, "a1", creds.AgentID)
	assert.Equal(t, "Amina", creds.AgentName)
	assert.Equal(t, "amina@godigitalafrica.com", got["email"], "email is trimmed")
	assert.Equal(t, "s3cret", got["password"])
}

func TestLoginBadCredentials(t *testing.T) {
	t.Setenv("GDCHAT_TESTING", "1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer srv.Close()

	_, err := Login(context.Background(), srv.URL, "x@y.com", "wrong")
	assert.True(t, IsAuthError(err))
}

func TestLogoutAndProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/logout":
			assert.Equal(t, http.MethodPost, r.Method)
			w.WriteHeader(http.StatusOK)
		case "/api/v1/auth/profile":
			_, _ = w.Write([]byte(`{"agentId":"a1","agentName":"Amina","email":"amina@godigitalafrica.com","status":"online"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "tok")

	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Amina", p.AgentName)
	assert.Equal(t, "online", p.Status)

	require.NoError(t, c.Logout(context.Background()))
}
