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

func TestListAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/agents", r.URL.Path)
		_, _ = w.Write([]byte(`{"agents":[
			{"agentId":"a1","agentName":"Amina","status":"online"},
			{"agentId":"a2","agentName":"Brian","status":"offline"}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "tok")
	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "Amina", agents[0].Name)
	assert.Equal(t, StatusOnline, agents[0].Status)
}

func TestUpdateStatus(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/agents/me/status", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "tok")
	require.NoError(t, c.UpdateStatus(context.Background(), StatusBusy))
	assert.Equal(t, "busy", got["status"])
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	c := newTestClient("http://unused.invalid", "tok")
	err := c.UpdateStatus(context.Background(), "napping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid status "napping"`)
	var serr *StructuredError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, []string{StatusOnline, StatusBusy, StatusOffline}, serr.AllowedValues)
}
