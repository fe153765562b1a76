package api

import (
	"context"
)

// Agent statuses accepted by the backend.
const (
	StatusOnline  = "online"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

// Agent describes a support agent and their presence.
type Agent struct {
	ID     string `json:"agentId"`
	Name   string `json:"agentName"`
	Status string `json:"status"`
}

// ListAgents returns all agents and their current presence.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var resp struct {
		Agents []Agent `json:"agents"`
	}
	if err := c.Get(ctx, "/agents", &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// UpdateStatus sets the authenticated agent's presence.
func (c *Client) UpdateStatus(ctx context.Context, status string) error {
	switch status {
	case StatusOnline, StatusBusy, StatusOffline:
	default:
		return NewValidationError("status", status, []string{StatusOnline, StatusBusy, StatusOffline})
	}
	return c.Patch(ctx, "/agents/me/status", map[string]string{"status": status}, nil)
}
