package api

import (
	"context"
	"strings"
)

// Credentials is returned by a successful login.
type Credentials struct {
	Token     string `json:"token"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
}

// Profile describes the authenticated agent.
type Profile struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Email     string `json:"email"`
	Status    string `json:"status"`
}

// Login exchanges agent credentials for a session token.
func Login(ctx context.Context, baseURL, email, password string) (Credentials, error) {
	c := New(baseURL, "")
	var creds Credentials
	err := c.Post(ctx, "/auth/login", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}, &creds)
	return creds, err
}

// Logout invalidates the client's session token.
func (c *Client) Logout(ctx context.Context) error {
	return c.Post(ctx, "/auth/logout", nil, nil)
}

// Profile fetches the authenticated agent's profile.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.Get(ctx, "/auth/profile", &p)
	return p, err
}
