package config

import (
	"fmt"
	"os"
	"strings"
)

// ClientConfig contains resolved connection settings for the REST API
// and the realtime relay.
type ClientConfig struct {
	APIBaseURL string
	RelayURL   string
	Token      string
	AgentID    string
	AgentName  string
}

// ResolveClientConfig resolves connection settings from the stored
// account, environment variables, and flag overrides, in increasing
// order of precedence.
func ResolveClientConfig(apiURLOverride, relayURLOverride, tokenOverride string) (ClientConfig, error) {
	var cfg ClientConfig

	if account, err := LoadAccount(); err == nil {
		cfg.APIBaseURL = account.APIBaseURL
		cfg.RelayURL = account.RelayURL
		cfg.Token = account.Token
		cfg.AgentID = account.AgentID
		cfg.AgentName = account.AgentName
	}

	if envURL := strings.TrimSpace(os.Getenv("GDCHAT_API_URL")); envURL != "" {
		cfg.APIBaseURL = strings.TrimSuffix(envURL, "/")
	}
	if envURL := strings.TrimSpace(os.Getenv("GDCHAT_RELAY_URL")); envURL != "" {
		cfg.RelayURL = strings.TrimSuffix(envURL, "/")
	}
	if envToken := strings.TrimSpace(os.Getenv("GDCHAT_TOKEN")); envToken != "" {
		cfg.Token = envToken
	}

	if apiURLOverride != "" {
		cfg.APIBaseURL = strings.TrimSuffix(apiURLOverride, "/")
	}
	if relayURLOverride != "" {
		cfg.RelayURL = strings.TrimSuffix(relayURLOverride, "/")
	}
	if tokenOverride != "" {
		cfg.Token = tokenOverride
	}

	if cfg.APIBaseURL == "" {
		return ClientConfig{}, fmt.Errorf("API base URL not configured (set GDCHAT_API_URL, run 'gdchat auth login', or pass --api-url)")
	}
	if cfg.Token == "" {
		return ClientConfig{}, fmt.Errorf("token not configured (set GDCHAT_TOKEN, run 'gdchat auth login', or pass --token)")
	}

	return cfg, nil
}

// ResolveRelayConfig resolves settings for commands that only need the
// realtime relay. The token is optional for guest sessions.
func ResolveRelayConfig(relayURLOverride string) (ClientConfig, error) {
	var cfg ClientConfig

	if account, err := LoadAccount(); err == nil {
		cfg.RelayURL = account.RelayURL
		cfg.Token = account.Token
		cfg.AgentID = account.AgentID
		cfg.AgentName = account.AgentName
	}

	if envURL := strings.TrimSpace(os.Getenv("GDCHAT_RELAY_URL")); envURL != "" {
		cfg.RelayURL = strings.TrimSuffix(envURL, "/")
	}
	if relayURLOverride != "" {
		cfg.RelayURL = strings.TrimSuffix(relayURLOverride, "/")
	}

	if cfg.RelayURL == "" {
		return ClientConfig{}, fmt.Errorf("relay URL not configured (set GDCHAT_RELAY_URL, run 'gdchat auth login', or pass --relay-url)")
	}

	return cfg, nil
}
