package cmd

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/godigitalafrica/gdchat/internal/api"
	"github.com/godigitalafrica/gdchat/internal/config"
	"github.com/godigitalafrica/gdchat/internal/validation"
)

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Aliases: []string{"au"},
		Short:   "Manage authentication credentials",
		Long:    "Configure and manage chat backend credentials stored securely in your OS keychain.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

// newAuthLoginCmd creates the auth login command
func newAuthLoginCmd() *cobra.Command {
	var (
		apiURL   string
		relayURL string
		email    string
		password string
		token    string
		profile  string
		envFile  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store credentials",
		Long: strings.TrimSpace(`
Sign in to the chat backend and save the session token to your OS keychain.

You'll need:
- API URL: The chat backend base URL (e.g. https://chat.godigitalafrica.com)
- Relay URL: The realtime relay endpoint (e.g. wss://relay.godigitalafrica.com)
- Either agent email+password, or an existing session token.

Optional:
- Profile: Save multiple accounts and switch between them
`),
		Example: strings.TrimSpace(`
  # Sign in with agent credentials
  gdchat auth login --api-url https://chat.example.com --relay-url wss://relay.example.com --email agent@example.com --password SECRET

  # Store an existing session token under a named profile
  gdchat auth login --api-url https://chat.example.com --relay-url wss://relay.example.com --token SESSION_TOKEN --profile staging

  # Load credentials from a .env file
  gdchat auth login --env-file .env
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				envVars, err := godotenv.Read(envFile)
				if err != nil {
					return fmt.Errorf("failed to read --env-file %q: %w", envFile, err)
				}
				if apiURL == "" {
					apiURL = strings.TrimSpace(envVars["GDCHAT_API_URL"])
				}
				if relayURL == "" {
					relayURL = strings.TrimSpace(envVars["GDCHAT_RELAY_URL"])
				}
				if token == "" {
					token = strings.TrimSpace(envVars["GDCHAT_TOKEN"])
				}
				if !cmd.Flags().Changed("profile") {
					if envProfile := strings.TrimSpace(envVars["GDCHAT_PROFILE"]); envProfile != "" {
						profile = envProfile
					}
				}
			}

			if apiURL == "" {
				return fmt.Errorf("--api-url is required")
			}
			if relayURL == "" {
				return fmt.Errorf("--relay-url is required")
			}
			apiURL = strings.TrimSuffix(apiURL, "/")
			relayURL = strings.TrimSuffix(relayURL, "/")

			if err := validation.ValidateEndpointURL(apiURL); err != nil {
				return fmt.Errorf("invalid --api-url: %w", err)
			}
			if err := validation.ValidateRelayURL(relayURL); err != nil {
				return fmt.Errorf("invalid --relay-url: %w", err)
			}

			account := config.Account{
				APIBaseURL: apiURL,
				RelayURL:   relayURL,
			}

			if token != "" {
				if email != "" || password != "" {
					return fmt.Errorf("--token conflicts with --email/--password; pass only one")
				}
				client := api.New(apiURL, token)
				client.HTTP.Timeout = flags.Timeout
				me, err := client.Profile(cmd.Context())
				if err != nil {
					return fmt.Errorf("token verification failed: %w", err)
				}
				account.Token = token
				account.AgentID = me.AgentID
				account.AgentName = me.AgentName
			} else {
				if err := validation.ValidateEmailFormat(email); err != nil {
					return fmt.Errorf("invalid --email: %w", err)
				}
				if password == "" {
					return fmt.Errorf("--password is required when logging in with --email")
				}
				creds, err := api.Login(cmd.Context(), apiURL, email, password)
				if err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				account.Token = creds.Token
				account.AgentID = creds.AgentID
				account.AgentName = creds.AgentName
			}

			if err := config.SaveProfile(profile, account); err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"status":    "ok",
					"profile":   profileOrDefault(profile),
					"agentId":   account.AgentID,
					"agentName": account.AgentName,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (profile %q)\n", displayName(account), profileOrDefault(profile))
			return nil
		}),
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "Chat backend base URL")
	cmd.Flags().StringVar(&relayURL, "relay-url", "", "Realtime relay URL")
	cmd.Flags().StringVar(&email, "email", "", "Agent email")
	cmd.Flags().StringVar(&password, "password", "", "Agent password")
	cmd.Flags().StringVar(&token, "token", "", "Existing session token (skips email/password login)")
	cmd.Flags().StringVar(&profile, "profile", "", "Profile name to store credentials under")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load credentials from a .env file")

	return cmd
}

func profileOrDefault(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

func displayName(account config.Account) string {
	if account.AgentName != "" {
		return account.AgentName
	}
	if account.AgentID != "" {
		return account.AgentID
	}
	return "agent"
}

// newAuthStatusCmd creates the auth status command
func newAuthStatusCmd() *cobra.Command {
	var skipHealth bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active profile and backend health",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			account, err := config.LoadAccount()
			if err != nil {
				return err
			}
			current, _ := config.CurrentProfile()

			healthy := false
			var healthErr error
			if !skipHealth {
				client := api.New(account.APIBaseURL, account.Token)
				client.HTTP.Timeout = flags.Timeout
				healthy, healthErr = client.HealthCheck(cmd.Context())
			}

			if isJSON(cmd) {
				out := map[string]any{
					"profile":   current,
					"apiUrl":    account.APIBaseURL,
					"relayUrl":  account.RelayURL,
					"agentId":   account.AgentID,
					"agentName": account.AgentName,
				}
				if !skipHealth {
					out["healthy"] = healthy
					if healthErr != nil {
						out["healthError"] = healthErr.Error()
					}
				}
				return printJSON(cmd, out)
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "Profile:\t%s\n", current)
			_, _ = fmt.Fprintf(w, "API URL:\t%s\n", account.APIBaseURL)
			_, _ = fmt.Fprintf(w, "Relay URL:\t%s\n", account.RelayURL)
			if account.AgentName != "" {
				_, _ = fmt.Fprintf(w, "Agent:\t%s (%s)\n", account.AgentName, account.AgentID)
			}
			if !skipHealth {
				if healthy {
					_, _ = fmt.Fprintf(w, "Backend:\thealthy\n")
				} else if healthErr != nil {
					_, _ = fmt.Fprintf(w, "Backend:\tunreachable (%v)\n", healthErr)
				} else {
					_, _ = fmt.Fprintf(w, "Backend:\tunhealthy\n")
				}
			}
			return w.Flush()
		}),
	}

	cmd.Flags().BoolVar(&skipHealth, "no-health-check", false, "Skip the backend health probe")
	return cmd
}

// newAuthLogoutCmd creates the auth logout command
func newAuthLogoutCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored credentials",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			name := profile
			if name == "" {
				name, _ = config.CurrentProfile()
			}
			account, err := config.LoadProfile(name)
			if err == nil && account.Token != "" {
				// Invalidate the server-side session; failure is not fatal
				// since the local credentials are removed either way.
				client := api.New(account.APIBaseURL, account.Token)
				client.HTTP.Timeout = flags.Timeout
				if logoutErr := client.Logout(cmd.Context()); logoutErr != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: server logout failed: %v\n", logoutErr)
				}
			}

			if err := config.DeleteProfile(name); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]string{"status": "ok", "profile": profileOrDefault(name)})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signed out of profile %q\n", profileOrDefault(name))
			return nil
		}),
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Profile to sign out of (default: current)")
	return cmd
}
