package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/godigitalafrica/gdchat/internal/prefs"
)

// Preference keys accepted by `prefs get` and `prefs set`.
const (
	prefKeyEnabled = "notifications.enabled"
	prefKeySound   = "notifications.sound"
	prefKeyVolume  = "notifications.volume"
)

// newPrefsCmd returns the prefs command with subcommands
func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Manage notification preferences",
	}

	cmd.AddCommand(newPrefsListCmd())
	cmd.AddCommand(newPrefsGetCmd())
	cmd.AddCommand(newPrefsSetCmd())

	return cmd
}

func prefsStore() (*prefs.Store, error) {
	return prefs.DefaultStore()
}

func newPrefsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show all preferences",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			store, err := prefsStore()
			if err != nil {
				return err
			}
			p, err := store.Load()
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v (showing defaults)\n", err)
			}

			if isJSON(cmd) {
				return printJSON(cmd, p)
			}
			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "%s\t%t\n", prefKeyEnabled, p.Notifications.Enabled)
			_, _ = fmt.Fprintf(w, "%s\t%s\n", prefKeySound, p.Notifications.Sound)
			_, _ = fmt.Fprintf(w, "%s\t%g\n", prefKeyVolume, p.Notifications.Volume)
			return w.Flush()
		}),
	}
}

func newPrefsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one preference value",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			store, err := prefsStore()
			if err != nil {
				return err
			}
			p, _ := store.Load()

			var value any
			switch args[0] {
			case prefKeyEnabled:
				value = p.Notifications.Enabled
			case prefKeySound:
				value = p.Notifications.Sound
			case prefKeyVolume:
				value = p.Notifications.Volume
			default:
				return fmt.Errorf("unknown preference key %q (valid: %s, %s, %s)", args[0], prefKeyEnabled, prefKeySound, prefKeyVolume)
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"key": args[0], "value": value})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%v\n", value)
			return nil
		}),
	}
}

func newPrefsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update one preference value",
		Example: strings.TrimSpace(`
  gdchat prefs set notifications.enabled false
  gdchat prefs set notifications.sound chime
  gdchat prefs set notifications.volume 0.5
`),
		Args: cobra.ExactArgs(2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			store, err := prefsStore()
			if err != nil {
				return err
			}

			key, raw := args[0], args[1]

			// Validate before touching the store so a bad value never persists.
			var apply func(*prefs.Preferences)
			switch key {
			case prefKeyEnabled:
				v, parseErr := strconv.ParseBool(raw)
				if parseErr != nil {
					return fmt.Errorf("invalid boolean %q for %s", raw, key)
				}
				apply = func(p *prefs.Preferences) { p.Notifications.Enabled = v }
			case prefKeySound:
				apply = func(p *prefs.Preferences) { p.Notifications.Sound = raw }
			case prefKeyVolume:
				v, parseErr := strconv.ParseFloat(raw, 64)
				if parseErr != nil || v < 0 || v > 1 {
					return fmt.Errorf("invalid volume %q for %s (must be 0..1)", raw, key)
				}
				apply = func(p *prefs.Preferences) { p.Notifications.Volume = v }
			default:
				return fmt.Errorf("unknown preference key %q (valid: %s, %s, %s)", key, prefKeyEnabled, prefKeySound, prefKeyVolume)
			}

			updated, err := store.Update(apply)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, updated)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", key)
			return nil
		}),
	}
}
