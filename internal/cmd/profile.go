package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/godigitalafrica/gdchat/internal/config"
)

// newProfileCmd returns the profile command with subcommands
func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage named credential profiles",
	}

	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileUseCmd())
	cmd.AddCommand(newProfileDeleteCmd())

	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored profiles",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			profiles, err := config.ListProfiles()
			if err != nil {
				return err
			}
			current, _ := config.CurrentProfile()

			if isJSON(cmd) {
				type entry struct {
					Name    string `json:"name"`
					Current bool   `json:"current"`
				}
				out := make([]entry, 0, len(profiles))
				for _, p := range profiles {
					out = append(out, entry{Name: p, Current: p == current})
				}
				return printJSON(cmd, map[string]any{"profiles": out})
			}

			if len(profiles) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No profiles stored. Run 'gdchat auth login' first.")
				return nil
			}
			for _, p := range profiles {
				marker := " "
				if p == current {
					marker = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, p)
			}
			return nil
		}),
	}
}

func newProfileUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Switch the active profile",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if _, err := config.LoadProfile(name); err != nil {
				return fmt.Errorf("profile %q: %w", name, err)
			}
			if err := config.SetCurrentProfile(name); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]string{"status": "ok", "profile": name})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile %q\n", name)
			return nil
		}),
	}
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored profile",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := config.DeleteProfile(name); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]string{"status": "ok", "profile": name})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q\n", name)
			return nil
		}),
	}
}
