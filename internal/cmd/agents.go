package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/godigitalafrica/gdchat/internal/api"
)

// newAgentsCmd lists agents and manages availability
func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents and update availability",
	}

	cmd.AddCommand(newAgentsListCmd())
	cmd.AddCommand(newAgentsStatusCmd())

	return cmd
}

func newAgentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List agents and their availability",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, _, err := getClient()
			if err != nil {
				return err
			}
			agents, err := client.ListAgents(cmd.Context())
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"agents": agents})
			}

			if len(agents) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No agents registered.")
				return nil
			}
			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS")
			for _, a := range agents {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Name, a.Status)
			}
			return w.Flush()
		}),
	}
}

func newAgentsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "status <online|busy|offline>",
		Short:     "Update your availability",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{api.StatusOnline, api.StatusBusy, api.StatusOffline},
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, _, err := getClient()
			if err != nil {
				return err
			}
			if err := client.UpdateStatus(cmd.Context(), args[0]); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]string{"status": args[0]})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Availability set to %s\n", args[0])
			return nil
		}),
	}
}
