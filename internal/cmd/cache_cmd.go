package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCacheCmd manages the guest conversation cache
func newCacheCmd() *cobra.Command {
	var redisAddr string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the guest conversation cache",
	}
	cmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Redis address of the shared conversation cache (env GDCHAT_REDIS_ADDR)")

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Remove conversations older than the retention window",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			store, err := openConversationStore(redisAddr)
			if err != nil {
				return err
			}
			removed, err := store.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]int{"removed": removed})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired conversation(s)\n", removed)
			return nil
		}),
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached conversations",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			store, err := openConversationStore(redisAddr)
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]string{"status": "ok"})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		}),
	}

	remove := &cobra.Command{
		Use:   "delete <room>",
		Short: "Remove one cached conversation",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			store, err := openConversationStore(redisAddr)
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]string{"status": "ok", "roomId": args[0]})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(sweep, clear, remove)
	return cmd
}
