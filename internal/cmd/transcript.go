package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/godigitalafrica/gdchat/internal/outfmt"
	"github.com/godigitalafrica/gdchat/internal/session"
	"github.com/godigitalafrica/gdchat/internal/validation"
)

// newTranscriptCmd fetches a room transcript from the backend
func newTranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <room>",
		Short: "Fetch a room transcript",
		Example: `  gdchat transcript room-1692273458000
  gdchat transcript room-1692273458000 --json --jq '.messages[].content'`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			roomID := args[0]
			if err := validation.ValidateRoomID(roomID); err != nil {
				return err
			}

			client, _, err := getClient()
			if err != nil {
				return err
			}
			transcript, err := client.Transcript(cmd.Context(), roomID)
			if err != nil {
				return err
			}

			if outfmt.IsJSONL(cmd.Context()) {
				for _, msg := range transcript.Messages {
					if err := printJSON(cmd, msg); err != nil {
						return err
					}
				}
				return nil
			}
			if isJSON(cmd) {
				return printJSON(cmd, transcript)
			}

			out := cmd.OutOrStdout()
			if transcript.Guest != "" {
				_, _ = fmt.Fprintf(out, "Conversation with %s (%s)\n\n", transcript.Guest, transcript.RoomID)
			}
			for _, msg := range transcript.Messages {
				_, _ = fmt.Fprintln(out, formatMessageLine(msg))
			}
			return nil
		}),
	}

	return cmd
}

// formatMessageLine renders one message for text output.
func formatMessageLine(msg session.Message) string {
	who := msg.Sender
	if who == "" {
		switch msg.Role {
		case session.RoleAgent:
			who = "agent"
		case session.RoleAssistant:
			who = "assistant"
		case session.RoleSystem:
			who = "system"
		default:
			who = "guest"
		}
	}
	stamp := msg.SentAt.Local().Format(time.Kitchen)
	return fmt.Sprintf("[%s] %s: %s", stamp, who, msg.Content)
}
