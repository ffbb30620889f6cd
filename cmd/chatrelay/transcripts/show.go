package transcriptscmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/storage"
)

const showLongDesc string = `Show one transcript.

Prints the conversation the client sent, the reply forwarded back and how the
exchange ended. Use --json for the stored record as JSON.

Examples:
  chatrelay transcripts show 3f2a9c1e-4b7d-4a61-9d0e-2c8f5b1a7e33
  chatrelay transcripts show 3f2a9c1e-4b7d-4a61-9d0e-2c8f5b1a7e33 --json`

const showShortDesc string = "Show one transcript"

func newShowCmd() *cobra.Command {
	opts := &storeOptions{}
	var (
		asJSON   bool
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			driver, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer driver.Close()

			t, err := driver.Get(ctx, args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no transcript with id %q", args[0])
			}
			if err != nil {
				return fmt.Errorf("reading transcript: %w", err)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(t)
			}

			printTranscript(w, t, markdown)
			return nil
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the transcript as JSON")
	cmd.Flags().BoolVarP(&markdown, "markdown", "m", false, "Render the reply as markdown")

	return cmd
}

func printTranscript(w io.Writer, t *storage.Transcript, markdown bool) {
	field := func(key, value string) {
		fmt.Fprintf(w, "  %-12s %s\n", cliui.KeyStyle.Render(key), value)
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Transcript "+t.ID))
	field("Status:", cliui.StatusStyle(string(t.Status)))
	field("HTTP:", cliui.ValueStyle.Render(fmt.Sprintf("%d", t.HTTPStatus)))
	if t.Error != "" {
		field("Error:", cliui.WarnStyle.Render(t.Error))
	}
	field("Route:", cliui.ValueStyle.Render(t.Route))
	field("Request:", cliui.DimStyle.Render(t.RequestID))
	field("Started:", cliui.ValueStyle.Render(t.StartedAt.Local().Format(timeLayout)))
	field("Duration:", cliui.ValueStyle.Render(cliui.FormatDuration(t.Duration())))
	field("Streaming:", cliui.ValueStyle.Render(fmt.Sprintf("%t", t.Streaming)))
	field("Records:", cliui.ValueStyle.Render(fmt.Sprintf("%d (%d tokens, %d skipped)", t.Records, t.Tokens, t.Skipped)))

	if len(t.Messages) > 0 {
		fmt.Fprintf(w, "\n  %s\n", cliui.HeaderStyle.Render("Messages"))
		for _, m := range t.Messages {
			fmt.Fprintf(w, "  %s %s\n", cliui.NameStyle.Render(m.Role+">"), m.Content)
		}
	}

	reply := t.Reply
	if markdown && reply != "" {
		if rendered, err := cliui.RenderMarkdown(reply); err == nil {
			reply = rendered
		}
	}

	fmt.Fprintf(w, "\n  %s\n", cliui.HeaderStyle.Render("Reply"))
	if strings.TrimSpace(reply) == "" {
		fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("<empty>"))
		return
	}
	fmt.Fprintf(w, "  %s\n\n", reply)
}
