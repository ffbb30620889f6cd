package transcriptscmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/storage"
	"github.com/papercomputeco/chatrelay/pkg/utils"
)

const listLongDesc string = `List recorded transcripts, most recent first.

Examples:
  chatrelay transcripts list
  chatrelay transcripts list --limit 5 --sqlite chatrelay.db`

const listShortDesc string = "List recorded transcripts"

const timeLayout = "2006-01-02 15:04:05"

func newListCmd() *cobra.Command {
	opts := &storeOptions{}
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			driver, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer driver.Close()

			transcripts, err := driver.List(ctx, limit)
			if err != nil {
				return fmt.Errorf("listing transcripts: %w", err)
			}

			printList(cmd.OutOrStdout(), transcripts)
			return nil
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultListLimit, "Maximum number of transcripts to list")

	return cmd
}

func printList(w io.Writer, transcripts []*storage.Transcript) {
	if len(transcripts) == 0 {
		fmt.Fprintf(w, "\n  %s No transcripts recorded.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("Transcripts (%d)", len(transcripts))))
	for _, t := range transcripts {
		fmt.Fprintf(w, "  %s  %s  %-13s  %s  %s  %s\n",
			cliui.NameStyle.Render(utils.Truncate(t.ID, 8)),
			cliui.DimStyle.Render(t.StartedAt.Local().Format(timeLayout)),
			cliui.StatusStyle(string(t.Status)),
			cliui.ValueStyle.Render(fmt.Sprintf("%4d tokens", t.Tokens)),
			cliui.StepStyle.Render(cliui.FormatDuration(t.Duration())),
			utils.Truncate(lastUserMessage(t), 48),
		)
	}
	fmt.Fprintln(w)
}

func lastUserMessage(t *storage.Transcript) string {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == "user" {
			return t.Messages[i].Content
		}
	}
	return ""
}
