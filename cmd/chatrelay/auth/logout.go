package authcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/credentials"
)

const logoutLongDesc string = `Log out of a relay.

Removes the token stored for the relay from credentials.toml.

Examples:
  chatrelay logout
  chatrelay logout --relay-target http://relay:3000`

const logoutShortDesc string = "Remove the stored token for a relay"

func NewLogoutCmd() *cobra.Command {
	var relayTarget string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: logoutShortDesc,
		Long:  logoutLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := resolveRelayTarget(cmd)
			if err != nil {
				return err
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			mgr, err := credentials.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}

			removed, err := mgr.RemoveToken(target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !removed {
				fmt.Fprintf(out, "\n  %s No token stored for %s\n\n",
					cliui.DimStyle.Render("●"), cliui.NameStyle.Render(target))
				return nil
			}

			fmt.Fprintf(out, "\n  %s Logged out of %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(target))
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagRelayTarget, &relayTarget)

	return cmd
}
