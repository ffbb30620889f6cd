// Package chatrelaycmder
package chatrelaycmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/auth"
	chatcmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/chat"
	configcmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/config"
	initcmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/init"
	servecmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/serve"
	transcriptscmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/transcripts"
	versioncmder "github.com/papercomputeco/chatrelay/cmd/version"
	"github.com/papercomputeco/chatrelay/pkg/cliui"
)

const chatrelayLongDesc string = `chatrelay streams chat backend replies to clients as tokens.

The relay forwards a conversation to the chat backend, reassembles the
backend's newline-delimited JSON stream, and re-encodes every delta as a
0:"..." token line. Every exchange is recorded as a transcript.

Run the relay:
  chatrelay serve

Talk to a running relay:
  chatrelay login      Exchange credentials for a bearer token
  chatrelay chat       Interactive chat through the relay
  chatrelay logout     Forget the stored token

Inspect recorded exchanges:
  chatrelay transcripts list
  chatrelay transcripts show <id>`

const chatrelayShortDesc string = "chatrelay - streaming chat relay"

func NewChatrelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatrelay",
		Short:         chatrelayShortDesc,
		Long:          chatrelayLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cliui.ApplyColorProfile(cmd.OutOrStdout())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .chatrelay/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewLoginCmd())
	cmd.AddCommand(authcmder.NewLogoutCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(transcriptscmder.NewTranscriptsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
