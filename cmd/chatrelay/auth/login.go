package authcmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/credentials"
	"github.com/papercomputeco/chatrelay/pkg/relayclient"
)

const loginLongDesc string = `Log in to a relay.

Exchanges a username and password for a bearer token through the relay's
login route and stores the token in credentials.toml in the .chatrelay/
directory. "chatrelay chat" presents the stored token. The CHATRELAY_TOKEN
environment variable overrides any stored token.

When stdin is not a terminal the username (unless --username is given) and
the password are read one per line.

Examples:
  chatrelay login --username ada
  chatrelay login --relay-target http://relay:3000
  printf 'ada\nhunter2\n' | chatrelay login
  chatrelay login --list`

const loginShortDesc string = "Log in to a relay and store the token"

type loginCommander struct {
	relayTarget string
	username    string
	list        bool
	configDir   string

	in  io.Reader
	out io.Writer
}

func NewLoginCmd() *cobra.Command {
	cmder := &loginCommander{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: loginShortDesc,
		Long:  loginLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			target, err := resolveRelayTarget(cmd)
			if err != nil {
				return err
			}
			cmder.relayTarget = target
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			if cmder.list {
				return cmder.runList()
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagRelayTarget, &cmder.relayTarget)
	cmd.Flags().StringVarP(&cmder.username, "username", "u", "", "Username to log in as")
	cmd.Flags().BoolVar(&cmder.list, "list", false, "List relays with a stored token")

	return cmd
}

func (c *loginCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reader := newCredentialReader(c.in, c.out)

	username := c.username
	if username == "" {
		var err error
		username, err = reader.readLine("Username: ")
		if err != nil {
			return err
		}
	}

	password, err := reader.readPassword("Password: ")
	if err != nil {
		return err
	}

	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	login, err := relayclient.New(c.relayTarget, 0).Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("logging in to %s: %w", c.relayTarget, err)
	}

	err = mgr.SetToken(c.relayTarget, credentials.RelayCredential{
		Token:     login.AccessToken,
		TokenType: login.TokenType,
		Username:  username,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Logged in to %s as %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(c.relayTarget),
		cliui.ValueStyle.Render(username),
	)
	return nil
}

func (c *loginCommander) runList() error {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	relays, err := mgr.ListRelays()
	if err != nil {
		return err
	}

	if len(relays) == 0 {
		fmt.Fprintf(c.out, "\n  %s No stored tokens.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.out, "  Use 'chatrelay login' to log in to a relay.\n\n")
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored tokens"))
	for _, r := range relays {
		fmt.Fprintf(c.out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(r))
	}
	fmt.Fprintln(c.out)

	return nil
}
