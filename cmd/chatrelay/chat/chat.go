// Package chatcmder provides the chat command for an interactive
// conversation through a running relay.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/credentials"
	"github.com/papercomputeco/chatrelay/pkg/dotdir"
	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/logger"
	"github.com/papercomputeco/chatrelay/pkg/relayclient"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

const (
	exitCommand  = "/exit"
	resetCommand = "/reset"
)

type chatCommander struct {
	relayTarget string
	configDir   string
	markdown    bool
	fresh       bool
	debug       bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	ddm    *dotdir.Manager
	client *relayclient.Client
	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive chat session through a relay.

Every message is sent to the relay together with the conversation so far and
the reply is printed as its tokens arrive. The conversation is saved to
session.json in the .chatrelay/ directory and resumed by the next
"chatrelay chat". Use --new or type /reset to start over.

The token stored by "chatrelay login" is presented to the relay. The
CHATRELAY_TOKEN environment variable overrides it.

Examples:
  chatrelay chat
  chatrelay chat --markdown
  chatrelay chat --new --relay-target http://relay:3000`

const chatShortDesc string = "Interactive chat through a relay"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagRelayTarget})
			cmder.relayTarget = v.GetString(config.Flags[config.FlagRelayTarget].ViperKey)
			if cmder.relayTarget == "" {
				return errors.New("relay target is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagRelayTarget, &cmder.relayTarget)
	cmd.Flags().BoolVarP(&cmder.markdown, "markdown", "m", false, "Render each reply as markdown once it is complete")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Discard the saved conversation and start a new one")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithPrefix("chat"), logger.WithWriter(c.errOut))
	c.ddm = dotdir.NewManager()
	c.client = relayclient.New(c.relayTarget, 0)

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	token, err := mgr.Token(c.relayTarget)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("no token stored for %s: run 'chatrelay login' or set %s", c.relayTarget, credentials.TokenEnvVar)
	}

	if c.fresh {
		if err := c.ddm.ClearSession(c.configDir); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
	}

	messages, err := c.loadMessages()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	if len(messages) > 0 {
		fmt.Fprintf(c.out, "  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(messages))),
		)
	} else {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Relay:"), cliui.NameStyle.Render(c.relayTarget))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /reset to start over, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case exitCommand:
			fmt.Fprintln(c.out)
			return nil
		case resetCommand:
			messages = nil
			if err := c.ddm.ClearSession(c.configDir); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		}

		messages = append(messages, llm.NewTextMessage(llm.RoleUser, input))

		reply, err := c.sendAndStream(ctx, token, messages)
		if err != nil {
			fmt.Fprintf(c.errOut, "  %s %v\n\n", cliui.FailMark, err)
			// Drop the failed turn so it can be retried.
			messages = messages[:len(messages)-1]
			continue
		}

		messages = append(messages, llm.NewTextMessage(llm.RoleAssistant, reply))
		if err := c.saveMessages(messages); err != nil {
			c.logger.Warn("could not save session", "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// sendAndStream sends the conversation to the relay and prints the reply.
// Without --markdown deltas are printed as they arrive.
func (c *chatCommander) sendAndStream(ctx context.Context, token string, messages []llm.Message) (string, error) {
	c.logger.Debug("sending chat request",
		"relay", c.relayTarget,
		"message_count", len(messages),
	)

	if c.markdown {
		var reply string
		err := cliui.Step(c.out, "Waiting for reply", func() error {
			var err error
			reply, err = c.client.Chat(ctx, token, messages, nil)
			return err
		})
		if err != nil {
			return "", err
		}

		rendered, err := cliui.RenderMarkdown(reply)
		if err != nil {
			c.logger.Debug("markdown rendering failed", "error", err)
		}
		fmt.Fprintf(c.out, "%s\n%s\n", assistantPrompt, rendered)
		return reply, nil
	}

	fmt.Fprint(c.out, assistantPrompt)
	reply, err := c.client.Chat(ctx, token, messages, func(delta string) {
		fmt.Fprint(c.out, delta)
	})
	fmt.Fprint(c.out, "\n\n")
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (c *chatCommander) loadMessages() ([]llm.Message, error) {
	state, err := c.ddm.LoadSession(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if state == nil {
		return nil, nil
	}

	messages := make([]llm.Message, 0, len(state.Messages))
	for _, m := range state.Messages {
		messages = append(messages, llm.NewTextMessage(m.Role, m.Content))
	}
	return messages, nil
}

func (c *chatCommander) saveMessages(messages []llm.Message) error {
	state := &dotdir.SessionState{Messages: make([]dotdir.SessionMessage, 0, len(messages))}
	for _, m := range messages {
		state.Messages = append(state.Messages, dotdir.SessionMessage{Role: m.Role, Content: m.Content})
	}
	return c.ddm.SaveSession(state, c.configDir)
}
