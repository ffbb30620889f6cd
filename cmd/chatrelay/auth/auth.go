// Package authcmder provides the login and logout commands that manage the
// bearer token the CLI presents to a relay.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/chatrelay/pkg/config"
)

// resolveRelayTarget returns the relay URL from --relay-target, the
// environment or config.toml.
func resolveRelayTarget(cmd *cobra.Command) (string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagRelayTarget})

	target := strings.TrimSpace(v.GetString(config.Flags[config.FlagRelayTarget].ViperKey))
	if target == "" {
		return "", errors.New("relay target is required")
	}
	return target, nil
}

// credentialReader reads a username and password either interactively or,
// when stdin is not a terminal, one per line.
type credentialReader struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

func newCredentialReader(in io.Reader, out io.Writer) *credentialReader {
	return &credentialReader{in: in, out: out, scanner: bufio.NewScanner(in)}
}

func (r *credentialReader) terminalFd() (int, bool) {
	f, ok := r.in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

func (r *credentialReader) readLine(prompt string) (string, error) {
	if _, interactive := r.terminalFd(); interactive {
		fmt.Fprint(r.out, prompt)
	}

	if r.scanner.Scan() {
		return strings.TrimSpace(r.scanner.Text()), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}

func (r *credentialReader) readPassword(prompt string) (string, error) {
	fd, interactive := r.terminalFd()
	if !interactive {
		return r.readLine(prompt)
	}

	fmt.Fprint(r.out, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(r.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}
