package gitlib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalCredentials prompts for a username and password on the controlling
// terminal. The password is read without echo when stdin is a terminal.
type TerminalCredentials struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalCredentials returns a prompter bound to stdin/stderr.
func NewTerminalCredentials() *TerminalCredentials {
	return &TerminalCredentials{In: os.Stdin, Out: os.Stderr}
}

// Prompt implements CredentialPrompter.
func (t *TerminalCredentials) Prompt(url string) (string, string, error) {
	fmt.Fprintf(t.Out, "Authentication required for %s\n", url)
	fmt.Fprint(t.Out, "Enter git username: ")

	reader := bufio.NewReader(t.In)

	username, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read username: %w", err)
	}

	username = strings.TrimSpace(username)

	fmt.Fprint(t.Out, "Enter git password: ")

	password, err := t.readPassword(reader)
	if err != nil {
		return "", "", err
	}

	return username, password, nil
}

// readPassword hides input when stdin is a terminal, otherwise falls back to
// a plain line read (tests, pipes).
func (t *TerminalCredentials) readPassword(reader *bufio.Reader) (string, error) {
	file, isFile := t.In.(*os.File)
	if isFile && term.IsTerminal(int(file.Fd())) {
		raw, err := term.ReadPassword(int(file.Fd()))

		fmt.Fprintln(t.Out)

		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}

		return string(raw), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}

	return strings.TrimSpace(line), nil
}
