package gitlib

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalCredentialsPrompt(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	prompter := &TerminalCredentials{
		In:  strings.NewReader("alice\nsecret\n"),
		Out: &out,
	}

	username, password, err := prompter.Prompt("https://example.com/repo.git")
	require.NoError(t, err)

	assert.Equal(t, "alice", username)
	assert.Equal(t, "secret", password)
	assert.Contains(t, out.String(), "Authentication required for https://example.com/repo.git")
}

func TestTerminalCredentialsPasswordWithoutTrailingNewline(t *testing.T) {
	t.Parallel()

	prompter := &TerminalCredentials{
		In:  strings.NewReader("bob\nhunter2"),
		Out: &bytes.Buffer{},
	}

	username, password, err := prompter.Prompt("https://example.com/repo.git")
	require.NoError(t, err)

	assert.Equal(t, "bob", username)
	assert.Equal(t, "hunter2", password)
}

func TestTerminalCredentialsEmptyInput(t *testing.T) {
	t.Parallel()

	prompter := &TerminalCredentials{
		In:  strings.NewReader(""),
		Out: &bytes.Buffer{},
	}

	_, _, err := prompter.Prompt("https://example.com/repo.git")
	require.Error(t, err)
}
