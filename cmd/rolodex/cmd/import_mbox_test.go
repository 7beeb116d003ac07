package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMbox = strings.Join([]string{
	"From alice@example.com Mon Jan  1 00:00:00 2024",
	"From: Alice <alice@example.com>",
	"Subject: my card",
	"Content-Type: text/vcard; charset=utf-8",
	"",
	"BEGIN:VCARD",
	"FN:Alice",
	"EMAIL:alice@example.com",
	"END:VCARD",
	"",
	"From bob@example.com Mon Jan  1 00:00:01 2024",
	"From: Bob <bob@example.com>",
	"Subject: lunch?",
	"Content-Type: text/plain",
	"",
	"no cards here",
	"",
}, "\n")

func TestImportMboxCommand(t *testing.T) {
	env := newTestEnv(t)

	mailDir := filepath.Join(env.dir, "mail")
	require.NoError(t, os.MkdirAll(mailDir, 0750))
	// "Entwürfe" in IMAP modified UTF-7
	require.NoError(t, os.WriteFile(filepath.Join(mailDir, "Entw&APw-rfe"), []byte(testMbox), 0600))

	t.Run("list mailboxes", func(t *testing.T) {
		out, _, err := env.run(t, "", "import-mbox", "--mail-dir", mailDir, "--list")
		require.NoError(t, err)
		assert.Equal(t, "Entwürfe\n", out)
	})

	t.Run("dry run", func(t *testing.T) {
		out, _, err := env.run(t, "", "import-mbox", "--mail-dir", mailDir, "--mailbox", "Entwürfe", "--dry-run")
		require.NoError(t, err)
		assert.Contains(t, out, "message 0\tmy card\tAlice\n")
		assert.Contains(t, out, "Found 1 cards in 2 messages")

		out, _, err = env.run(t, "", "list")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("import", func(t *testing.T) {
		out, _, err := env.run(t, "", "import-mbox", "--path", filepath.Join(mailDir, "Entw&APw-rfe"))
		require.NoError(t, err)
		assert.Contains(t, out, "Imported 1 cards from 2 messages (0 warnings, 1 messages without cards)")

		out, _, err = env.run(t, "", "search", "EMAIL", "alice")
		require.NoError(t, err)
		assert.Contains(t, out, "\tAlice\n")
	})

	t.Run("argument errors", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
		}{
			{"nothing to import", nil},
			{"list without mail dir", []string{"--list"}},
			{"mailbox without mail dir", []string{"--mailbox", "INBOX"}},
			{"path and mailbox", []string{"--path", "x", "--mail-dir", mailDir, "--mailbox", "INBOX"}},
			{"missing file", []string{"--path", filepath.Join(env.dir, "missing")}},
			{"invalid mailbox", []string{"--mail-dir", mailDir, "--mailbox", "../etc"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := env.run(t, "", append([]string{"import-mbox"}, tt.args...)...)
				assert.Error(t, err)
			})
		}
	})
}
