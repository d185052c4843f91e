package builtin

import (
	"strings"
	"testing"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpList(t *testing.T) {
	s := newShell(t)

	require.NoError(t, s.run("help"))
	out := s.output()
	assert.True(t, strings.HasPrefix(out, "usage: help <cmd> [<cmd> ...]\n"))
	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, "connect")
	assert.NotContains(t, out, "Remote operations")

	s.connect()
	require.NoError(t, s.run("help"))
	assert.Contains(t, s.output(), "Remote operations (help <id>):")
}

func TestHelpCommand(t *testing.T) {
	s := newShell(t)

	require.NoError(t, s.run("help rm"))
	out := s.output()
	assert.Contains(t, out, "usage: rm [-f] [-i id] path...")
	assert.Contains(t, out, "Delete documents")
	assert.Contains(t, out, "-f, --force")
	assert.Contains(t, out, "-i, --id <value>")

	require.NoError(t, s.run("help q"))
	assert.Contains(t, s.output(), "aliases: q, :q")
}

func TestHelpUnknownAndMissing(t *testing.T) {
	s := newShell(t)
	s.env.Registry.Register(&cli.Descriptor{Name: "bare"})
	s.env.Registry.Register(&cli.Descriptor{
		Name:    "Doc.Lock",
		Help:    "Lock",
		Options: []cli.OptionSpec{{Long: "recursive", Implied: "true"}},
	})

	require.NoError(t, s.run("help nope bare"))
	assert.Contains(t, s.output(), "help: unknown command nope")
	assert.Contains(t, s.output(), "usage: bare")
	assert.Contains(t, s.output(), "help: missing help message.")

	require.NoError(t, s.run("help Doc.Lock"))
	assert.Contains(t, s.output(), "--recursive [value]")
}

func TestOps(t *testing.T) {
	s := newShell(t).connect()

	require.NoError(t, s.run("ops"))
	assert.Contains(t, s.output(), "Document.Copy")
	assert.Contains(t, s.output(), "FileManager.Import")

	require.NoError(t, s.run("ops blob"))
	assert.Contains(t, s.output(), "Blob.AttachOnDocument")
	assert.NotContains(t, s.output(), "Document.Copy")

	require.NoError(t, s.run("ops nothing-like-this"))
	assert.Equal(t, "No operations.\n", s.output())
}
