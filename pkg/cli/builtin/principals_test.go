package builtin

import (
	"context"
	"testing"

	"github.com/nxshell/nxshell/internal/executor"
	"github.com/nxshell/nxshell/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	s := newShell(t).connect()
	s.repo.AddUser("jdoe", map[string]any{"firstName": "John", "lastName": "Doe"})
	s.repo.AddUser("jsmith", map[string]any{"email": "js@example.com"})
	s.repo.AddUser("alice", nil)

	require.NoError(t, s.run("users"))
	assert.Contains(t, s.output(), "USERNAME")
	assert.Contains(t, s.output(), "John")
	assert.Contains(t, s.output(), "alice")

	require.NoError(t, s.run("usersearch j"))
	assert.Contains(t, s.output(), "jdoe")
	assert.Contains(t, s.output(), "jsmith")
	assert.NotContains(t, s.output(), "alice")

	require.NoError(t, s.run("usershow jdoe"))
	assert.Contains(t, s.output(), "jdoe")
	assert.Contains(t, s.output(), "Doe")

	require.Error(t, s.run("usershow nobody"))
	assert.Contains(t, s.output(), "404")
}

func TestUseraddUsermod(t *testing.T) {
	s := newShell(t).connect()
	s.env.Prompter = helpers.NewScriptedPrompter().WithPasswords("typed")

	require.NoError(t, s.run("useradd --firstname Jane --email jane@example.com -g members,writers jane --password"))
	u, ok := s.repo.User("jane")
	require.True(t, ok)
	assert.Equal(t, "Jane", u.Properties["firstName"])
	assert.Equal(t, "typed", u.Properties["password"])
	assert.Equal(t, []any{"members", "writers"}, u.Properties["groups"])
	assert.Contains(t, s.output(), "Created user jane")

	require.NoError(t, s.run("usermod --lastname Roe jane"))
	u, _ = s.repo.User("jane")
	assert.Equal(t, "Roe", u.Properties["lastName"])
	assert.Equal(t, "Jane", u.Properties["firstName"])

	require.Error(t, s.run("usermod jane"))
	assert.Contains(t, s.output(), "nothing to change")
}

func TestUserdel(t *testing.T) {
	s := newShell(t).connect()
	s.repo.AddUser("jdoe", nil)
	s.env.Prompter = helpers.NewScriptedPrompter(false)

	assert.ErrorIs(t, s.run("userdel jdoe"), executor.ErrCanceled)
	_, ok := s.repo.User("jdoe")
	assert.True(t, ok)

	require.NoError(t, s.run("userdel -f jdoe"))
	_, ok = s.repo.User("jdoe")
	assert.False(t, ok)
}

func TestGroups(t *testing.T) {
	s := newShell(t).connect()
	s.repo.AddGroup("members", "jdoe")

	require.NoError(t, s.run("groupadd -l Writers -u jdoe,alice writers"))
	g, ok := s.repo.Group("writers")
	require.True(t, ok)
	assert.Equal(t, "Writers", g.GroupLabel)
	assert.Equal(t, []string{"jdoe", "alice"}, g.MemberUsers)

	require.NoError(t, s.run("groupmod -a bob,jdoe -r alice writers"))
	g, _ = s.repo.Group("writers")
	assert.Equal(t, []string{"jdoe", "bob"}, g.MemberUsers)

	require.NoError(t, s.run("groups"))
	assert.Contains(t, s.output(), "members")
	assert.Contains(t, s.output(), "Writers")

	require.NoError(t, s.run("groupshow writers"))
	assert.Contains(t, s.output(), "writers (Writers)")
	assert.Contains(t, s.output(), "users: jdoe, bob")

	s.env.Prompter = helpers.NewScriptedPrompter(true)
	require.NoError(t, s.run("groupdel writers"))
	_, ok = s.repo.Group("writers")
	assert.False(t, ok)
}

func TestPrincipalCompletionCache(t *testing.T) {
	s := newShell(t).connect()
	s.repo.AddUser("jdoe", nil)
	s.repo.AddUser("jsmith", nil)

	desc, ok := s.env.Registry.Lookup("userdel")
	require.True(t, ok)

	candidates, replaced := desc.Completer(context.Background(), s.env, "userdel js")
	assert.Equal(t, []string{"jsmith"}, candidates)
	assert.Equal(t, "js", replaced)

	// Deleting a user refreshes the cached names.
	require.NoError(t, s.run("userdel -f jsmith"))
	candidates, _ = desc.Completer(context.Background(), s.env, "userdel js")
	assert.Empty(t, candidates)
}
