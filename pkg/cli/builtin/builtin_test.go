package builtin

import (
	"bytes"
	"context"
	"testing"

	"github.com/nxshell/nxshell/internal/executor"
	"github.com/nxshell/nxshell/pkg/auth"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/tests/helpers"
	"github.com/stretchr/testify/require"
)

// shell runs command lines against a fake repository.
type shell struct {
	t       *testing.T
	env     *cli.Env
	out     *bytes.Buffer
	repo    *helpers.Repository
	exec    *executor.Executor
	browser *auth.MockBrowserOpener
}

func newShell(t *testing.T) *shell {
	t.Helper()
	return newShellWith(t, &Options{})
}

// newShellWith registers the builtins with opts. The browser is always
// replaced by a mock.
func newShellWith(t *testing.T, opts *Options) *shell {
	t.Helper()
	repo := helpers.NewRepository()
	t.Cleanup(repo.Close)

	env, out := helpers.NewEnv(t)
	browser := &auth.MockBrowserOpener{}
	opts.Browser = browser
	Register(env.Registry, opts)

	return &shell{
		t:       t,
		env:     env,
		out:     out,
		repo:    repo,
		exec:    executor.New(env),
		browser: browser,
	}
}

// run executes line on a fresh output buffer.
func (s *shell) run(line string) error {
	s.out.Reset()
	return s.exec.Execute(context.Background(), line)
}

// connect logs in with the connect command.
func (s *shell) connect() *shell {
	s.t.Helper()
	err := s.run("connect -u " + helpers.DefaultUsername + " -p " + helpers.DefaultPassword + " " + s.repo.URL())
	require.NoError(s.t, err, s.out.String())
	return s
}

func (s *shell) output() string {
	return s.out.String()
}

func TestDescriptors(t *testing.T) {
	descs := Descriptors(nil)
	seen := map[string]bool{}
	for _, d := range descs {
		if seen[d.Name] {
			t.Errorf("duplicate command %q", d.Name)
		}
		seen[d.Name] = true
		if d.Handler == nil {
			t.Errorf("%s: no handler", d.Name)
		}
		if d.Usage == "" || d.Help == "" {
			t.Errorf("%s: missing usage or help", d.Name)
		}
		if d.Origin != cli.OriginStatic {
			t.Errorf("%s: origin = %v, want static", d.Name, d.Origin)
		}
	}

	for _, name := range []string{
		"connect", "whoami", "cd", "pwd", "ls", "cat", "mkdir", "rm", "cp", "mv",
		"audit", "get", "put", "import", "browse", "select", "find", "edit",
		"users", "usersearch", "usershow", "useradd", "usermod", "userdel",
		"groups", "groupsearch", "groupshow", "groupadd", "groupmod", "groupdel",
		"help", "history", "ops", "config", "version", "exit",
	} {
		if !seen[name] {
			t.Errorf("missing command %q", name)
		}
	}

	for _, d := range descs {
		switch d.Name {
		case "rm", "userdel", "groupdel":
			if _, ok := d.Option("force"); !ok {
				t.Errorf("%s: deletes without --force", d.Name)
			}
		}
	}
}

func TestExitAliases(t *testing.T) {
	s := newShell(t)
	for _, line := range []string{"exit", "q", ":q"} {
		if err := s.run(line); err != cli.ErrExit {
			t.Errorf("%s: err = %v, want ErrExit", line, err)
		}
	}
}
