package repl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nxshell/nxshell/internal/executor"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/cli/builtin"
	"github.com/nxshell/nxshell/pkg/cli/interactive"
	"github.com/nxshell/nxshell/pkg/state"
	"github.com/nxshell/nxshell/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	env  *cli.Env
	out  *bytes.Buffer
	loop *Loop
}

// newFixture runs a loop reading input, with echo, exit and whatever
// commands register adds.
func newFixture(t *testing.T, input string, register func(*fixture)) *fixture {
	t.Helper()
	env, out := helpers.NewEnv(t)
	console := NewConsole(strings.NewReader(input), out)
	f := &fixture{env: env, out: out}

	env.Registry.Register(&cli.Descriptor{
		Name: "echo",
		Handler: func(_ context.Context, env *cli.Env, args *cli.ParsedArgs) error {
			env.Printer.Println(strings.Join(args.Positional, " "))
			return nil
		},
	})
	env.Registry.Register(&cli.Descriptor{
		Name:    "exit",
		Handler: func(context.Context, *cli.Env, *cli.ParsedArgs) error { return cli.ErrExit },
	})
	if register != nil {
		register(f)
	}
	f.loop = New(&Config{Env: env, Executor: executor.New(env), Console: console})
	env.Prompter = interactive.NewPrompter(&interactive.PrompterConfig{Reader: console, Output: out})
	return f
}

func TestLoopRunsLinesUntilExit(t *testing.T) {
	f := newFixture(t, "echo one\n\n   \necho two\nexit\necho three\n", nil)

	require.NoError(t, f.loop.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "one\n")
	assert.Contains(t, out, "two\n")
	assert.NotContains(t, out, "three")
	assert.Equal(t, 5, strings.Count(out, DefaultPrompt))
	assert.Equal(t, []string{"echo one", "echo two", "exit"}, f.env.History.Entries())
	assertIdle(t, f.loop.gate)
}

func TestLoopKeepsSecretsOutOfHistory(t *testing.T) {
	var got []string
	f := newFixture(t, "login -p secret bob\nlogin bob\n", func(f *fixture) {
		f.env.Registry.Register(&cli.Descriptor{
			Name:    "login",
			Options: []cli.OptionSpec{{Short: "p", Long: "password", Secret: true}},
			Handler: func(_ context.Context, _ *cli.Env, args *cli.ParsedArgs) error {
				got = append(got, args.StringOr("password", ""))
				return nil
			},
		})
	})

	require.NoError(t, f.loop.Run(context.Background()))

	assert.Equal(t, []string{"secret", ""}, got)
	assert.Equal(t, []string{"login bob -p", "login bob"}, f.env.History.Entries())
}

func TestLoopStopsAtEndOfInput(t *testing.T) {
	f := newFixture(t, "echo last", nil)
	file := filepath.Join(t.TempDir(), "history")
	f.env.History = state.NewHistory(file, 10)
	f.loop = New(&Config{Env: f.env, Executor: executor.New(f.env), Console: f.loop.console})

	require.NoError(t, f.loop.Run(context.Background()))
	assert.Contains(t, f.out.String(), "last\n")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "echo last\n", string(data))
}

func TestLoopKeepsRunningAfterFailures(t *testing.T) {
	f := newFixture(t, "boom\nnope\nfail\necho alive\n", func(f *fixture) {
		f.env.Registry.Register(&cli.Descriptor{
			Name:    "boom",
			Handler: func(context.Context, *cli.Env, *cli.ParsedArgs) error { panic("kaboom") },
		})
		f.env.Registry.Register(&cli.Descriptor{
			Name:    "fail",
			Handler: func(context.Context, *cli.Env, *cli.ParsedArgs) error { return errors.New("it failed") },
		})
	})

	require.NoError(t, f.loop.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "kaboom")
	assert.Contains(t, out, "command not found: nope")
	assert.Contains(t, out, "it failed")
	assert.Contains(t, out, "alive\n")
	assertIdle(t, f.loop.gate)
}

func TestNestedPrompt(t *testing.T) {
	var (
		answer string
		busy   error
	)
	f := newFixture(t, "ask\nyes please\necho after\n", nil)
	f.env.Registry.Register(&cli.Descriptor{
		Name: "ask",
		Handler: func(ctx context.Context, env *cli.Env, _ *cli.ParsedArgs) error {
			busy = f.loop.RunLine(ctx, "echo nested")
			var err error
			answer, err = env.Prompter.ReadLine("answer? ")
			return err
		},
	})

	require.NoError(t, f.loop.Run(context.Background()))

	assert.ErrorIs(t, busy, ErrBusy)
	assert.Equal(t, "yes please", answer)
	assert.Contains(t, f.out.String(), "answer? ")
	assert.Contains(t, f.out.String(), "after\n")
	assert.NotContains(t, f.out.String(), "nested")
	assert.Equal(t, []string{"ask", "echo after"}, f.env.History.Entries())
}

func TestPrompt(t *testing.T) {
	repo := helpers.NewRepository()
	t.Cleanup(repo.Close)
	repo.AddDocument("/ws", "Workspace", true)

	f := newFixture(t, "", nil)
	assert.Equal(t, "> ", f.loop.Prompt())

	helpers.Connect(t, f.env, repo)
	assert.Equal(t, "/ > ", f.loop.Prompt())

	builtin.Register(f.env.Registry, nil)
	require.NoError(t, f.loop.RunLine(context.Background(), "cd ws"))
	assert.Equal(t, "/ws > ", f.loop.Prompt())
}

func TestComplete(t *testing.T) {
	f := newFixture(t, "", func(f *fixture) {
		for _, name := range []string{"ls", "ll", "ln"} {
			f.env.Registry.Register(&cli.Descriptor{Name: name})
		}
		f.env.Registry.Register(&cli.Descriptor{
			Name: "connect",
			Options: []cli.OptionSpec{
				{Short: "u", Long: "username", Description: "user name"},
				{Short: "p", Long: "password", Description: "password"},
			},
		})
		f.env.Registry.Register(&cli.Descriptor{
			Name:    "cd",
			Options: []cli.OptionSpec{{Short: "i", Long: "id", Description: "document uid"}},
		})
	})

	tests := []struct {
		name    string
		line    string
		pos     int
		want    string
		wantPos int
		ok      bool
		listed  string
	}{
		{name: "single command", line: "con", pos: 3, want: "connect ", wantPos: 8, ok: true},
		{name: "common prefix", line: "e", pos: 1, want: "e", ok: false, listed: "echo  exit\n"},
		{name: "ambiguous", line: "l", pos: 1, ok: false, listed: "ls  ll  ln\n"},
		{name: "keeps tail", line: "ech foo", pos: 3, want: "echo  foo", wantPos: 5, ok: true},
		{name: "long option", line: "connect --user", pos: 14, want: "connect --username ", wantPos: 19, ok: true},
		{name: "single option", line: "cd -", pos: 4, want: "cd --id ", wantPos: 8, ok: true},
		{
			name:   "option listing",
			line:   "connect -",
			pos:    9,
			ok:     false,
			listed: "\n-u, --username: user name\n-p, --password: password\n",
		},
		{name: "no completer", line: "ls x", pos: 4, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.out.Reset()
			got, pos, ok := f.loop.Complete(tt.line, tt.pos)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.wantPos, pos)
			}
			assert.Equal(t, tt.listed, f.out.String())
		})
	}
}

func TestCompletePaths(t *testing.T) {
	repo := helpers.NewRepository()
	t.Cleanup(repo.Close)
	repo.AddDocument("/ws/a", "File", false)
	repo.AddDocument("/dép/été", "Folder", true)
	repo.AddDocument("/dép/étage", "Folder", true)

	f := newFixture(t, "", nil)
	builtin.Register(f.env.Registry, nil)
	helpers.Connect(t, f.env, repo)

	got, pos, ok := f.loop.Complete("cd w", 4)
	require.True(t, ok)
	assert.Equal(t, "cd ws/", got)
	assert.Equal(t, 6, pos)

	got, _, ok = f.loop.Complete("cat ws/", 7)
	require.True(t, ok)
	assert.Equal(t, "cat ws/a", got)

	got, pos, ok = f.loop.Complete("cd dép/", len("cd dép/"))
	require.True(t, ok)
	assert.Equal(t, "cd dép/ét", got)
	assert.Equal(t, len("cd dép/ét"), pos)
	assert.True(t, utf8.ValidString(got))
}
