package runtime

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/nxshell/nxshell/internal/executor"
	"github.com/nxshell/nxshell/internal/repl"
	"github.com/nxshell/nxshell/pkg/auth/storage"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/cli/builtin"
	"github.com/nxshell/nxshell/pkg/cli/interactive"
	"github.com/nxshell/nxshell/pkg/config"
	"github.com/nxshell/nxshell/pkg/output"
	"github.com/nxshell/nxshell/pkg/progress"
	"github.com/nxshell/nxshell/pkg/state"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// completionCacheTTL bounds how long user and group names are reused for
// completion.
const completionCacheTTL = time.Minute

// shell is the assembled interactive environment.
type shell struct {
	env     *cli.Env
	console *repl.Console
	loop    *repl.Loop
}

// buildShell assembles the environment, the builtin commands and the loop.
func (rt *Runtime) buildShell(cfg *config.Config, logger *pterm.Logger) (*shell, error) {
	console := repl.NewConsole(rt.in, rt.out)

	colors := cfg.Output.Color && isTerminal(rt.out)
	env := &cli.Env{
		Session:  state.NewSession(),
		History:  state.NewHistory(cfg.History.File, cfg.History.Size),
		Registry: cli.NewRegistry(),
		Config:   cfg,
		Printer:  output.NewPrinter(rt.out, cfg.Output.Format, colors),
		Prompter: interactive.NewPrompter(&interactive.PrompterConfig{
			Reader: console,
			Output: rt.out,
		}),
		Logger: logger,
		Out:    rt.out,
	}

	editor := executor.NewExternalEditor(cfg.Editor)
	editor.Stdin, editor.Stdout, editor.Stderr = rt.in, rt.out, rt.errOut
	env.Editor = editor

	credentials, err := rt.credentialStore(cfg)
	if err != nil {
		return nil, err
	}
	builtin.Register(env.Registry, &builtin.Options{
		Credentials: credentials,
		HTTPClient:  httpClient(cfg, rt.errOut),
		Loader:      interactive.NewOptionLoader(completionCacheTTL),
		Version:     rt.version,
		ConfigPath:  rt.loader.ConfigPath(),
	})

	loop := repl.New(&repl.Config{
		Env:      env,
		Executor: executor.New(env),
		Console:  console,
		Logger:   logger,
	})
	return &shell{env: env, console: console, loop: loop}, nil
}

func (rt *Runtime) credentialStore(cfg *config.Config) (storage.CredentialStore, error) {
	if rt.credentials != nil {
		return rt.credentials, nil
	}
	if !cfg.Keyring.Enabled {
		return nil, nil
	}
	return storage.NewKeyringStorage(cfg.Keyring.Service)
}

// httpClient returns the base client of new connections, showing a spinner
// on slow requests.
func httpClient(cfg *config.Config, w io.Writer) func() *http.Client {
	return func() *http.Client {
		pc := progress.DefaultConfig()
		pc.Enabled = cfg.Progress.Enabled && isTerminal(w)
		pc.Writer = w
		return &http.Client{Transport: progress.NewTransport(http.DefaultTransport, pc)}
	}
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
