// Package runtime wires the nxshell process together.
//
// # Initialization Flow
//
//  1. Parse the process flags (cobra)
//  2. Load the configuration (defaults, config file, NXSHELL_* variables,
//     flags)
//  3. Create the logger, the console, the printer and the session
//  4. Register the builtin commands
//  5. Load the line history
//  6. Connect when a host was given on the command line
//  7. Run the REPL until exit or end of input
//
// Only failures before the first prompt make the process fail. A failed
// startup connect is reported and leaves the shell disconnected.
package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nxshell/nxshell/pkg/auth/storage"
	"github.com/nxshell/nxshell/pkg/cli/completion"
	"github.com/nxshell/nxshell/pkg/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// AppName names the configuration directory, the env prefix and the keyring
// service.
const AppName = "nxshell"

// Runtime is the nxshell process.
type Runtime struct {
	version string
	rootCmd *cobra.Command
	loader  *config.Loader
	flags   globalFlags

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// credentials overrides the keyring store.
	credentials storage.CredentialStore
}

type globalFlags struct {
	configFile  string
	debug       bool
	noColor     bool
	username    string
	password    string
	defaultPath string
}

// NewRuntime creates the process with its command line.
func NewRuntime(version string) *Runtime {
	rt := &Runtime{
		version: version,
		loader:  config.NewLoader(AppName),
		in:      os.Stdin,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
	rt.buildRootCommand()
	return rt
}

// SetIO replaces the standard streams.
func (rt *Runtime) SetIO(in io.Reader, out, errOut io.Writer) {
	rt.in, rt.out, rt.errOut = in, out, errOut
	rt.rootCmd.SetIn(in)
	rt.rootCmd.SetOut(out)
	rt.rootCmd.SetErr(errOut)
}

// SetCredentials replaces the keyring as password store.
func (rt *Runtime) SetCredentials(store storage.CredentialStore) {
	rt.credentials = store
}

// SetArgs sets the process arguments, os.Args[1:] by default.
func (rt *Runtime) SetArgs(args []string) {
	rt.rootCmd.SetArgs(args)
}

// Execute runs the process.
func (rt *Runtime) Execute() error {
	return rt.rootCmd.Execute()
}

func (rt *Runtime) buildRootCommand() {
	rt.rootCmd = &cobra.Command{
		Use:   AppName + " [host]",
		Short: "Interactive shell for Nuxeo repositories",
		Long: `nxshell browses, queries and changes the documents of a Nuxeo server from
an interactive shell. Type help at the prompt for the list of commands.`,
		Version:       rt.version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, args)
		},
	}
	rt.addGlobalFlags()
}

func (rt *Runtime) addGlobalFlags() {
	flags := rt.rootCmd.Flags()
	flags.StringVar(&rt.flags.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/nxshell/config.yaml)")
	flags.BoolVar(&rt.flags.debug, "debug", false, "log debug messages")
	flags.BoolVar(&rt.flags.noColor, "no-color", false, "disable colored output")
	flags.StringVarP(&rt.flags.username, "username", "u", "", "user name of the startup connection")
	flags.StringVarP(&rt.flags.password, "password", "p", "", "password of the startup connection")
	flags.StringVarP(&rt.flags.defaultPath, "default-path", "d", "", "initial location of the startup connection")
}

// loadConfig resolves the configuration, command-line flags last.
func (rt *Runtime) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if rt.flags.configFile != "" {
		rt.loader.SetConfigFile(rt.flags.configFile)
	}
	bindings := map[string]string{
		"connect.username":     "username",
		"connect.password":     "password",
		"connect.default_path": "default-path",
	}
	for key, name := range bindings {
		if err := rt.loader.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, err
		}
	}

	cfg, err := rt.loader.Load()
	if err != nil {
		return nil, err
	}
	if rt.flags.noColor {
		cfg.Output.Color = false
	}
	if rt.flags.debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func (rt *Runtime) run(cmd *cobra.Command, args []string) error {
	cfg, err := rt.loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Output.Color {
		pterm.DisableColor()
	}
	logger := newLogger(cfg.Log.Level, rt.errOut)

	sh, err := rt.buildShell(cfg, logger)
	if err != nil {
		return err
	}
	if err := sh.env.History.Load(); err != nil {
		logger.Warn("failed to load history", logger.Args("file", sh.env.History.Path(), "error", err.Error()))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	_, _ = fmt.Fprintf(sh.console, "%s version: %s\n", AppName, rt.version)
	if len(args) > 0 {
		_ = sh.loop.RunLine(ctx, rt.connectLine(args[0]))
	}
	return sh.loop.Run(ctx)
}

// connectLine is the connect command for the host given on the command line.
func (rt *Runtime) connectLine(host string) string {
	parts := []string{"connect"}
	add := func(flag, value string) {
		if value != "" {
			parts = append(parts, flag, completion.Quote("", value))
		}
	}
	add("-u", rt.flags.username)
	add("-p", rt.flags.password)
	add("-d", rt.flags.defaultPath)
	parts = append(parts, completion.Quote("", host))
	return strings.Join(parts, " ")
}

func newLogger(level string, w io.Writer) *pterm.Logger {
	l := pterm.LogLevelInfo
	switch strings.ToLower(level) {
	case "trace":
		l = pterm.LogLevelTrace
	case "debug":
		l = pterm.LogLevelDebug
	case "warn", "warning":
		l = pterm.LogLevelWarn
	case "error":
		l = pterm.LogLevelError
	case "off", "disabled":
		l = pterm.LogLevelDisabled
	}
	return pterm.DefaultLogger.WithLevel(l).WithWriter(w)
}
