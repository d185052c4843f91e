package builtin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nxshell/nxshell/internal/builder"
	"github.com/nxshell/nxshell/pkg/auth"
	"github.com/nxshell/nxshell/pkg/auth/storage"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/nxshell/nxshell/pkg/config"
	"github.com/nxshell/nxshell/pkg/state"
	"github.com/pterm/pterm"
)

// passwordPrompter is implemented by prompters able to read without echo.
// Password appends the ": " separator to message.
type passwordPrompter interface {
	Password(message string) (string, error)
}

func (c *commands) authCommands() []*cli.Descriptor {
	return []*cli.Descriptor{c.connectCommand(), c.whoamiCommand()}
}

func (c *commands) connectCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "connect",
		Usage: "connect [-u user] [-p [password]] [-d path] [-t token] [-r repository] [-s] [host]",
		Help: `Log in to a Nuxeo server and bind its operations as commands.

Without a host the configured one is used. The password comes from -p, then
from the system keyring, then from the configuration; -p without a value asks
for it. -s saves the password in the keyring once logged in.`,
		Options: []cli.OptionSpec{
			{Short: "u", Long: "username", Description: "user name"},
			{Short: "p", Long: "password", Secret: true, Description: "password, asked for when given without a value"},
			{Short: "d", Long: "default-path", Description: "initial location"},
			{Short: "t", Long: "token", Secret: true, Description: "bearer token to use instead of a password"},
			{Short: "r", Long: "repository", Description: "repository name"},
			{Short: "s", Long: "save", Boolean: true, Description: "save the password in the system keyring"},
		},
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		return c.connect(ctx, desc, env, args)
	}
	return desc
}

func (c *commands) connect(ctx context.Context, desc *cli.Descriptor, env *cli.Env, args *cli.ParsedArgs) error {
	cfg := settings(env)
	host := args.Arg(0)
	if host == "" {
		host = cfg.Connect.Host
	}
	host = hostURL(host)

	var (
		authn    auth.Authenticator
		password string
		err      error
	)
	if token := args.StringOr("token", ""); token != "" {
		authn, err = auth.NewTokenAuth(token)
	} else {
		username := args.StringOr("username", cfg.Connect.Username)
		password, err = c.password(ctx, env, args, username, host)
		if err != nil {
			return err
		}
		authn, err = auth.NewBasicAuth(username, password)
	}
	if err != nil {
		return desc.Usagef("%s", err.Error())
	}

	var base *http.Client
	if c.opts.HTTPClient != nil {
		base = c.opts.HTTPClient()
	}
	conn, err := client.New(client.Options{
		BaseURL:    host,
		Auth:       authn,
		HTTPClient: base,
		Timeout:    cfg.HTTP.Timeout,
		Schemas:    cfg.Output.Schemas,
		Repository: args.StringOr("repository", cfg.Connect.Repository),
		Logger:     env.Logger,
	})
	if err != nil {
		return desc.Usagef("%s", err.Error())
	}

	login, err := conn.Login(ctx)
	if err != nil {
		return fmt.Errorf("login to %s failed: %w", conn.BaseURL(), err)
	}
	ops, err := conn.Operations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list operations: %w", err)
	}
	rootPath := state.ResolvePath("/", args.StringOr("default-path", cfg.Connect.DefaultPath))
	root, err := conn.Document(ctx, client.PathRef(rootPath))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", rootPath, err)
	}
	if err := env.Session.Connect(conn, login.Username, root); err != nil {
		return err
	}

	binder := builder.NewBuilder(&builder.BuilderConfig{
		Completer: PathCompleter(false),
		Logger:    env.Logger,
	})
	binder.Bind(env.Registry, ops)
	c.loader.Invalidate()

	pterm.Success.WithWriter(env.Out).Printfln("Connected to %s as %s", conn.BaseURL(), login.Username)

	if args.Bool("save") && password != "" {
		if err := c.savePassword(ctx, login.Username, conn.BaseURL(), password); err != nil {
			pterm.Warning.WithWriter(env.Out).Printfln("password not saved: %s", err.Error())
		}
	}
	return nil
}

// password resolves the password of username on host.
func (c *commands) password(ctx context.Context, env *cli.Env, args *cli.ParsedArgs, username, host string) (string, error) {
	if args.Has("password") {
		if p, _ := args.String("password"); p != "" {
			return p, nil
		}
		return readPassword(env, "Password for "+username)
	}

	cfg := settings(env)
	if c.opts.Credentials != nil && cfg.Keyring.Enabled {
		p, err := c.opts.Credentials.Load(ctx, storage.Account(username, host))
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, storage.ErrNotFound):
			if env.Logger != nil {
				env.Logger.Debug("keyring lookup failed", env.Logger.Args("error", err.Error()))
			}
		}
	}
	return cfg.Connect.Password, nil
}

func (c *commands) savePassword(ctx context.Context, username, host, password string) error {
	if c.opts.Credentials == nil {
		return fmt.Errorf("no credential store")
	}
	return c.opts.Credentials.Save(ctx, storage.Account(username, host), password)
}

func readPassword(env *cli.Env, message string) (string, error) {
	if env.Prompter == nil {
		return "", fmt.Errorf("cannot ask for a password: %w", auth.ErrMissingCredentials)
	}
	if pp, ok := env.Prompter.(passwordPrompter); ok {
		return pp.Password(message)
	}
	return env.Prompter.ReadLine(message + ": ")
}

func (c *commands) whoamiCommand() *cli.Descriptor {
	return &cli.Descriptor{
		Name:            "whoami",
		Usage:           "whoami",
		Help:            "Print the logged-in user and the server.",
		NeedsConnection: true,
		Handler: func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
			env.Printer.Printf("%s on %s\n", env.Session.Identity(), env.Session.Host())
			return nil
		},
	}
}

// settings returns the shell configuration, or the defaults when unset.
func settings(env *cli.Env) *config.Config {
	if env.Config != nil {
		return env.Config
	}
	return config.Default()
}

// hostURL adds the http scheme to a bare host.
func hostURL(host string) string {
	host = strings.TrimSpace(host)
	if host != "" && !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host
}
