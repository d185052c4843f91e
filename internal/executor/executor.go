// Package executor dispatches shell command lines to their handlers.
//
// # Execution Flow
//
//  1. Tokenize the line; empty lines do nothing
//  2. Look the command up in the registry
//  3. Parse the remaining tokens against the command's options
//  4. Refuse commands needing a connection while disconnected
//  5. Run the handler, recovering from panics
//  6. Render any error on the shell output
//
// The executor is the single place where handler errors are printed. The
// package also holds the interactive pieces handlers share: confirmation of
// destructive commands and the edit state machine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/nxshell/nxshell/pkg/state"
	"github.com/pterm/pterm"
)

// ErrCommandNotFound is returned for a line naming no registered command.
var ErrCommandNotFound = errors.New("command not found")

// Executor runs command lines against an environment.
type Executor struct {
	env *cli.Env
}

// New creates an executor. env.Registry and env.Session must be set.
func New(env *cli.Env) *Executor {
	return &Executor{env: env}
}

// Execute runs one command line.
//
// Errors are rendered before being returned, except cli.ErrExit which is
// returned untouched so the caller can stop.
func (e *Executor) Execute(ctx context.Context, line string) error {
	tokens := cli.Tokenize(line)
	if len(tokens) == 0 {
		return nil
	}

	name := tokens[0]
	desc, ok := e.env.Registry.Lookup(name)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrCommandNotFound, name)
		e.render(name, nil, err)
		return err
	}

	args := cli.Parse(tokens[1:], desc.Options)

	if desc.NeedsConnection && (e.env.Session == nil || !e.env.Session.Connected()) {
		e.render(name, desc, cli.ErrNotConnected)
		return cli.ErrNotConnected
	}

	start := time.Now()
	err := e.run(ctx, desc, args)
	e.debug("command finished",
		"command", desc.Name,
		"origin", desc.Origin.String(),
		"duration", time.Since(start).String(),
		"error", err != nil)

	if err == nil || errors.Is(err, cli.ErrExit) {
		return err
	}
	e.render(name, desc, err)
	return err
}

// run calls the handler and turns a panic into an error.
func (e *Executor) run(ctx context.Context, desc *cli.Descriptor, args *cli.ParsedArgs) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	if desc.Handler == nil {
		return fmt.Errorf("no handler")
	}
	return desc.Handler(ctx, e.env, args)
}

func (e *Executor) render(name string, desc *cli.Descriptor, err error) {
	w := e.out()
	errPrinter := pterm.Error.WithWriter(w)

	var (
		usage      *cli.UsageError
		remote     *client.RemoteError
		entityType *state.EntityTypeError
	)
	switch {
	case errors.Is(err, ErrCommandNotFound):
		_, _ = fmt.Fprintf(w, "nxshell: command not found: %s\n", name)
	case errors.Is(err, ErrCanceled):
		pterm.Info.WithWriter(w).Println("Operation canceled")
	case errors.Is(err, cli.ErrNotConnected):
		errPrinter.Printfln("%s: not connected", name)
	case errors.As(err, &usage):
		if usage.Message != "" {
			errPrinter.Printfln("%s: %s", name, usage.Message)
		}
		u := usage.Usage
		if u == "" && desc != nil {
			u = desc.Usage
		}
		if u != "" {
			_, _ = fmt.Fprintf(w, "usage: %s\n", u)
		}
	case errors.As(err, &entityType):
		pterm.Warning.WithWriter(w).Println(entityType.Error())
	case errors.As(err, &remote):
		errPrinter.Printfln("%s: %s", name, err.Error())
		if remote.Message == "" && len(remote.Body) > 0 {
			e.debug("remote error payload", "body", string(remote.Body))
		}
	default:
		errPrinter.Printfln("%s: %s", name, err.Error())
	}
}

func (e *Executor) out() io.Writer {
	if e.env.Out != nil {
		return e.env.Out
	}
	return os.Stdout
}

func (e *Executor) debug(msg string, args ...any) {
	if e.env.Logger == nil {
		return
	}
	e.env.Logger.Debug(msg, e.env.Logger.Args(args...))
}
