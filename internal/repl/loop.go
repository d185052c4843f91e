// Package repl runs the interactive read-eval-print loop of the shell.
//
// The loop reads one line at a time from a Console, runs the command in its
// own goroutine and waits until the command is over before reading again.
// The Gate enforces that at most one command runs; nested prompts issued by
// the running command read from the same console.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/cli/completion"
	"github.com/nxshell/nxshell/pkg/secrets"
	"github.com/pterm/pterm"
)

// DefaultPrompt is shown while disconnected.
const DefaultPrompt = "> "

// Executor runs one command line.
type Executor interface {
	Execute(ctx context.Context, line string) error
}

// Config configures a Loop.
type Config struct {
	Env      *cli.Env
	Executor Executor
	Console  *Console
	Logger   *pterm.Logger
}

// Loop is the read-eval-print loop.
type Loop struct {
	env     *cli.Env
	exec    Executor
	console *Console
	logger  *pterm.Logger
	gate    *Gate
	engine  *completion.Engine
}

// New creates a loop and hooks completion and history into its console.
func New(cfg *Config) *Loop {
	l := &Loop{
		env:     cfg.Env,
		exec:    cfg.Executor,
		console: cfg.Console,
		logger:  cfg.Logger,
		gate:    &Gate{},
		engine:  completion.New(cfg.Env),
	}
	if l.console != nil {
		l.console.SetHistory(cfg.Env.History)
		l.console.SetCompleter(l.Complete)
	}
	return l
}

// Prompt returns the prompt of the next command line.
func (l *Loop) Prompt() string {
	if l.env.Session != nil && l.env.Session.Connected() {
		return l.env.Session.CurrentPath() + " > "
	}
	return DefaultPrompt
}

// Run reads and runs command lines until exit or end of input, then saves
// the history.
func (l *Loop) Run(ctx context.Context) error {
	defer l.saveHistory()

	for {
		line, err := l.console.Prompt(l.Prompt())
		if err != nil {
			if errors.Is(err, io.EOF) {
				_, _ = io.WriteString(l.console, "\n")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		l.env.History.Add(l.historyLine(line))

		if err := l.RunLine(ctx, line); errors.Is(err, cli.ErrExit) {
			return nil
		}
	}
}

// historyLine is line as recorded in the history, without secret values.
func (l *Loop) historyLine(line string) string {
	tokens := cli.Tokenize(line)
	if len(tokens) == 0 {
		return line
	}
	desc, ok := l.env.Registry.Lookup(tokens[0])
	if !ok {
		return line
	}
	return secrets.Redact(line, desc.Options)
}

// RunLine runs one command line through the gate and waits for it. It
// returns the error of the command, which the executor already rendered.
func (l *Loop) RunLine(ctx context.Context, line string) error {
	turn, err := l.gate.Pause()
	if err != nil {
		return err
	}

	result := make(chan error, 1)
	go func() {
		defer turn.Resume()
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("internal error: %v", r)
			}
		}()
		result <- l.exec.Execute(ctx, line)
	}()

	<-turn.Done()
	return <-result
}

// Complete is the tab completion of the console. A single candidate replaces
// the text it completes, followed by a space for a command or an option.
// Several candidates extend the text to their longest common prefix, or are
// listed when that makes no progress. A partial flag that cannot be
// completed lists the matching options. The line is unchanged when nothing
// completes.
func (l *Loop) Complete(line string, pos int) (string, int, bool) {
	head, tail := line[:pos], line[pos:]

	res := l.engine.Complete(context.Background(), head)
	base := head[:len(head)-len(res.Prefix)]

	switch len(res.Candidates) {
	case 0:
		if opts := l.engine.OptionHelp(head); len(opts) > 0 {
			l.listOptions(opts)
		}
		return "", 0, false
	case 1:
		cand := res.Candidates[0]
		if res.Command || strings.HasPrefix(cand, "-") {
			cand += " "
		}
		newHead := base + cand
		return newHead + tail, len(newHead), true
	}

	if lcp := completion.LongestCommonPrefix(res.Candidates); len(lcp) > len(res.Prefix) {
		newHead := base + lcp
		return newHead + tail, len(newHead), true
	}
	l.listCandidates(res.Candidates)
	return "", 0, false
}

func (l *Loop) listCandidates(candidates []string) {
	_, _ = fmt.Fprintln(l.console, strings.Join(candidates, "  "))
}

func (l *Loop) listOptions(opts []cli.OptionSpec) {
	var b strings.Builder
	b.WriteString("\n")
	for _, o := range opts {
		fmt.Fprintf(&b, "%s: %s\n", o.Flags(), o.Description)
	}
	_, _ = io.WriteString(l.console, b.String())
}

func (l *Loop) saveHistory() {
	if err := l.env.History.Save(); err != nil && l.logger != nil {
		l.logger.Warn("failed to save history", l.logger.Args("file", l.env.History.Path(), "error", err.Error()))
	}
}
