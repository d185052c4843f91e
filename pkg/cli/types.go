// Package cli defines the core types of the nxshell command interpreter.
//
// A command is described by a Descriptor: its name and aliases, help text, the
// option schema used to split a tokenized line into ParsedArgs, the Handler that
// runs it and an optional Completer used by the completion engine. Descriptors
// live in a Registry, which holds both the builtins compiled into the shell and
// the remote operations bound after a successful connect.
//
// Handlers receive an *Env carrying the single Session of the shell process,
// the output printer and the interactive prompter, so no command depends on
// package-level state.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nxshell/nxshell/pkg/config"
	"github.com/nxshell/nxshell/pkg/output"
	"github.com/nxshell/nxshell/pkg/state"
	"github.com/pterm/pterm"
)

// ErrNotConnected is returned when a command needing a connection runs while
// the session is disconnected.
var ErrNotConnected = state.ErrNotConnected

// ErrExit is returned by the exit command to stop the REPL.
var ErrExit = errors.New("exit")

// Origin tells where a descriptor comes from.
type Origin int

const (
	// OriginStatic marks builtins compiled into the shell.
	OriginStatic Origin = iota
	// OriginDynamic marks commands synthesized from remote operations.
	OriginDynamic
)

// String returns the origin name.
func (o Origin) String() string {
	switch o {
	case OriginStatic:
		return "static"
	case OriginDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// OptionSpec declares one named option of a command.
type OptionSpec struct {
	// Short is the single-character form, used as -x.
	Short string
	// Long is the long form, used as --name.
	Long        string
	Description string
	Required    bool
	// Boolean options never consume a value.
	Boolean bool
	// Secret values are kept out of the history and the logs.
	Secret bool
	// Default is applied when the option is absent or given without a value.
	// An empty Default means none.
	Default string
	// Implied replaces Default for a valued option given without a value,
	// e.g. "true" for "--recursive" alone. Absent options do not get it.
	Implied string
}

// Key returns the name under which the option value is stored in ParsedArgs.
func (o OptionSpec) Key() string {
	if o.Long != "" {
		return o.Long
	}
	return o.Short
}

// Flags renders the option forms, e.g. "-u, --username".
func (o OptionSpec) Flags() string {
	var parts []string
	if o.Short != "" {
		parts = append(parts, "-"+o.Short)
	}
	if o.Long != "" {
		parts = append(parts, "--"+o.Long)
	}
	return strings.Join(parts, ", ")
}

// ParsedArgs is the result of parsing a token list against an option schema.
type ParsedArgs struct {
	Positional []string
	// Named maps option keys to a string or bool value.
	Named map[string]any
}

// NewParsedArgs returns an empty ParsedArgs.
func NewParsedArgs() *ParsedArgs {
	return &ParsedArgs{
		Positional: []string{},
		Named:      make(map[string]any),
	}
}

// Has reports whether the option was set, explicitly or by default.
func (a *ParsedArgs) Has(name string) bool {
	_, ok := a.Named[name]
	return ok
}

// String returns the string value of an option.
func (a *ParsedArgs) String(name string) (string, bool) {
	v, ok := a.Named[name]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// StringOr returns the string value of an option or fallback when unset or empty.
func (a *ParsedArgs) StringOr(name, fallback string) string {
	if v, ok := a.String(name); ok && v != "" {
		return v
	}
	return fallback
}

// Bool returns true when a boolean option was given.
func (a *ParsedArgs) Bool(name string) bool {
	v, ok := a.Named[name]
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		return err == nil && b
	default:
		return false
	}
}

// Arg returns the i-th positional argument or "".
func (a *ParsedArgs) Arg(i int) string {
	if i < 0 || i >= len(a.Positional) {
		return ""
	}
	return a.Positional[i]
}

// Handler runs a command.
type Handler func(ctx context.Context, env *Env, args *ParsedArgs) error

// Completer returns completion candidates for a partial line, along with the
// prefix of the line the candidates replace.
type Completer func(ctx context.Context, env *Env, line string) ([]string, string)

// Descriptor describes a registered command.
type Descriptor struct {
	Name    string
	Aliases []string
	// Usage is a one-line synopsis, e.g. "cd [-i id] [path]".
	Usage   string
	Help    string
	Options []OptionSpec
	Handler Handler
	// Completer is optional.
	Completer Completer
	Origin    Origin
	// NeedsConnection commands are refused while disconnected.
	NeedsConnection bool
}

// Option looks up an option by short or long name.
func (d *Descriptor) Option(name string) (OptionSpec, bool) {
	for _, o := range d.Options {
		if (o.Short != "" && o.Short == name) || (o.Long != "" && o.Long == name) {
			return o, true
		}
	}
	return OptionSpec{}, false
}

// UsageError reports a command invoked with missing or invalid arguments.
type UsageError struct {
	Usage   string
	Message string
}

func (e *UsageError) Error() string {
	if e.Usage == "" {
		return e.Message
	}
	if e.Message == "" {
		return "usage: " + e.Usage
	}
	return fmt.Sprintf("%s\nusage: %s", e.Message, e.Usage)
}

// Usagef builds a UsageError for the descriptor.
func (d *Descriptor) Usagef(format string, a ...any) error {
	return &UsageError{Usage: d.Usage, Message: fmt.Sprintf(format, a...)}
}

// Prompter reads nested interactive input while a command runs.
type Prompter interface {
	// Confirm asks a yes/no question, defaulting to no.
	Confirm(message string) (bool, error)
	// ReadLine reads one line with the given prompt.
	ReadLine(prompt string) (string, error)
}

// Editor edits text in an external program.
type Editor interface {
	Edit(ctx context.Context, name, content string) (string, error)
}

// Env is the execution environment passed to handlers and completers.
type Env struct {
	Session  *state.Session
	History  *state.History
	Registry *Registry
	Config   *config.Config
	Printer  *output.Printer
	Prompter Prompter
	Editor   Editor
	Logger   *pterm.Logger
	Out      io.Writer
}
