// Package completion computes tab completions for a partial command line.
//
// Complete is pure: it returns candidates and the raw text they replace and
// never writes to the terminal. OptionHelp returns the options to list when
// a partial flag cannot be completed inline. The REPL composes the two.
package completion

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/nxshell/nxshell/pkg/cli"
)

// Result is the outcome of a completion request.
type Result struct {
	// Candidates are replacement texts for Prefix, already quoted for the line.
	Candidates []string
	// Prefix is the raw text at the end of the line the candidates replace.
	Prefix string
	// Command is set when completing a command name.
	Command bool
}

// Engine completes command lines against a registry.
type Engine struct {
	env *cli.Env
}

// New creates an engine. env.Registry must be set; the whole env is passed
// to command completers.
func New(env *cli.Env) *Engine {
	return &Engine{env: env}
}

// Complete returns the completions for line, which ends at the cursor.
//
// Without a space the command names and aliases starting with the line are
// returned in registration order. A last token starting with "-" completes
// to the single long option it designates, if any. Otherwise the command's
// completer decides; commands without one have no candidates.
func (e *Engine) Complete(ctx context.Context, line string) Result {
	if !strings.ContainsAny(line, " \t") {
		return Result{Candidates: e.commandNames(line), Prefix: line, Command: true}
	}

	desc, ok := e.command(line)
	if !ok {
		return Result{}
	}

	raw, value := cli.OpenToken(line)
	if strings.HasPrefix(value, "-") && raw == value {
		if long, ok := inlineOption(desc, value); ok {
			return Result{Candidates: []string{long}, Prefix: raw}
		}
		return Result{Prefix: raw}
	}

	if desc.Completer == nil {
		return Result{Prefix: raw}
	}
	candidates, prefix := desc.Completer(ctx, e.env, line)
	return Result{Candidates: candidates, Prefix: prefix}
}

// OptionHelp returns the options to display for a partial flag that
// Complete could not complete inline: the options matching the flag, or all
// options of the command when none match. It returns nil when the line does
// not end with a partial flag or when the flag completes inline.
func (e *Engine) OptionHelp(line string) []cli.OptionSpec {
	if !strings.ContainsAny(line, " \t") {
		return nil
	}
	desc, ok := e.command(line)
	if !ok {
		return nil
	}
	raw, value := cli.OpenToken(line)
	if !strings.HasPrefix(value, "-") || raw != value {
		return nil
	}
	if _, ok := inlineOption(desc, value); ok {
		return nil
	}
	if matches := matchOptions(desc, value); len(matches) > 0 {
		return matches
	}
	return desc.Options
}

func (e *Engine) commandNames(prefix string) []string {
	var out []string
	for _, name := range e.env.Registry.Names() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

func (e *Engine) command(line string) (*cli.Descriptor, bool) {
	tokens := cli.Tokenize(line)
	if len(tokens) == 0 {
		return nil, false
	}
	return e.env.Registry.Lookup(tokens[0])
}

// matchOptions returns the options whose short or long name starts with the
// flag text, dashes stripped.
func matchOptions(desc *cli.Descriptor, flag string) []cli.OptionSpec {
	text := strings.TrimLeft(flag, "-")
	var matches []cli.OptionSpec
	for _, o := range desc.Options {
		if (o.Short != "" && strings.HasPrefix(o.Short, text)) ||
			(o.Long != "" && strings.HasPrefix(o.Long, text)) {
			matches = append(matches, o)
		}
	}
	return matches
}

func inlineOption(desc *cli.Descriptor, flag string) (string, bool) {
	matches := matchOptions(desc, flag)
	if len(matches) != 1 || matches[0].Long == "" {
		return "", false
	}
	long := "--" + matches[0].Long
	if !strings.HasPrefix(long, flag) {
		return "", false
	}
	return long, true
}

// LongestCommonPrefix returns the longest prefix shared by all candidates.
// The prefix never ends inside a multibyte character.
func LongestCommonPrefix(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	prefix := candidates[0]
	for _, c := range candidates[1:] {
		for !strings.HasPrefix(c, prefix) {
			_, size := utf8.DecodeLastRuneInString(prefix)
			prefix = prefix[:len(prefix)-size]
		}
	}
	return prefix
}

// Quote renders value for insertion in place of raw, keeping the quoting
// style the user started with.
func Quote(raw, value string) string {
	if raw != "" && (raw[0] == '"' || raw[0] == '\'') {
		q := string(raw[0])
		return q + strings.NewReplacer(`\`, `\\`, q, `\`+q).Replace(value)
	}
	var b strings.Builder
	for _, r := range value {
		switch r {
		case ' ', '\t', '\\', '"', '\'':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
