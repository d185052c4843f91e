// Package secrets keeps passwords and tokens typed on command lines out of
// the history file and the logs.
package secrets

import (
	"strings"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/cli/completion"
)

// Replacement stands for a masked value.
const Replacement = "***"

// Mask hides value entirely. An empty value stays empty so that an unset
// secret reads as unset.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	return Replacement
}

// Redact removes the values of the secret options of line, parsed against
// specs. The flags themselves are kept and moved after the other arguments,
// so that running the line again asks for the value instead of taking the
// next argument. Lines without secret values are returned unchanged.
func Redact(line string, specs []cli.OptionSpec) string {
	tokens := cli.Tokenize(line)
	if len(tokens) < 2 {
		return line
	}

	kept := []string{tokens[0]}
	var flags []string
	i := 1
	for ; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "--" {
			break
		}
		flag, attached, ok := secretFlag(tok, specs)
		if !ok {
			kept = append(kept, tok)
			continue
		}
		flags = append(flags, flag)
		if !attached && i+1 < len(tokens) && !cli.IsFlag(tokens[i+1]) {
			i++
		}
	}
	if flags == nil {
		return line
	}

	kept = append(kept, flags...)
	kept = append(kept, tokens[i:]...)
	for j, tok := range kept {
		if tok == "" {
			kept[j] = `""`
			continue
		}
		kept[j] = completion.Quote("", tok)
	}
	return strings.Join(kept, " ")
}

// secretFlag reports whether tok sets a secret option, returning the bare
// flag and whether the value is part of tok itself.
func secretFlag(tok string, specs []cli.OptionSpec) (flag string, attached bool, ok bool) {
	if !cli.IsFlag(tok) {
		return "", false, false
	}
	long := strings.HasPrefix(tok, "--")
	name := strings.TrimLeft(tok, "-")
	if idx := strings.Index(name, "="); idx >= 0 {
		name, attached = name[:idx], true
	}

	if s, found := lookup(specs, name, long); found {
		if !s.Secret || s.Boolean {
			return "", false, false
		}
		dashes := tok[:len(tok)-len(strings.TrimLeft(tok, "-"))]
		return dashes + name, attached, true
	}

	// "-pvalue"
	if !long && !attached && len(name) > 1 {
		for _, s := range specs {
			if s.Short == name[:1] && s.Secret && !s.Boolean {
				return "-" + s.Short, true, true
			}
		}
	}
	return "", false, false
}

// lookup finds an option the way the command line parser does.
func lookup(specs []cli.OptionSpec, name string, long bool) (cli.OptionSpec, bool) {
	for _, s := range specs {
		if long && s.Long == name || !long && s.Short == name {
			return s, true
		}
	}
	if !long && len(name) > 1 {
		for _, s := range specs {
			if s.Long == name {
				return s, true
			}
		}
	}
	return cli.OptionSpec{}, false
}
