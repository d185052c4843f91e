package cli

import (
	"strconv"
	"strings"
)

// Parse separates positional arguments from named options according to specs.
//
// Parse never fails: unknown flags are dropped so that commands bound to
// remote operations keep working when the server schema drifts. A valued
// option takes the next token unless that token is missing or is itself a
// flag, in which case the implied value, the declared default or "" is used. Options absent
// from the line but declaring a default get that default. Required options
// are not checked here.
func Parse(tokens []string, specs []OptionSpec) *ParsedArgs {
	args := NewParsedArgs()

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if tok == "--" {
			args.Positional = append(args.Positional, tokens[i+1:]...)
			break
		}
		if !IsFlag(tok) {
			args.Positional = append(args.Positional, tok)
			continue
		}

		long := strings.HasPrefix(tok, "--")
		name := strings.TrimLeft(tok, "-")
		value, hasValue := "", false
		if idx := strings.Index(name, "="); idx >= 0 {
			name, value, hasValue = name[:idx], name[idx+1:], true
		}

		spec, ok := lookupOption(specs, name, long)
		if !ok {
			if !long && !hasValue && len(name) > 1 {
				parseShortCluster(args, specs, name)
			}
			continue
		}

		if spec.Boolean {
			args.Named[spec.Key()] = parseBoolValue(value, hasValue)
			continue
		}

		if !hasValue && i+1 < len(tokens) && !IsFlag(tokens[i+1]) {
			value, hasValue = tokens[i+1], true
			i++
		}
		if !hasValue {
			value = spec.Default
			if spec.Implied != "" {
				value = spec.Implied
			}
		}
		args.Named[spec.Key()] = value
	}

	for _, spec := range specs {
		if spec.Default == "" {
			continue
		}
		if _, ok := args.Named[spec.Key()]; !ok {
			if spec.Boolean {
				args.Named[spec.Key()] = parseBoolValue(spec.Default, true)
			} else {
				args.Named[spec.Key()] = spec.Default
			}
		}
	}

	return args
}

// parseShortCluster handles "-abc" (several boolean short flags) and "-uvalue"
// (a valued short flag with its value attached). Anything else is dropped.
func parseShortCluster(args *ParsedArgs, specs []OptionSpec, cluster string) {
	first, ok := lookupOption(specs, cluster[:1], false)
	if !ok {
		return
	}
	if !first.Boolean {
		args.Named[first.Key()] = cluster[1:]
		return
	}

	found := make([]OptionSpec, 0, len(cluster))
	for _, r := range cluster {
		spec, ok := lookupOption(specs, string(r), false)
		if !ok || !spec.Boolean {
			return
		}
		found = append(found, spec)
	}
	for _, spec := range found {
		args.Named[spec.Key()] = true
	}
}

func lookupOption(specs []OptionSpec, name string, long bool) (OptionSpec, bool) {
	for _, s := range specs {
		if long && s.Long == name {
			return s, true
		}
		if !long && s.Short == name {
			return s, true
		}
	}
	// A single dash with a long name ("-username") is accepted too.
	if !long && len(name) > 1 {
		for _, s := range specs {
			if s.Long == name {
				return s, true
			}
		}
	}
	return OptionSpec{}, false
}

// IsFlag reports whether tok looks like an option rather than a value.
// Negative numbers are values.
func IsFlag(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	return true
}

func parseBoolValue(value string, hasValue bool) bool {
	if !hasValue {
		return true
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return true
	}
	return b
}
