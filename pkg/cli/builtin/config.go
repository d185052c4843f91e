package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/config"
	"github.com/nxshell/nxshell/pkg/secrets"
	"gopkg.in/yaml.v3"
)

func (c *commands) configCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "config",
		Usage: "config [show | get key | path]",
		Help: `Show the effective configuration, one value of it, or the path of the
config file. Keys use dots, e.g. config get output.format. Passwords are
masked.`,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		cfg := settings(env)
		switch sub := args.Arg(0); sub {
		case "", "show":
			data, err := yaml.Marshal(masked(cfg))
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			env.Printer.Printf("%s", data)
			return nil
		case "get":
			key := args.Arg(1)
			if key == "" {
				return desc.Usagef("missing key")
			}
			value, err := configValue(masked(cfg), key)
			if err != nil {
				return desc.Usagef("%s", err.Error())
			}
			env.Printer.Println(value)
			return nil
		case "path":
			if c.opts.ConfigPath == "" {
				env.Printer.Println("no config file")
				return nil
			}
			env.Printer.Println(c.opts.ConfigPath)
			return nil
		default:
			return desc.Usagef("unknown subcommand %q", sub)
		}
	}
	return desc
}

// masked returns a copy of cfg safe to print.
func masked(cfg *config.Config) *config.Config {
	cp := *cfg
	cp.Connect.Password = secrets.Mask(cp.Connect.Password)
	return &cp
}

// configValue returns the value at the dotted key of cfg, as YAML for
// sections and lists.
func configValue(cfg *config.Config, key string) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", err
	}

	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", fmt.Errorf("unknown key %q", key)
		}
		if node, ok = m[part]; !ok {
			return "", fmt.Errorf("unknown key %q", key)
		}
	}

	switch v := node.(type) {
	case map[string]any, []any:
		out, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return strings.TrimSuffix(string(out), "\n"), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}
