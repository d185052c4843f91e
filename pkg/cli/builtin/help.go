package builtin

import (
	"context"
	"strings"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/pterm/pterm"
)

func (c *commands) helpCommand() *cli.Descriptor {
	return &cli.Descriptor{
		Name:      "help",
		Usage:     "help [cmd...]",
		Help:      "Print the help of commands, or the list of commands.",
		Completer: commandCompleter,
		Handler: func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
			if len(args.Positional) == 0 {
				env.Printer.Println("usage: help <cmd> [<cmd> ...]")
				env.Printer.Println()
				printCommandList(env)
				return nil
			}
			for i, name := range args.Positional {
				if i > 0 {
					env.Printer.Println()
				}
				desc, ok := env.Registry.Lookup(name)
				if !ok {
					pterm.Warning.WithWriter(env.Out).Printfln("help: unknown command %s", name)
					continue
				}
				printHelp(env, desc)
			}
			return nil
		},
	}
}

func printHelp(env *cli.Env, desc *cli.Descriptor) {
	usage := desc.Usage
	if usage == "" {
		usage = desc.Name
	}
	env.Printer.Printf("usage: %s\n", usage)
	if len(desc.Aliases) > 0 {
		env.Printer.Printf("aliases: %s\n", strings.Join(desc.Aliases, ", "))
	}
	if desc.Help == "" {
		env.Printer.Println("help: missing help message.")
	} else {
		env.Printer.Println()
		env.Printer.Println(desc.Help)
	}
	if len(desc.Options) == 0 {
		return
	}
	env.Printer.Println()
	env.Printer.Println("options:")
	for _, opt := range desc.Options {
		env.Printer.Printf("  %-24s %s\n", optionFlags(opt), opt.Description)
	}
}

func optionFlags(opt cli.OptionSpec) string {
	flags := opt.Flags()
	switch {
	case opt.Implied != "":
		flags += " [value]"
	case !opt.Boolean:
		flags += " <value>"
	}
	if opt.Required {
		flags += " (required)"
	}
	return flags
}

// printCommandList prints the builtin commands, then the remote operations.
func printCommandList(env *cli.Env) {
	for _, group := range []struct {
		title  string
		origin cli.Origin
	}{{"Commands", cli.OriginStatic}, {"Remote operations (help <id>)", cli.OriginDynamic}} {
		descs := env.Registry.ListOrigin(group.origin)
		if len(descs) == 0 {
			continue
		}
		env.Printer.Printf("%s:\n", group.title)
		if group.origin == cli.OriginDynamic {
			env.Printer.Printf("  %d operations, list them with ops\n", len(descs))
			continue
		}
		for _, desc := range descs {
			env.Printer.Printf("  %-12s %s\n", desc.Name, firstLine(desc.Help))
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (c *commands) opsCommand() *cli.Descriptor {
	return &cli.Descriptor{
		Name:            "ops",
		Usage:           "ops [filter]",
		Help:            "List the remote operations bound as commands, optionally those containing filter.",
		NeedsConnection: true,
		Handler: func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
			filter := strings.ToLower(args.Arg(0))
			var rows [][]string
			for _, desc := range env.Registry.ListOrigin(cli.OriginDynamic) {
				if filter != "" && !strings.Contains(strings.ToLower(desc.Name), filter) {
					continue
				}
				rows = append(rows, []string{desc.Name, firstLine(desc.Help)})
			}
			if len(rows) == 0 {
				env.Printer.Println("No operations.")
				return nil
			}
			return env.Printer.Table([]string{"OPERATION", "LABEL"}, rows)
		},
	}
}

func (c *commands) exitCommand() *cli.Descriptor {
	return &cli.Descriptor{
		Name:    "exit",
		Aliases: []string{"q", ":q"},
		Usage:   "exit",
		Help:    "Leave the shell.",
		Handler: func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
			return cli.ErrExit
		},
	}
}

func (c *commands) shellCommands() []*cli.Descriptor {
	return []*cli.Descriptor{
		c.helpCommand(), c.historyCommand(), c.opsCommand(),
		c.configCommand(), c.versionCommand(), c.exitCommand(),
	}
}
