package builtin

import (
	"context"
	"strconv"

	"github.com/nxshell/nxshell/pkg/cli"
)

func (c *commands) historyCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "history",
		Usage: "history [-c] [n]",
		Help:  "Print the last n lines entered, all by default.",
		Options: []cli.OptionSpec{
			{Short: "c", Long: "clear", Boolean: true, Description: "forget the history"},
		},
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		if env.History == nil {
			return nil
		}
		if args.Bool("clear") {
			env.History.Clear()
			return nil
		}
		n := env.History.Len()
		if arg := args.Arg(0); arg != "" {
			v, err := strconv.Atoi(arg)
			if err != nil || v < 0 {
				return desc.Usagef("invalid count %q", arg)
			}
			n = v
		}
		entries := env.History.Last(n)
		first := env.History.Len() - len(entries) + 1
		for i, line := range entries {
			env.Printer.Printf("%4d  %s\n", first+i, line)
		}
		return nil
	}
	return desc
}
