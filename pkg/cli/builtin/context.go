package builtin

import (
	"context"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/nxshell/nxshell/pkg/state"
)

func (c *commands) contextCommands() []*cli.Descriptor {
	return []*cli.Descriptor{c.cdCommand(), c.pwdCommand()}
}

func (c *commands) cdCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "cd",
		Usage: "cd [-i id] [path | -]",
		Help: `Change the current location.

Without a path, go back to the root of the connection; "-" returns to the
previous location. The target must be a document.`,
		Options:         []cli.OptionSpec{idOption},
		Completer:       PathCompleter(true),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}

		var ref client.Ref
		switch arg := args.Arg(0); {
		case args.StringOr(idOption.Key(), "") != "":
			if ref, err = target(desc, env, args, 0); err != nil {
				return err
			}
		case arg == "-":
			prev := env.Session.PreviousPath()
			if prev == "" {
				return desc.Usagef("no previous location")
			}
			ref = client.PathRef(prev)
		case arg == "":
			root := "/"
			if doc := env.Session.Root(); doc != nil {
				root = state.ResolvePath("/", doc.Path)
			}
			ref = client.PathRef(root)
		default:
			ref = client.PathRef(env.Session.Resolve(arg))
		}

		doc, err := conn.Document(ctx, ref)
		if err != nil {
			return err
		}
		return env.Session.ChangeLocation(doc)
	}
	return desc
}

func (c *commands) pwdCommand() *cli.Descriptor {
	return &cli.Descriptor{
		Name:  "pwd",
		Usage: "pwd [-u]",
		Help:  "Print the current location.",
		Options: []cli.OptionSpec{
			{Short: "u", Long: "uid", Boolean: true, Description: "print the uid of the current document too"},
		},
		NeedsConnection: true,
		Handler: func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
			if doc := env.Session.Current(); args.Bool("uid") && doc != nil {
				env.Printer.Printf("%s - %s\n", env.Session.CurrentPath(), doc.UID)
				return nil
			}
			env.Printer.Println(env.Session.CurrentPath())
			return nil
		},
	}
}
