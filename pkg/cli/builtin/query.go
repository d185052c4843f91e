package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/nxshell/nxshell/pkg/cli"
)

func (c *commands) queryCommands() []*cli.Descriptor {
	return []*cli.Descriptor{c.selectCommand(), c.findCommand()}
}

func (c *commands) selectCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "select",
		Usage: "select [-w expr] [--template tmpl] [-s size] [-p page] [-o format] nxql...",
		Help: `Run an NXQL query. The arguments are joined into the part of the query
following SELECT, e.g.

  select * from File where dc:title like 'report%'`,
		Options: []cli.OptionSpec{
			whereOption, templateOption, pageSizeOption, pageOption, outputOption,
		},
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		if len(args.Positional) == 0 {
			return desc.Usagef("missing query")
		}
		return c.query(ctx, desc, env, args, "SELECT "+strings.Join(args.Positional, " "))
	}
	return desc
}

func (c *commands) findCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "find",
		Usage: "find [-t type] [-w expr] [--template tmpl] [-s size] [-p page] [-o format] [pattern]",
		Help: `Search the documents below the current location whose name or title
contains pattern.`,
		Options: []cli.OptionSpec{
			{Short: "t", Long: "type", Default: "Document", Description: "document type to search"},
			whereOption, templateOption, pageSizeOption, pageOption, outputOption,
		},
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		nxql := FindQuery(args.StringOr("type", "Document"), env.Session.CurrentPath(), strings.Join(args.Positional, " "))
		return c.query(ctx, desc, env, args, nxql)
	}
	return desc
}

func (c *commands) query(ctx context.Context, desc *cli.Descriptor, env *cli.Env, args *cli.ParsedArgs, nxql string) error {
	conn, err := connection(env)
	if err != nil {
		return err
	}
	pg, err := page(desc, args)
	if err != nil {
		return err
	}
	if env.Logger != nil {
		env.Logger.Debug("running query", env.Logger.Args("nxql", nxql))
	}
	list, err := conn.Query(ctx, nxql, pg)
	if err != nil {
		return err
	}
	return c.printDocuments(desc, env, args, list)
}

// FindQuery returns the NXQL query of find.
func FindQuery(docType, below, pattern string) string {
	q := fmt.Sprintf("SELECT * FROM %s WHERE ecm:path STARTSWITH '%s' AND ecm:isVersion = 0", docType, nxqlEscape(below))
	if pattern != "" {
		like := "'%" + nxqlEscape(pattern) + "%'"
		q += fmt.Sprintf(" AND (ecm:name ILIKE %s OR dc:title ILIKE %s)", like, like)
	}
	return q + " ORDER BY ecm:path"
}

func nxqlEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
