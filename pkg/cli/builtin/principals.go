package builtin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nxshell/nxshell/internal/executor"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/cli/interactive"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/pterm/pterm"
)

// userProperties maps user options to user properties.
var userProperties = []struct {
	option   cli.OptionSpec
	property string
}{
	{cli.OptionSpec{Long: "firstname", Description: "first name"}, "firstName"},
	{cli.OptionSpec{Long: "lastname", Description: "last name"}, "lastName"},
	{cli.OptionSpec{Long: "email", Description: "email address"}, "email"},
	{cli.OptionSpec{Long: "company", Description: "company"}, "company"},
	{cli.OptionSpec{Long: "password", Secret: true, Description: "password, asked for when given without a value"}, "password"},
}

func (c *commands) principalCommands() []*cli.Descriptor {
	return []*cli.Descriptor{
		c.listPrincipalsCommand("users", client.KindUser, false),
		c.listPrincipalsCommand("usersearch", client.KindUser, true),
		c.showPrincipalCommand("usershow", client.KindUser, interactive.UserSource),
		c.useraddCommand(),
		c.usermodCommand(),
		c.deletePrincipalCommand("userdel", client.KindUser, interactive.UserSource),
		c.listPrincipalsCommand("groups", client.KindGroup, false),
		c.listPrincipalsCommand("groupsearch", client.KindGroup, true),
		c.showPrincipalCommand("groupshow", client.KindGroup, interactive.GroupSource),
		c.groupaddCommand(),
		c.groupmodCommand(),
		c.deletePrincipalCommand("groupdel", client.KindGroup, interactive.GroupSource),
	}
}

func (c *commands) listPrincipalsCommand(name, kind string, search bool) *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            name,
		Usage:           name + " [-s size] [-p page] [-o format]",
		Help:            fmt.Sprintf("List all %ss.", kind),
		Options:         []cli.OptionSpec{pageSizeOption, pageOption, outputOption},
		NeedsConnection: true,
	}
	if search {
		desc.Usage = name + " [-s size] [-p page] [-o format] query"
		desc.Help = fmt.Sprintf("Search %ss whose name starts with query. * matches anything.", kind)
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		query := "*"
		if search {
			if query = args.Arg(0); query == "" {
				return desc.Usagef("missing query")
			}
			if !strings.HasSuffix(query, "*") {
				query += "*"
			}
		}
		pg, err := page(desc, args)
		if err != nil {
			return err
		}
		p, err := printer(desc, env, args)
		if err != nil {
			return err
		}
		resp, err := conn.SearchPrincipals(ctx, kind, query, pg)
		if err != nil {
			return err
		}
		return p.Print(resp)
	}
	return desc
}

func (c *commands) showPrincipalCommand(name, kind string, source interactive.OptionSource) *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            name,
		Usage:           name + " [-o format] " + kind,
		Help:            fmt.Sprintf("Print a %s.", kind),
		Options:         []cli.OptionSpec{outputOption},
		Completer:       c.principalCompleter(source),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		if args.Arg(0) == "" {
			return desc.Usagef("missing %s name", kind)
		}
		p, err := printer(desc, env, args)
		if err != nil {
			return err
		}
		resp, err := conn.Principal(ctx, kind, args.Arg(0))
		if err != nil {
			return err
		}
		return p.Print(resp)
	}
	return desc
}

func (c *commands) deletePrincipalCommand(name, kind string, source interactive.OptionSource) *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            name,
		Usage:           name + " [-f] " + kind,
		Help:            fmt.Sprintf("Delete a %s. Asks for confirmation unless -f is given.", kind),
		Options:         []cli.OptionSpec{executor.ForceOption},
		Completer:       c.principalCompleter(source),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		target := args.Arg(0)
		if target == "" {
			return desc.Usagef("missing %s name", kind)
		}
		if err := executor.Confirm(env, args, fmt.Sprintf("Delete %s %s?", kind, target)); err != nil {
			return err
		}
		if err := conn.DeletePrincipal(ctx, kind, target); err != nil {
			return err
		}
		c.loader.Invalidate()
		env.Printer.Printf("Deleted %s %s\n", kind, target)
		return nil
	}
	return desc
}

func userOptions() []cli.OptionSpec {
	opts := make([]cli.OptionSpec, 0, len(userProperties)+1)
	for _, p := range userProperties {
		opts = append(opts, p.option)
	}
	return append(opts, cli.OptionSpec{Short: "g", Long: "groups", Description: "comma separated groups"})
}

// userFromArgs copies the user options found in args into props.
func userFromArgs(env *cli.Env, args *cli.ParsedArgs, props map[string]any) error {
	for _, p := range userProperties {
		if !args.Has(p.option.Long) {
			continue
		}
		v, _ := args.String(p.option.Long)
		if p.property == "password" && v == "" {
			var err error
			if v, err = readPassword(env, "New password"); err != nil {
				return err
			}
		}
		props[p.property] = v
	}
	if groups := args.StringOr("groups", ""); groups != "" {
		props["groups"] = splitList(groups)
	}
	return nil
}

func (c *commands) useraddCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            "useradd",
		Usage:           "useradd [--firstname name] [--lastname name] [--email addr] [--company name] [--password [pw]] [-g groups] user",
		Help:            "Create a user.",
		Options:         userOptions(),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		id := args.Arg(0)
		if id == "" {
			return desc.Usagef("missing user name")
		}
		props := map[string]any{"username": id}
		if err := userFromArgs(env, args, props); err != nil {
			return err
		}
		resp, err := conn.CreateUser(ctx, &client.User{ID: id, Properties: props})
		if err != nil {
			return err
		}
		c.loader.Invalidate()
		pterm.Success.WithWriter(env.Out).Printfln("Created user %s", id)
		return env.Printer.Print(resp)
	}
	return desc
}

func (c *commands) usermodCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            "usermod",
		Usage:           "usermod [--firstname name] [--lastname name] [--email addr] [--company name] [--password [pw]] [-g groups] user",
		Help:            "Change the properties of a user. -g replaces the groups of the user.",
		Options:         userOptions(),
		Completer:       c.principalCompleter(interactive.UserSource),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		id := args.Arg(0)
		if id == "" {
			return desc.Usagef("missing user name")
		}
		props := map[string]any{}
		if err := userFromArgs(env, args, props); err != nil {
			return err
		}
		if len(props) == 0 {
			return desc.Usagef("nothing to change")
		}
		var u client.User
		if err := decodePrincipal(ctx, conn, client.KindUser, id, &u); err != nil {
			return err
		}
		if u.Properties == nil {
			u.Properties = map[string]any{}
		}
		for k, v := range props {
			u.Properties[k] = v
		}
		resp, err := conn.UpdateUser(ctx, &u)
		if err != nil {
			return err
		}
		return env.Printer.Print(resp)
	}
	return desc
}

func (c *commands) groupaddCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "groupadd",
		Usage: "groupadd [-l label] [-u users] [-g groups] group",
		Help:  "Create a group. Members are comma separated.",
		Options: []cli.OptionSpec{
			{Short: "l", Long: "label", Description: "group label"},
			{Short: "u", Long: "users", Description: "comma separated member users"},
			{Short: "g", Long: "groups", Description: "comma separated member groups"},
		},
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		name := args.Arg(0)
		if name == "" {
			return desc.Usagef("missing group name")
		}
		resp, err := conn.CreateGroup(ctx, &client.Group{
			GroupName:   name,
			GroupLabel:  args.StringOr("label", name),
			MemberUsers: splitList(args.StringOr("users", "")),
			MemberGroup: splitList(args.StringOr("groups", "")),
		})
		if err != nil {
			return err
		}
		c.loader.Invalidate()
		pterm.Success.WithWriter(env.Out).Printfln("Created group %s", name)
		return env.Printer.Print(resp)
	}
	return desc
}

func (c *commands) groupmodCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "groupmod",
		Usage: "groupmod [-l label] [-a users] [-r users] group",
		Help:  "Change the label or the member users of a group. Users are comma separated.",
		Options: []cli.OptionSpec{
			{Short: "l", Long: "label", Description: "group label"},
			{Short: "a", Long: "add-users", Description: "users to add"},
			{Short: "r", Long: "remove-users", Description: "users to remove"},
		},
		Completer:       c.principalCompleter(interactive.GroupSource),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		name := args.Arg(0)
		if name == "" {
			return desc.Usagef("missing group name")
		}
		var g client.Group
		if err := decodePrincipal(ctx, conn, client.KindGroup, name, &g); err != nil {
			return err
		}
		g.GroupLabel = args.StringOr("label", g.GroupLabel)
		for _, u := range splitList(args.StringOr("add-users", "")) {
			if !slices.Contains(g.MemberUsers, u) {
				g.MemberUsers = append(g.MemberUsers, u)
			}
		}
		remove := splitList(args.StringOr("remove-users", ""))
		g.MemberUsers = slices.DeleteFunc(g.MemberUsers, func(u string) bool {
			return slices.Contains(remove, u)
		})
		resp, err := conn.UpdateGroup(ctx, &g)
		if err != nil {
			return err
		}
		return env.Printer.Print(resp)
	}
	return desc
}

func decodePrincipal(ctx context.Context, conn *client.Client, kind, name string, v any) error {
	resp, err := conn.Principal(ctx, kind, name)
	if err != nil {
		return err
	}
	if t := resp.EntityType(); t != kind {
		return fmt.Errorf("unexpected entity-type %q", t)
	}
	if err := resp.Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", kind, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
