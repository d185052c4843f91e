package builtin

import (
	"context"
	"path"
	"strings"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/cli/completion"
	"github.com/nxshell/nxshell/pkg/cli/interactive"
	"github.com/nxshell/nxshell/pkg/client"
)

// PathCompleter completes the document path being typed by listing the
// children of its directory part. Folderish children get a trailing slash.
// With foldersOnly, other documents are left out.
func PathCompleter(foldersOnly bool) cli.Completer {
	return func(ctx context.Context, env *cli.Env, line string) ([]string, string) {
		raw, value := cli.OpenToken(line)
		conn := env.Session.Client()
		if conn == nil {
			return nil, raw
		}

		dir, base := path.Split(value)
		list, err := conn.Children(ctx, client.PathRef(env.Session.Resolve(dir)), client.Page{})
		if err != nil {
			if env.Logger != nil {
				env.Logger.Debug("path completion failed", env.Logger.Args("dir", dir, "error", err.Error()))
			}
			return nil, raw
		}

		var candidates []string
		for i := range list.Entries {
			doc := &list.Entries[i]
			name := path.Base(doc.Path)
			if !strings.HasPrefix(name, base) {
				continue
			}
			folder := doc.IsFolderish()
			if foldersOnly && !folder {
				continue
			}
			candidate := dir + name
			if folder {
				candidate += "/"
			}
			candidates = append(candidates, completion.Quote(raw, candidate))
		}
		return candidates, raw
	}
}

// principalCompleter completes user or group names from the cached listing.
func (c *commands) principalCompleter(source interactive.OptionSource) cli.Completer {
	return func(ctx context.Context, env *cli.Env, line string) ([]string, string) {
		raw, value := cli.OpenToken(line)
		conn := env.Session.Client()
		if conn == nil {
			return nil, raw
		}
		names, err := c.loader.LoadOptions(ctx, conn, source)
		if err != nil {
			return nil, raw
		}
		var candidates []string
		for _, name := range names {
			if strings.HasPrefix(name, value) {
				candidates = append(candidates, completion.Quote(raw, name))
			}
		}
		return candidates, raw
	}
}

// commandCompleter completes command names, for help.
func commandCompleter(ctx context.Context, env *cli.Env, line string) ([]string, string) {
	raw, value := cli.OpenToken(line)
	var candidates []string
	for _, name := range env.Registry.Names() {
		if strings.HasPrefix(name, value) {
			candidates = append(candidates, name)
		}
	}
	return candidates, raw
}
