package builtin

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nxshell/nxshell/internal/executor"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/nxshell/nxshell/pkg/progress"
	"github.com/pterm/pterm"
)

// DefaultBlobXPath addresses the main file of a document.
const DefaultBlobXPath = "file:content"

func (c *commands) documentCommands() []*cli.Descriptor {
	return []*cli.Descriptor{
		c.lsCommand(),
		c.catCommand(),
		c.mkdirCommand(),
		c.rmCommand(),
		c.transferCommand("cp", "Document.Copy", "Copy a document."),
		c.transferCommand("mv", "Document.Move", "Move or rename a document."),
		c.auditCommand(),
		c.getCommand(),
		c.putCommand(),
		c.importCommand(),
		c.browseCommand(),
	}
}

func (c *commands) lsCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "ls",
		Usage: "ls [-i id] [-w expr] [--template tmpl] [-s size] [-p page] [-o format] [path]",
		Help: `List the children of a document, the current one by default.

--where keeps the children matching an expression over uid, path, name,
title, type, state, facets, folderish and properties.`,
		Options: []cli.OptionSpec{
			idOption, whereOption, templateOption, pageSizeOption, pageOption, outputOption,
		},
		Completer:       PathCompleter(true),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		ref, err := target(desc, env, args, 0)
		if err != nil {
			return err
		}
		pg, err := page(desc, args)
		if err != nil {
			return err
		}
		list, err := conn.Children(ctx, ref, pg)
		if err != nil {
			return err
		}
		return c.printDocuments(desc, env, args, list)
	}
	return desc
}

func (c *commands) catCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            "cat",
		Usage:           "cat [-i id] [-o format] [path]",
		Help:            "Print a document with all its properties.",
		Options:         []cli.OptionSpec{idOption, outputOption},
		Completer:       PathCompleter(false),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		ref, err := target(desc, env, args, 0)
		if err != nil {
			return err
		}
		p, err := printer(desc, env, args)
		if err != nil {
			return err
		}
		doc, err := fetchDocument(ctx, conn, ref, "*")
		if err != nil {
			return err
		}
		return p.Document(doc, true)
	}
	return desc
}

func (c *commands) mkdirCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "mkdir",
		Usage: "mkdir [-t type] [--title title] path",
		Help:  "Create a document, a Folder unless another type is given.",
		Options: []cli.OptionSpec{
			{Short: "t", Long: "type", Default: "Folder", Description: "document type"},
			{Long: "title", Description: "document title, the name by default"},
		},
		Completer:       PathCompleter(true),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		if args.Arg(0) == "" {
			return desc.Usagef("missing path")
		}
		p := env.Session.Resolve(args.Arg(0))
		if p == "/" {
			return desc.Usagef("cannot create the root")
		}
		name := path.Base(p)
		doc := &client.Document{
			Name:       name,
			Type:       args.StringOr("type", "Folder"),
			Properties: map[string]any{"dc:title": args.StringOr("title", name)},
		}
		created, err := conn.Create(ctx, client.PathRef(path.Dir(p)), doc)
		if err != nil {
			return err
		}
		return env.Printer.Document(created, false)
	}
	return desc
}

func (c *commands) rmCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            "rm",
		Usage:           "rm [-f] [-i id] path...",
		Help:            "Delete documents and everything below them. Asks for confirmation unless -f is given.",
		Options:         []cli.OptionSpec{executor.ForceOption, idOption},
		Completer:       PathCompleter(false),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}

		var refs []client.Ref
		if args.StringOr(idOption.Key(), "") != "" {
			ref, err := target(desc, env, args, 0)
			if err != nil {
				return err
			}
			refs = append(refs, ref)
		}
		for _, p := range args.Positional {
			refs = append(refs, client.PathRef(env.Session.Resolve(p)))
		}
		if len(refs) == 0 {
			return desc.Usagef("missing path")
		}

		names := make([]string, len(refs))
		for i, ref := range refs {
			if ref.Path == "/" {
				return desc.Usagef("refusing to delete the root")
			}
			names[i] = ref.String()
		}
		if err := executor.Confirm(env, args, "Delete "+strings.Join(names, ", ")+"?"); err != nil {
			return err
		}

		for _, ref := range refs {
			if err := conn.Delete(ctx, ref); err != nil {
				return err
			}
			env.Printer.Printf("Deleted %s\n", ref.String())
		}
		if locationDeleted(env.Session.CurrentPath(), refs) {
			return relocate(ctx, env, conn)
		}
		return nil
	}
	return desc
}

// locationDeleted reports whether deleting refs may have removed current.
// A uid ref is not resolved and counts as a possible ancestor.
func locationDeleted(current string, refs []client.Ref) bool {
	for _, ref := range refs {
		if ref.ID != "" || current == ref.Path || strings.HasPrefix(current, strings.TrimSuffix(ref.Path, "/")+"/") {
			return true
		}
	}
	return false
}

// relocate moves the session to the nearest parent of the current location
// still in the repository, when the location itself is gone.
func relocate(ctx context.Context, env *cli.Env, conn *client.Client) error {
	p := env.Session.CurrentPath()
	for {
		doc, err := conn.Document(ctx, client.PathRef(p))
		if err == nil {
			if p == env.Session.CurrentPath() {
				return nil
			}
			return env.Session.ChangeLocation(doc)
		}
		if !client.IsNotFound(err) || p == "/" {
			return err
		}
		p = path.Dir(p)
	}
}

// transferCommand builds cp and mv, which run a copy or move operation with
// unix semantics: an existing destination folder receives the source, any
// other destination names the result.
func (c *commands) transferCommand(name, operation, help string) *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            name,
		Usage:           name + " [-i id] source destination",
		Help:            help,
		Options:         []cli.OptionSpec{idOption},
		Completer:       PathCompleter(false),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}

		var src client.Ref
		dst := args.Arg(1)
		if args.StringOr(idOption.Key(), "") != "" {
			if src, err = target(desc, env, args, 0); err != nil {
				return err
			}
			dst = args.Arg(0)
		} else {
			if args.Arg(0) == "" {
				return desc.Usagef("missing source")
			}
			src = client.PathRef(env.Session.Resolve(args.Arg(0)))
		}
		if dst == "" {
			return desc.Usagef("missing destination")
		}

		parent, newName, err := destination(ctx, conn, env.Session.Resolve(dst))
		if err != nil {
			return err
		}

		params := map[string]any{"target": parent}
		if newName != "" {
			params["name"] = newName
		}
		resp, err := conn.Operation(operation).Input(src).Execute(ctx, params)
		if err != nil {
			return err
		}
		return env.Printer.Print(resp)
	}
	return desc
}

// destination splits a cp or mv destination into the target folder and the
// new name, which is empty when the destination is an existing folder.
func destination(ctx context.Context, conn *client.Client, dst string) (string, string, error) {
	doc, err := conn.Document(ctx, client.PathRef(dst))
	switch {
	case err == nil && doc.IsFolderish():
		return dst, "", nil
	case err == nil:
		return "", "", fmt.Errorf("%s already exists", dst)
	case client.IsNotFound(err):
		return path.Dir(dst), path.Base(dst), nil
	default:
		return "", "", err
	}
}

func (c *commands) auditCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            "audit",
		Usage:           "audit [-i id] [-o format] [path]",
		Help:            "Print the audit log of a document.",
		Options:         []cli.OptionSpec{idOption, outputOption},
		Completer:       PathCompleter(false),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		ref, err := target(desc, env, args, 0)
		if err != nil {
			return err
		}
		p, err := printer(desc, env, args)
		if err != nil {
			return err
		}
		resp, err := conn.Audit(ctx, ref)
		if err != nil {
			return err
		}
		return p.Print(resp)
	}
	return desc
}

func (c *commands) getCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "get",
		Usage: "get [-i id] [-x xpath] path [local-file]",
		Help:  "Download the main file of a document, or the blob at xpath.",
		Options: []cli.OptionSpec{
			idOption,
			{Short: "x", Long: "xpath", Default: DefaultBlobXPath, Description: "blob property to download"},
		},
		Completer:       PathCompleter(false),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}

		local := args.Arg(1)
		var ref client.Ref
		if args.StringOr(idOption.Key(), "") != "" {
			if ref, err = target(desc, env, args, 0); err != nil {
				return err
			}
			local = args.Arg(0)
		} else {
			if args.Arg(0) == "" {
				return desc.Usagef("missing path")
			}
			ref = client.PathRef(env.Session.Resolve(args.Arg(0)))
		}
		if local == "" {
			if ref.Path == "" {
				return desc.Usagef("missing local file name")
			}
			local = path.Base(ref.Path)
		}

		f, err := os.Create(local)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", local, err)
		}
		n, err := conn.Download(ctx, ref, args.StringOr("xpath", DefaultBlobXPath), f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(local)
			return err
		}
		env.Printer.Printf("Downloaded %d bytes to %s\n", n, local)
		return nil
	}
	return desc
}

func (c *commands) putCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "put",
		Usage: "put [-i id] [-x xpath] local-file [path]",
		Help:  "Upload a local file as the main file of a document, the current one by default.",
		Options: []cli.OptionSpec{
			idOption,
			{Short: "x", Long: "xpath", Default: DefaultBlobXPath, Description: "blob property to set"},
		},
		Completer:       PathCompleter(false),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		local := args.Arg(0)
		if local == "" {
			return desc.Usagef("missing local file")
		}
		ref, err := target(desc, env, args, 1)
		if err != nil {
			return err
		}

		call := conn.Operation("Blob.AttachOnDocument").
			Param("document", ref.String()).
			Param("xpath", args.StringOr("xpath", DefaultBlobXPath))
		_, err = c.upload(ctx, env, call, local, fmt.Sprintf("Uploading %s to %s", filepath.Base(local), ref.String()))
		if err != nil {
			return err
		}
		return nil
	}
	return desc
}

func (c *commands) importCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            "import",
		Usage:           "import [-i id] local-file [folder]",
		Help:            "Create a document from a local file, in the current folder by default. The server picks the document type.",
		Options:         []cli.OptionSpec{idOption},
		Completer:       PathCompleter(true),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		local := args.Arg(0)
		if local == "" {
			return desc.Usagef("missing local file")
		}
		ref, err := target(desc, env, args, 1)
		if err != nil {
			return err
		}

		call := conn.Operation("FileManager.Import").
			Context("currentDocument", ref.String())
		resp, err := c.upload(ctx, env, call, local, fmt.Sprintf("Importing %s into %s", filepath.Base(local), ref.String()))
		if err != nil {
			return err
		}
		return env.Printer.Print(resp)
	}
	return desc
}

// upload sends a local file as the input of call behind a spinner. The
// request spinner of the transport is silenced meanwhile.
func (c *commands) upload(ctx context.Context, env *cli.Env, call *client.Operation, local, message string) (*client.Response, error) {
	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(local)
	spinner := progress.NewSpinner(&progress.Config{
		Enabled: settings(env).Progress.Enabled,
		Writer:  env.Out,
	})
	_ = spinner.Start(message)

	resp, err := call.Blob(&client.Blob{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Content:     f,
	}).Execute(progress.Quiet(ctx), nil)
	if err != nil {
		_ = spinner.Failure("Upload failed")
		return nil, err
	}
	if spinner.IsActive() {
		_ = spinner.Success("Uploaded " + name)
	} else {
		pterm.Success.WithWriter(env.Out).Printfln("Uploaded %s", name)
	}
	return resp, nil
}

func (c *commands) browseCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:            "browse",
		Usage:           "browse [-i id] [path]",
		Help:            "Open a document in the web UI.",
		Options:         []cli.OptionSpec{idOption},
		Completer:       PathCompleter(false),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		if _, err := connection(env); err != nil {
			return err
		}
		ref, err := target(desc, env, args, 0)
		if err != nil {
			return err
		}
		u := BrowseURL(env.Session.Host(), ref)
		env.Printer.Printf("Opening %s\n", u)
		return c.opts.Browser.Open(u)
	}
	return desc
}

// BrowseURL returns the web UI address of a document.
func BrowseURL(base string, ref client.Ref) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if ref.ID != "" {
		return base + "ui/#!/doc/" + url.PathEscape(ref.ID)
	}
	return base + "ui/#!/browse" + (&url.URL{Path: ref.Path}).EscapedPath()
}
