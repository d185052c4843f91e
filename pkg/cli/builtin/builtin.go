// Package builtin implements the commands compiled into nxshell.
//
// Commands are plain cli.Descriptors. Handlers receive the shell environment
// and return errors to the executor, which prints them; handlers only print
// results.
package builtin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nxshell/nxshell/pkg/auth"
	"github.com/nxshell/nxshell/pkg/auth/storage"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/cli/interactive"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/nxshell/nxshell/pkg/output"
	"github.com/nxshell/nxshell/pkg/state"
)

// Options carries the collaborators of the builtin commands.
type Options struct {
	// Credentials stores saved passwords. Nil disables saving and loading.
	Credentials storage.CredentialStore
	// Browser opens the web UI. Defaults to the system browser.
	Browser auth.BrowserOpener
	// HTTPClient returns the base HTTP client of new connections. Optional.
	HTTPClient func() *http.Client
	// Loader caches user and group names for completion. Optional.
	Loader *interactive.OptionLoader
	// Version is printed by the version command.
	Version string
	// ConfigPath is the config file shown by config path.
	ConfigPath string
}

type commands struct {
	opts      *Options
	loader    *interactive.OptionLoader
	templates *output.TemplateEngine
}

func newCommands(opts *Options) *commands {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Browser == nil {
		opts.Browser = auth.SystemBrowserOpener{}
	}
	loader := opts.Loader
	if loader == nil {
		loader = interactive.NewOptionLoader(time.Minute)
	}
	return &commands{
		opts:      opts,
		loader:    loader,
		templates: output.NewTemplateEngine(),
	}
}

// Register adds every builtin command to reg.
func Register(reg *cli.Registry, opts *Options) {
	for _, desc := range Descriptors(opts) {
		reg.Register(desc)
	}
}

// Descriptors returns the builtin commands in registration order.
func Descriptors(opts *Options) []*cli.Descriptor {
	c := newCommands(opts)
	var descs []*cli.Descriptor
	descs = append(descs, c.authCommands()...)
	descs = append(descs, c.contextCommands()...)
	descs = append(descs, c.documentCommands()...)
	descs = append(descs, c.queryCommands()...)
	descs = append(descs, c.editCommands()...)
	descs = append(descs, c.principalCommands()...)
	descs = append(descs, c.shellCommands()...)
	return descs
}

var (
	idOption = cli.OptionSpec{
		Short:       "i",
		Long:        "id",
		Description: "address the document by uid instead of path",
	}
	outputOption = cli.OptionSpec{
		Short:       "o",
		Long:        "output",
		Description: "output format: pretty, json or yaml",
	}
	whereOption = cli.OptionSpec{
		Short:       "w",
		Long:        "where",
		Description: `keep documents matching an expression, e.g. type == "File"`,
	}
	templateOption = cli.OptionSpec{
		Long:        "template",
		Description: "print each document through a template, e.g. {path} {title}",
	}
	pageSizeOption = cli.OptionSpec{
		Short:       "s",
		Long:        "page-size",
		Description: "number of results per page",
	}
	pageOption = cli.OptionSpec{
		Short:       "p",
		Long:        "page",
		Description: "page index, starting at 0",
	}
)

// connection returns the client of a connected session.
func connection(env *cli.Env) (*client.Client, error) {
	c := env.Session.Client()
	if c == nil {
		return nil, cli.ErrNotConnected
	}
	return c, nil
}

// target returns the document addressed by -i or by the positional argument
// at index i, relative to the current location.
func target(desc *cli.Descriptor, env *cli.Env, args *cli.ParsedArgs, i int) (client.Ref, error) {
	id := args.StringOr(idOption.Key(), "")
	if id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return client.Ref{}, desc.Usagef("invalid document id %q", id)
		}
	}
	return env.Session.Ref(args.Arg(i), id), nil
}

// printer returns the environment printer, switched to the format asked with
// -o.
func printer(desc *cli.Descriptor, env *cli.Env, args *cli.ParsedArgs) (*output.Printer, error) {
	p, err := env.Printer.WithFormat(args.StringOr(outputOption.Key(), ""))
	if err != nil {
		return nil, desc.Usagef("%s", err.Error())
	}
	return p, nil
}

// page reads the pagination options.
func page(desc *cli.Descriptor, args *cli.ParsedArgs) (client.Page, error) {
	var pg client.Page
	for _, o := range []struct {
		key string
		dst *int
	}{{pageSizeOption.Key(), &pg.Size}, {pageOption.Key(), &pg.Index}} {
		v := args.StringOr(o.key, "")
		if v == "" {
			continue
		}
		if _, err := fmt.Sscan(v, o.dst); err != nil || *o.dst < 0 {
			return client.Page{}, desc.Usagef("invalid --%s %q", o.key, v)
		}
	}
	return pg, nil
}

// printDocuments prints a page of documents, filtered with --where and
// rendered with --template when given.
func (c *commands) printDocuments(desc *cli.Descriptor, env *cli.Env, args *cli.ParsedArgs, list *client.DocumentList) error {
	p, err := printer(desc, env, args)
	if err != nil {
		return err
	}

	where := args.StringOr(whereOption.Key(), "")
	if where != "" {
		kept := list.Entries[:0:0]
		for i := range list.Entries {
			ok, err := c.templates.Match(where, output.DocumentEnv(&list.Entries[i]))
			if err != nil {
				return desc.Usagef("invalid --where expression: %s", err.Error())
			}
			if ok {
				kept = append(kept, list.Entries[i])
			}
		}
		filtered := *list
		filtered.Entries = kept
		list = &filtered
	}

	if tmpl := args.StringOr(templateOption.Key(), ""); tmpl != "" {
		return p.DocumentLines(list.Entries, c.templates, tmpl)
	}
	return p.Documents(list)
}

// fetchDocument fetches a document and checks that it is one.
func fetchDocument(ctx context.Context, c *client.Client, ref client.Ref, schemas ...string) (*client.Document, error) {
	doc, err := c.Document(ctx, ref, schemas...)
	if err != nil {
		return nil, err
	}
	if doc.EntityType != client.EntityDocument {
		return nil, &state.EntityTypeError{Type: doc.EntityType}
	}
	return doc, nil
}
