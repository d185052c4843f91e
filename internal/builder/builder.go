// Package builder turns the operations a server advertises into shell
// commands.
//
// Every operation becomes one dynamic descriptor named by the operation id,
// with one long option per parameter. Running the command executes the
// operation on the current connection and prints the answer.
package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/pterm/pterm"
)

// Builder builds descriptors from remote operations.
type Builder struct {
	config *BuilderConfig
}

// BuilderConfig configures descriptor building.
type BuilderConfig struct {
	// Completer completes the input argument of every operation command.
	Completer cli.Completer
	Logger    *pterm.Logger
}

// NewBuilder creates a builder.
func NewBuilder(config *BuilderConfig) *Builder {
	if config == nil {
		config = &BuilderConfig{}
	}
	return &Builder{config: config}
}

// Build returns one descriptor per operation, in the given order. Operations
// without an id are skipped.
func (b *Builder) Build(ops []client.OperationInfo) []*cli.Descriptor {
	descs := make([]*cli.Descriptor, 0, len(ops))
	for _, op := range ops {
		if op.ID == "" || strings.ContainsAny(op.ID, " \t") {
			continue
		}
		descs = append(descs, b.buildOperationCommand(op))
	}
	return descs
}

// Bind builds the descriptors for ops and registers them in place of the
// operations bound before, which are removed along with the builtins they
// shadowed being restored. A dynamic command replaces a builtin of the same
// name; the replacement is logged. It returns the number of commands
// registered.
func (b *Builder) Bind(reg *cli.Registry, ops []client.OperationInfo) int {
	if n := reg.RemoveOrigin(cli.OriginDynamic); n > 0 {
		b.debug("unbound previous remote operations", "count", n)
	}
	descs := b.Build(ops)
	for _, desc := range descs {
		prev := reg.Register(desc)
		if prev != nil && prev.Origin == cli.OriginStatic {
			b.debug("remote operation shadows builtin command",
				"command", desc.Name,
				"builtin", prev.Name)
		}
	}
	b.debug("bound remote operations", "count", len(descs))
	return len(descs)
}

func (b *Builder) buildOperationCommand(op client.OperationInfo) *cli.Descriptor {
	opts := OptionSpecs(op)

	usage := op.ID + " [input]"
	for _, o := range opts {
		if o.Required {
			usage += fmt.Sprintf(" --%s <%s>", o.Long, paramType(op, o.Long))
		}
	}
	if len(opts) > 0 {
		usage += " [options]"
	}

	return &cli.Descriptor{
		Name:            op.ID,
		Usage:           usage,
		Help:            helpText(op),
		Options:         opts,
		Handler:         operationHandler(op),
		Completer:       b.config.Completer,
		Origin:          cli.OriginDynamic,
		NeedsConnection: true,
	}
}

// operationHandler runs op with the declared parameters found on the line.
func operationHandler(op client.OperationInfo) cli.Handler {
	return func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		c := env.Session.Client()
		if c == nil {
			return cli.ErrNotConnected
		}

		params, err := BuildParams(op, args)
		if err != nil {
			return &cli.UsageError{Message: err.Error()}
		}

		call := c.Operation(op.ID)
		if input, ok := InputRef(env.Session, args.Arg(0)); ok {
			call.Input(input)
		}
		resp, err := call.Execute(ctx, params)
		if err != nil {
			return err
		}
		return env.Printer.Print(resp)
	}
}

func helpText(op client.OperationInfo) string {
	var b strings.Builder
	switch {
	case op.Label != "" && op.Description != "":
		fmt.Fprintf(&b, "%s: %s", op.Label, op.Description)
	case op.Description != "":
		b.WriteString(op.Description)
	default:
		b.WriteString(op.Label)
	}
	if op.Category != "" {
		fmt.Fprintf(&b, "\nCategory: %s", op.Category)
	}
	if len(op.Signature) > 0 {
		fmt.Fprintf(&b, "\nSignature: %s", strings.Join(op.Signature, " "))
	}
	return b.String()
}

func (b *Builder) debug(msg string, args ...any) {
	if b.config.Logger == nil {
		return
	}
	b.config.Logger.Debug(msg, b.config.Logger.Args(args...))
}
