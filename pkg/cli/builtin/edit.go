package builtin

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/nxshell/nxshell/internal/executor"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

func (c *commands) editCommands() []*cli.Descriptor {
	return []*cli.Descriptor{c.editCommand()}
}

func (c *commands) editCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:  "edit",
		Usage: "edit [-i id] [path]",
		Help: `Edit the properties of a document as YAML in $VISUAL or $EDITOR.

After the editor exits the changes are uploaded once confirmed. When the upload
fails the edited text can be edited again.`,
		Options:         []cli.OptionSpec{idOption},
		Completer:       PathCompleter(false),
		NeedsConnection: true,
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		conn, err := connection(env)
		if err != nil {
			return err
		}
		if env.Editor == nil {
			return executor.ErrNoEditor
		}
		ref, err := target(desc, env, args, 0)
		if err != nil {
			return err
		}
		doc, err := fetchDocument(ctx, conn, ref, "*")
		if err != nil {
			return err
		}
		original, err := MarshalProperties(doc.Properties)
		if err != nil {
			return err
		}

		name := doc.Name
		if name == "" {
			name = path.Base(doc.Path)
		}
		session := &executor.EditSession{
			Name:     name,
			Original: original,
			Editor:   env.Editor,
			Prompter: env.Prompter,
			Out:      env.Out,
			Upload: func(ctx context.Context, content string) error {
				props, err := UnmarshalProperties(content)
				if err != nil {
					return err
				}
				_, err = conn.Update(ctx, doc.Ref(), changedProperties(doc.Properties, props))
				return err
			},
			OnTransition: func(from, to executor.EditState) {
				if env.Logger != nil {
					env.Logger.Debug("edit", env.Logger.Args("document", doc.Path, "from", from.String(), "to", to.String()))
				}
			},
		}
		uploaded, err := session.Run(ctx)
		if err != nil {
			return err
		}
		if uploaded {
			pterm.Success.WithWriter(env.Out).Printfln("Updated %s", doc.Path)
		}
		return nil
	}
	return desc
}

// MarshalProperties renders document properties as YAML, keys sorted.
func MarshalProperties(props map[string]any) (string, error) {
	if len(props) == 0 {
		return "", nil
	}
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(props); err != nil {
		return "", fmt.Errorf("failed to render properties: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// UnmarshalProperties parses edited YAML back into properties.
func UnmarshalProperties(text string) (map[string]any, error) {
	props := map[string]any{}
	if strings.TrimSpace(text) == "" {
		return props, nil
	}
	if err := yaml.Unmarshal([]byte(text), &props); err != nil {
		return nil, fmt.Errorf("invalid properties: %w", err)
	}
	for k := range props {
		if !strings.Contains(k, ":") {
			return nil, errors.New("invalid property name " + k + ": expected schema:name")
		}
	}
	return props, nil
}

// changedProperties returns the edited properties that differ from the
// original ones. Removed properties are sent as null.
func changedProperties(original, edited map[string]any) map[string]any {
	changed := map[string]any{}
	for k, v := range edited {
		if old, ok := original[k]; !ok || fmt.Sprint(old) != fmt.Sprint(v) {
			changed[k] = v
		}
	}
	for k := range original {
		if _, ok := edited[k]; !ok {
			changed[k] = nil
		}
	}
	return changed
}
