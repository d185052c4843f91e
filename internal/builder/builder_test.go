package builder

import (
	"context"
	"strings"
	"testing"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/nxshell/nxshell/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var setProperty = client.OperationInfo{
	ID:          "Document.SetProperty",
	Label:       "Update Property",
	Category:    "Document",
	Description: "Set a single property value on the input document.",
	Signature:   []string{"document", "document"},
	Params: []client.OperationParam{
		{Name: "value", Type: "serializable", Order: 2},
		{Name: "xpath", Type: "string", Required: true, Order: 1},
		{Name: "save", Type: "boolean", Order: 3},
	},
}

func TestBuild(t *testing.T) {
	descs := NewBuilder(nil).Build([]client.OperationInfo{
		setProperty,
		{ID: ""},
		{ID: "bad id"},
		{ID: "Repository.Query", Label: "Query"},
	})
	require.Len(t, descs, 2)

	d := descs[0]
	assert.Equal(t, "Document.SetProperty", d.Name)
	assert.Equal(t, "Document.SetProperty [input] --xpath <string> [options]", d.Usage)
	assert.Equal(t, cli.OriginDynamic, d.Origin)
	assert.True(t, d.NeedsConnection)
	assert.True(t, strings.HasPrefix(d.Help, "Update Property: Set a single property value"))
	assert.Contains(t, d.Help, "Category: Document")
	assert.Contains(t, d.Help, "Signature: document document")

	var longs []string
	for _, o := range d.Options {
		longs = append(longs, o.Long)
	}
	assert.Equal(t, []string{"xpath", "value", "save"}, longs)
	assert.False(t, d.Options[2].Boolean)
	assert.Equal(t, "true", d.Options[2].Implied)

	assert.Equal(t, "Repository.Query [input]", descs[1].Usage)
	assert.Equal(t, "Query", descs[1].Help)
}

func TestBindShadowsBuiltins(t *testing.T) {
	reg := cli.NewRegistry()
	reg.Register(&cli.Descriptor{Name: "ls", Origin: cli.OriginStatic})
	reg.Register(&cli.Descriptor{Name: "cd", Origin: cli.OriginStatic})

	n := NewBuilder(nil).Bind(reg, []client.OperationInfo{{ID: "ls"}, setProperty})
	assert.Equal(t, 2, n)

	ls, ok := reg.Lookup("ls")
	require.True(t, ok)
	assert.Equal(t, cli.OriginDynamic, ls.Origin)
	assert.Equal(t, []string{"ls", "cd", "Document.SetProperty"}, reg.Names())
}

func TestBindReplacesPreviousOperations(t *testing.T) {
	reg := cli.NewRegistry()
	ls := &cli.Descriptor{Name: "ls", Origin: cli.OriginStatic}
	reg.Register(ls)

	b := NewBuilder(nil)
	b.Bind(reg, []client.OperationInfo{{ID: "ls"}, {ID: "Old.Op"}})
	n := b.Bind(reg, []client.OperationInfo{setProperty})
	assert.Equal(t, 1, n)

	got, ok := reg.Lookup("ls")
	require.True(t, ok)
	assert.Same(t, ls, got)
	_, ok = reg.Lookup("Old.Op")
	assert.False(t, ok)
	assert.Equal(t, []string{"ls", "Document.SetProperty"}, reg.Names())
}

func TestOptionSpecs(t *testing.T) {
	specs := OptionSpecs(client.OperationInfo{Params: []client.OperationParam{
		{Name: "format", Values: []string{"pdf", "html"}, Description: "output format"},
		{Name: "mode", Values: []string{"a"}},
		{Name: "format"},
		{Name: ""},
	}})
	require.Len(t, specs, 2)
	assert.Equal(t, "output format (values: pdf, html)", specs[0].Description)
	assert.Equal(t, "values: a", specs[1].Description)
}

func TestBuildParams(t *testing.T) {
	op := client.OperationInfo{Params: []client.OperationParam{
		{Name: "save", Type: "boolean"},
		{Name: "limit", Type: "integer"},
		{Name: "name", Type: "string"},
	}}
	specs := OptionSpecs(op)

	tests := []struct {
		name    string
		line    []string
		want    map[string]any
		wantErr string
	}{
		{
			name: "converted",
			line: []string{"--save", "--limit", "10", "--name", "x", "--unknown", "y"},
			want: map[string]any{"save": true, "limit": int64(10), "name": "x"},
		},
		{
			name: "attached false",
			line: []string{"--save=false"},
			want: map[string]any{"save": false},
		},
		{
			name: "separate false",
			line: []string{"--save", "false", "/ws"},
			want: map[string]any{"save": false},
		},
		{
			name: "bare flag before another flag",
			line: []string{"--save", "--limit", "3"},
			want: map[string]any{"save": true, "limit": int64(3)},
		},
		{
			name: "absent boolean",
			line: []string{"--name", "x"},
			want: map[string]any{"name": "x"},
		},
		{
			name:    "bad boolean",
			line:    []string{"--save", "maybe"},
			wantErr: `invalid value "maybe" for --save`,
		},
		{
			name: "empty integer kept",
			line: []string{"--limit"},
			want: map[string]any{"limit": ""},
		},
		{
			name:    "bad integer",
			line:    []string{"--limit", "ten"},
			wantErr: `invalid value "ten" for --limit`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildParams(op, cli.Parse(tt.line, specs))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOperationCommand(t *testing.T) {
	repo := helpers.NewRepository()
	t.Cleanup(repo.Close)
	repo.AddOperation(setProperty)
	doc := repo.AddDocument("/ws/a", "File", false)

	env, out := helpers.NewEnv(t)
	helpers.Connect(t, env, repo)
	NewBuilder(nil).Bind(env.Registry, []client.OperationInfo{setProperty})
	desc, _ := env.Registry.Lookup(setProperty.ID)

	run := func(line string) error {
		out.Reset()
		tokens := cli.Tokenize(line)
		return desc.Handler(context.Background(), env, cli.Parse(tokens[1:], desc.Options))
	}

	require.NoError(t, run("Document.SetProperty ws/a --xpath dc:title --value New --save"))
	assert.Contains(t, out.String(), "/ws/a - "+doc.UID)

	require.NoError(t, run("Document.SetProperty "+doc.UID+" --xpath dc:title"))
	require.NoError(t, run("Document.SetProperty --xpath dc:title"))
	require.NoError(t, run("Document.SetProperty --save false ws/a --xpath dc:title"))
	require.NoError(t, run("Document.SetProperty --save=false ws/a --xpath dc:title"))

	calls := repo.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, "doc:/ws/a", calls[0].Input)
	assert.Equal(t, map[string]any{"xpath": "dc:title", "value": "New", "save": true}, calls[0].Params)
	assert.Equal(t, "doc:"+doc.UID, calls[1].Input)
	assert.Nil(t, calls[2].Input)
	for _, c := range calls[3:] {
		assert.Equal(t, "doc:/ws/a", c.Input)
		assert.Equal(t, map[string]any{"xpath": "dc:title", "save": false}, c.Params)
	}

}

func TestOperationCommandBadParam(t *testing.T) {
	repo := helpers.NewRepository()
	t.Cleanup(repo.Close)
	count := client.OperationInfo{ID: "Repository.Count", Params: []client.OperationParam{{Name: "limit", Type: "integer"}}}
	repo.AddOperation(count)

	env, _ := helpers.NewEnv(t)
	helpers.Connect(t, env, repo)
	desc := NewBuilder(nil).Build([]client.OperationInfo{count})[0]

	err := desc.Handler(context.Background(), env, cli.Parse([]string{"--limit", "ten"}, desc.Options))
	var usage *cli.UsageError
	require.ErrorAs(t, err, &usage)
	assert.Empty(t, repo.Calls())
}

func TestOperationCommandDisconnected(t *testing.T) {
	env, _ := helpers.NewEnv(t)
	desc := NewBuilder(nil).Build([]client.OperationInfo{setProperty})[0]
	err := desc.Handler(context.Background(), env, cli.NewParsedArgs())
	assert.ErrorIs(t, err, cli.ErrNotConnected)
}

func TestInputRef(t *testing.T) {
	env, _ := helpers.NewEnv(t)
	id := "0f2d3c2a-8a59-4f6d-9c53-27b1a1b0a8f1"

	tests := []struct {
		arg  string
		want client.Ref
		ok   bool
	}{
		{"", client.Ref{}, false},
		{id, client.IDRef(id), true},
		{"doc:/a/b", client.PathRef("/a/b"), true},
		{"a/b", client.PathRef("/a/b"), true},
		{"doc:b", client.PathRef("/b"), true},
	}
	for _, tt := range tests {
		got, ok := InputRef(env.Session, tt.arg)
		assert.Equal(t, tt.ok, ok, tt.arg)
		assert.Equal(t, tt.want, got, tt.arg)
	}
}
