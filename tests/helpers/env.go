package helpers

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nxshell/nxshell/pkg/auth"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/nxshell/nxshell/pkg/config"
	"github.com/nxshell/nxshell/pkg/output"
	"github.com/nxshell/nxshell/pkg/state"
	"github.com/pterm/pterm"
)

// ScriptedPrompter answers prompts from a script and records the questions.
type ScriptedPrompter struct {
	mu        sync.Mutex
	confirms  []bool
	lines     []string
	passwords []string
	asked     []string
}

// NewScriptedPrompter creates a prompter answering confirmations in order.
func NewScriptedPrompter(confirms ...bool) *ScriptedPrompter {
	return &ScriptedPrompter{confirms: confirms}
}

// WithLines queues answers to ReadLine.
func (p *ScriptedPrompter) WithLines(lines ...string) *ScriptedPrompter {
	p.lines = append(p.lines, lines...)
	return p
}

// WithPasswords queues answers to Password.
func (p *ScriptedPrompter) WithPasswords(passwords ...string) *ScriptedPrompter {
	p.passwords = append(p.passwords, passwords...)
	return p
}

// Confirm pops the next scripted answer. An exhausted script fails.
func (p *ScriptedPrompter) Confirm(message string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, message)
	if len(p.confirms) == 0 {
		return false, fmt.Errorf("unexpected confirmation: %s", message)
	}
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

// ReadLine pops the next scripted line.
func (p *ScriptedPrompter) ReadLine(prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, prompt)
	if len(p.lines) == 0 {
		return "", fmt.Errorf("unexpected prompt: %s", prompt)
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

// Password pops the next scripted password.
func (p *ScriptedPrompter) Password(message string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, message)
	if len(p.passwords) == 0 {
		return "", fmt.Errorf("unexpected password prompt: %s", message)
	}
	pw := p.passwords[0]
	p.passwords = p.passwords[1:]
	return pw, nil
}

// Asked returns every prompt shown so far.
func (p *ScriptedPrompter) Asked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.asked...)
}

// FakeEditor replaces the text it is given by the next scripted edit.
type FakeEditor struct {
	mu    sync.Mutex
	edits []func(string) string
	seen  []string
	err   error
}

// NewFakeEditor creates an editor applying edits in order. Once exhausted it
// returns its input unchanged.
func NewFakeEditor(edits ...func(string) string) *FakeEditor {
	return &FakeEditor{edits: edits}
}

// Fail makes every later Edit fail with err.
func (e *FakeEditor) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Edit implements cli.Editor.
func (e *FakeEditor) Edit(_ context.Context, _ string, content string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, content)
	if e.err != nil {
		return "", e.err
	}
	if len(e.edits) == 0 {
		return content, nil
	}
	edit := e.edits[0]
	e.edits = e.edits[1:]
	return edit(content), nil
}

// Seen returns the texts the editor was opened on.
func (e *FakeEditor) Seen() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.seen...)
}

// Replace returns an edit replacing the whole text.
func Replace(text string) func(string) string {
	return func(string) string { return text }
}

// NewEnv returns a disconnected shell environment writing to the returned
// buffer, with colors and spinners off.
func NewEnv(t *testing.T) (*cli.Env, *bytes.Buffer) {
	t.Helper()
	pterm.DisableColor()

	cfg := config.Default()
	cfg.Progress.Enabled = false
	cfg.Keyring.Enabled = false
	cfg.Output.Color = false

	out := &bytes.Buffer{}
	return &cli.Env{
		Session:  state.NewSession(),
		History:  state.NewHistory("", config.MaxHistorySize),
		Registry: cli.NewRegistry(),
		Config:   cfg,
		Printer:  output.NewPrinter(out, output.FormatPretty, false),
		Out:      out,
	}, out
}

// Connect opens a session on repo as the default user, located at the root.
func Connect(t *testing.T, env *cli.Env, repo *Repository) *client.Client {
	t.Helper()
	ctx := context.Background()
	authn, err := auth.NewBasicAuth(DefaultUsername, DefaultPassword)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	c, err := client.New(client.Options{BaseURL: repo.URL(), Auth: authn})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	login, err := c.Login(ctx)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	root, err := c.Document(ctx, client.PathRef("/"))
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if err := env.Session.Connect(c, login.Username, root); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return c
}
