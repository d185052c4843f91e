package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nxshell/nxshell/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the state transitions of a session.
type recorder struct {
	states []string
}

func (r *recorder) record(_, to EditState) {
	r.states = append(r.states, to.String())
}

func newSession(editor *helpers.FakeEditor, prompter *helpers.ScriptedPrompter, upload func(context.Context, string) error) (*EditSession, *recorder, *bytes.Buffer) {
	rec := &recorder{}
	out := &bytes.Buffer{}
	return &EditSession{
		Name:         "doc",
		Original:     "dc:title: a\n",
		Editor:       editor,
		Prompter:     prompter,
		Upload:       upload,
		Out:          out,
		OnTransition: rec.record,
	}, rec, out
}

func TestEditSessionUpload(t *testing.T) {
	var uploaded []string
	s, rec, _ := newSession(
		helpers.NewFakeEditor(helpers.Replace("dc:title: b\n")),
		helpers.NewScriptedPrompter(true),
		func(_ context.Context, content string) error {
			uploaded = append(uploaded, content)
			return nil
		},
	)

	ok, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"dc:title: b\n"}, uploaded)
	assert.Equal(t, []string{"awaiting-upload-confirm", "uploading", "done"}, rec.states)
	assert.Equal(t, EditDone, s.State())
}

func TestEditSessionNoChanges(t *testing.T) {
	s, rec, out := newSession(
		helpers.NewFakeEditor(),
		helpers.NewScriptedPrompter(),
		func(context.Context, string) error { t.Fatal("unexpected upload"); return nil },
	)

	ok, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "No changes.\n", out.String())
	assert.Equal(t, []string{"done"}, rec.states)
}

func TestEditSessionDeclineUpload(t *testing.T) {
	s, _, _ := newSession(
		helpers.NewFakeEditor(helpers.Replace("x: y\n")),
		helpers.NewScriptedPrompter(false),
		func(context.Context, string) error { t.Fatal("unexpected upload"); return nil },
	)

	ok, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrCanceled)
	assert.False(t, ok)
	assert.Equal(t, EditDone, s.State())
}

func TestEditSessionRetry(t *testing.T) {
	editor := helpers.NewFakeEditor(helpers.Replace("bad"), helpers.Replace("good"))
	attempts := 0
	s, rec, out := newSession(editor, helpers.NewScriptedPrompter(true, true, true),
		func(_ context.Context, content string) error {
			attempts++
			if content == "bad" {
				return errors.New("invalid properties")
			}
			return nil
		},
	)

	ok, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []string{"dc:title: a\n", "bad"}, editor.Seen(), "retry edits the rejected text")
	assert.Contains(t, out.String(), "upload failed: invalid properties")
	assert.Equal(t, []string{
		"awaiting-upload-confirm", "uploading", "awaiting-retry-confirm",
		"editing", "awaiting-upload-confirm", "uploading", "done",
	}, rec.states)
}

func TestEditSessionDeclineRetry(t *testing.T) {
	s, rec, _ := newSession(
		helpers.NewFakeEditor(helpers.Replace("bad")),
		helpers.NewScriptedPrompter(true, false),
		func(context.Context, string) error { return errors.New("rejected") },
	)

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Equal(t, "done", rec.states[len(rec.states)-1])
}

func TestEditSessionEditorFailure(t *testing.T) {
	editor := helpers.NewFakeEditor()
	editor.Fail(errors.New("exit status 1"))
	s, _, _ := newSession(editor, helpers.NewScriptedPrompter(), func(context.Context, string) error { return nil })

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "editor failed: exit status 1")
}

func TestEditSessionIncomplete(t *testing.T) {
	_, err := (&EditSession{}).Run(context.Background())
	assert.Error(t, err)
}

func TestExternalEditor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "append.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'dc:source: edited' >> \"$1\"\n"), 0o700))

	e := &ExternalEditor{Command: "sh " + script, TempDir: dir}
	got, err := e.Edit(context.Background(), "my doc/with:odd chars", "dc:title: a\n")
	require.NoError(t, err)
	assert.Equal(t, "dc:title: a\ndc:source: edited\n", got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the temporary file is removed")
}

func TestExternalEditorErrors(t *testing.T) {
	_, err := (&ExternalEditor{Command: "   "}).Edit(context.Background(), "doc", "")
	assert.ErrorIs(t, err, ErrNoEditor)

	_, err = (&ExternalEditor{Command: `vi "unterminated`}).Edit(context.Background(), "doc", "")
	assert.Error(t, err)

	_, err = (&ExternalEditor{Command: "false", TempDir: t.TempDir()}).Edit(context.Background(), "doc", "")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "false: "))
}

func TestNewExternalEditor(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "nano -w")
	assert.Equal(t, "nano -w", NewExternalEditor("").Command)
	assert.Equal(t, "code --wait", NewExternalEditor("code --wait").Command)

	t.Setenv("EDITOR", "")
	assert.Equal(t, DefaultEditor, NewExternalEditor("").Command)
}
