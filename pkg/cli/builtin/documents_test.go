package builtin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nxshell/nxshell/internal/executor"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/nxshell/nxshell/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWorkspace(s *shell) {
	s.repo.AddDocument("/ws/a", "File", false)
	s.repo.AddDocument("/ws/b", "Note", false)
	s.repo.AddDocument("/ws/c", "Folder", true)
}

func TestLs(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)
	a, _ := s.repo.Document("/ws/a")

	require.NoError(t, s.run("ls ws"))
	assert.Contains(t, s.output(), "/ws/a - "+a.UID)
	assert.Contains(t, s.output(), "/ws/b - ")
	assert.Contains(t, s.output(), "/ws/c - ")
	assert.Contains(t, s.output(), "End of page.")
}

func TestLsWhereAndTemplate(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)

	require.NoError(t, s.run(`ls -w "type == 'File' || folderish" --template "{name}:{type}" ws`))
	assert.Equal(t, "a:File\nc:Folder\n", s.output())

	err := s.run(`ls -w "1 +" ws`)
	require.Error(t, err)
	assert.Contains(t, s.output(), "invalid --where expression")
}

func TestLsPagination(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)

	require.NoError(t, s.run("ls -s 2 ws"))
	assert.Contains(t, s.output(), "Page 1 of 2 (3 results).")
	assert.NotContains(t, s.output(), "/ws/c")

	require.NoError(t, s.run("ls -s 2 -p 1 ws"))
	assert.Contains(t, s.output(), "/ws/c")
	assert.Contains(t, s.output(), "End of page.")

	require.Error(t, s.run("ls -s many ws"))
	assert.Contains(t, s.output(), `invalid --page-size "many"`)
}

func TestLsJSON(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)

	require.NoError(t, s.run("ls -o json ws"))
	assert.Contains(t, s.output(), `"entity-type": "documents"`)
}

func TestCat(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)

	require.NoError(t, s.run("cat ws/a"))
	assert.Contains(t, s.output(), "type: File")
	assert.Contains(t, s.output(), "dc:title")

	last := s.repo.LastRequest()
	assert.Equal(t, "*", last.Headers.Get("X-NXproperties"))
}

func TestMkdir(t *testing.T) {
	s := newShell(t).connect()
	s.repo.AddDocument("/ws", "Workspace", true)

	require.NoError(t, s.run("cd ws"))
	require.NoError(t, s.run(`mkdir --title "Quarterly reports" reports`))
	doc, ok := s.repo.Document("/ws/reports")
	require.True(t, ok)
	assert.Equal(t, "Folder", doc.Type)
	assert.Equal(t, "Quarterly reports", doc.Title)

	require.NoError(t, s.run("mkdir -t Note /ws/readme"))
	doc, ok = s.repo.Document("/ws/readme")
	require.True(t, ok)
	assert.Equal(t, "Note", doc.Type)

	require.Error(t, s.run("mkdir reports"))
	assert.Contains(t, s.output(), "409")
}

func TestRmConfirmation(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)

	prompter := helpers.NewScriptedPrompter(false, true)
	s.env.Prompter = prompter

	err := s.run("rm ws/a")
	assert.ErrorIs(t, err, executor.ErrCanceled)
	assert.Contains(t, s.output(), "Operation canceled")
	_, ok := s.repo.Document("/ws/a")
	assert.True(t, ok, "declined delete keeps the document")

	require.NoError(t, s.run("rm ws/a ws/b"))
	assert.Contains(t, s.output(), "Deleted /ws/a")
	assert.Contains(t, s.output(), "Deleted /ws/b")
	_, ok = s.repo.Document("/ws/a")
	assert.False(t, ok)

	assert.Equal(t, []string{"Delete /ws/a?", "Delete /ws/a, /ws/b?"}, prompter.Asked())
}

func TestRmForce(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)

	require.NoError(t, s.run("rm -f ws/c"))
	_, ok := s.repo.Document("/ws/c")
	assert.False(t, ok)
}

func TestRmCurrentLocation(t *testing.T) {
	tests := []struct {
		name string
		cwd  string
		line func(s *shell) string
		want string
	}{
		{"itself", "/ws/c/d", func(*shell) string { return "rm -f ." }, "/ws/c"},
		{"parent", "/ws/c/d", func(*shell) string { return "rm -f /ws/c" }, "/ws"},
		{"by uid", "/ws/c/d", func(s *shell) string {
			doc, _ := s.repo.Document("/ws/c")
			return "rm -f -i " + doc.UID
		}, "/ws"},
		{"sibling", "/ws/c/d", func(*shell) string { return "rm -f /ws/a" }, "/ws/c/d"},
		{"name prefix", "/ws/c/d", func(*shell) string { return "rm -f /ws/c/d2" }, "/ws/c/d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newShell(t).connect()
			seedWorkspace(s)
			s.repo.AddDocument("/ws/c/d", "Folder", true)
			s.repo.AddDocument("/ws/c/d2", "Folder", true)
			require.NoError(t, s.run("cd "+tt.cwd))

			require.NoError(t, s.run(tt.line(s)))
			assert.Equal(t, tt.want, s.env.Session.CurrentPath())

			require.NoError(t, s.run("ls"))
			assert.NotContains(t, s.output(), "HTTP 404")
		})
	}
}

func TestRmRoot(t *testing.T) {
	s := newShell(t).connect()
	require.Error(t, s.run("rm -f /"))
	assert.Contains(t, s.output(), "refusing to delete the root")
}

func TestCpMv(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)

	// Into an existing folder.
	require.NoError(t, s.run("cp ws/a ws/c"))
	_, ok := s.repo.Document("/ws/c/a")
	assert.True(t, ok)

	// To a new name.
	require.NoError(t, s.run("cp ws/a ws/a-copy"))
	_, ok = s.repo.Document("/ws/a-copy")
	assert.True(t, ok)

	require.NoError(t, s.run("mv ws/b ws/c/renamed"))
	_, ok = s.repo.Document("/ws/b")
	assert.False(t, ok)
	_, ok = s.repo.Document("/ws/c/renamed")
	assert.True(t, ok)

	// Onto an existing document.
	require.Error(t, s.run("mv ws/a ws/a-copy"))
	assert.Contains(t, s.output(), "already exists")

	calls := s.repo.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Document.Copy", calls[0].ID)
	assert.Equal(t, "doc:/ws/a", calls[0].Input)
	assert.Equal(t, "/ws/c", calls[0].Params["target"])
	assert.Equal(t, "a-copy", calls[1].Params["name"])
	assert.Equal(t, "Document.Move", calls[2].ID)
	assert.Equal(t, "/ws/c", calls[2].Params["target"])
	assert.Equal(t, "renamed", calls[2].Params["name"])
}

func TestAudit(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)

	require.NoError(t, s.run("audit ws/a"))
	assert.Contains(t, s.output(), "documentCreated")
}

func TestGetAndPut(t *testing.T) {
	s := newShell(t).connect()
	seedWorkspace(s)
	dir := t.TempDir()

	local := filepath.Join(dir, "upload.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello"), 0o600))

	require.NoError(t, s.run("put "+local+" ws/a"))
	assert.Contains(t, s.output(), "Uploaded upload.txt")
	blob, ok := s.repo.Blob("/ws/a")
	require.True(t, ok)
	assert.Equal(t, "hello", string(blob))

	calls := s.repo.Calls()
	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	assert.Equal(t, "Blob.AttachOnDocument", last.ID)
	assert.Equal(t, "/ws/a", last.Params["document"])
	assert.Equal(t, DefaultBlobXPath, last.Params["xpath"])

	downloaded := filepath.Join(dir, "download.txt")
	require.NoError(t, s.run("get ws/a "+downloaded))
	assert.Contains(t, s.output(), "Downloaded 5 bytes")
	data, err := os.ReadFile(downloaded)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	missing := filepath.Join(dir, "missing.txt")
	require.Error(t, s.run("get ws/b "+missing))
	_, err = os.Stat(missing)
	assert.True(t, os.IsNotExist(err), "a failed download leaves no file")
}

func TestImport(t *testing.T) {
	s := newShell(t).connect()
	s.repo.AddDocument("/ws", "Workspace", true)
	local := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(local, []byte("# notes"), 0o600))

	require.NoError(t, s.run("cd ws"))
	require.NoError(t, s.run("import "+local))
	assert.Contains(t, s.output(), "/ws/notes.md - ")
	blob, ok := s.repo.Blob("/ws/notes.md")
	require.True(t, ok)
	assert.Equal(t, "# notes", string(blob))
}

func TestBrowse(t *testing.T) {
	s := newShell(t).connect()
	doc := s.repo.AddDocument("/ws/a b", "File", false)

	require.NoError(t, s.run(`browse "ws/a b"`))
	require.NoError(t, s.run("browse -i "+doc.UID))
	assert.Equal(t, []string{
		s.repo.URL() + "ui/#!/browse/ws/a%20b",
		s.repo.URL() + "ui/#!/doc/" + doc.UID,
	}, s.browser.URLs())
}

func TestBrowseURL(t *testing.T) {
	assert.Equal(t, "http://h/nuxeo/ui/#!/browse/", BrowseURL("http://h/nuxeo", client.PathRef("/")))
	assert.Equal(t, "http://h/nuxeo/ui/#!/doc/123", BrowseURL("http://h/nuxeo/", client.IDRef("123")))
}
