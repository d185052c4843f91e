package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nxshell/nxshell/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	a, err := auth.NewBasicAuth("Administrator", "Administrator")
	require.NoError(t, err)
	c, err := New(Options{BaseURL: server.URL + "/nuxeo", Auth: a, Schemas: []string{"dublincore"}})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewNormalizesBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"http://localhost:8080/nuxeo", "http://localhost:8080/nuxeo/", false},
		{"http://localhost:8080/nuxeo/", "http://localhost:8080/nuxeo/", false},
		{"localhost:8080/nuxeo", "http://localhost:8080/nuxeo/", false},
		{"", "", true},
		{"ftp://host/", "", true},
	}
	for _, tt := range tests {
		c, err := New(Options{BaseURL: tt.in})
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, c.BaseURL())
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, map[string]string{"entity-type": "document"})
	})

	_, err := c.Document(context.Background(), PathRef("/default-domain"))
	require.NoError(t, err)

	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "dublincore", got.Get("X-NXproperties"))
	_, err = uuid.Parse(got.Get("X-Request-ID"))
	assert.NoError(t, err, "request id must be a uuid")
	user, pass, ok := (&http.Request{Header: got}).BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "Administrator", user)
	assert.Equal(t, "Administrator", pass)
}

func TestDocumentPaths(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		writeJSON(w, map[string]any{"entity-type": "documents", "entries": []any{}})
	})
	ctx := context.Background()

	_, _ = c.Fetch(ctx, PathRef("/"))
	_, _ = c.Fetch(ctx, PathRef("/a b/c"))
	_, _ = c.Fetch(ctx, IDRef("1234"))
	_, _ = c.Children(ctx, PathRef("/"), Page{})
	_, _ = c.Children(ctx, PathRef("/a"), Page{})

	assert.Equal(t, []string{
		"/nuxeo/api/v1/path/",
		"/nuxeo/api/v1/path/a%20b/c",
		"/nuxeo/api/v1/id/1234",
		"/nuxeo/api/v1/path/@children",
		"/nuxeo/api/v1/path/a/@children",
	}, paths)
}

func TestRepositoryPrefix(t *testing.T) {
	c, err := New(Options{BaseURL: "http://h/nuxeo/", Repository: "other"})
	require.NoError(t, err)
	assert.Equal(t, "http://h/nuxeo/api/v1/repo/other/path/a", c.API(PathRef("/a").resource()).URL())

	c, err = New(Options{BaseURL: "http://h/nuxeo/", Repository: "default"})
	require.NoError(t, err)
	assert.Equal(t, "http://h/nuxeo/api/v1/path/a", c.API(PathRef("/a").resource()).URL())
}

func TestQueryPagination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nuxeo/api/v1/query", r.URL.Path)
		assert.Equal(t, "SELECT * FROM Document", r.URL.Query().Get("query"))
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "2", r.URL.Query().Get("currentPageIndex"))
		writeJSON(w, map[string]any{
			"entity-type":      "documents",
			"currentPageIndex": 2,
			"entries":          []any{map[string]any{"entity-type": "document", "path": "/x"}},
		})
	})

	list, err := c.Query(context.Background(), "SELECT * FROM Document", Page{Size: 20, Index: 2})
	require.NoError(t, err)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "/x", list.Entries[0].Path)
	assert.Equal(t, 2, list.CurrentPageIndex)
}

func TestRemoteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"entity-type":"exception","status":404,"message":"/nope"}`)
	})

	_, err := c.Document(context.Background(), PathRef("/nope"))
	require.Error(t, err)

	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 404, re.StatusCode)
	assert.Equal(t, "HTTP 404: /nope", err.Error())
	assert.True(t, IsNotFound(err))
	assert.Contains(t, string(re.Body), "exception")
}

func TestRemoteErrorRawBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "  ", "HTTP 502"},
		{"short", "Bad Gateway", "HTTP 502: Bad Gateway"},
		{"ascii truncated", strings.Repeat("x", 250), "HTTP 502: " + strings.Repeat("x", 200) + "..."},
		{"accents truncated", strings.Repeat("é", 250), "HTTP 502: " + strings.Repeat("é", 200) + "..."},
		{"exact length kept", strings.Repeat("é", 200), "HTTP 502: " + strings.Repeat("é", 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &RemoteError{StatusCode: 502, Body: []byte(tt.body)}
			assert.Equal(t, tt.want, err.Error())
			assert.True(t, utf8.ValidString(err.Error()))
		})
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		wantErr bool
	}{
		{"ok", map[string]any{"entity-type": "login", "username": "Administrator"}, false},
		{"wrong user", map[string]any{"entity-type": "login", "username": "Guest"}, true},
		{"wrong type", map[string]any{"entity-type": "document"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/nuxeo/site/automation/login", r.URL.Path)
				writeJSON(w, tt.payload)
			})
			login, err := c.Login(context.Background())
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnexpectedLogin), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Administrator", login.Username)
		})
	}
}

func TestOperations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nuxeo/site/automation", r.URL.Path)
		writeJSON(w, map[string]any{
			"operations": []any{
				map[string]any{"id": "Document.Fetch", "params": []any{map[string]any{"name": "value", "required": true}}},
				map[string]any{"id": "Blob.Attach"},
			},
			"chains": []any{map[string]any{"id": "Chain.Custom"}},
		})
	})

	ops, err := c.Operations(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(ops))
	for i, op := range ops {
		ids[i] = op.ID
	}
	assert.Equal(t, []string{"Blob.Attach", "Chain.Custom", "Document.Fetch"}, ids)
	assert.True(t, ops[2].Params[0].Required)
}

func TestOperationExecute(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nuxeo/site/automation/Document.Copy", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, map[string]any{"entity-type": "document", "path": "/b/a"})
	})

	resp, err := c.Operation("Document.Copy").
		Input(PathRef("/a")).
		Param("name", "a").
		Execute(context.Background(), map[string]any{"target": "/b"})
	require.NoError(t, err)
	assert.Equal(t, "document", resp.EntityType())

	assert.Equal(t, "doc:/a", body["input"])
	assert.Equal(t, map[string]any{"name": "a", "target": "/b"}, body["params"])
}

func TestOperationBlob(t *testing.T) {
	var parts []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			data, _ := io.ReadAll(p)
			parts = append(parts, p.Header.Get("Content-ID")+":"+strings.TrimSpace(string(data)))
		}
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := c.Operation("Blob.AttachOnDocument").
		Param("document", "/a").
		Blob(&Blob{Name: "f.txt", ContentType: "text/plain", Content: strings.NewReader("hello")}).
		Execute(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, parts, 2)
	assert.Equal(t, `request:{"params":{"document":"/a"}}`, parts[0])
	assert.Equal(t, "input:hello", parts[1])
}

func TestResponseEntityType(t *testing.T) {
	tests := []struct {
		ct, body, want string
	}{
		{"application/json", `{"entity-type":"login"}`, "login"},
		{"application/json", `[1,2]`, ""},
		{"text/plain", `{"entity-type":"login"}`, ""},
		{"", ``, ""},
	}
	for _, tt := range tests {
		r := &Response{Header: http.Header{"Content-Type": {tt.ct}}, Body: []byte(tt.body)}
		assert.Equal(t, tt.want, r.EntityType(), tt.body)
	}
}

func TestDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nuxeo/api/v1/path/a/@blob/file:content", r.URL.Path)
		_, _ = io.WriteString(w, "content")
	})

	var sb strings.Builder
	n, err := c.Download(context.Background(), PathRef("/a"), "file:content", &sb)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.Equal(t, "content", sb.String())
}
