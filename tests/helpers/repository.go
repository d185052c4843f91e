package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nxshell/nxshell/pkg/client"
)

// Default credentials accepted by a Repository.
const (
	DefaultUsername = "Administrator"
	DefaultPassword = "Administrator"
)

// OperationCall records one automation call received by a Repository.
type OperationCall struct {
	ID      string
	Input   any
	Params  map[string]any
	Context map[string]any
	// Blob is the input file of multipart calls.
	Blob     []byte
	BlobName string
}

// Repository is an in-memory Nuxeo server: login, operation registry,
// document tree, query, audit, blobs, users and groups.
//
// Exact handlers registered with On take precedence, so a test can override
// any endpoint.
type Repository struct {
	*MockServer

	mu         sync.Mutex
	username   string
	password   string
	token      string
	tokenUser  string
	docs       map[string]*client.Document
	blobs      map[string][]byte
	users      map[string]*client.User
	groups     map[string]*client.Group
	operations []client.OperationInfo
	calls      []OperationCall
}

// NewRepository starts a repository holding only the root folder and the
// built-in copy, move, attach and import operations.
func NewRepository() *Repository {
	r := &Repository{
		MockServer: NewMockServer(),
		username:   DefaultUsername,
		password:   DefaultPassword,
		docs:       make(map[string]*client.Document),
		blobs:      make(map[string][]byte),
		users:      make(map[string]*client.User),
		groups:     make(map[string]*client.Group),
	}
	r.docs["/"] = &client.Document{
		EntityType: client.EntityDocument,
		Repository: "default",
		UID:        uuid.NewString(),
		Path:       "/",
		Type:       "Root",
		State:      "project",
		Facets:     []string{"Folderish"},
	}
	r.operations = []client.OperationInfo{
		{ID: "Document.Copy", Label: "Copy", Category: "Document", Params: []client.OperationParam{
			{Name: "target", Type: "document", Required: true},
			{Name: "name", Type: "string"},
		}},
		{ID: "Document.Move", Label: "Move", Category: "Document", Params: []client.OperationParam{
			{Name: "target", Type: "document", Required: true},
			{Name: "name", Type: "string"},
		}},
		{ID: "Blob.AttachOnDocument", Label: "Attach File", Category: "Files", Params: []client.OperationParam{
			{Name: "document", Type: "document", Required: true},
			{Name: "xpath", Type: "string"},
		}},
		{ID: "FileManager.Import", Label: "Create Document from file", Category: "Services"},
	}
	r.Fallback(r.serve)
	return r
}

// SetCredentials changes the accepted basic credentials.
func (r *Repository) SetCredentials(username, password string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.username, r.password = username, password
}

// SetToken makes the repository accept a bearer token for user.
func (r *Repository) SetToken(token, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token, r.tokenUser = token, user
}

// AddDocument creates a document and returns a copy of it. Missing parents
// are created as folders.
func (r *Repository) AddDocument(p, docType string, folderish bool) *client.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.addLocked(path.Clean("/"+p), docType, folderish)
	cp := *doc
	return &cp
}

func (r *Repository) addLocked(p, docType string, folderish bool) *client.Document {
	if doc, ok := r.docs[p]; ok {
		return doc
	}
	parent := path.Dir(p)
	if _, ok := r.docs[parent]; !ok {
		r.addLocked(parent, "Folder", true)
	}
	name := path.Base(p)
	doc := &client.Document{
		EntityType:   client.EntityDocument,
		Repository:   "default",
		UID:          uuid.NewString(),
		Path:         p,
		Type:         docType,
		State:        "project",
		ParentRef:    r.docs[parent].UID,
		Title:        name,
		Name:         name,
		LastModified: "2024-01-01T00:00:00.000Z",
		Properties:   map[string]any{"dc:title": name},
	}
	if folderish {
		doc.Facets = []string{"Folderish"}
	}
	r.docs[p] = doc
	return doc
}

// Document returns a copy of the document at p.
func (r *Repository) Document(p string) (*client.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[path.Clean("/"+p)]
	if !ok {
		return nil, false
	}
	cp := *doc
	return &cp, true
}

// SetBlob stores the main file of the document at p.
func (r *Repository) SetBlob(p string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[path.Clean("/"+p)] = content
}

// Blob returns the main file of the document at p.
func (r *Repository) Blob(p string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blobs[path.Clean("/"+p)]
	return b, ok
}

// AddUser creates a user.
func (r *Repository) AddUser(id string, properties map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if properties == nil {
		properties = map[string]any{}
	}
	properties["username"] = id
	r.users[id] = &client.User{EntityType: client.EntityUser, ID: id, Properties: properties}
}

// User returns a user.
func (r *Repository) User(id string) (*client.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return u, ok
}

// AddGroup creates a group.
func (r *Repository) AddGroup(name string, members ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[name] = &client.Group{EntityType: client.EntityGroup, GroupName: name, GroupLabel: name, MemberUsers: members}
}

// Group returns a group.
func (r *Repository) Group(name string) (*client.Group, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	return g, ok
}

// AddOperation advertises an operation.
func (r *Repository) AddOperation(op client.OperationInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, op)
}

// Calls returns the automation calls received.
func (r *Repository) Calls() []OperationCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OperationCall{}, r.calls...)
}

func (r *Repository) serve(w http.ResponseWriter, req *http.Request) {
	user, ok := r.authenticate(req)
	if !ok {
		ErrorResponse(http.StatusUnauthorized, "Unauthorized")(w, req)
		return
	}

	p := req.URL.Path
	switch {
	case p == "/site/automation/login" && req.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, client.Login{EntityType: client.EntityLogin, Username: user, IsAdministrator: true})
	case p == "/site/automation" && req.Method == http.MethodGet:
		r.mu.Lock()
		ops := append([]client.OperationInfo{}, r.operations...)
		r.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"operations": ops, "chains": []any{}})
	case strings.HasPrefix(p, "/site/automation/") && req.Method == http.MethodPost:
		r.execute(w, req, strings.TrimPrefix(p, "/site/automation/"))
	case strings.HasPrefix(p, "/api/v1/"):
		r.api(w, req, strings.TrimPrefix(p, "/api/v1/"))
	default:
		ErrorResponse(http.StatusNotFound, "not found: "+p)(w, req)
	}
}

func (r *Repository) authenticate(req *http.Request) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, pw, ok := req.BasicAuth(); ok {
		return u, u == r.username && pw == r.password
	}
	if r.token != "" && req.Header.Get("Authorization") == "Bearer "+r.token {
		return r.tokenUser, true
	}
	return "", false
}

func (r *Repository) api(w http.ResponseWriter, req *http.Request, rest string) {
	if strings.HasPrefix(rest, "repo/") {
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) < 3 {
			ErrorResponse(http.StatusNotFound, "missing resource")(w, req)
			return
		}
		rest = parts[2]
	}

	switch {
	case rest == "query":
		r.query(w, req)
	case rest == client.KindUser || strings.HasPrefix(rest, client.KindUser+"/"):
		r.serveUsers(w, req, strings.TrimPrefix(strings.TrimPrefix(rest, client.KindUser), "/"))
	case rest == client.KindGroup || strings.HasPrefix(rest, client.KindGroup+"/"):
		r.serveGroups(w, req, strings.TrimPrefix(strings.TrimPrefix(rest, client.KindGroup), "/"))
	case rest == "path" || strings.HasPrefix(rest, "path/") || strings.HasPrefix(rest, "id/"):
		r.document(w, req, rest)
	default:
		ErrorResponse(http.StatusNotFound, "unknown resource "+rest)(w, req)
	}
}

func (r *Repository) document(w http.ResponseWriter, req *http.Request, rest string) {
	target, adapter := rest, ""
	if i := strings.Index(rest, "/@"); i >= 0 {
		target, adapter = rest[:i], rest[i+2:]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var doc *client.Document
	if strings.HasPrefix(target, "id/") {
		uid := strings.TrimPrefix(target, "id/")
		for _, d := range r.docs {
			if d.UID == uid {
				doc = d
				break
			}
		}
	} else {
		doc = r.docs[path.Clean("/"+strings.TrimPrefix(target, "path"))]
	}

	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"entity-type": client.EntityException,
			"status":      http.StatusNotFound,
			"message":     target,
		})
		return
	}

	switch {
	case adapter == "children" && req.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, paginate(r.childrenLocked(doc.Path), req))
	case adapter == "audit" && req.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"entity-type": client.EntityLogs,
			"entries": []client.LogEntry{{
				ID:            1,
				Category:      "eventDocumentCategory",
				EventID:       "documentCreated",
				PrincipalName: DefaultUsername,
				EventDate:     "2024-01-01T00:00:00.000Z",
				DocPath:       doc.Path,
				DocType:       doc.Type,
				DocLifeCycle:  doc.State,
			}},
		})
	case strings.HasPrefix(adapter, "blob/") && req.Method == http.MethodGet:
		blob, ok := r.blobs[doc.Path]
		if !ok {
			ErrorResponse(http.StatusNotFound, "no blob")(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(blob)
	case adapter != "":
		ErrorResponse(http.StatusNotFound, "unknown adapter "+adapter)(w, req)
	case req.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, doc)
	case req.Method == http.MethodPut:
		var body client.Document
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			ErrorResponse(http.StatusBadRequest, err.Error())(w, req)
			return
		}
		if doc.Properties == nil {
			doc.Properties = map[string]any{}
		}
		for k, v := range body.Properties {
			doc.Properties[k] = v
			if k == "dc:title" {
				doc.Title = fmt.Sprint(v)
			}
		}
		writeJSON(w, http.StatusOK, doc)
	case req.Method == http.MethodPost:
		var body client.Document
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			ErrorResponse(http.StatusBadRequest, err.Error())(w, req)
			return
		}
		p := path.Join(doc.Path, body.Name)
		if _, exists := r.docs[p]; exists {
			ErrorResponse(http.StatusConflict, "document already exists: "+p)(w, req)
			return
		}
		created := r.addLocked(p, body.Type, body.Type == "Folder" || body.Type == "Workspace")
		for k, v := range body.Properties {
			created.Properties[k] = v
			if k == "dc:title" {
				created.Title = fmt.Sprint(v)
			}
		}
		writeJSON(w, http.StatusCreated, created)
	case req.Method == http.MethodDelete:
		if doc.Path == "/" {
			ErrorResponse(http.StatusBadRequest, "cannot delete the root")(w, req)
			return
		}
		r.removeLocked(doc.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		ErrorResponse(http.StatusMethodNotAllowed, req.Method)(w, req)
	}
}

func (r *Repository) childrenLocked(parent string) []client.Document {
	var out []client.Document
	for p, d := range r.docs {
		if p != "/" && path.Dir(p) == parent {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (r *Repository) removeLocked(p string) {
	for k := range r.docs {
		if k == p || strings.HasPrefix(k, p+"/") {
			delete(r.docs, k)
			delete(r.blobs, k)
		}
	}
}

// moveLocked renames the subtree at src to dst.
func (r *Repository) moveLocked(src, dst string) {
	var moved []string
	for k := range r.docs {
		if k == src || strings.HasPrefix(k, src+"/") {
			moved = append(moved, k)
		}
	}
	for _, k := range moved {
		d := r.docs[k]
		np := dst + strings.TrimPrefix(k, src)
		delete(r.docs, k)
		d.Path = np
		d.Name = path.Base(np)
		r.docs[np] = d
		if b, ok := r.blobs[k]; ok {
			delete(r.blobs, k)
			r.blobs[np] = b
		}
	}
}

// query answers every non-root document, filtered on the ecm:path STARTSWITH
// clause when present.
func (r *Repository) query(w http.ResponseWriter, req *http.Request) {
	nxql := req.URL.Query().Get("query")
	prefix := ""
	if i := strings.Index(nxql, "STARTSWITH '"); i >= 0 {
		rest := nxql[i+len("STARTSWITH '"):]
		if j := strings.Index(rest, "'"); j >= 0 {
			prefix = rest[:j]
		}
	}

	r.mu.Lock()
	var docs []client.Document
	for p, d := range r.docs {
		if p == "/" {
			continue
		}
		if prefix != "" && prefix != "/" && !strings.HasPrefix(p, strings.TrimSuffix(prefix, "/")+"/") {
			continue
		}
		docs = append(docs, *d)
	}
	r.mu.Unlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	writeJSON(w, http.StatusOK, paginate(docs, req))
}

func paginate(docs []client.Document, req *http.Request) client.DocumentList {
	size, _ := strconv.Atoi(req.URL.Query().Get("pageSize"))
	index, _ := strconv.Atoi(req.URL.Query().Get("currentPageIndex"))
	if docs == nil {
		docs = []client.Document{}
	}
	list := client.DocumentList{
		EntityType:   client.EntityDocuments,
		IsPaginable:  true,
		ResultsCount: len(docs),
	}
	if size <= 0 {
		list.PageSize = len(docs)
		list.CurrentPageSize = len(docs)
		list.NumberOfPages = 1
		list.Entries = docs
		return list
	}

	list.PageSize = size
	list.CurrentPageIndex = index
	list.NumberOfPages = (len(docs) + size - 1) / size
	start := index * size
	if start > len(docs) {
		start = len(docs)
	}
	end := start + size
	if end > len(docs) {
		end = len(docs)
	}
	list.Entries = docs[start:end]
	list.CurrentPageSize = len(list.Entries)
	list.IsPreviousPageAvailable = index > 0
	list.IsNextPageAvailable = end < len(docs)
	return list
}

func (r *Repository) serveUsers(w http.ResponseWriter, req *http.Request, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case name == "search" && req.Method == http.MethodGet:
		q := strings.Trim(req.URL.Query().Get("q"), "*")
		entries := []client.User{}
		for _, id := range sortedKeys(r.users) {
			if strings.HasPrefix(id, q) {
				entries = append(entries, *r.users[id])
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"entity-type": client.EntityUsers, "entries": entries})
	case name == "" && req.Method == http.MethodPost:
		var u client.User
		if err := json.NewDecoder(req.Body).Decode(&u); err != nil || u.ID == "" {
			ErrorResponse(http.StatusBadRequest, "invalid user")(w, req)
			return
		}
		if _, exists := r.users[u.ID]; exists {
			ErrorResponse(http.StatusConflict, "user already exists: "+u.ID)(w, req)
			return
		}
		u.EntityType = client.EntityUser
		r.users[u.ID] = &u
		writeJSON(w, http.StatusCreated, u)
	default:
		u, ok := r.users[name]
		if !ok {
			ErrorResponse(http.StatusNotFound, "user not found: "+name)(w, req)
			return
		}
		switch req.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, u)
		case http.MethodPut:
			var body client.User
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				ErrorResponse(http.StatusBadRequest, err.Error())(w, req)
				return
			}
			for k, v := range body.Properties {
				u.Properties[k] = v
			}
			writeJSON(w, http.StatusOK, u)
		case http.MethodDelete:
			delete(r.users, name)
			w.WriteHeader(http.StatusNoContent)
		default:
			ErrorResponse(http.StatusMethodNotAllowed, req.Method)(w, req)
		}
	}
}

func (r *Repository) serveGroups(w http.ResponseWriter, req *http.Request, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case name == "search" && req.Method == http.MethodGet:
		q := strings.Trim(req.URL.Query().Get("q"), "*")
		entries := []client.Group{}
		for _, n := range sortedKeys(r.groups) {
			if strings.HasPrefix(n, q) {
				entries = append(entries, *r.groups[n])
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"entity-type": client.EntityGroups, "entries": entries})
	case name == "" && req.Method == http.MethodPost:
		var g client.Group
		if err := json.NewDecoder(req.Body).Decode(&g); err != nil || g.GroupName == "" {
			ErrorResponse(http.StatusBadRequest, "invalid group")(w, req)
			return
		}
		if _, exists := r.groups[g.GroupName]; exists {
			ErrorResponse(http.StatusConflict, "group already exists: "+g.GroupName)(w, req)
			return
		}
		g.EntityType = client.EntityGroup
		r.groups[g.GroupName] = &g
		writeJSON(w, http.StatusCreated, g)
	default:
		g, ok := r.groups[name]
		if !ok {
			ErrorResponse(http.StatusNotFound, "group not found: "+name)(w, req)
			return
		}
		switch req.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, g)
		case http.MethodPut:
			var body client.Group
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				ErrorResponse(http.StatusBadRequest, err.Error())(w, req)
				return
			}
			body.EntityType = client.EntityGroup
			body.GroupName = name
			r.groups[name] = &body
			writeJSON(w, http.StatusOK, body)
		case http.MethodDelete:
			delete(r.groups, name)
			w.WriteHeader(http.StatusNoContent)
		default:
			ErrorResponse(http.StatusMethodNotAllowed, req.Method)(w, req)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type operationRequest struct {
	Input   any            `json:"input"`
	Params  map[string]any `json:"params"`
	Context map[string]any `json:"context"`
}

// execute runs the built-in operations. Any other known operation answers
// its input document, or no content.
func (r *Repository) execute(w http.ResponseWriter, req *http.Request, id string) {
	call, err := decodeCall(req)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error())(w, req)
		return
	}
	call.ID = id

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, *call)

	known := false
	for _, op := range r.operations {
		if op.ID == id {
			known = true
			break
		}
	}
	if !known {
		ErrorResponse(http.StatusNotFound, "operation not found: "+id)(w, req)
		return
	}

	input := r.inputLocked(call.Input)
	param := func(name string) string {
		s, _ := call.Params[name].(string)
		return s
	}

	switch id {
	case "Document.Copy", "Document.Move":
		if input == nil {
			ErrorResponse(http.StatusBadRequest, "missing input document")(w, req)
			return
		}
		target := r.inputLocked(param("target"))
		if target == nil {
			ErrorResponse(http.StatusNotFound, "target not found: "+param("target"))(w, req)
			return
		}
		name := param("name")
		if name == "" {
			name = path.Base(input.Path)
		}
		dst := path.Join(target.Path, name)
		if _, exists := r.docs[dst]; exists {
			ErrorResponse(http.StatusConflict, "document already exists: "+dst)(w, req)
			return
		}
		if id == "Document.Move" {
			r.moveLocked(input.Path, dst)
			writeJSON(w, http.StatusOK, r.docs[dst])
			return
		}
		created := r.addLocked(dst, input.Type, input.IsFolderish())
		for k, v := range input.Properties {
			created.Properties[k] = v
		}
		writeJSON(w, http.StatusOK, created)
	case "Blob.AttachOnDocument":
		target := r.inputLocked(param("document"))
		if target == nil || call.Blob == nil {
			ErrorResponse(http.StatusBadRequest, "missing document or blob")(w, req)
			return
		}
		r.blobs[target.Path] = call.Blob
		w.WriteHeader(http.StatusNoContent)
	case "FileManager.Import":
		parent := r.inputLocked(call.Context["currentDocument"])
		if parent == nil || call.Blob == nil {
			ErrorResponse(http.StatusBadRequest, "missing current document or blob")(w, req)
			return
		}
		doc := r.addLocked(path.Join(parent.Path, call.BlobName), "File", false)
		r.blobs[doc.Path] = call.Blob
		writeJSON(w, http.StatusOK, doc)
	default:
		if input != nil {
			writeJSON(w, http.StatusOK, input)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// inputLocked resolves "doc:<path or uid>", a path or a uid.
func (r *Repository) inputLocked(v any) *client.Document {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	s = strings.TrimPrefix(s, "doc:")
	if doc, ok := r.docs[path.Clean("/"+s)]; ok && strings.HasPrefix(s, "/") {
		return doc
	}
	for _, d := range r.docs {
		if d.UID == s {
			return d
		}
	}
	return nil
}

func decodeCall(req *http.Request) (*OperationCall, error) {
	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("invalid content type: %w", err)
	}

	var body operationRequest
	call := &OperationCall{}
	if !strings.HasPrefix(mediaType, "multipart/") {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
	} else {
		mr := multipart.NewReader(req.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(part)
			if err != nil {
				return nil, err
			}
			if part.Header.Get("Content-ID") == "request" {
				if err := json.Unmarshal(data, &body); err != nil {
					return nil, fmt.Errorf("invalid request part: %w", err)
				}
				continue
			}
			call.Blob = data
			call.BlobName = part.FileName()
		}
	}
	call.Input = body.Input
	call.Params = body.Params
	call.Context = body.Context
	return call, nil
}
