package state

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/nxshell/nxshell/pkg/client"
)

// ErrNotConnected is returned by session operations that need a connection.
var ErrNotConnected = errors.New("not connected")

// EntityTypeError is returned when a location change targets something that
// is not a document.
type EntityTypeError struct {
	Type string
}

func (e *EntityTypeError) Error() string {
	return "unknown entity-type: " + e.Type
}

// Session is the connection and location state of the shell.
//
// A session starts disconnected. Connect moves it to connected at the root
// document; ChangeLocation moves the current location. Only command handlers
// mutate a session, one at a time; completers read it.
type Session struct {
	mu           sync.RWMutex
	connected    bool
	client       *client.Client
	identity     string
	root         *client.Document
	current      *client.Document
	currentPath  string
	previousPath string
}

// NewSession returns a disconnected session located at "/".
func NewSession() *Session {
	return &Session{currentPath: "/"}
}

// Connect records a successful login. root must be the repository root
// document; the current location is reset to it.
func (s *Session) Connect(c *client.Client, identity string, root *client.Document) error {
	if c == nil {
		return fmt.Errorf("connect: client is required")
	}
	if root == nil || root.EntityType != client.EntityDocument {
		t := ""
		if root != nil {
			t = root.EntityType
		}
		return &EntityTypeError{Type: t}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.client = c
	s.identity = identity
	s.root = root
	s.current = root
	s.currentPath = docPath(root)
	s.previousPath = ""
	return nil
}

// ChangeLocation makes doc the current location. doc must have entity-type
// "document"; otherwise the location is unchanged and an *EntityTypeError is
// returned.
func (s *Session) ChangeLocation(doc *client.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if doc == nil {
		return &EntityTypeError{}
	}
	if doc.EntityType != client.EntityDocument {
		return &EntityTypeError{Type: doc.EntityType}
	}
	p := docPath(doc)
	if p != s.currentPath {
		s.previousPath = s.currentPath
	}
	s.current = doc
	s.currentPath = p
	return nil
}

// Connected reports whether the session is connected.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Client returns the connection, or nil when disconnected.
func (s *Session) Client() *client.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Identity returns the logged-in user.
func (s *Session) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Host returns the server base URL, or "" when disconnected.
func (s *Session) Host() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return ""
	}
	return s.client.BaseURL()
}

// CurrentPath returns the path of the current location.
func (s *Session) CurrentPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPath
}

// PreviousPath returns the location before the last change, or "".
func (s *Session) PreviousPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previousPath
}

// Current returns the current document.
func (s *Session) Current() *client.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Root returns the root document.
func (s *Session) Root() *client.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Resolve turns p into a clean absolute path. Relative paths are joined to
// the current location; an empty path is the current location.
func (s *Session) Resolve(p string) string {
	return ResolvePath(s.CurrentPath(), p)
}

// Ref returns the document ref addressed by a uid or a path. A non-empty id
// wins and bypasses path resolution.
func (s *Session) Ref(p, id string) client.Ref {
	if id != "" {
		return client.IDRef(id)
	}
	return client.PathRef(s.Resolve(p))
}

// ResolvePath resolves p against the absolute path cwd.
func ResolvePath(cwd, p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	if cwd == "" {
		cwd = "/"
	}
	return path.Clean(path.Join(cwd, p))
}

func docPath(doc *client.Document) string {
	if doc.Path == "" {
		return "/"
	}
	return path.Clean("/" + doc.Path)
}
