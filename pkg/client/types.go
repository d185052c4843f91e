package client

import (
	"net/url"
	"path"
	"strings"
)

// Entity types sent by the server in the "entity-type" field.
const (
	EntityDocument  = "document"
	EntityDocuments = "documents"
	EntityLogin     = "login"
	EntityUser      = "user"
	EntityUsers     = "users"
	EntityGroup     = "group"
	EntityGroups    = "groups"
	EntityLogEntry  = "logEntry"
	EntityLogs      = "logEntries"
	EntityString    = "string"
	EntityException = "exception"
)

// Ref addresses a document by path or by uid.
type Ref struct {
	Path string
	ID   string
}

// PathRef addresses a document by absolute path.
func PathRef(p string) Ref {
	return Ref{Path: p}
}

// IDRef addresses a document by uid.
func IDRef(id string) Ref {
	return Ref{ID: id}
}

// IsZero reports whether the ref addresses nothing.
func (r Ref) IsZero() bool {
	return r.Path == "" && r.ID == ""
}

func (r Ref) String() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Path
}

// Input returns the automation input form of the ref, e.g. "doc:/a/b".
func (r Ref) Input() string {
	return "doc:" + r.String()
}

// resource returns the escaped REST resource path of the ref.
func (r Ref) resource() string {
	if r.ID != "" {
		return "id/" + url.PathEscape(r.ID)
	}
	clean := path.Clean("/" + r.Path)
	segments := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "path/" + strings.Join(segments, "/")
}

// Document is a repository document.
type Document struct {
	EntityType   string         `json:"entity-type"`
	Repository   string         `json:"repository,omitempty"`
	UID          string         `json:"uid,omitempty"`
	Path         string         `json:"path,omitempty"`
	Type         string         `json:"type,omitempty"`
	State        string         `json:"state,omitempty"`
	ParentRef    string         `json:"parentRef,omitempty"`
	IsCheckedOut bool           `json:"isCheckedOut,omitempty"`
	Title        string         `json:"title,omitempty"`
	LastModified string         `json:"lastModified,omitempty"`
	Facets       []string       `json:"facets,omitempty"`
	ChangeToken  string         `json:"changeToken,omitempty"`
	Name         string         `json:"name,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// Ref returns the uid ref of the document, or its path ref when it has no uid.
func (d *Document) Ref() Ref {
	if d.UID != "" {
		return IDRef(d.UID)
	}
	return PathRef(d.Path)
}

// IsFolderish reports whether the document can have children.
func (d *Document) IsFolderish() bool {
	for _, f := range d.Facets {
		if f == "Folderish" {
			return true
		}
	}
	return false
}

// DocumentList is a page of documents.
type DocumentList struct {
	EntityType              string     `json:"entity-type"`
	IsPaginable             bool       `json:"isPaginable"`
	ResultsCount            int        `json:"resultsCount"`
	PageSize                int        `json:"pageSize"`
	CurrentPageSize         int        `json:"currentPageSize"`
	CurrentPageIndex        int        `json:"currentPageIndex"`
	NumberOfPages           int        `json:"numberOfPages"`
	IsPreviousPageAvailable bool       `json:"isPreviousPageAvailable"`
	IsNextPageAvailable     bool       `json:"isNextPageAvailable"`
	Entries                 []Document `json:"entries"`
}

// Page selects one page of a paginated listing. Zero values use server
// defaults.
type Page struct {
	Size  int
	Index int
}

// Login is the answer of the login endpoint.
type Login struct {
	EntityType      string `json:"entity-type"`
	Username        string `json:"username"`
	IsAdministrator bool   `json:"isAdministrator"`
}

// OperationParam describes one parameter of a remote operation.
type OperationParam struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Widget      string   `json:"widget,omitempty"`
	Order       int      `json:"order"`
	Values      []string `json:"values,omitempty"`
}

// OperationInfo describes a remote operation or chain.
type OperationInfo struct {
	ID          string           `json:"id"`
	Label       string           `json:"label"`
	Category    string           `json:"category"`
	Requires    string           `json:"requires,omitempty"`
	Description string           `json:"description"`
	URL         string           `json:"url,omitempty"`
	Signature   []string         `json:"signature,omitempty"`
	Params      []OperationParam `json:"params"`
}

// User is a repository user.
type User struct {
	EntityType      string         `json:"entity-type"`
	ID              string         `json:"id"`
	IsAdministrator bool           `json:"isAdministrator,omitempty"`
	IsAnonymous     bool           `json:"isAnonymous,omitempty"`
	Properties      map[string]any `json:"properties,omitempty"`
	ExtendedGroups  []GroupRef     `json:"extendedGroups,omitempty"`
}

// GroupRef names a group a user belongs to.
type GroupRef struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Group is a repository group.
type Group struct {
	EntityType  string   `json:"entity-type"`
	GroupName   string   `json:"groupname"`
	GroupLabel  string   `json:"grouplabel,omitempty"`
	MemberUsers []string `json:"memberUsers,omitempty"`
	MemberGroup []string `json:"memberGroups,omitempty"`
}

// LogEntry is one audit record.
type LogEntry struct {
	ID            int64  `json:"id"`
	Category      string `json:"category"`
	PrincipalName string `json:"principalName"`
	Comment       string `json:"comment"`
	DocLifeCycle  string `json:"docLifeCycle"`
	EventID       string `json:"eventId"`
	EventDate     string `json:"eventDate"`
	DocPath       string `json:"docPath"`
	DocType       string `json:"docType"`
}
