// Package client talks to a Nuxeo server over its REST and automation APIs.
//
// A Client is bound to one server and one set of credentials. Requests are
// built with Request (REST resources) or Operation (automation operations)
// and return a Response whose entity type tells how to decode it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nxshell/nxshell/pkg/auth"
	"github.com/pterm/pterm"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. http://localhost:8080/nuxeo/.
	BaseURL string
	// Auth decorates the HTTP client with credentials. Optional.
	Auth auth.Authenticator
	// HTTPClient is the base client. A new client with Timeout is used when nil.
	HTTPClient *http.Client
	Timeout    time.Duration
	// Schemas are sent as X-NXproperties on document requests.
	Schemas []string
	// Repository selects a non-default repository.
	Repository string
	Logger     *pterm.Logger
}

// Client is a Nuxeo API client.
type Client struct {
	base       *url.URL
	http       *http.Client
	auth       auth.Authenticator
	schemas    []string
	repository string
	logger     *pterm.Logger
}

// New creates a client.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: unsupported scheme %q", opts.BaseURL, base.Scheme)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Auth != nil {
		httpClient = opts.Auth.Wrap(httpClient)
	}

	repo := opts.Repository
	if repo == "default" {
		repo = ""
	}

	return &Client{
		base:       base,
		http:       httpClient,
		auth:       opts.Auth,
		schemas:    opts.Schemas,
		repository: repo,
		logger:     opts.Logger,
	}, nil
}

// BaseURL returns the server root with a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Username returns the identity the credentials claim.
func (c *Client) Username() string {
	if c.auth == nil {
		return ""
	}
	return c.auth.Username()
}

// Request starts a request on a path relative to the base URL. The path must
// already be escaped.
func (c *Client) Request(p string) *Request {
	return &Request{
		c:      c,
		path:   strings.TrimPrefix(p, "/"),
		query:  url.Values{},
		header: http.Header{},
	}
}

// API starts a request on a REST API resource, e.g. API("user/jdoe").
func (c *Client) API(resource string) *Request {
	p := "api/v1/"
	if c.repository != "" {
		p += "repo/" + url.PathEscape(c.repository) + "/"
	}
	return c.Request(p + strings.TrimPrefix(resource, "/"))
}

// Login checks the credentials and returns the logged-in identity. When the
// credentials name a user, the server must confirm that same user.
func (c *Client) Login(ctx context.Context) (*Login, error) {
	resp, err := c.Request("site/automation/login").Post(ctx, nil)
	if err != nil {
		return nil, err
	}
	var login Login
	if err := resp.Decode(&login); err != nil || login.EntityType != EntityLogin {
		return nil, fmt.Errorf("%w: entity-type %q", ErrUnexpectedLogin, resp.EntityType())
	}
	if want := c.Username(); want != "" && login.Username != want {
		return nil, fmt.Errorf("%w: logged in as %q, expected %q", ErrUnexpectedLogin, login.Username, want)
	}
	return &login, nil
}

// Operations lists the operations and chains the server exposes, sorted by id.
func (c *Client) Operations(ctx context.Context) ([]OperationInfo, error) {
	resp, err := c.Request("site/automation").Get(ctx)
	if err != nil {
		return nil, err
	}
	var registry struct {
		Operations []OperationInfo `json:"operations"`
		Chains     []OperationInfo `json:"chains"`
	}
	if err := json.Unmarshal(resp.Body, &registry); err != nil {
		return nil, fmt.Errorf("failed to decode operation registry: %w", err)
	}

	ops := append(registry.Operations, registry.Chains...)
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops, nil
}

// Operation starts an automation call.
func (c *Client) Operation(id string) *Operation {
	return &Operation{c: c, id: id, params: map[string]any{}, context: map[string]any{}}
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, c.logger.Args(args...))
}
