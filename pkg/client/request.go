package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request is a REST request under construction.
type Request struct {
	c       *Client
	path    string
	query   url.Values
	header  http.Header
	schemas []string
}

// Query adds a query parameter.
func (r *Request) Query(key, value string) *Request {
	r.query.Add(key, value)
	return r
}

// Header sets a request header.
func (r *Request) Header(key, value string) *Request {
	r.header.Set(key, value)
	return r
}

// Schemas overrides the document schemas returned by the server. "*" asks
// for all of them.
func (r *Request) Schemas(schemas ...string) *Request {
	r.schemas = schemas
	return r
}

// Get sends a GET request.
func (r *Request) Get(ctx context.Context) (*Response, error) {
	return r.Do(ctx, http.MethodGet, nil, "")
}

// Delete sends a DELETE request.
func (r *Request) Delete(ctx context.Context) (*Response, error) {
	return r.Do(ctx, http.MethodDelete, nil, "")
}

// Post sends body as JSON. A nil body sends an empty request.
func (r *Request) Post(ctx context.Context, body any) (*Response, error) {
	return r.send(ctx, http.MethodPost, body)
}

// Put sends body as JSON.
func (r *Request) Put(ctx context.Context, body any) (*Response, error) {
	return r.send(ctx, http.MethodPut, body)
}

func (r *Request) send(ctx context.Context, method string, body any) (*Response, error) {
	if body == nil {
		return r.Do(ctx, method, nil, "")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return r.Do(ctx, method, bytes.NewReader(data), "application/json")
}

// URL returns the absolute request URL.
func (r *Request) URL() string {
	u := r.c.base.String() + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	return u
}

// Do sends the request and reads the whole response. Non-2xx answers are
// returned as *RemoteError.
func (r *Request) Do(ctx context.Context, method string, body io.Reader, contentType string) (*Response, error) {
	resp, err := r.open(ctx, method, body, contentType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, newRemoteError(method, resp.Request.URL.String(), resp.StatusCode, data)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Stream sends a GET request and copies the response body to w.
func (r *Request) Stream(ctx context.Context, w io.Writer) (int64, error) {
	resp, err := r.open(ctx, http.MethodGet, nil, "")
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return 0, newRemoteError(http.MethodGet, resp.Request.URL.String(), resp.StatusCode, data)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read response: %w", err)
	}
	return n, nil
}

func (r *Request) open(ctx context.Context, method string, body io.Reader, contentType string) (*http.Response, error) {
	target := r.URL()
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	schemas := r.schemas
	if schemas == nil {
		schemas = r.c.schemas
	}
	if len(schemas) > 0 {
		req.Header.Set("X-NXproperties", strings.Join(schemas, ","))
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	for k, vs := range r.header {
		req.Header[k] = vs
	}

	start := time.Now()
	resp, err := r.c.http.Do(req)
	if err != nil {
		r.c.debug("http request failed", "method", method, "url", target, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	r.c.debug("http request",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond),
		"request_id", requestID)
	return resp, nil
}

// Response is a fully read server answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// EntityType returns the "entity-type" of a JSON object payload, "" otherwise.
func (r *Response) EntityType() string {
	var probe struct {
		EntityType string `json:"entity-type"`
	}
	if !r.IsJSON() || json.Unmarshal(r.Body, &probe) != nil {
		return ""
	}
	return probe.EntityType
}

// IsJSON reports whether the payload is JSON.
func (r *Response) IsJSON() bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "json") {
		return false
	}
	return json.Valid(r.Body) && len(bytes.TrimSpace(r.Body)) > 0
}

// Decode unmarshals the JSON payload into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Value decodes the payload into generic JSON values.
func (r *Response) Value() (any, error) {
	var v any
	if err := r.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
