package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// Operation is an automation call under construction.
type Operation struct {
	c       *Client
	id      string
	input   any
	params  map[string]any
	context map[string]any
	blob    *Blob
}

// Blob is a file sent as operation input.
type Blob struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// ID returns the operation id.
func (o *Operation) ID() string {
	return o.id
}

// Input sets the operation input: a document ref string ("doc:/path"), a
// Ref or a list of refs.
func (o *Operation) Input(input any) *Operation {
	switch v := input.(type) {
	case Ref:
		o.input = v.Input()
	case []Ref:
		refs := make([]string, len(v))
		for i, r := range v {
			refs[i] = r.String()
		}
		o.input = "docs:" + strings.Join(refs, ",")
	default:
		o.input = v
	}
	return o
}

// Param sets one parameter.
func (o *Operation) Param(name string, value any) *Operation {
	o.params[name] = value
	return o
}

// Context sets an operation context variable.
func (o *Operation) Context(name string, value any) *Operation {
	o.context[name] = value
	return o
}

// Blob sends content as the operation input.
func (o *Operation) Blob(b *Blob) *Operation {
	o.blob = b
	return o
}

type operationBody struct {
	Input   any            `json:"input,omitempty"`
	Params  map[string]any `json:"params"`
	Context map[string]any `json:"context,omitempty"`
}

// Execute runs the operation with params merged over those already set.
func (o *Operation) Execute(ctx context.Context, params map[string]any) (*Response, error) {
	for k, v := range params {
		o.params[k] = v
	}
	req := o.c.Request("site/automation/" + url.PathEscape(o.id))
	body := operationBody{Params: o.params}
	if len(o.context) > 0 {
		body.Context = o.context
	}

	if o.blob == nil {
		body.Input = o.input
		return req.Post(ctx, body)
	}

	payload, contentType, err := o.multipart(body)
	if err != nil {
		return nil, err
	}
	return req.Do(ctx, http.MethodPost, payload, contentType)
}

// multipart encodes the request and the input blob as multipart/related.
func (o *Operation) multipart(body operationBody) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	reqHeader := textproto.MIMEHeader{}
	reqHeader.Set("Content-Type", "application/json+nxrequest")
	reqHeader.Set("Content-ID", "request")
	part, err := w.CreatePart(reqHeader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode operation request: %w", err)
	}
	if err := json.NewEncoder(part).Encode(body); err != nil {
		return nil, "", fmt.Errorf("failed to encode operation request: %w", err)
	}

	ct := o.blob.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	blobHeader := textproto.MIMEHeader{}
	blobHeader.Set("Content-Type", ct)
	blobHeader.Set("Content-ID", "input")
	blobHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", o.blob.Name))
	part, err = w.CreatePart(blobHeader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode blob: %w", err)
	}
	if _, err := io.Copy(part, o.blob.Content); err != nil {
		return nil, "", fmt.Errorf("failed to read blob %s: %w", o.blob.Name, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to encode blob: %w", err)
	}

	contentType := fmt.Sprintf(`multipart/related; boundary=%s; type="application/json+nxrequest"; start="request"`, w.Boundary())
	return &buf, contentType, nil
}
