package client

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fetch returns the raw answer for a document ref. The entity type is not
// checked so that callers can report what they got.
func (c *Client) Fetch(ctx context.Context, ref Ref, schemas ...string) (*Response, error) {
	req := c.API(ref.resource())
	if len(schemas) > 0 {
		req.Schemas(schemas...)
	}
	return req.Get(ctx)
}

// Document fetches and decodes a document.
func (c *Client) Document(ctx context.Context, ref Ref, schemas ...string) (*Document, error) {
	resp, err := c.Fetch(ctx, ref, schemas...)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := resp.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Children lists one page of the children of a document.
func (c *Client) Children(ctx context.Context, ref Ref, page Page) (*DocumentList, error) {
	req := c.API(adapter(ref, "@children"))
	applyPage(req, page)
	return decodeList(req.Get(ctx))
}

// Query runs an NXQL query.
func (c *Client) Query(ctx context.Context, nxql string, page Page) (*DocumentList, error) {
	req := c.API("query").Query("query", nxql)
	applyPage(req, page)
	return decodeList(req.Get(ctx))
}

// Create creates doc under parent. doc.Name and doc.Type are required.
func (c *Client) Create(ctx context.Context, parent Ref, doc *Document) (*Document, error) {
	if doc.Name == "" || doc.Type == "" {
		return nil, fmt.Errorf("document name and type are required")
	}
	body := *doc
	body.EntityType = EntityDocument
	resp, err := c.API(parent.resource()).Post(ctx, body)
	if err != nil {
		return nil, err
	}
	return decodeDocument(resp)
}

// Update sets properties on a document.
func (c *Client) Update(ctx context.Context, ref Ref, properties map[string]any) (*Document, error) {
	body := Document{EntityType: EntityDocument, Properties: properties}
	resp, err := c.API(ref.resource()).Put(ctx, body)
	if err != nil {
		return nil, err
	}
	return decodeDocument(resp)
}

// Delete removes a document.
func (c *Client) Delete(ctx context.Context, ref Ref) error {
	_, err := c.API(ref.resource()).Delete(ctx)
	return err
}

// Audit returns the audit log entries of a document.
func (c *Client) Audit(ctx context.Context, ref Ref) (*Response, error) {
	return c.API(adapter(ref, "@audit")).Get(ctx)
}

// Download copies the blob stored at xpath (e.g. "file:content") to w.
func (c *Client) Download(ctx context.Context, ref Ref, xpath string, w io.Writer) (int64, error) {
	return c.API(adapter(ref, "@blob/"+xpath)).Stream(ctx, w)
}

// adapter returns the resource of a web adapter on ref, e.g. path/a/@children.
func adapter(ref Ref, name string) string {
	return strings.TrimSuffix(ref.resource(), "/") + "/" + name
}

func applyPage(req *Request, page Page) {
	if page.Size > 0 {
		req.Query("pageSize", strconv.Itoa(page.Size))
	}
	if page.Index > 0 {
		req.Query("currentPageIndex", strconv.Itoa(page.Index))
	}
}

func decodeList(resp *Response, err error) (*DocumentList, error) {
	if err != nil {
		return nil, err
	}
	var list DocumentList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}
	if list.EntityType != EntityDocuments {
		return nil, fmt.Errorf("unexpected entity-type %q, want %q", list.EntityType, EntityDocuments)
	}
	return &list, nil
}

func decodeDocument(resp *Response) (*Document, error) {
	var doc Document
	if err := resp.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
