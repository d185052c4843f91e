package client

import (
	"context"
	"net/url"
)

// Principal kinds addressed by the user and group endpoints.
const (
	KindUser  = "user"
	KindGroup = "group"
)

// Principal fetches a user or group by name.
func (c *Client) Principal(ctx context.Context, kind, name string) (*Response, error) {
	return c.API(kind + "/" + url.PathEscape(name)).Get(ctx)
}

// SearchPrincipals searches users or groups. An empty query matches all.
func (c *Client) SearchPrincipals(ctx context.Context, kind, query string, page Page) (*Response, error) {
	if query == "" {
		query = "*"
	}
	req := c.API(kind+"/search").Query("q", query)
	applyPage(req, page)
	return req.Get(ctx)
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, u *User) (*Response, error) {
	body := *u
	body.EntityType = EntityUser
	return c.API(KindUser).Post(ctx, body)
}

// UpdateUser replaces the properties of a user.
func (c *Client) UpdateUser(ctx context.Context, u *User) (*Response, error) {
	body := *u
	body.EntityType = EntityUser
	return c.API(KindUser+"/"+url.PathEscape(u.ID)).Put(ctx, body)
}

// CreateGroup creates a group.
func (c *Client) CreateGroup(ctx context.Context, g *Group) (*Response, error) {
	body := *g
	body.EntityType = EntityGroup
	return c.API(KindGroup).Post(ctx, body)
}

// UpdateGroup replaces a group definition.
func (c *Client) UpdateGroup(ctx context.Context, g *Group) (*Response, error) {
	body := *g
	body.EntityType = EntityGroup
	return c.API(KindGroup+"/"+url.PathEscape(g.GroupName)).Put(ctx, body)
}

// DeletePrincipal removes a user or group.
func (c *Client) DeletePrincipal(ctx context.Context, kind, name string) error {
	_, err := c.API(kind + "/" + url.PathEscape(name)).Delete(ctx)
	return err
}
