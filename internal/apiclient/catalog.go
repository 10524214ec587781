package apiclient

import (
	"context"
	"net/http"

	"github.com/Spok95/tool-requests-bot/internal/domain/catalog"
	"github.com/Spok95/tool-requests-bot/internal/domain/users"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

func (c *Client) Catalog(ctx context.Context, sess session.Session) ([]catalog.Group, error) {
	var out []catalog.Group
	err := c.do(ctx, call{method: http.MethodGet, route: "/api/catalog", path: "/api/catalog", sess: sess, out: &out})
	return out, err
}

func (c *Client) Users(ctx context.Context, sess session.Session) ([]users.User, error) {
	var out []users.User
	err := c.do(ctx, call{method: http.MethodGet, route: "/api/users", path: "/api/users", sess: sess, out: &out})
	return out, err
}
