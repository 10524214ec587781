package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Spok95/tool-requests-bot/internal/domain/tools"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

// Tools filtering and ordering happen on the server.
func (c *Client) Tools(ctx context.Context, sess session.Session, q string) ([]tools.Record, error) {
	var query url.Values
	if q = strings.TrimSpace(q); q != "" {
		query = url.Values{"q": {q}}
	}
	var out []tools.Record
	err := c.do(ctx, call{method: http.MethodGet, route: "/api/tools", path: "/api/tools", query: query, sess: sess, out: &out})
	return out, err
}

func (c *Client) CreateTool(ctx context.Context, sess session.Session, f tools.Form) (tools.Record, error) {
	var out tools.Record
	err := c.do(ctx, call{method: http.MethodPost, route: "/api/tools", path: "/api/tools", sess: sess, body: f, out: &out})
	return out, err
}

// UpdateTool replaces the whole record.
func (c *Client) UpdateTool(ctx context.Context, sess session.Session, id int64, f tools.Form) (tools.Record, error) {
	var out tools.Record
	err := c.do(ctx, call{
		method: http.MethodPut,
		route:  "/api/tools/{id}",
		path:   fmt.Sprintf("/api/tools/%d", id),
		sess:   sess,
		body:   f,
		out:    &out,
	})
	return out, err
}

// DeleteTool forwards the password; the server checks it.
func (c *Client) DeleteTool(ctx context.Context, sess session.Session, id int64, password string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		route:  "/api/tools/{id}",
		path:   fmt.Sprintf("/api/tools/%d", id),
		sess:   sess,
		body:   map[string]string{"password": password},
	})
}

func (c *Client) ToolLogs(ctx context.Context, sess session.Session, id int64) ([]tools.DistributionLog, error) {
	var out []tools.DistributionLog
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/api/tools/{id}/logs",
		path:   fmt.Sprintf("/api/tools/%d/logs", id),
		sess:   sess,
		out:    &out,
	})
	return out, err
}

func (c *Client) Categories(ctx context.Context, sess session.Session) ([]tools.Category, error) {
	var out []tools.Category
	err := c.do(ctx, call{method: http.MethodGet, route: "/api/categories", path: "/api/categories", sess: sess, out: &out})
	return out, err
}
