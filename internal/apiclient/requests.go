package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

// CreateRequest submits one combined request. The returned id is 0 when the
// backend did not echo one.
func (c *Client) CreateRequest(ctx context.Context, sess session.Session, items []requests.NewLine) (int64, error) {
	var resp struct {
		RequestID int64 `json:"request_id"`
	}
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/requests",
		path:   "/api/requests",
		sess:   sess,
		body:   map[string]any{"items": items},
		out:    &resp,
	})
	return resp.RequestID, err
}

// myRequestsBody accepts a bare array or {requests: [...]}.
type myRequestsBody []requests.Request

func (b *myRequestsBody) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return json.Unmarshal(raw, (*[]requests.Request)(b))
	}
	var wrapped struct {
		Requests []requests.Request `json:"requests"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return err
	}
	*b = wrapped.Requests
	return nil
}

func (c *Client) MyRequests(ctx context.Context, sess session.Session) ([]requests.Request, error) {
	var out myRequestsBody
	if err := c.do(ctx, call{method: http.MethodGet, route: "/api/requests", path: "/api/requests", sess: sess, out: &out}); err != nil {
		return nil, err
	}
	if out == nil {
		out = myRequestsBody{}
	}
	return out, nil
}

func (c *Client) AdminRequests(ctx context.Context, sess session.Session, filter requests.Filter) ([]requests.Request, error) {
	var q url.Values
	if filter != requests.FilterAll {
		q = url.Values{"status": {string(filter)}}
	}
	var out []requests.Request
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/api/admin/requests",
		path:   "/api/admin/requests",
		query:  q,
		sess:   sess,
		out:    &out,
	})
	return out, err
}

func (c *Client) ApproveRequest(ctx context.Context, sess session.Session, id int64) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/admin/requests/{id}/approve",
		path:   fmt.Sprintf("/api/admin/requests/%d/approve", id),
		sess:   sess,
	})
}

func (c *Client) RejectRequest(ctx context.Context, sess session.Session, id int64) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/admin/requests/{id}/reject",
		path:   fmt.Sprintf("/api/admin/requests/%d/reject", id),
		sess:   sess,
	})
}

// EditRequest sends every line of the request in one batch.
func (c *Client) EditRequest(ctx context.Context, sess session.Session, id int64, lines []requests.LineUpdate) error {
	return c.do(ctx, call{
		method: http.MethodPut,
		route:  "/api/admin/requests/{id}",
		path:   fmt.Sprintf("/api/admin/requests/%d", id),
		sess:   sess,
		body:   map[string]any{"lines": lines},
	})
}

func (c *Client) DeleteRequest(ctx context.Context, sess session.Session, id int64) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		route:  "/api/admin/requests/{id}",
		path:   fmt.Sprintf("/api/admin/requests/%d", id),
		sess:   sess,
	})
}
