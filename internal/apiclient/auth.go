package apiclient

import (
	"context"
	"net/http"

	"github.com/Spok95/tool-requests-bot/internal/domain/users"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

// Login returns a session carrying the backend cookies. The user is filled
// from /api/me when it answers, otherwise from the login response.
func (c *Client) Login(ctx context.Context, username, password string) (session.Session, error) {
	var resp struct {
		User users.User `json:"user"`
	}
	var sess session.Session
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/login",
		path:   "/api/login",
		body:   map[string]string{"username": username, "password": password},
		out:    &resp,
		cookiesH: func(cookies []*http.Cookie) {
			sess.Cookies = session.FromHTTP(cookies)
		},
	})
	if err != nil {
		return session.Session{}, err
	}
	sess.User = resp.User
	if me, err := c.Me(ctx, sess); err == nil && me != nil {
		sess.User = *me
	}
	return sess, nil
}

// Me is nil when the cookie no longer identifies anyone.
func (c *Client) Me(ctx context.Context, sess session.Session) (*users.User, error) {
	var me *users.User
	err := c.do(ctx, call{method: http.MethodGet, route: "/api/me", path: "/api/me", sess: sess, out: &me})
	return me, err
}

func (c *Client) Logout(ctx context.Context, sess session.Session) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/api/logout", path: "/api/logout", sess: sess})
}
