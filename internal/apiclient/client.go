package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Spok95/tool-requests-bot/internal/infra/metrics"
	"github.com/Spok95/tool-requests-bot/internal/infra/tracing"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

// Client talks to the tool request backend. Session cookies are attached to
// every call and never inspected.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
	tracer  trace.Tracer
}

func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
		tracer:  tracing.Tracer(),
	}
}

type call struct {
	method   string
	route    string // metric/span label, e.g. /api/tools/{id}
	path     string
	query    url.Values
	body     any
	out      any
	sess     session.Session
	cookiesH func([]*http.Cookie)
}

func (c *Client) do(ctx context.Context, cl call) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "api "+cl.method+" "+cl.route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("http.route", cl.route),
	)

	code := "error"
	defer func() { metrics.ObserveAPI(cl.route, cl.method, code, start) }()

	err := c.roundTrip(ctx, cl, &code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Debug("api call failed", "method", cl.method, "route", cl.route, "err", err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, cl call, code *string) error {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", cl.route, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cl.sess.HTTPCookies() {
		req.AddCookie(ck)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cl.method, cl.route, err)
	}
	defer func() { _ = resp.Body.Close() }()

	*code = strconv.Itoa(resp.StatusCode)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", cl.method, cl.route, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, raw)
	}
	if cl.cookiesH != nil {
		cl.cookiesH(resp.Cookies())
	}
	if cl.out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, cl.out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", cl.method, cl.route, err)
	}
	return nil
}

// Ping checks the backend is reachable; used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodGet, route: "/api/ping", path: "/api/ping"})
}
