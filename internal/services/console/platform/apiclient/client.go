// Package apiclient calls the game backend.
//
// Every failed call is reported once, through the session Reporter, as
// "Error: <message>". Callers only restore their own state on error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	maxResponseBytes    = 32 << 20
)

// ErrAbsent is returned for statuses a caller marked Optional.
var ErrAbsent = errors.New("resource absent")

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Reporter surfaces failures to the user.
type Reporter interface {
	ReportError(message string)
}

// Client performs backend calls relative to a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	reporter   Reporter
	metrics    *observability.Metrics
	tracer     trace.Tracer
	before     func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records request counts and latency.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBeforeRequest runs fn just before each request is sent, on the
// caller's goroutine.
func WithBeforeRequest(fn func()) Option {
	return func(c *Client) {
		c.before = fn
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// New returns a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
		tracer:     otel.GetTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// WithReporter returns a copy that reports failures to r.
func (c *Client) WithReporter(r Reporter) *Client {
	clone := *c
	clone.reporter = r
	return &clone
}

type callOptions struct {
	absent map[int]bool
	quiet  bool
}

// CallOption adjusts one call.
type CallOption func(*callOptions)

// Optional maps the listed statuses to ErrAbsent without reporting.
func Optional(statuses ...int) CallOption {
	return func(o *callOptions) {
		if o.absent == nil {
			o.absent = map[int]bool{}
		}
		for _, s := range statuses {
			o.absent[s] = true
		}
	}
}

// Quiet suppresses reporting for this call.
func Quiet() CallOption {
	return func(o *callOptions) {
		o.quiet = true
	}
}

// Call sends body (JSON, or a *Form as multipart) and decodes the response
// into out. A 204 or empty body leaves out untouched.
func (c *Client) Call(ctx context.Context, method string, path string, body any, out any, opts ...CallOption) error {
	var co callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	err := c.do(ctx, method, path, body, out, co)
	if err != nil && !errors.Is(err, ErrAbsent) && !co.quiet && c.reporter != nil {
		c.reporter.ReportError(Message(err))
	}
	return err
}

// Message returns the user-facing text of a call failure.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any, co callOptions) error {
	ctx, span := c.tracer.Start(ctx, "backend "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()
	start := time.Now()

	reader, contentType, err := encodeBody(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if c.before != nil {
		c.before()
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.observe(method, strconv.Itoa(resp.StatusCode), start)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if co.absent[resp.StatusCode] {
			return ErrAbsent
		}
		apiErr := &Error{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
		span.SetStatus(codes.Error, apiErr.Message)
		return apiErr
	}
	if resp.StatusCode == http.StatusNoContent || out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) observe(method string, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.APIRequests.WithLabelValues(method, status).Inc()
	c.metrics.APIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Form:
		return b.encode()
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func errorMessage(status int, data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return payload.Error
	}
	return fmt.Sprintf("HTTP %d", status)
}
