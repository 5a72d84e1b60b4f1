// Package upstream performs single outbound HTTP calls on behalf of the
// relay and classifies their failures.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apirelay/internal/observability"
)

// Defaults for a Client.
const (
	DefaultTimeout          = 10 * time.Second
	DefaultMaxResponseBytes = 10 << 20
	DefaultTarget           = "upstream"
)

const tracerName = "github.com/vyrodovalexey/apirelay/internal/upstream"

// Request describes one outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Data decodes the body as JSON. Numbers are kept as json.Number so they
// are re-encoded exactly as received. A body that is not a single JSON
// value is returned as a string and an empty body as nil.
func (r *Response) Data() interface{} {
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return string(r.Body)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return string(r.Body)
	}
	return v
}

// Client issues outbound HTTP requests. Each call is attempted once, bounded
// by the client timeout and by the caller's context.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   int64
	target     string
	logger     observability.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTarget sets the name used for this upstream in metrics, spans and logs.
func WithTarget(name string) Option {
	return func(c *Client) {
		c.target = name
	}
}

// WithMaxResponseBytes caps the size of a response body.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		c.maxBytes = n
	}
}

// WithTracer sets the tracer used for client spans.
func WithTracer(t *observability.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New creates a new Client. A non-positive timeout selects DefaultTimeout.
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{},
		timeout:    timeout,
		maxBytes:   DefaultMaxResponseBytes,
		target:     DefaultTarget,
		logger:     observability.NopLogger(),
		tracer:     observability.GlobalTracer(tracerName),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Do performs req. A non-2xx answer returns the response together with a
// *StatusError. Failures where no response was received match
// ErrUnreachable.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := c.tracer.StartSpan(ctx, "upstream "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("relay.upstream.target", c.target),
		),
	)
	defer span.End()

	logger := c.logger.WithContext(ctx).With(
		observability.String("target", c.target),
		observability.String("method", method),
		observability.String("url", redact(req.URL)),
	)

	resp, err := c.do(ctx, method, req)
	duration := time.Since(start)
	outcome := classify(err)

	if c.metrics != nil {
		c.metrics.RecordUpstream(c.target, outcome, duration)
	}

	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}

	switch outcome {
	case observability.OutcomeSuccess:
		span.SetStatus(codes.Ok, "")
		logger.Debug("upstream request completed",
			observability.Int("status", resp.StatusCode),
			observability.Duration("duration", duration),
		)
	case observability.OutcomeHTTPError:
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		logger.Warn("upstream responded with error status",
			observability.Int("status", resp.StatusCode),
			observability.Duration("duration", duration),
		)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("upstream request failed",
			observability.String("outcome", outcome),
			observability.Error(err),
			observability.Duration("duration", duration),
		)
	}

	return resp, err
}

func (c *Client) do(ctx context.Context, method string, req Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	observability.InjectTraceContext(ctx, httpReq)

	httpResp, err := c.httpClient.Do(httpReq) //nolint:gosec // relaying to caller-chosen URLs is the purpose
	if err != nil {
		return nil, c.wrapTransport(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBytes+1))
	if err != nil {
		return nil, c.wrapTransport(err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrResponseTooLarge, c.maxBytes)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, &StatusError{Target: c.target, Response: resp}
	}

	return resp, nil
}

// wrapTransport classifies a transport error. The *url.Error layer is
// dropped so that query strings (which may carry credentials) do not end up
// in error messages.
func (c *Client) wrapTransport(err error) error {
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}
	if isTransportFailure(err) {
		return &unreachableError{target: c.target, cause: cause}
	}
	return fmt.Errorf("upstream %s request failed: %w", c.target, cause)
}

func classify(err error) string {
	if err == nil {
		return observability.OutcomeSuccess
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return observability.OutcomeHTTPError
	}
	if IsUnreachable(err) {
		return observability.OutcomeUnreachable
	}
	return observability.OutcomeError
}

// redact strips the query string and user info from raw for logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
