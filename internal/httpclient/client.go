// Package httpclient posts JSON over an OpenTelemetry-instrumented
// transport. The relay and webhook adapters are built on it.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/fd1az/arbitrage-executor/internal/httpclient"
	meterName  = "github.com/fd1az/arbitrage-executor/internal/httpclient"

	defaultTimeout         = 10 * time.Second
	defaultKeepAlive       = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute

	// maxBody bounds what is read from a response.
	maxBody = 1 << 20
)

// StatusCheck turns a response into an error. The default treats any status
// >= 400 without a decodable body as a failure.
type StatusCheck func(status int, body []byte) error

// Call is one JSON POST.
type Call struct {
	URL string
	// Op labels metrics and spans, e.g. the JSON-RPC method.
	Op string
	// Body is JSON encoded unless it is already []byte.
	Body    any
	Headers map[string]string
	// Out receives the decoded response body when non-nil.
	Out   any
	Check StatusCheck
}

// Response is the read response.
type Response struct {
	StatusCode int
	Body       []byte
	// Decoded reports whether Body was unmarshalled into Call.Out.
	Decoded bool
}

// Client posts JSON with tracing and request metrics.
type Client struct {
	name   string
	http   *http.Client
	tracer trace.Tracer

	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTransport replaces the base transport. Tests use it to stub the network.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// New creates a Client. name is attached to every metric as "client".
func New(name string, opts ...Option) (*Client, error) {
	c := &Client{
		name: name,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				DialContext:     (&net.Dialer{KeepAlive: defaultKeepAlive}).DialContext,
				MaxConnsPerHost: defaultMaxConnsPerHost,
				IdleConnTimeout: defaultIdleConnTimeout,
			},
		},
		tracer: otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(c)
	}

	c.http.Transport = otelhttp.NewTransport(c.http.Transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	meter := otel.Meter(meterName)
	var err error
	c.requests, err = meter.Int64Counter("http_client_requests_total",
		metric.WithDescription("Outbound HTTP requests by client, op and status class"))
	if err != nil {
		return nil, err
	}
	c.latency, err = meter.Float64Histogram("http_client_request_duration_ms",
		metric.WithDescription("Outbound HTTP request latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Name returns the client name.
func (c *Client) Name() string { return c.name }

// Post sends call. A transport failure or a failed status check is returned
// as an error; the Response is still returned when one was read.
func (c *Client) Post(ctx context.Context, call Call) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "http.post",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("client", c.name),
			attribute.String("op", call.Op),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.post(ctx, call)

	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode/100) + "xx"
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	attrs := metric.WithAttributes(
		attribute.String("client", c.name),
		attribute.String("op", call.Op),
		attribute.String("status", status),
	)
	c.requests.Add(ctx, 1, attrs)
	c.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			span.SetAttributes(attribute.Bool("request.timeout", true))
		}
	}
	return resp, err
}

func (c *Client) post(ctx context.Context, call Call) (*Response, error) {
	payload, ok := call.Body.([]byte)
	if !ok && call.Body != nil {
		var err error
		if payload, err = json.Marshal(call.Body); err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	resp := &Response{StatusCode: res.StatusCode, Body: body}
	if call.Out != nil && len(body) > 0 {
		resp.Decoded = json.Unmarshal(body, call.Out) == nil
	}

	check := call.Check
	if check == nil {
		check = func(status int, body []byte) error {
			if status >= http.StatusBadRequest && !resp.Decoded {
				return fmt.Errorf("http %d: %s", status, truncate(string(body), 200))
			}
			return nil
		}
	}
	if err := check(res.StatusCode, body); err != nil {
		return resp, err
	}
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
