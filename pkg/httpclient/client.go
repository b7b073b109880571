// Package httpclient provides the bounded request client the console core
// issues every remote call through. Each call makes at most one attempt,
// carries JSON default headers, and fails with a distinct timeout error when
// the deadline elapses before the remote responds. Retry policy belongs to
// callers.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apiforge/console-core/pkg/apierr"
)

// DefaultTimeout bounds a request when the caller does not supply one.
const DefaultTimeout = 10 * time.Second

// requestIDHeader carries a per-call correlation ID.
const requestIDHeader = "X-Request-Id"

// Client issues bounded HTTP requests. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithJar sets the cookie jar on the underlying transport client.
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.http.Jar = jar
	}
}

// New creates a Client with a fresh cookie jar and the default timeout.
func New(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		http:    &http.Client{Jar: jar},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Jar returns the cookie jar requests are issued with.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// Options configures a single request. Zero values mean GET, no body, no
// extra headers, and the client's default timeout.
type Options struct {
	// Method is the HTTP method; empty means GET.
	Method string

	// Header entries override the matching default headers individually;
	// defaults not named here are still sent.
	Header http.Header

	// Body is sent as the request body when non-nil.
	Body []byte

	// Query is appended to the URL's query string.
	Query url.Values

	// Timeout overrides the client default for this call only.
	Timeout time.Duration
}

// Response is the fully-read result of a bounded request.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Header holds the response headers.
	Header http.Header

	// Body is the complete response body.
	Body []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// IsJSON reports whether the response declared a JSON content type.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// Do issues exactly one request against rawURL. The timeout is armed before
// the request starts; if it fires before the remote responds the call fails
// with apierr.TimeoutError and the transport abandons the attempt. Any other
// transport failure is an apierr.NetworkError.
func (c *Client) Do(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target := rawURL
	if len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &apierr.ValidationError{Field: "url", Reason: err.Error()}
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	for k, vs := range opts.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	slog.Debug("httpclient: request", "method", method, "url", target, "request_id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(rawURL, timeout, ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(rawURL, timeout, ctx, err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}

// classify maps a transport failure to the taxonomy. A deadline that
// elapsed on the request context is always a timeout, never a generic
// network error.
func classify(rawURL string, timeout time.Duration, ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &apierr.TimeoutError{URL: rawURL, Timeout: timeout}
	}
	return &apierr.NetworkError{URL: rawURL, Err: err}
}
