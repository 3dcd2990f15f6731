// Package transport sends single HTTP requests over one reusable connection pool
// and reports how long each round trip took.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxBodySize = 64 << 20 // 64 MiB
	defaultUserAgent   = "api-smoke-testing/1.0"
)

// Request describes one outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  map[string]string
	Body    json.RawMessage
	Timeout time.Duration
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// JSON decodes the body as an arbitrary JSON value.
func (r *Response) JSON() (any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "decode response body")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("decode response body: trailing data after JSON value")
	}
	return v, nil
}

// Client owns the connection pool. Create it once and share it across requests.
type Client struct {
	http        *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout sets the timeout used when a request carries none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header sent by default.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize caps how many response bytes are read. Larger bodies fail
// the request with KindRead instead of being truncated.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithHTTPClient replaces the underlying client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a Client with a tuned, pooled transport.
func New(opts ...Option) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		http:        &http.Client{Transport: transport},
		userAgent:   defaultUserAgent,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close drops idle pooled connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Send executes req. The timeout covers connection setup, the request and reading
// the whole response body. Every failure is returned as a *TransportError.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, newTransportError(KindInvalidRequest, 0, err)
	}

	reqCtx, cancel := context.WithTimeout(httpReq.Context(), timeout)
	defer cancel()
	httpReq = httpReq.WithContext(reqCtx)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, newTransportError(classify(err), time.Since(start), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	elapsed := time.Since(start)
	if err != nil {
		kind := classify(err)
		if kind == KindRequest {
			kind = KindRead
		}
		return nil, newTransportError(kind, elapsed, errors.Wrap(err, "read response body"))
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, newTransportError(KindRead, elapsed,
			errors.Errorf("response body exceeds %d bytes", c.maxBodySize))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Elapsed:    elapsed,
	}, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	target, err := buildURL(req.URL, req.Params)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	hasBody := hasPayload(req.Body)
	if hasBody {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), target, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	if hasBody {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func buildURL(raw string, params map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "parse url")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("invalid url %q: scheme and host are required", raw)
	}
	if len(params) == 0 {
		return u.String(), nil
	}

	query := u.Query()
	for k, v := range params {
		query.Set(k, v)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func hasPayload(body json.RawMessage) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

var redactedHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie"}

// Redacted returns a copy of r with credential headers masked, for logging.
func (r Request) Redacted() Request {
	if len(r.Headers) == 0 {
		return r
	}
	headers := maps.Clone(r.Headers)
	for k := range headers {
		for _, name := range redactedHeaders {
			if strings.EqualFold(k, name) {
				headers[k] = "***"
			}
		}
	}
	r.Headers = headers
	return r
}

// Curl renders req as an equivalent curl command line.
func (r Request) Curl() string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl -X %s", strings.ToUpper(r.Method))

	for _, k := range slices.Sorted(maps.Keys(r.Headers)) {
		fmt.Fprintf(&b, " -H '%s: %s'", k, r.Headers[k])
	}
	if hasPayload(r.Body) {
		if _, ok := lookupHeader(r.Headers, "Content-Type"); !ok {
			b.WriteString(" -H 'Content-Type: application/json'")
		}
		fmt.Fprintf(&b, " -d '%s'", string(r.Body))
	}

	target, err := buildURL(r.URL, r.Params)
	if err != nil {
		target = r.URL
	}
	fmt.Fprintf(&b, " '%s'", target)
	return b.String()
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
