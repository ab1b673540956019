package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds connect plus read time for one request
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read
const maxBodyBytes = 4 << 20

// Request is one outbound call
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the status and body of a completed call
type Response struct {
	StatusCode int
	Body       []byte
}

// Success reports a 2xx status
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Transport executes requests synchronously from the caller's point of view.
// A non-2xx status is not an error at this layer; errors mean the request
// could not be completed at all.
type Transport interface {
	Execute(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to the Transport interface
type Func func(ctx context.Context, req Request) (*Response, error)

func (f Func) Execute(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPTransport executes requests with net/http
type HTTPTransport struct {
	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client

	// UserAgent is sent when the request does not set one
	UserAgent string
}

// NewHTTPTransport creates an HTTP transport with the given timeout
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithUserAgent sets the default User-Agent header
func (t *HTTPTransport) WithUserAgent(ua string) *HTTPTransport {
	t.UserAgent = ua
	return t
}

// Execute performs the request
func (t *HTTPTransport) Execute(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if t.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
	}, nil
}
