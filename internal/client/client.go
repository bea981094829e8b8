// Package client talks to the blood network REST backend.
// Client is the transport; API exposes one typed method per backend endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/config"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/logger"
)

// RequestIDHeader carries a per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// Client is a thin JSON-over-HTTP transport. Every call is attempted once;
// failures are reported to the caller, never retried.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	headers    map[string]string
	logger     *zap.Logger
	mu         sync.RWMutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for per-call debug lines.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewClient creates a new backend client.
func NewClient(cfg config.APIConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		headers:    make(map[string]string),
		logger:     zap.NewNop(),
	}

	c.headers["Content-Type"] = "application/json"
	c.headers["Accept"] = "application/json"
	if cfg.UserAgent != "" {
		c.headers["User-Agent"] = cfg.UserAgent
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Request represents an HTTP request to be executed.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    any
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	RequestID  string
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// ErrorMessage extracts the backend's "error" field, falling back to
// "message". Non-JSON bodies yield "".
func (r *Response) ErrorMessage() string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}

// Do executes a request once. A transport failure (no response) is
// returned as a domain network error; any HTTP status is returned as a
// Response for the caller to interpret.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	u := c.buildURL(req.Path)

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	requestID := uuid.NewString()
	c.setHeaders(httpReq, req.Headers)
	httpReq.Header.Set(RequestIDHeader, requestID)

	log := logger.For(ctx, c.logger).With(
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		log.Warn("backend unreachable", zap.Duration("duration", duration), zap.Error(err))
		return nil, domain.NewNetworkError(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		log.Warn("reading response body failed", zap.Error(err))
		return nil, domain.NewNetworkError(fmt.Errorf("reading response body: %w", err))
	}

	log.Debug("backend call",
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", duration),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Duration:   duration,
		RequestID:  requestID,
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// buildURL joins the base URL (which may carry a path prefix) and path.
func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	return u.String()
}

// setHeaders sets headers on the request.
func (c *Client) setHeaders(req *http.Request, customHeaders map[string]string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range customHeaders {
		req.Header.Set(k, v)
	}
}

// SetHeader sets a default header for all requests.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}
