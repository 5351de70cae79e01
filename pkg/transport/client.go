// Package transport is the HTTP client for the remote analysis service. It
// opens event streams for chat sessions and performs the request/response
// calls around them.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reviewagent/revchat/pkg/sealer"
	"github.com/reviewagent/revchat/pkg/stream"
	"github.com/reviewagent/revchat/pkg/utils"
)

const (
	ContentTypeJSON        = "application/json"
	ContentTypeEventStream = "text/event-stream"

	// UserIDHeader carries the caller's identity on chat endpoints.
	UserIDHeader = "userId"

	// maxErrorBody bounds how much of a failed response is kept.
	maxErrorBody = 4 * 1024
)

// Client talks to the analysis service rooted at a base URL.
//
// Configure it with the Set* builder methods before first use; a Client is
// safe for concurrent use afterwards.
type Client struct {
	baseURL   *url.URL
	userAgent string
	headers   map[string]string

	// httpClient serves request/response calls and carries the timeout.
	httpClient *http.Client

	// streamClient has no timeout: streams end by context cancellation.
	streamClient *http.Client

	sealer sealer.Sealer
	logger *slog.Logger
}

// NewClient returns a Client for the service at baseURL.
func NewClient(baseURL string) (*Client, error) {
	parsed, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Client{
		baseURL:      parsed,
		userAgent:    "revchat/" + utils.Version,
		headers:      make(map[string]string),
		httpClient:   &http.Client{Timeout: 10 * time.Second, Transport: transport},
		streamClient: &http.Client{Transport: transport},
		logger:       slog.New(slog.DiscardHandler),
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %s, error: %w", raw, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %s, scheme and host are required", raw)
	}

	// ResolveReference drops the last path segment without a trailing slash.
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	return parsed, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) SetTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

func (c *Client) SetUserAgent(userAgent string) *Client {
	if userAgent != "" {
		c.userAgent = userAgent
	}
	return c
}

func (c *Client) SetHeader(key, value string) *Client {
	c.headers[key] = value
	return c
}

func (c *Client) SetSealer(s sealer.Sealer) *Client {
	c.sealer = s
	return c
}

func (c *Client) SetLogger(l *slog.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

func (c *Client) setHeaders(req *http.Request, accept string) {
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	if req.Body != nil && req.Body != http.NoBody {
		req.Header.Set("Content-Type", ContentTypeJSON)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
}

func (c *Client) resolve(target string, query url.Values) (string, error) {
	rel, err := url.Parse(strings.TrimPrefix(target, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid path: %s, error: %w", target, err)
	}

	u := c.baseURL.ResolveReference(rel)
	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Stream opens the event stream described by req. A non-2xx response is
// returned as a *stream.TransportError carrying the status and body; nothing
// of it is parsed as events.
func (c *Client) Stream(ctx context.Context, req *stream.Request) (io.ReadCloser, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := c.resolve(req.Target, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq, ContentTypeEventStream)
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Cache-Control", "no-cache")

	c.logger.Debug("opening stream", "method", method, "target", req.Target)

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, &stream.TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	return resp.Body, nil
}

func statusError(resp *http.Response) *stream.TransportError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &stream.TransportError{
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(bodyBytes)),
	}
}
