// Package httpclient performs outbound HTTP requests with per-attempt
// timeouts, retries on network failures and rotating browser user agents.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultRetries    = 2
	DefaultRetryDelay = 200 * time.Millisecond

	maxBodyBytes = 5 << 20
)

// UserAgents are rotated when no explicit user agent is configured.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.4; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	// UserAgent pins the User-Agent header. When empty a random entry of
	// UserAgents (or the package list) is used per request.
	UserAgent  string
	UserAgents []string
	// Proxy is a host:port or URL of an HTTP proxy.
	Proxy  string
	Header http.Header
	Logger *zap.Logger
}

// Response is the outcome of a request after redirects.
type Response struct {
	URL      string
	FinalURL string
	Status   int
	Header   http.Header
	Body     []byte
}

// ContentType returns the raw Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// MediaType returns the Content-Type without parameters, lowercased.
func (r *Response) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.ContentType())
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(r.ContentType(), ";", 2)[0]))
	}
	return mt
}

// IsHTML reports whether the response declares an HTML body.
func (r *Response) IsHTML() bool {
	return r.MediaType() == "text/html"
}

// Client issues HTTP requests.
type Client struct {
	http   *http.Client
	opts   Options
	logger *zap.Logger
}

// New builds a client from opts.
func New(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = UserAgents
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy := strings.TrimSpace(opts.Proxy); proxy != "" {
		proxyURL, err := parseProxy(proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &Client{
		http:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		opts:   opts,
		logger: logger,
	}, nil
}

// Timeout returns the per-attempt timeout.
func (c *Client) Timeout() time.Duration {
	return c.opts.Timeout
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, header)
}

// Head performs a HEAD request.
func (c *Client) Head(ctx context.Context, rawURL string) (*Response, error) {
	return c.Do(ctx, http.MethodHead, rawURL, nil)
}

// Do performs a request, retrying network failures. HTTP error statuses are
// returned as responses, not errors.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header) (*Response, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	attempt := 0
	op := func() (*Response, error) {
		attempt++
		resp, err := c.once(ctx, method, rawURL, header)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil || !retriable(err) {
			return nil, backoff.Permanent(err)
		}
		c.logger.Debug("http request failed, retrying",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return nil, err
	}
	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.opts.RetryDelay)),
		backoff.WithMaxTries(uint(c.opts.Retries+1)),
	)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s %s: %w", method, rawURL, err)
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, method, rawURL string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("User-Agent", c.userAgent())
	for key, values := range c.opts.Header {
		req.Header[key] = append([]string(nil), values...)
	}
	for key, values := range header {
		req.Header[key] = append([]string(nil), values...)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return &Response{
		URL:      rawURL,
		FinalURL: resp.Request.URL.String(),
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Body:     body,
	}, nil
}

func (c *Client) userAgent() string {
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		return ua
	}
	return c.opts.UserAgents[rand.IntN(len(c.opts.UserAgents))]
}

// retriable reports whether err is a transport level failure.
func retriable(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func parseProxy(proxy string) (*url.URL, error) {
	if !strings.Contains(proxy, "://") {
		proxy = "http://" + proxy
	}
	u, err := url.Parse(proxy)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("httpclient: invalid proxy %q", proxy)
	}
	return u, nil
}
