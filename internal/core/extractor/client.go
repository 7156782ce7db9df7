package extractor

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultFetchTimeout = 8 * time.Second
	DefaultMaxBodyBytes = 5 << 20

	// a 3xx from a post URL is followed at most this many times, each hop re-validated
	maxRedirectHops = 1
)

// ClientConfig configures the shared outbound client
type ClientConfig struct {
	Timeout      time.Duration
	UserAgent    string
	ProxyURL     string // socks5://, socks5h://, http:// or https://
	MaxBodyBytes int64

	// Transport overrides the network transport. Used by tests.
	Transport http.RoundTripper
}

// Client performs bounded GET requests with a browser-like header set.
// It never follows redirects on its own.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
}

// Page is a fetched response body
type Page struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewClient builds the client shared by every extractor
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	tr := cfg.Transport
	if tr == nil {
		t, err := newTransport(cfg.ProxyURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		tr = t
	}

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: tr,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
	}, nil
}

func newTransport(proxyURL string, timeout time.Duration) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		ForceAttemptHTTP2:     true,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return tr, nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		tr.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		d, err := xproxy.FromURL(u, dialer)
		if err != nil {
			return nil, fmt.Errorf("socks5 proxy: %w", err)
		}
		cd, ok := d.(xproxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 proxy: dialer does not support contexts")
		}
		tr.DialContext = cd.DialContext
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return tr, nil
}

// HTTPClient exposes the underlying client for libraries that need one
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// UserAgent returns the configured User-Agent
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Get performs a single request without following redirects.
// Any status is returned to the caller.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", rawURL, c.maxBody)
	}

	return &Page{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// GetJSON fetches a fixed API endpoint and decodes a 200 response into v
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	h := http.Header{"Accept": {"application/json"}}
	for k, vs := range header {
		h[k] = vs
	}
	page, err := c.Get(ctx, rawURL, h)
	if err != nil {
		return err
	}
	if page.StatusCode != http.StatusOK {
		return &StatusError{URL: rawURL, StatusCode: page.StatusCode}
	}
	if err := json.Unmarshal(page.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// FetchPost fetches a user-supplied post URL. The URL and every redirect
// target must be on tag's host allow-list. A 404 or 410 yields ErrNotFound.
func (c *Client) FetchPost(ctx context.Context, tag platform.Tag, rawURL string, header http.Header) (*Page, error) {
	current := rawURL
	for hop := 0; ; hop++ {
		if err := platform.ValidateHost(current, tag); err != nil {
			return nil, err
		}
		page, err := c.Get(ctx, current, header)
		if err != nil {
			return nil, err
		}

		switch {
		case page.StatusCode >= 200 && page.StatusCode < 300:
			return page, nil
		case isRedirect(page.StatusCode):
			if hop >= maxRedirectHops {
				return nil, fmt.Errorf("too many redirects from %s", rawURL)
			}
			next, err := resolveLocation(current, page.Header.Get("Location"))
			if err != nil {
				return nil, err
			}
			current = next
		default:
			return nil, &StatusError{URL: current, StatusCode: page.StatusCode, Post: true}
		}
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolveLocation(base, location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("redirect from %s without location", base)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	l, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location: %w", err)
	}
	return b.ResolveReference(l).String(), nil
}
