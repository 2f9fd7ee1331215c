// Package httpclient is the outbound HTTP client used for the places API
// and for photo downloads. Every request gets a deadline and a User-Agent,
// and can be observed for metrics.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	// DefaultTimeout bounds a request whose context carries no deadline.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "placesync"
)

// Config configures a Client. Zero fields take defaults.
type Config struct {
	DefaultTimeout time.Duration
	UserAgent      string

	// Transport replaces the pooled default transport; tests install an
	// httpmock transport here.
	Transport http.RoundTripper
}

// Exchange describes one finished round trip. Response is nil when Err is
// set. Elapsed runs until the response headers arrived.
type Exchange struct {
	Request  *http.Request
	Response *http.Response
	Err      error
	Elapsed  time.Duration
}

// Observer is called after every round trip. It must not read the body.
type Observer func(Exchange)

// Client is safe for concurrent use.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
	observer  atomic.Pointer[Observer]
}

// New returns a Client. cfg may be nil and is not modified.
func New(cfg *Config) *Client {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Transport == nil {
		c.Transport = pooledTransport()
	}

	return &Client{
		http:      &http.Client{Transport: c.Transport},
		timeout:   c.DefaultTimeout,
		userAgent: c.UserAgent,
	}
}

func pooledTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
}

// Observe installs fn as the observer, replacing any previous one. nil
// removes it.
func (c *Client) Observe(fn Observer) {
	if fn == nil {
		c.observer.Store(nil)
		return
	}
	c.observer.Store(&fn)
}

// Do sends req under ctx. Without a deadline on ctx the default timeout
// applies and keeps running until the response body is closed.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	req = req.WithContext(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if obs := c.observer.Load(); obs != nil {
		(*obs)(Exchange{Request: req, Response: resp, Err: err, Elapsed: time.Since(start)})
	}

	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Get sends a GET to url with the given extra headers.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	return c.Do(ctx, req)
}

// Close drops idle pooled connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
