package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxRedirects = 10
	DefaultMaxBodyBytes = 10 * 1024 * 1024
	DefaultUserAgent    = "rachel-recon/1.0"
)

var ErrTooManyRedirects = errors.New("too many redirects")

type Options struct {
	// Timeout bounds the whole request including body read. Zero means none.
	Timeout         time.Duration
	FollowRedirects bool
	MaxRedirects    int
	UserAgent       string
	MaxBodyBytes    int64
	// RateLimit caps requests per second per host. Zero disables it.
	RateLimit int
	// Proxy overrides the environment proxy settings when non-empty.
	Proxy  string
	Logger zerolog.Logger
}

type Client struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
	rateLimit    int
	limiters     map[string]*rate.Limiter
	limitersMu   sync.RWMutex
	logger       zerolog.Logger
}

// Response is a fully read response with its body decoded to UTF-8 text.
type Response struct {
	URL         string
	StatusCode  int
	Header      http.Header
	ContentType string
	Body        string
	// Charset is the encoding the body was decoded from.
	Charset   string
	ValidUTF8 bool
	Truncated bool
	Duration  time.Duration
}

func NewClient(opts Options) (*Client, error) {
	if strings.ContainsAny(opts.UserAgent, "\r\n\x00") {
		return nil, fmt.Errorf("invalid user agent %q", opts.UserAgent)
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %s", opts.Timeout)
	}

	proxy := http.ProxyFromEnvironment
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", opts.Proxy)
		}
		proxy = http.ProxyURL(proxyURL)
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	followRedirects := opts.FollowRedirects
	checkRedirect := func(req *http.Request, via []*http.Request) error {
		if !followRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, maxRedirects)
		}
		return nil
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:                 proxy,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       30 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
			CheckRedirect: checkRedirect,
		},
		userAgent:    userAgent,
		maxBodyBytes: maxBody,
		rateLimit:    opts.RateLimit,
		limiters:     make(map[string]*rate.Limiter),
		logger:       opts.Logger.With().Str("component", "transport").Logger(),
	}, nil
}

func (c *Client) getRateLimiter(host string) *rate.Limiter {
	if c.rateLimit <= 0 {
		return nil
	}

	c.limitersMu.RLock()
	limiter, exists := c.limiters[host]
	c.limitersMu.RUnlock()

	if exists {
		return limiter
	}

	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()

	if limiter, exists := c.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(c.rateLimit), 1)
	c.limiters[host] = limiter
	return limiter
}

// Get issues a single GET. It never retries; any transport, redirect or body
// read failure is returned as an error.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if limiter := c.getRateLimiter(req.URL.Host); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter cancelled: %w", err)
		}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Str("url", rawURL).Err(err).Msg("request failed")
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, truncated, err := c.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	body, charsetName, valid := decodeBody(raw, contentType)

	out := &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		ContentType: contentType,
		Body:        body,
		Charset:     charsetName,
		ValidUTF8:   valid,
		Truncated:   truncated,
		Duration:    time.Since(start),
	}

	c.logger.Debug().
		Str("url", rawURL).
		Int("status", out.StatusCode).
		Int("bytes", len(raw)).
		Dur("duration", out.Duration).
		Msg("request completed")

	return out, nil
}

func (c *Client) readBody(body io.Reader) ([]byte, bool, error) {
	limitedReader := io.LimitReader(body, c.maxBodyBytes+1)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > c.maxBodyBytes {
		data = data[:c.maxBodyBytes]
		// Drop a rune split by the cut.
		for i := 0; i < utf8.UTFMax-1 && len(data) > 0 && !utf8.Valid(data); i++ {
			data = data[:len(data)-1]
		}
		return data, true, nil
	}
	return data, false, nil
}

// decodeBody converts raw to UTF-8 using the declared or sniffed charset.
// A body declared (or detected) as UTF-8 is passed through untouched so that
// invalid sequences can be reported instead of silently replaced.
func decodeBody(raw []byte, contentType string) (string, string, bool) {
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" || enc == nil {
		return string(raw), "utf-8", utf8.Valid(raw)
	}

	decoded, err := decode(enc, raw)
	if err != nil {
		return string(raw), name, utf8.Valid(raw)
	}
	return string(decoded), name, utf8.Valid(decoded)
}

func decode(enc encoding.Encoding, raw []byte) ([]byte, error) {
	return enc.NewDecoder().Bytes(raw)
}

// HeaderMap flattens a header into one value per name, joining repeated
// values with ", ".
func HeaderMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
