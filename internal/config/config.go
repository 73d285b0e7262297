package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	Extension = ".rchl"

	DefaultTimeout       = 10 * time.Second
	DefaultConcurrency   = 10
	DefaultMaxPages      = 50
	DefaultMaxDepth      = 2
	DefaultSnippetLength = 400
	DefaultMaxBodyMB     = 10
	DefaultUserAgent     = "rachel-recon/1.0"
)

var (
	ErrDuplicateScope   = errors.New("scope defined more than once")
	ErrMissingTarget    = errors.New("target is required")
	ErrMissingScope     = errors.New("scope is required")
	ErrInvalidTimeout   = errors.New("invalid timeout")
	ErrInvalidTarget    = errors.New("invalid target url")
	ErrInvalidExtension = errors.New("file must end with the " + Extension + " suffix")
)

// ScanConfig is the fully built input of one scan. It is not modified after
// Build returns.
type ScanConfig struct {
	Target string
	// Endpoints is the explicit URL list. Empty means the target is crawled.
	Endpoints []string
	// Timeout of zero means no timeout.
	Timeout         time.Duration
	UserAgent       string
	FollowRedirects bool

	MaxPages      int
	MaxDepth      int
	Concurrency   int
	SnippetLength int
	// RateLimit caps requests per second per host. Zero disables it.
	RateLimit int
	MaxBodyMB int
}

func envOrDefault(envKey string, defaultVal int) int {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func envOrDefaultStr(envKey string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return defaultVal
}

// Default returns the engine defaults with environment overrides applied.
func Default() ScanConfig {
	return ScanConfig{
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		FollowRedirects: true,
		MaxPages:        envOrDefault("RACHEL_MAX_PAGES", DefaultMaxPages),
		MaxDepth:        envOrDefault("RACHEL_MAX_DEPTH", DefaultMaxDepth),
		Concurrency:     envOrDefault("RACHEL_CONCURRENCY", DefaultConcurrency),
		SnippetLength:   DefaultSnippetLength,
		MaxBodyMB:       DefaultMaxBodyMB,
	}
}

// DefaultLogLevel honours RACHEL_LOG_LEVEL.
func DefaultLogLevel() string {
	return envOrDefaultStr("RACHEL_LOG_LEVEL", "info")
}

func (c ScanConfig) Crawl() bool {
	return len(c.Endpoints) == 0
}

// CheckExtension rejects paths that are not config files.
func CheckExtension(path string) error {
	if !strings.HasSuffix(path, Extension) {
		return fmt.Errorf("%w: %s", ErrInvalidExtension, path)
	}
	return nil
}

func Validate(cfg ScanConfig) error {
	if cfg.Target == "" {
		return ErrMissingTarget
	}
	if _, err := parseTarget(cfg.Target); err != nil {
		return err
	}

	for _, ep := range cfg.Endpoints {
		u, err := url.Parse(ep)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("endpoint %q is not an absolute url", ep)
		}
	}

	if cfg.Timeout < 0 {
		return fmt.Errorf("%w: must not be negative, got %s", ErrInvalidTimeout, cfg.Timeout)
	}
	if cfg.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d. Use concurrency= or RACHEL_CONCURRENCY (default: %d)", cfg.Concurrency, DefaultConcurrency)
	}
	if cfg.MaxPages <= 0 {
		return fmt.Errorf("max_pages must be positive, got %d (default: %d)", cfg.MaxPages, DefaultMaxPages)
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", cfg.MaxDepth)
	}
	if cfg.SnippetLength < 0 {
		return fmt.Errorf("snippet_length must not be negative, got %d", cfg.SnippetLength)
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %d", cfg.RateLimit)
	}
	if cfg.MaxBodyMB <= 0 {
		return fmt.Errorf("max_body_mb must be positive, got %d", cfg.MaxBodyMB)
	}
	if strings.ContainsAny(cfg.UserAgent, "\r\n\x00") {
		return fmt.Errorf("user_agent contains control characters")
	}

	return nil
}

func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q must be an absolute http(s) url", ErrInvalidTarget, raw)
	}
	return u, nil
}

// resolveEndpoint joins a scope entry onto the target. Absolute URLs are kept
// as written; anything else is appended to the target path.
func resolveEndpoint(target *url.URL, entry string) (string, error) {
	if u, err := url.Parse(entry); err == nil && u.IsAbs() {
		if u.Host == "" {
			return "", fmt.Errorf("scope entry %q has no host", entry)
		}
		return u.String(), nil
	}

	out := *target
	out.RawQuery = ""
	out.Fragment = ""
	out.RawPath = ""

	path := out.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	rest := strings.TrimPrefix(entry, "/")
	ref, err := url.Parse(rest)
	if err != nil {
		return "", fmt.Errorf("scope entry %q: %w", entry, err)
	}
	out.Path = path + ref.Path
	out.RawQuery = ref.RawQuery
	return out.String(), nil
}
