// Package crawler discovers in-scope pages breadth-first from a target URL.
package crawler

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/rachel/recon/internal/analyzer"
	"github.com/rachel/recon/internal/transport"
	"github.com/rachel/recon/internal/urlutil"
)

const (
	DefaultMaxPages = 50
	DefaultMaxDepth = 2
)

// Fetcher performs one GET. The walker never has more than one call in flight.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
}

type Options struct {
	MaxPages int
	MaxDepth int
	Logger   zerolog.Logger
}

type Walker struct {
	fetcher  Fetcher
	maxPages int
	maxDepth int
	logger   zerolog.Logger
}

// Result is the outcome of one crawl. Discovered holds each accepted URL once,
// in the order it was fetched.
type Result struct {
	Discovered []string
	Failed     int
	OutOfScope int
	Duplicates int
}

type entry struct {
	url   string
	depth int
}

func NewWalker(fetcher Fetcher, opts Options) *Walker {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	maxDepth := opts.MaxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Walker{
		fetcher:  fetcher,
		maxPages: maxPages,
		maxDepth: maxDepth,
		logger:   opts.Logger.With().Str("component", "crawler").Logger(),
	}
}

// Crawl walks the target's origin breadth-first. Fetch failures and error
// statuses drop the page without aborting the walk. The walk ends when the
// queue drains, the page cap is reached, or ctx is done.
func (w *Walker) Crawl(ctx context.Context, target string) (Result, error) {
	targetURL, err := url.Parse(target)
	if err != nil {
		return Result{}, fmt.Errorf("parse target: %w", err)
	}
	if !targetURL.IsAbs() || targetURL.Host == "" || !urlutil.IsHTTP(targetURL) {
		return Result{}, fmt.Errorf("target must be an absolute http(s) url: %q", target)
	}

	var res Result
	visited := map[string]struct{}{urlutil.CanonicalizeURL(targetURL): {}}
	queue := []entry{{url: target, depth: 0}}

	for len(queue) > 0 && len(res.Discovered) < w.maxPages {
		if ctx.Err() != nil {
			w.logger.Debug().Err(ctx.Err()).Msg("crawl stopped")
			break
		}

		current := queue[0]
		queue = queue[1:]

		resp, err := w.fetcher.Get(ctx, current.url)
		if err != nil {
			res.Failed++
			w.logger.Debug().Str("url", current.url).Int("depth", current.depth).Err(err).Msg("dropping page")
			continue
		}
		if resp.StatusCode >= 400 {
			res.Failed++
			w.logger.Debug().Str("url", current.url).Int("status", resp.StatusCode).Msg("dropping page")
			continue
		}

		res.Discovered = append(res.Discovered, current.url)
		w.logger.Debug().Str("url", current.url).Int("depth", current.depth).Msg("discovered")

		if current.depth >= w.maxDepth || !analyzer.IsHTML(resp.ContentType, resp.Body) {
			continue
		}

		base := baseURL(resp, current.url)
		for _, link := range analyzer.ExtractLinks(resp.Body, base) {
			if !urlutil.IsHTTP(link) || !urlutil.SameOriginURL(link, targetURL) {
				res.OutOfScope++
				continue
			}
			key := urlutil.CanonicalizeURL(link)
			if _, seen := visited[key]; seen {
				res.Duplicates++
				continue
			}
			visited[key] = struct{}{}
			queue = append(queue, entry{url: key, depth: current.depth + 1})
		}
	}

	w.logger.Info().
		Str("target", target).
		Int("discovered", len(res.Discovered)).
		Int("failed", res.Failed).
		Int("out_of_scope", res.OutOfScope).
		Msg("crawl finished")

	return res, nil
}

func baseURL(resp *transport.Response, fallback string) *url.URL {
	if resp.URL != "" {
		if u, err := url.Parse(resp.URL); err == nil {
			return u
		}
	}
	u, _ := url.Parse(fallback)
	return u
}
