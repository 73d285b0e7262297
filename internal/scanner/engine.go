package scanner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rachel/recon/internal/config"
	"github.com/rachel/recon/internal/crawler"
	"github.com/rachel/recon/internal/transport"
)

// Fetcher performs one GET and returns the fully read response.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
}

type Engine struct {
	config  config.ScanConfig
	fetcher Fetcher
	stats   *Stats
	logger  zerolog.Logger
}

// NewEngine builds the HTTP client for cfg. An error here means no request can
// be made at all.
func NewEngine(cfg config.ScanConfig, logger zerolog.Logger) (*Engine, error) {
	client, err := transport.NewClient(transport.Options{
		Timeout:         cfg.Timeout,
		FollowRedirects: cfg.FollowRedirects,
		UserAgent:       cfg.UserAgent,
		MaxBodyBytes:    int64(cfg.MaxBodyMB) * 1024 * 1024,
		RateLimit:       cfg.RateLimit,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build http client: %w", err)
	}
	return newEngine(cfg, client, logger), nil
}

func newEngine(cfg config.ScanConfig, fetcher Fetcher, logger zerolog.Logger) *Engine {
	return &Engine{
		config:  cfg,
		fetcher: fetcher,
		stats:   NewStats(0),
		logger:  logger.With().Str("component", "scanner").Logger(),
	}
}

// Stats returns the counters updated by Run. It is safe to read them while
// Run is in progress.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// Run scans the explicit endpoints, or crawls the target first when there are
// none. Per-URL failures are reported in the results; the returned error is
// only set when the crawl could not start.
func (e *Engine) Run(ctx context.Context) ([]Result, *Stats, error) {
	urls := e.config.Endpoints
	if e.config.Crawl() {
		walker := crawler.NewWalker(e.fetcher, crawler.Options{
			MaxPages: e.config.MaxPages,
			MaxDepth: e.config.MaxDepth,
			Logger:   e.logger,
		})
		crawled, err := walker.Crawl(ctx, e.config.Target)
		if err != nil {
			return nil, e.stats, fmt.Errorf("crawl %s: %w", e.config.Target, err)
		}
		urls = crawled.Discovered
	}

	e.stats.SetDiscovered(int64(len(urls)))
	e.stats.IncrementTotal(int64(len(urls)))
	return e.scan(ctx, urls, e.stats), e.stats, nil
}

// ScanURLs fetches every URL with at most Concurrency requests in flight and
// returns one result per URL in completion order.
func (e *Engine) ScanURLs(ctx context.Context, urls []string) ([]Result, *Stats) {
	stats := NewStats(int64(len(urls)))
	return e.scan(ctx, urls, stats), stats
}

func (e *Engine) scan(ctx context.Context, urls []string, stats *Stats) []Result {
	if len(urls) == 0 {
		return nil
	}

	workers := e.config.Concurrency
	if workers <= 0 {
		workers = config.DefaultConcurrency
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	taskChan := make(chan Task, workers*2)
	resultChan := make(chan Result, workers*2)

	results := make([]Result, 0, len(urls))
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range resultChan {
			results = append(results, result)
		}
	}()

	workerDone := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go worker(
			ctx,
			taskChan,
			resultChan,
			e.fetcher,
			e.config.SnippetLength,
			stats,
			e.logger,
			workerDone,
		)
	}

	go func() {
		for _, u := range urls {
			taskChan <- Task{URL: u}
		}
		close(taskChan)
	}()

	for i := 0; i < workers; i++ {
		<-workerDone
	}
	close(resultChan)
	<-collected

	e.logger.Info().
		Int("urls", len(urls)).
		Int64("errors", stats.GetErrors()).
		Int64("fields", stats.GetFields()).
		Int64("secrets", stats.GetSecrets()).
		Dur("elapsed", stats.Elapsed()).
		Msg("scan finished")

	return results
}
