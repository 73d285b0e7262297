package scanner

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/rachel/recon/internal/analyzer"
	"github.com/rachel/recon/internal/detection"
	"github.com/rachel/recon/internal/transport"
)

const errInvalidUTF8 = "body is not valid UTF-8"

func worker(
	ctx context.Context,
	tasks <-chan Task,
	results chan<- Result,
	fetcher Fetcher,
	snippetLength int,
	stats *Stats,
	logger zerolog.Logger,
	done chan<- struct{},
) {
	defer func() {
		done <- struct{}{}
	}()

	for task := range tasks {
		result := runTask(ctx, task, fetcher, snippetLength, logger)
		stats.IncrementProcessed()

		if result.Failed() {
			stats.IncrementErrors()
		}
		stats.AddFields(int64(len(result.InputFields)))
		stats.AddSecrets(int64(result.SecretCount()))

		results <- result
	}
}

// runTask always yields a result for the task, converting a panic in the
// fetch or analysis into an error on that URL alone.
func runTask(ctx context.Context, task Task, fetcher Fetcher, snippetLength int, logger zerolog.Logger) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("url", task.URL).Interface("panic", r).Msg("scan task failed")
			result = Result{
				URL:       task.URL,
				Headers:   map[string]string{},
				Error:     fmt.Sprintf("scan task failed: %v", r),
				Timestamp: time.Now().Format(time.RFC3339),
			}
		}
	}()

	start := time.Now()
	resp, err := fetcher.Get(ctx, task.URL)
	if err != nil {
		logger.Debug().Str("url", task.URL).Err(err).Msg("request failed")
		return Result{
			URL:        task.URL,
			Headers:    map[string]string{},
			Error:      err.Error(),
			DurationMS: time.Since(start).Milliseconds(),
			Timestamp:  time.Now().Format(time.RFC3339),
		}
	}

	return buildResult(task.URL, resp, snippetLength, time.Since(start), logger)
}

func buildResult(rawURL string, resp *transport.Response, snippetLength int, elapsed time.Duration, logger zerolog.Logger) Result {
	result := Result{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		Headers:     transport.HeaderMap(resp.Header),
		ContentType: resp.ContentType,
		DurationMS:  elapsed.Milliseconds(),
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	pageURL, err := url.Parse(resp.URL)
	if err != nil || resp.URL == "" {
		pageURL, _ = url.Parse(rawURL)
	}

	page := analyzer.Analyze(resp.Body, resp.ContentType, pageURL, analyzer.Options{SnippetLength: snippetLength})
	result.BodySnippet = page.Snippet

	if !resp.ValidUTF8 {
		result.Error = errInvalidUTF8
		logger.Debug().Str("url", rawURL).Str("charset", resp.Charset).Msg("skipping field extraction")
		return result
	}

	detection.EvaluateAll(page.Fields)
	result.InputFields = page.Fields

	logger.Debug().
		Str("url", rawURL).
		Int("status", result.StatusCode).
		Int("fields", len(result.InputFields)).
		Bool("truncated", resp.Truncated).
		Msg("page scanned")

	return result
}
