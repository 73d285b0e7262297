package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rachel/recon/internal/config"
	"github.com/rachel/recon/internal/transport"
)

type fakeFetcher struct {
	delay    time.Duration
	fail     map[string]bool
	panics   map[string]bool
	body     string
	invalid  bool
	inFlight int32
	maxSeen  int32

	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeFetcher) Get(ctx context.Context, rawURL string) (*transport.Response, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[rawURL]++
	f.mu.Unlock()

	time.Sleep(f.delay)

	if f.panics[rawURL] {
		panic("boom")
	}
	if f.fail[rawURL] {
		return nil, errors.New("connection refused")
	}
	return &transport.Response{
		URL:         rawURL,
		StatusCode:  200,
		Header:      http.Header{"Content-Type": {"text/html"}},
		ContentType: "text/html",
		Body:        f.body,
		ValidUTF8:   !f.invalid,
	}, nil
}

func testConfig(concurrency int) config.ScanConfig {
	cfg := config.Default()
	cfg.Target = "https://a.example/"
	cfg.Concurrency = concurrency
	return cfg
}

func urlList(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://a.example/p%d", i)
	}
	return urls
}

func resultURLs(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.URL)
	}
	sort.Strings(out)
	return out
}

func TestScanURLs_ConcurrencyBound(t *testing.T) {
	f := &fakeFetcher{delay: 20 * time.Millisecond, body: "<p>ok</p>"}
	engine := newEngine(testConfig(3), f, zerolog.Nop())

	urls := urlList(20)
	results, stats := engine.ScanURLs(context.Background(), urls)

	require.Len(t, results, 20)
	assert.LessOrEqual(t, atomic.LoadInt32(&f.maxSeen), int32(3))
	assert.Equal(t, int64(20), stats.GetProcessed())

	expected := append([]string(nil), urls...)
	sort.Strings(expected)
	assert.Equal(t, expected, resultURLs(results))
}

func TestScanURLs_FailuresAreIsolated(t *testing.T) {
	urls := urlList(10)
	f := &fakeFetcher{
		body:   `<form><input type="password" name="pw"></form>`,
		fail:   map[string]bool{urls[2]: true, urls[7]: true},
		panics: map[string]bool{urls[5]: true},
	}
	engine := newEngine(testConfig(4), f, zerolog.Nop())

	results, stats := engine.ScanURLs(context.Background(), urls)
	require.Len(t, results, 10)

	byURL := map[string]Result{}
	for _, r := range results {
		_, dup := byURL[r.URL]
		require.False(t, dup, "one result per url")
		byURL[r.URL] = r
	}

	for _, u := range []string{urls[2], urls[7]} {
		r := byURL[u]
		assert.Equal(t, 0, r.StatusCode)
		assert.Equal(t, "connection refused", r.Error)
		assert.Empty(t, r.InputFields)
		assert.NotNil(t, r.Headers)
	}
	assert.Contains(t, byURL[urls[5]].Error, "scan task failed")
	assert.Equal(t, 0, byURL[urls[5]].StatusCode)

	ok := byURL[urls[0]]
	assert.Equal(t, 200, ok.StatusCode)
	require.Len(t, ok.InputFields, 1)
	assert.True(t, ok.InputFields[0].ProbableSecret)

	assert.Equal(t, int64(3), stats.GetErrors())
	assert.Equal(t, int64(7), stats.GetFields())
	assert.Equal(t, int64(7), stats.GetSecrets())
	for _, u := range urls {
		assert.Equal(t, 1, f.calls[u], "no retries for %s", u)
	}
}

func TestScanURLs_InvalidUTF8(t *testing.T) {
	f := &fakeFetcher{body: `<input name="token" value="x">`, invalid: true}
	engine := newEngine(testConfig(1), f, zerolog.Nop())

	results, _ := engine.ScanURLs(context.Background(), []string{"https://a.example/"})
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, 200, r.StatusCode)
	assert.Equal(t, errInvalidUTF8, r.Error)
	assert.Empty(t, r.InputFields)
	assert.Equal(t, "text/html", r.Headers["Content-Type"])
	assert.NotEmpty(t, r.BodySnippet)
}

func TestScanURLs_Empty(t *testing.T) {
	engine := newEngine(testConfig(3), &fakeFetcher{}, zerolog.Nop())
	results, stats := engine.ScanURLs(context.Background(), nil)
	assert.Empty(t, results)
	assert.Equal(t, int64(0), stats.GetTotal())
}

func TestScanURLs_SnippetLength(t *testing.T) {
	cfg := testConfig(1)
	cfg.SnippetLength = 5
	f := &fakeFetcher{body: "héllo wörld"}
	engine := newEngine(cfg, f, zerolog.Nop())

	results, _ := engine.ScanURLs(context.Background(), []string{"https://a.example/"})
	require.Len(t, results, 1)
	assert.Equal(t, "héllo", results[0].BodySnippet)
}

func TestEngineRun_ExplicitEndpointsSkipCrawl(t *testing.T) {
	var hits sync.Map
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Store(r.URL.Path, true)
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Write([]byte(`<a href="/linked">x</a><textarea name="comment"></textarea>`))
	}))
	defer server.Close()

	cfg := testConfig(2)
	cfg.Target = server.URL
	cfg.Endpoints = []string{server.URL + "/one", server.URL + "/two"}

	engine, err := NewEngine(cfg, zerolog.Nop())
	require.NoError(t, err)

	results, stats, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), stats.GetDiscovered())

	_, linked := hits.Load("/linked")
	assert.False(t, linked, "explicit endpoints are not crawled")

	for _, r := range results {
		assert.Equal(t, 200, r.StatusCode)
		assert.Equal(t, "DENY", r.Headers["X-Frame-Options"])
		require.Len(t, r.InputFields, 1)
		assert.Equal(t, "textarea", r.InputFields[0].TagName)
		assert.False(t, r.InputFields[0].ProbableSecret)
	}
}

func TestEngineRun_CrawlThenScan(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/b">B</a><a href="https://out-of-scope.example/c">C</a></body></html>`))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><form action="/login" method="post"><input type="password" name="pw"></form><a href="/deeper">D</a></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig(3)
	cfg.Target = server.URL + "/"
	cfg.MaxDepth = 1
	cfg.Timeout = 5 * time.Second

	engine, err := NewEngine(cfg, zerolog.Nop())
	require.NoError(t, err)

	results, stats, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), stats.GetDiscovered())
	assert.Equal(t, []string{server.URL + "/", server.URL + "/b"}, resultURLs(results))

	for _, r := range results {
		if r.URL != server.URL+"/b" {
			assert.Empty(t, r.InputFields)
			continue
		}
		require.Len(t, r.InputFields, 1)
		field := r.InputFields[0]
		assert.True(t, field.ProbableSecret)
		assert.Equal(t, "pw", *field.Name)
		require.NotNil(t, field.FormMethod)
		assert.Equal(t, "post", *field.FormMethod)
	}
}

func TestEngineRun_InvalidCrawlTarget(t *testing.T) {
	cfg := testConfig(1)
	cfg.Target = "not a url"
	engine := newEngine(cfg, &fakeFetcher{}, zerolog.Nop())

	_, _, err := engine.Run(context.Background())
	assert.Error(t, err)
}

func TestNewEngine_BadClient(t *testing.T) {
	cfg := testConfig(1)
	cfg.UserAgent = "bad\nagent"
	_, err := NewEngine(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestStatsAccuracy(t *testing.T) {
	stats := NewStats(100)

	stats.IncrementProcessed()
	stats.IncrementProcessed()
	stats.IncrementErrors()
	stats.AddFields(3)
	stats.AddSecrets(1)
	stats.SetDiscovered(9)

	assert.Equal(t, int64(2), stats.GetProcessed())
	assert.Equal(t, int64(1), stats.GetErrors())
	assert.Equal(t, int64(3), stats.GetFields())
	assert.Equal(t, int64(1), stats.GetSecrets())
	assert.Equal(t, int64(9), stats.GetDiscovered())
}

func TestStatsIncrementTotal(t *testing.T) {
	stats := NewStats(10)
	stats.IncrementTotal(5)
	assert.Equal(t, int64(15), stats.GetTotal())
}

func TestStatsConcurrent(t *testing.T) {
	stats := NewStats(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.IncrementProcessed()
			stats.AddFields(2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), stats.GetProcessed())
	assert.Equal(t, int64(200), stats.GetFields())
}

func TestResultHelpers(t *testing.T) {
	r := Result{URL: "https://a.example/"}
	assert.False(t, r.Failed())
	assert.Equal(t, 0, r.SecretCount())

	r.Error = "timeout"
	assert.True(t, r.Failed())
}
