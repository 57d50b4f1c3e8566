package scheduler_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rohmanhakim/silent-crawler/internal/config"
	"github.com/rohmanhakim/silent-crawler/internal/fetcher"
	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/internal/robots"
	"github.com/rohmanhakim/silent-crawler/internal/scheduler"
	"github.com/rohmanhakim/silent-crawler/pkg/failure"
	"github.com/rohmanhakim/silent-crawler/pkg/retry"
)

const testUserAgent = "TestBot/1.0"

type page struct {
	status      int
	contentType string
	body        string
}

func htmlPage(body string) page {
	return page{status: http.StatusOK, contentType: "text/html; charset=utf-8", body: body}
}

// siteFetcher serves a fixed set of pages keyed by absolute URL.
// Unknown URLs answer 404.
type siteFetcher struct {
	mu        sync.Mutex
	pages     map[string]page
	requested []string
	// onFetch, when set, runs before every page is served.
	onFetch func(rawURL string)
}

func newSiteFetcher(pages map[string]page) *siteFetcher {
	return &siteFetcher{pages: pages}
}

func (s *siteFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam fetcher.FetchParam,
	retryParam retry.RetryParam,
) (fetcher.FetchResult, failure.ClassifiedError) {
	target := fetchParam.URL()
	rawURL := target.String()

	s.mu.Lock()
	s.requested = append(s.requested, rawURL)
	p, ok := s.pages[rawURL]
	hook := s.onFetch
	s.mu.Unlock()

	if hook != nil {
		hook(rawURL)
	}
	if err := ctx.Err(); err != nil {
		return fetcher.FetchResult{}, &fetcher.FetchError{
			Message: err.Error(),
			Cause:   fetcher.ErrCauseCancelled,
		}
	}
	if !ok {
		return fetcher.FetchResult{}, &fetcher.FetchError{
			Message:    "not found",
			Cause:      fetcher.ErrCauseRequestClientError,
			StatusCode: http.StatusNotFound,
		}
	}
	if p.status >= 400 {
		return fetcher.FetchResult{}, &fetcher.FetchError{
			Message:    http.StatusText(p.status),
			Cause:      fetcher.ErrCauseRequest5xx,
			StatusCode: p.status,
		}
	}
	return fetcher.NewFetchResultForTest(target, []byte(p.body), p.status, p.contentType, nil), nil
}

func (s *siteFetcher) requestCount(rawURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, r := range s.requested {
		if r == rawURL {
			count++
		}
	}
	return count
}

func (s *siteFetcher) requestedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requested...)
}

// pacerMock lets tests assert how often workers were paced.
type pacerMock struct {
	mock.Mock
}

func (p *pacerMock) ResolveDelay() time.Duration {
	args := p.Called()
	return args.Get(0).(time.Duration)
}

func (p *pacerMock) Wait(ctx context.Context) error {
	args := p.Called(ctx)
	return args.Error(0)
}

func newPacerMock() *pacerMock {
	p := new(pacerMock)
	p.On("Wait", mock.Anything).Return(nil)
	return p
}

type mockFinalizer struct {
	mock.Mock
}

func (m *mockFinalizer) RecordFinalCrawlStats(
	totalPages int,
	totalErrors int,
	totalSkips int,
	duration time.Duration,
) {
	m.Called(totalPages, totalErrors, totalSkips, duration)
}

// countingSink tallies errors and skips recorded by the scheduler.
type countingSink struct {
	metadata.NoopSink
	mu     sync.Mutex
	errors []string
	skips  map[metadata.SkipReason][]string
}

func newCountingSink() *countingSink {
	return &countingSink{skips: make(map[metadata.SkipReason][]string)}
}

func (c *countingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, packageName+"/"+action)
}

func (c *countingSink) RecordSkip(reason metadata.SkipReason, skippedUrl string, crawlDepth int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skips[reason] = append(c.skips[reason], skippedUrl)
}

func (c *countingSink) skipped(reason metadata.SkipReason) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.skips[reason]...)
}

func (c *countingSink) errorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return *u
}

// testConfig builds a config with no pacing delay so crawls finish fast.
func testConfig(t *testing.T, seed string, mutate func(c *config.Config)) config.Config {
	t.Helper()
	builder := config.WithDefault(mustURL(t, seed)).
		WithBaseDelay(0).
		WithJitter(0).
		WithRandomSeed(1).
		WithUserAgent(testUserAgent)
	if mutate != nil {
		mutate(builder)
	}
	cfg, err := builder.Build()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	return cfg
}

type harness struct {
	site      *siteFetcher
	sink      *countingSink
	pacer     *pacerMock
	finalizer *mockFinalizer
	scheduler *scheduler.Scheduler
}

func newHarness(t *testing.T, cfg config.Config, site *siteFetcher) *harness {
	t.Helper()
	sink := newCountingSink()
	pacer := newPacerMock()
	finalizer := new(mockFinalizer)
	finalizer.On("RecordFinalCrawlStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	robotsFetcher := robots.NewRobotsFetcher(site, cfg.UserAgent(), cfg.Timeout(), retry.RetryParam{MaxAttempts: 1})
	s := scheduler.NewSchedulerWithDeps(cfg, scheduler.Deps{
		MetadataSink:   sink,
		CrawlFinalizer: finalizer,
		Fetcher:        site,
		Robot:          robots.NewRobot(sink, robotsFetcher, cfg.RespectRobots()),
		Pacer:          pacer,
	})
	return &harness{
		site:      site,
		sink:      sink,
		pacer:     pacer,
		finalizer: finalizer,
		scheduler: s,
	}
}
