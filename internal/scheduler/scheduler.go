package scheduler

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rohmanhakim/silent-crawler/internal/config"
	"github.com/rohmanhakim/silent-crawler/internal/extractor"
	"github.com/rohmanhakim/silent-crawler/internal/fetcher"
	"github.com/rohmanhakim/silent-crawler/internal/frontier"
	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/internal/normalize"
	"github.com/rohmanhakim/silent-crawler/internal/results"
	"github.com/rohmanhakim/silent-crawler/internal/robots"
	"github.com/rohmanhakim/silent-crawler/pkg/failure"
	"github.com/rohmanhakim/silent-crawler/pkg/limiter"
	"github.com/rohmanhakim/silent-crawler/pkg/retry"
	"github.com/rohmanhakim/silent-crawler/pkg/timeutil"
)

/*
 Scheduler is the sole control-plane authority of the crawl.

 Admission guarantees:
 - Scheduler is the ONLY component allowed to offer a URL to the frontier.
 - Scope, robots and depth checks are completed before a link is offered.
 - The frontier only deduplicates and bounds what it is offered.
 - Pipeline stages may detect and classify failure, but never decide
   retry, continuation, or abortion.

 Metadata emission is observational only and MUST NOT influence
 scheduling, retries, or crawl termination.

 Scheduler Responsibilities:
 - Seed the frontier and run the worker pool
 - Pace every fetch (fixed delay plus jitter)
 - Record results into the aggregator
 - Stop when the frontier drains or the context is cancelled
 - Aggregate crawl statistics
*/

// linkExtractor is the slice of extractor.DomExtractor the workers use.
type linkExtractor interface {
	Extract(sourceUrl url.URL, htmlByte []byte) (extractor.ExtractionResult, failure.ClassifiedError)
}

// Deps are the collaborators of a Scheduler.
// WorkerSink is optional; when nil every worker records through MetadataSink.
type Deps struct {
	MetadataSink   metadata.MetadataSink
	CrawlFinalizer metadata.CrawlFinalizer
	WorkerSink     func(workerID int) metadata.MetadataSink
	Fetcher        fetcher.Fetcher
	Robot          *robots.Robot
	Pacer          limiter.Pacer
}

type Scheduler struct {
	cfg            config.Config
	metadataSink   metadata.MetadataSink
	crawlFinalizer metadata.CrawlFinalizer
	workerSink     func(workerID int) metadata.MetadataSink
	htmlFetcher    fetcher.Fetcher
	robot          *robots.Robot
	pacer          limiter.Pacer
	frontier       *frontier.CrawlFrontier
	scope          normalize.Scope
	aggregator     *results.Aggregator
	retryParam     retry.RetryParam

	totalPages  atomic.Int64
	totalErrors atomic.Int64
	totalSkips  atomic.Int64
}

// NewScheduler wires the production collaborators around recorder.
func NewScheduler(cfg config.Config, recorder *metadata.Recorder) *Scheduler {
	transport := fetcher.NewHttpFetcher(recorder, cfg.MaxBodyBytes())
	robotsFetcher := robots.NewRobotsFetcher(transport, cfg.UserAgent(), cfg.Timeout(), singleAttempt())

	return NewSchedulerWithDeps(cfg, Deps{
		MetadataSink:   recorder,
		CrawlFinalizer: recorder,
		WorkerSink: func(workerID int) metadata.MetadataSink {
			return recorder.ForWorker(workerID)
		},
		Fetcher: transport,
		Robot:   robots.NewRobot(recorder, robotsFetcher, cfg.RespectRobots()),
		Pacer:   limiter.NewConcurrentPacer(cfg.BaseDelay(), cfg.Jitter(), cfg.RandomSeed()),
	})
}

// NewSchedulerWithDeps creates a Scheduler with injected dependencies.
func NewSchedulerWithDeps(cfg config.Config, deps Deps) *Scheduler {
	workerSink := deps.WorkerSink
	if workerSink == nil {
		workerSink = func(int) metadata.MetadataSink { return deps.MetadataSink }
	}
	return &Scheduler{
		cfg:            cfg,
		metadataSink:   deps.MetadataSink,
		crawlFinalizer: deps.CrawlFinalizer,
		workerSink:     workerSink,
		htmlFetcher:    deps.Fetcher,
		robot:          deps.Robot,
		pacer:          deps.Pacer,
		frontier:       frontier.NewCrawlFrontier(cfg.MaxDepth(), cfg.MaxPages()),
		scope:          normalize.NewScope(cfg.SeedURL()),
		aggregator:     results.NewAggregator(),
		retryParam: retry.NewRetryParam(
			cfg.BaseDelay(),
			cfg.Jitter(),
			cfg.RandomSeed(),
			cfg.MaxAttempt(),
			timeutil.NewBackoffParam(
				cfg.BackoffInitialDuration(),
				cfg.BackoffMultiplier(),
				cfg.BackoffMaxDuration(),
			),
		),
	}
}

// singleAttempt is used for robots.txt, which is never retried.
func singleAttempt() retry.RetryParam {
	return retry.NewRetryParam(0, 0, 0, 1, timeutil.NewBackoffParam(0, 1, 0))
}

// Run crawls from the seed until the frontier drains or ctx is cancelled.
// Results gathered before a cancellation are still returned.
// Only a fatal error aborts the crawl and is returned.
func (s *Scheduler) Run(ctx context.Context) (CrawlingExecution, error) {
	crawlStartTime := time.Now()

	s.frontier.Offer(s.cfg.SeedURL(), 0)

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Concurrency(); i++ {
		workerID := i
		group.Go(func() error {
			return s.work(groupCtx, workerID)
		})
	}
	err := group.Wait()

	stats := CrawlStats{
		Admitted:    s.frontier.VisitedCount(),
		Unvisited:   s.frontier.Pending(),
		TotalPages:  int(s.totalPages.Load()),
		TotalErrors: int(s.totalErrors.Load()),
		TotalSkips:  int(s.totalSkips.Load()),
		Duration:    time.Since(crawlStartTime),
	}
	s.crawlFinalizer.RecordFinalCrawlStats(
		stats.TotalPages,
		stats.TotalErrors,
		stats.TotalSkips,
		stats.Duration,
	)

	return CrawlingExecution{
		Results:     s.aggregator.Snapshot(),
		Stats:       stats,
		Interrupted: ctx.Err() != nil || err != nil,
	}, err
}

func (s *Scheduler) work(ctx context.Context, workerID int) error {
	sink := s.workerSink(workerID)
	domExtractor := extractor.NewDomExtractor(sink)

	for {
		token, ok := s.frontier.Take(ctx)
		if !ok {
			return nil
		}
		err := s.process(ctx, sink, &domExtractor, token)
		s.frontier.Done()
		if err != nil {
			return err
		}
	}
}

// process visits one frontier entry. The returned error is always fatal.
func (s *Scheduler) process(
	ctx context.Context,
	sink metadata.MetadataSink,
	domExtractor linkExtractor,
	token frontier.CrawlToken,
) failure.ClassifiedError {
	pageURL := token.URL()
	depth := token.Depth()

	switch s.scope.Classify(pageURL) {
	case normalize.External:
		s.skip(sink, metadata.SkipExternal, pageURL, depth)
		return nil
	case normalize.Subdomain:
		s.aggregator.RecordSubdomain(pageURL.Hostname())
	}

	if !s.robot.IsAllowed(ctx, pageURL) {
		s.skip(sink, metadata.SkipRobotsDisallow, pageURL, depth)
		return nil
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return nil
	}

	fetchParam := fetcher.NewFetchParam(pageURL, s.cfg.UserAgent(), s.cfg.Timeout()).HTMLOnly()
	fetchResult, err := s.htmlFetcher.Fetch(ctx, depth, fetchParam, s.retryParam)
	if err != nil {
		if ctx.Err() != nil {
			// interrupted, not a page failure
			return nil
		}
		s.recordFetchError(sink, err, pageURL, depth)
		if failure.IsFatal(err) {
			return err
		}
		return nil
	}

	if !fetchResult.IsHTML() {
		if s.cfg.RecordNonHTML() {
			s.totalPages.Add(1)
			s.aggregator.RecordURL(pageURL)
			s.aggregator.RecordDirectory(normalize.Directory(pageURL))
		} else {
			s.skip(sink, metadata.SkipNonHTML, pageURL, depth)
		}
		return nil
	}

	s.totalPages.Add(1)
	s.aggregator.RecordURL(pageURL)
	s.aggregator.RecordDirectory(normalize.Directory(pageURL))

	extraction, err := domExtractor.Extract(fetchResult.FinalURL(), fetchResult.Body())
	if err != nil {
		s.totalErrors.Add(1)
		if failure.IsFatal(err) {
			return err
		}
		return nil
	}

	for _, href := range extraction.Hrefs {
		s.admitLink(ctx, sink, href, extraction.BaseURL, depth+1)
	}
	return nil
}

// admitLink normalizes and classifies one discovered href, records it and
// offers it to the frontier when it may be crawled at depth.
func (s *Scheduler) admitLink(
	ctx context.Context,
	sink metadata.MetadataSink,
	href string,
	base url.URL,
	depth int,
) {
	link, err := normalize.Normalize(href, base)
	if err != nil {
		// unusable hrefs are expected in real pages
		return
	}

	switch s.scope.Classify(link) {
	case normalize.External:
		if s.cfg.RecordExternal() {
			s.aggregator.RecordExternal(link)
		}
		return
	case normalize.Subdomain:
		s.aggregator.RecordSubdomain(link.Hostname())
	}

	if !s.robot.IsAllowed(ctx, link) {
		s.skip(sink, metadata.SkipRobotsDisallow, link, depth)
		return
	}

	s.aggregator.RecordDirectory(normalize.Directory(link))

	if depth <= s.cfg.MaxDepth() {
		s.frontier.Offer(link, depth)
	}
}

func (s *Scheduler) skip(sink metadata.MetadataSink, reason metadata.SkipReason, u url.URL, depth int) {
	s.totalSkips.Add(1)
	sink.RecordSkip(reason, u.String(), depth)
}

func (s *Scheduler) recordFetchError(sink metadata.MetadataSink, err failure.ClassifiedError, u url.URL, depth int) {
	s.totalErrors.Add(1)

	cause := metadata.CauseUnknown
	status := 0
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		cause = fetcher.MapFetchErrorToMetadataCause(fetchErr)
		status = fetchErr.StatusCode
	}

	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, u.String()),
		metadata.NewAttr(metadata.AttrHost, u.Hostname()),
		metadata.NewAttr(metadata.AttrDepth, strconv.Itoa(depth)),
	}
	if status != 0 {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHTTPStatus, strconv.Itoa(status)))
	}

	sink.RecordError(
		time.Now(),
		"scheduler",
		"Scheduler.fetch",
		cause,
		err.Error(),
		attrs,
	)
}
