package scheduler

import (
	"time"

	"github.com/rohmanhakim/silent-crawler/internal/results"
)

// CrawlingExecution is the outcome of one crawl run.
type CrawlingExecution struct {
	Results results.ResultSets
	Stats   CrawlStats
	// Interrupted is set when the crawl stopped before the frontier drained.
	Interrupted bool
}

// CrawlStats counts what a run did. Admitted is the number of URLs the frontier
// accepted, seed included; Unvisited is how many of them were still queued when
// the crawl stopped.
type CrawlStats struct {
	Admitted    int
	Unvisited   int
	TotalPages  int
	TotalErrors int
	TotalSkips  int
	Duration    time.Duration
}
