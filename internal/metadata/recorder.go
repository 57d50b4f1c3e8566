package metadata

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Crawl depth
- Skip reasons

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Determinism guarantees:
 - Metadata does not affect control flow
 - Errors do not reorder the frontier
 - Jitter is seed-controlled

Metadata is write-only.
No component may read metadata to influence crawl decisions.
*/

/*
Recorder captures structured crawl events.
It logs through zerolog and mirrors every event into Prometheus collectors.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events are recorded synchronously in the order they are received by a single worker.
- No global ordering across workers is guaranteed.
*/
type Recorder struct {
	logger   zerolog.Logger
	metrics  *Metrics
	crawlID  string
	workerID int
}

// NewRecorder creates a recorder for one crawl. metrics may be nil.
func NewRecorder(logger zerolog.Logger, metrics *Metrics) *Recorder {
	crawlID := uuid.NewString()
	return &Recorder{
		logger:   logger.With().Str("crawl_id", crawlID).Logger(),
		metrics:  metrics,
		crawlID:  crawlID,
		workerID: -1,
	}
}

// ForWorker returns a recorder whose events carry the worker id.
// Collectors are shared with the parent.
func (r *Recorder) ForWorker(id int) *Recorder {
	return &Recorder{
		logger:   r.logger.With().Int("worker", id).Logger(),
		metrics:  r.metrics,
		crawlID:  r.crawlID,
		workerID: id,
	}
}

func (r *Recorder) CrawlID() string {
	return r.crawlID
}

func (r *Recorder) WorkerID() int {
	return r.workerID
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	record := ErrorRecord{
		packageName: packageName,
		action:      action,
		cause:       cause,
		errorString: errorString,
		observedAt:  observedAt,
		attrs:       attrs,
	}

	event := r.logger.Warn().
		Time(string(AttrTime), record.observedAt).
		Str("package", record.packageName).
		Str("action", record.action).
		Stringer("cause", record.cause)
	for _, attr := range record.attrs {
		event = event.Str(string(attr.Key), attr.Value)
	}
	event.Msg(record.errorString)

	if r.metrics != nil {
		r.metrics.errors.WithLabelValues(record.packageName, record.cause.String()).Inc()
	}
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	fetch := FetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		retryCount:  retryCount,
		crawlDepth:  crawlDepth,
	}

	r.logger.Debug().
		Str(string(AttrURL), fetch.fetchUrl).
		Int("status", fetch.httpStatus).
		Dur("duration", fetch.duration).
		Str("content_type", fetch.contentType).
		Int("retries", fetch.retryCount).
		Int(string(AttrDepth), fetch.crawlDepth).
		Msg("fetched")

	if r.metrics != nil {
		r.metrics.fetches.WithLabelValues(fetchOutcome(fetch.httpStatus)).Inc()
		r.metrics.fetchDuration.Observe(fetch.duration.Seconds())
	}
}

func (r *Recorder) RecordSkip(reason SkipReason, skippedUrl string, crawlDepth int) {
	r.logger.Debug().
		Str("reason", string(reason)).
		Str(string(AttrURL), skippedUrl).
		Int(string(AttrDepth), crawlDepth).
		Msg("skipped")

	if r.metrics != nil {
		r.metrics.skips.WithLabelValues(string(reason)).Inc()
	}
}

/*
RecordFinalCrawlStats records a terminal, derived summary of a completed crawl.

Contract:
  - MUST be called exactly once per crawl execution.
  - MUST be called only after crawl termination
    (frontier drained or crawl interrupted).
  - The provided stats MUST be derived from scheduler state,
    not accumulated incrementally via the recorder.
  - Recorded stats MUST NOT influence control flow or scheduling.
*/
func (r *Recorder) RecordFinalCrawlStats(
	totalPages int,
	totalErrors int,
	totalSkips int,
	duration time.Duration,
) {
	stats := crawlStats{
		totalPages:  totalPages,
		totalErrors: totalErrors,
		totalSkips:  totalSkips,
		durationMs:  duration.Milliseconds(),
	}

	r.logger.Info().
		Int("pages", stats.totalPages).
		Int("errors", stats.totalErrors).
		Int("skips", stats.totalSkips).
		Int64("duration_ms", stats.durationMs).
		Msg("crawl finished")
}
