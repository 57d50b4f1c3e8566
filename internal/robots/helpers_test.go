package robots_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/silent-crawler/internal/fetcher"
	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/internal/robots"
	"github.com/rohmanhakim/silent-crawler/pkg/retry"
	"github.com/rohmanhakim/silent-crawler/pkg/timeutil"
)

const testUserAgent = "TestBot"

// errorSink counts robots errors and ignores everything else
type errorSink struct {
	metadata.NoopSink
	mu     sync.Mutex
	causes []metadata.ErrorCause
}

func (s *errorSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.causes = append(s.causes, cause)
}

func (s *errorSink) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.causes)
}

// robotsServer serves body for /robots.txt with status and counts requests to it.
type robotsServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newRobotsServer(t *testing.T, status int, body string) *robotsServer {
	t.Helper()
	rs := &robotsServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		rs.hits.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func singleAttempt() retry.RetryParam {
	return retry.NewRetryParam(0, 0, 1, 1, timeutil.NewBackoffParam(time.Millisecond, 2, 10*time.Millisecond))
}

func newRobotsFetcher(userAgent string) *robots.RobotsFetcher {
	transport := fetcher.NewHttpFetcher(&metadata.NoopSink{}, fetcher.DefaultMaxBodyBytes)
	return robots.NewRobotsFetcher(transport, userAgent, 5*time.Second, singleAttempt())
}

func newRobot(sink metadata.MetadataSink, enabled bool) *robots.Robot {
	return robots.NewRobot(sink, newRobotsFetcher(testUserAgent), enabled)
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return *u
}
