package fetcher_test

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/silent-crawler/internal/fetcher"
	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/pkg/failure"
	"github.com/rohmanhakim/silent-crawler/pkg/retry"
	"github.com/rohmanhakim/silent-crawler/pkg/timeutil"
)

// recordingSink is a test double for metadata.MetadataSink
type recordingSink struct {
	metadata.NoopSink
	mu          sync.Mutex
	fetchEvents []fetchEvent
}

type fetchEvent struct {
	fetchUrl    string
	httpStatus  int
	contentType string
	retryCount  int
	crawlDepth  int
}

func (m *recordingSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchEvents = append(m.fetchEvents, fetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		contentType: contentType,
		retryCount:  retryCount,
		crawlDepth:  crawlDepth,
	})
}

func createTestRetryParam(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(
		time.Millisecond,
		time.Millisecond,
		42,
		maxAttempts,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, 10*time.Millisecond),
	)
}

func newTestFetcher(server *httptest.Server) (*fetcher.HttpFetcher, *recordingSink) {
	sink := &recordingSink{}
	return fetcher.NewHttpFetcherWithClient(sink, server.Client(), 0), sink
}

func fetchParam(t *testing.T, raw string) fetcher.FetchParam {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return fetcher.NewFetchParam(*u, "test-agent/1.0", 2*time.Second)
}

func requireFetchError(t *testing.T, err failure.ClassifiedError) *fetcher.FetchError {
	t.Helper()
	require.Error(t, err)
	fetchErr, ok := err.(*fetcher.FetchError)
	require.True(t, ok, "expected *FetchError, got %T", err)
	return fetchErr
}

func TestHttpFetcher_Fetch_Success(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>Hello World</body></html>"))
	}))
	defer server.Close()

	f, sink := newTestFetcher(server)
	result, err := f.Fetch(context.Background(), 2, fetchParam(t, server.URL+"/"), createTestRetryParam(1))

	require.Nil(t, err)
	assert.Equal(t, 200, result.Code())
	assert.True(t, result.IsHTML())
	assert.Equal(t, "<html><body>Hello World</body></html>", string(result.Body()))
	assert.Equal(t, "test-agent/1.0", gotUserAgent)

	require.Len(t, sink.fetchEvents, 1)
	assert.Equal(t, 200, sink.fetchEvents[0].httpStatus)
	assert.Equal(t, 2, sink.fetchEvents[0].crawlDepth)
	assert.Equal(t, 0, sink.fetchEvents[0].retryCount)
}

func TestHttpFetcher_Fetch_NonHTMLBodySkippedWhenHTMLOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	f, _ := newTestFetcher(server)

	result, err := f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/logo.png").HTMLOnly(), createTestRetryParam(1))
	require.Nil(t, err)
	assert.Equal(t, 200, result.Code())
	assert.False(t, result.IsHTML())
	assert.Empty(t, result.Body())

	result, err = f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/logo.png"), createTestRetryParam(1))
	require.Nil(t, err)
	assert.Len(t, result.Body(), 4)
}

func TestHttpFetcher_Fetch_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		cause     fetcher.FetchErrorCause
		retryable bool
	}{
		{http.StatusNotFound, fetcher.ErrCauseRequestClientError, false},
		{http.StatusForbidden, fetcher.ErrCauseRequestPageForbidden, false},
		{http.StatusUnauthorized, fetcher.ErrCauseRequestPageForbidden, false},
		{http.StatusTooManyRequests, fetcher.ErrCauseRequestTooMany, true},
		{http.StatusInternalServerError, fetcher.ErrCauseRequest5xx, true},
		{http.StatusBadGateway, fetcher.ErrCauseRequest5xx, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			f, sink := newTestFetcher(server)
			_, err := f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/"), createTestRetryParam(1))

			fetchErr := requireFetchError(t, err)
			assert.Equal(t, tt.cause, fetchErr.Cause)
			assert.Equal(t, tt.retryable, fetchErr.Retryable)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Equal(t, failure.SeverityRecoverable, fetchErr.Severity())

			require.Len(t, sink.fetchEvents, 1)
			assert.Equal(t, tt.status, sink.fetchEvents[0].httpStatus)
		})
	}
}

func TestHttpFetcher_Fetch_SuccessAfterRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	f, sink := newTestFetcher(server)
	result, err := f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/"), createTestRetryParam(3))

	require.Nil(t, err)
	assert.Equal(t, 200, result.Code())
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, sink.fetchEvents, 1)
	assert.Equal(t, 2, sink.fetchEvents[0].retryCount)
}

func TestHttpFetcher_Fetch_NonRetryableStopsImmediately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f, _ := newTestFetcher(server)
	_, err := f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/"), createTestRetryParam(3))

	requireFetchError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHttpFetcher_Fetch_ExhaustedRetriesReturnsLastFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f, _ := newTestFetcher(server)
	_, err := f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/"), createTestRetryParam(2))

	fetchErr := requireFetchError(t, err)
	assert.Equal(t, fetcher.ErrCauseRequest5xx, fetchErr.Cause)
}

func TestHttpFetcher_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	u, _ := url.Parse(server.URL + "/slow/")
	param := fetcher.NewFetchParam(*u, "test-agent", 50*time.Millisecond)

	f, _ := newTestFetcher(server)
	start := time.Now()
	_, err := f.Fetch(context.Background(), 0, param, createTestRetryParam(1))

	fetchErr := requireFetchError(t, err)
	assert.Equal(t, fetcher.ErrCauseTimeout, fetchErr.Cause)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHttpFetcher_Fetch_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, _ := newTestFetcher(server)
	_, err := f.Fetch(ctx, 0, fetchParam(t, server.URL+"/"), createTestRetryParam(3))

	fetchErr := requireFetchError(t, err)
	assert.Equal(t, fetcher.ErrCauseCancelled, fetchErr.Cause)
	assert.False(t, fetchErr.Retryable)
}

func TestHttpFetcher_Fetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	f := fetcher.NewHttpFetcher(&metadata.NoopSink{}, 0)
	_, err := f.Fetch(context.Background(), 0, fetchParam(t, addr+"/"), createTestRetryParam(1))

	fetchErr := requireFetchError(t, err)
	assert.Equal(t, fetcher.ErrCauseNetworkFailure, fetchErr.Cause)
	assert.Equal(t, metadata.CauseNetworkFailure, fetcher.MapFetchErrorToMetadataCause(fetchErr))
}

func TestHttpFetcher_Fetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<a href='x'>x</a>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f, _ := newTestFetcher(server)
	result, err := f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/old/"), createTestRetryParam(1))

	require.Nil(t, err)
	requested := result.URL()
	final := result.FinalURL()
	assert.Equal(t, "/old/", requested.Path)
	assert.Equal(t, "/new/", final.Path)
}

func TestHttpFetcher_Fetch_DecodesContentEncoding(t *testing.T) {
	const page = "<html><body><a href='/about/'>About</a></body></html>"

	tests := []struct {
		encoding string
		write    func(w http.ResponseWriter)
	}{
		{"gzip", func(w http.ResponseWriter) {
			gz := gzip.NewWriter(w)
			gz.Write([]byte(page))
			gz.Close()
		}},
		{"deflate", func(w http.ResponseWriter) {
			zw := zlib.NewWriter(w)
			zw.Write([]byte(page))
			zw.Close()
		}},
		{"br", func(w http.ResponseWriter) {
			bw := brotli.NewWriter(w)
			bw.Write([]byte(page))
			bw.Close()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), tt.encoding)
				w.Header().Set("Content-Type", "text/html")
				w.Header().Set("Content-Encoding", tt.encoding)
				tt.write(w)
			}))
			defer server.Close()

			f, _ := newTestFetcher(server)
			result, err := f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/"), createTestRetryParam(1))

			require.Nil(t, err)
			assert.Equal(t, page, string(result.Body()))
		})
	}
}

func TestHttpFetcher_Fetch_UnsupportedEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "zstd")
		w.Write([]byte("garbage"))
	}))
	defer server.Close()

	f, _ := newTestFetcher(server)
	_, err := f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/"), createTestRetryParam(1))

	fetchErr := requireFetchError(t, err)
	assert.Equal(t, fetcher.ErrCauseUnsupportedEncoding, fetchErr.Cause)
}

func TestHttpFetcher_Fetch_BodyCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(strings.Repeat("a", 4096)))
	}))
	defer server.Close()

	f := fetcher.NewHttpFetcherWithClient(&metadata.NoopSink{}, server.Client(), 1024)
	result, err := f.Fetch(context.Background(), 0, fetchParam(t, server.URL+"/"), createTestRetryParam(1))

	require.Nil(t, err)
	assert.Len(t, result.Body(), 1024)
	assert.Equal(t, uint64(1024), result.SizeByte())
}

func TestNewFetchResultForTest(t *testing.T) {
	u, _ := url.Parse("https://example.com/")
	result := fetcher.NewFetchResultForTest(*u, []byte("<html></html>"), 200, "text/html", nil)

	assert.Equal(t, 200, result.Code())
	assert.True(t, result.IsHTML())
	assert.Equal(t, "text/html", result.ContentType())
	final := result.FinalURL()
	assert.Equal(t, "https://example.com/", final.String())
}
