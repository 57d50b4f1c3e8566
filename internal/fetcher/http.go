package fetcher

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/pkg/failure"
	"github.com/rohmanhakim/silent-crawler/pkg/retry"
)

/*
Responsibilities

- Perform HTTP requests
- Apply headers and timeouts
- Handle redirects safely
- Decode compressed bodies
- Classify responses

Fetch Semantics

- Only 2xx responses are successful
- Redirect chains are bounded
- Bodies are capped at maxBodyBytes
- Every completed fetch is recorded with metadata

The fetcher never parses content; it only returns bytes and metadata.
*/

const (
	DefaultMaxBodyBytes = 10 << 20
	maxRedirects        = 10
)

type HttpFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	maxBodyBytes int64
}

func NewHttpFetcher(
	metadataSink metadata.MetadataSink,
	maxBodyBytes int64,
) *HttpFetcher {
	return NewHttpFetcherWithClient(metadataSink, newHttpClient(), maxBodyBytes)
}

// NewHttpFetcherWithClient creates a fetcher with a custom HTTP client.
// This is useful for testing.
func NewHttpFetcherWithClient(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	maxBodyBytes int64,
) *HttpFetcher {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &HttpFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		maxBodyBytes: maxBodyBytes,
	}
}

func newHttpClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

func (h *HttpFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	startTime := time.Now()

	result := retry.Retry(ctx, retryParam, func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchParam)
	})

	duration := time.Since(startTime)

	value := result.Value()
	statusCode := value.Code()
	contentType := value.ContentType()
	if err := result.Err(); err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			statusCode = fetchErr.StatusCode
		}
	}

	retryCount := 0
	if result.Attempts() > 1 {
		retryCount = result.Attempts() - 1
	}

	if h.metadataSink != nil {
		h.metadataSink.RecordFetch(
			fetchParam.fetchUrl.String(),
			statusCode,
			duration,
			contentType,
			retryCount,
			crawlDepth,
		)
	}

	if err := result.Err(); err != nil {
		// Prefer the transport error of the last attempt over the retry wrapper
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return FetchResult{}, fetchErr
		}
		return FetchResult{}, err
	}

	return value, nil
}

func (h *HttpFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	attemptCtx := ctx
	if fetchParam.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, fetchParam.timeout)
		defer cancel()
	}

	fetchUrl := fetchParam.fetchUrl
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}

	for key, value := range requestHeaders(fetchParam.userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if statusErr := classifyStatus(resp.StatusCode); statusErr != nil {
		return FetchResult{}, statusErr
	}

	contentType := resp.Header.Get("Content-Type")

	var body []byte
	if !fetchParam.htmlOnly || isHTMLContent(contentType) {
		body, err = h.readBody(resp)
		if err != nil {
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) {
				return FetchResult{}, fetchErr
			}
			if ctxErr := classifyContextError(ctx, attemptCtx); ctxErr != nil {
				return FetchResult{}, ctxErr
			}
			return FetchResult{}, &FetchError{
				Message:   fmt.Sprintf("failed to read response body: %v", err),
				Retryable: true,
				Cause:     ErrCauseReadResponseBodyError,
			}
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	finalUrl := fetchUrl
	if resp.Request != nil && resp.Request.URL != nil {
		finalUrl = *resp.Request.URL
	}

	return FetchResult{
		url:      fetchUrl,
		finalUrl: finalUrl,
		body:     body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			contentType:         contentType,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}, nil
}

// readBody decodes the Content-Encoding and caps the decoded size at maxBodyBytes.
func (h *HttpFetcher) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); encoding {
	case "", "identity":
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &FetchError{
				Message:   fmt.Sprintf("invalid gzip body: %v", err),
				Retryable: false,
				Cause:     ErrCauseReadResponseBodyError,
			}
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, &FetchError{
				Message:   fmt.Sprintf("invalid deflate body: %v", err),
				Retryable: false,
				Cause:     ErrCauseReadResponseBodyError,
			}
		}
		defer zr.Close()
		reader = zr
	case "br":
		reader = brotli.NewReader(resp.Body)
	default:
		return nil, &FetchError{
			Message:   encoding,
			Retryable: false,
			Cause:     ErrCauseUnsupportedEncoding,
		}
	}

	return io.ReadAll(io.LimitReader(reader, h.maxBodyBytes))
}

func classifyTransportError(parent context.Context, err error) *FetchError {
	if parent.Err() != nil {
		return &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseCancelled,
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme") {
		return &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}

	// Network/transport errors are retryable
	return &FetchError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     ErrCauseNetworkFailure,
	}
}

func classifyContextError(parent, attempt context.Context) *FetchError {
	switch {
	case parent.Err() != nil:
		return &FetchError{Message: parent.Err().Error(), Retryable: false, Cause: ErrCauseCancelled}
	case attempt.Err() != nil:
		return &FetchError{Message: attempt.Err().Error(), Retryable: true, Cause: ErrCauseTimeout}
	default:
		return nil
	}
}

func classifyStatus(statusCode int) *FetchError {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil

	case statusCode >= 500:
		// Server errors (5xx) are retryable
		return &FetchError{
			Message:    fmt.Sprintf("server error: %d", statusCode),
			Retryable:  true,
			Cause:      ErrCauseRequest5xx,
			StatusCode: statusCode,
		}

	case statusCode == http.StatusTooManyRequests:
		return &FetchError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseRequestTooMany,
			StatusCode: statusCode,
		}

	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return &FetchError{
			Message:    fmt.Sprintf("access denied (%d)", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestPageForbidden,
			StatusCode: statusCode,
		}

	case statusCode >= 400:
		return &FetchError{
			Message:    fmt.Sprintf("client error: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestClientError,
			StatusCode: statusCode,
		}

	case statusCode >= 300:
		// the client follows redirects, so a 3xx here means the chain was cut
		return &FetchError{
			Message:    fmt.Sprintf("redirect error: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRedirectLimitExceeded,
			StatusCode: statusCode,
		}

	default:
		return &FetchError{
			Message:    fmt.Sprintf("unexpected status: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestClientError,
			StatusCode: statusCode,
		}
	}
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate, br",
		"DNT":             "1",
		"Connection":      "keep-alive",
	}
}
