package fetcher

import (
	"context"

	"github.com/rohmanhakim/silent-crawler/pkg/failure"
	"github.com/rohmanhakim/silent-crawler/pkg/retry"
)

// Fetcher is the HTTP transport collaborator used for pages and robots.txt.
// A non-2xx response is reported as a *FetchError carrying the status code.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		crawlDepth int,
		fetchParam FetchParam,
		retryParam retry.RetryParam,
	) (FetchResult, failure.ClassifiedError)
}
