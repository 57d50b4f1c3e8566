package frontier

import (
	"context"
	"net/url"
	"sync"

	"github.com/rohmanhakim/silent-crawler/pkg/hashutil"
	"github.com/rohmanhakim/silent-crawler/pkg/urlutil"
)

/*
Frontier Responsibilities
- Maintain FIFO (breadth-first) ordering
- Hand out one depth level at a time, so every URL is admitted at its minimal depth
- Deduplicate URLs by canonical fingerprint
- Enforce the depth bound and optional page cap
- Detect termination: queue empty and no entry in progress
- Knows nothing about:
	- fetching
	- extraction
	- robots
	- results

It is a data structure + policy module, not a pipeline executor.
*/

type CrawlFrontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue   *FIFOQueue[CrawlToken]
	visited Set[hashutil.Fingerprint]

	maxDepth int
	// maxPages caps admissions; zero means unlimited
	maxPages int

	// outstanding counts tokens taken but not yet Done
	outstanding int
	// level is the depth of every outstanding token
	level int
}

func NewCrawlFrontier(maxDepth int, maxPages int) *CrawlFrontier {
	f := &CrawlFrontier{
		queue:    NewFIFOQueue[CrawlToken](),
		visited:  NewSet[hashutil.Fingerprint](),
		maxDepth: maxDepth,
		maxPages: maxPages,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Offer admits u at depth unless it was already admitted, the depth lies outside
// [0, maxDepth] or the page cap is reached. The URL is marked visited on admission.
func (f *CrawlFrontier) Offer(u url.URL, depth int) bool {
	if depth < 0 || depth > f.maxDepth {
		return false
	}

	canonical := urlutil.Canonicalize(u)
	fingerprint := hashutil.FingerprintOf(canonical.String())

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.maxPages > 0 && f.visited.Size() >= f.maxPages {
		return false
	}
	if !f.visited.Add(fingerprint) {
		return false
	}

	f.queue.Enqueue(NewCrawlToken(canonical, depth))
	f.cond.Signal()
	return true
}

// Take blocks until a token is available. It returns false once the frontier is
// drained (queue empty and no token outstanding) or ctx is cancelled.
// A token deeper than the outstanding ones is held back until they are all Done:
// a URL reachable at depth d must be offered at d before anything can offer it at d+1.
// Every successful Take must be paired with a Done.
func (f *CrawlFrontier) Take(ctx context.Context) (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cond.Broadcast()
	})
	defer stop()

	for ctx.Err() == nil && f.outstanding > 0 {
		head, ok := f.queue.Peek()
		if ok && head.depth <= f.level {
			break
		}
		f.cond.Wait()
	}

	if ctx.Err() != nil {
		return CrawlToken{}, false
	}

	token, ok := f.queue.Dequeue()
	if !ok {
		// drained; release the other waiters
		f.cond.Broadcast()
		return CrawlToken{}, false
	}
	f.outstanding++
	f.level = token.depth
	return token, true
}

// Done marks one taken token as finished, including every Offer made while processing it.
// Finishing the last token of a level releases the next level, or the drain.
func (f *CrawlFrontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.outstanding > 0 {
		f.outstanding--
	}
	if f.outstanding == 0 {
		f.cond.Broadcast()
	}
}

// VisitedCount returns the number of admitted URLs.
func (f *CrawlFrontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}

// Pending returns the number of queued tokens not yet taken.
func (f *CrawlFrontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Size()
}
