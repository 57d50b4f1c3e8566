package limiter

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rohmanhakim/silent-crawler/pkg/timeutil"
)

// DefaultJitter is the upper bound of the random delay added before every fetch.
const DefaultJitter = 500 * time.Millisecond

// Pacer
// Specialized component to space out requests during crawling
// Responsibilities:
// - Compute the delay before each fetch: base delay plus uniform jitter
// - Suspend the calling worker for that delay without blocking other workers
// - Keep the jitter sequence reproducible for a given seed
type Pacer interface {
	ResolveDelay() time.Duration
	Wait(ctx context.Context) error
}

// ConcurrentPacer is safe for use by many workers. Only the random source
// is shared mutable state.
type ConcurrentPacer struct {
	baseDelay time.Duration
	jitter    time.Duration
	rngMu     sync.Mutex
	rng       *rand.Rand
}

// NewConcurrentPacer creates a pacer. A zero seed selects a time based seed.
func NewConcurrentPacer(baseDelay, jitter time.Duration, randomSeed int64) *ConcurrentPacer {
	if randomSeed == 0 {
		randomSeed = time.Now().UnixNano()
	}
	return &ConcurrentPacer{
		baseDelay: baseDelay,
		jitter:    jitter,
		rng:       rand.New(rand.NewSource(randomSeed)),
	}
}

// ResolveDelay returns baseDelay + uniform[0, jitter).
// Jitter is added even when the base delay is zero.
func (p *ConcurrentPacer) ResolveDelay() time.Duration {
	return p.baseDelay + p.computeJitter(p.jitter)
}

// Wait sleeps for one resolved delay or until ctx is done, whichever comes first.
func (p *ConcurrentPacer) Wait(ctx context.Context) error {
	delay := p.ResolveDelay()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *ConcurrentPacer) computeJitter(max time.Duration) time.Duration {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()

	return timeutil.ComputeJitter(max, p.rng)
}
